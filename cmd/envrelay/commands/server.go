package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/envrelay/envrelay/internal/conventions"
	"github.com/envrelay/envrelay/internal/ratelimit"
	"github.com/envrelay/envrelay/internal/relay"
	"github.com/envrelay/envrelay/internal/runner"
	"github.com/envrelay/envrelay/internal/sanitize"
	"github.com/envrelay/envrelay/internal/server"
	"github.com/envrelay/envrelay/internal/storage/sqlite"
)

type ServerCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddr       string
	cliPath          string
	runtime          string
	projectDir       string
	timeout          time.Duration
	rateLimitWindow  time.Duration
	rateLimitMax     int
	progressInterval time.Duration
	commandsFile     string
}

// NewServerCommand returns the server command.
func NewServerCommand(rootCmd *RootCommand, app *kingpin.Application) *ServerCommand {
	c := &ServerCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("server", "Start the execution relay HTTP server.")
	c.Cmd.Flag("listen-addr", "Address the HTTP server listens on.").Default(conventions.DefaultListenAddr).StringVar(&c.listenAddr)
	c.Cmd.Flag("cli-path", "Path to the wrapped CLI executable.").Envar("ENVRELAY_CLI_PATH").Required().StringVar(&c.cliPath)
	c.Cmd.Flag("runtime", "Interpreter to run the wrapped CLI with (e.g. node).").StringVar(&c.runtime)
	c.Cmd.Flag("project-dir", "Working directory for spawned processes.").StringVar(&c.projectDir)
	c.Cmd.Flag("timeout", "Wall-clock budget per execution.").Default("1h").DurationVar(&c.timeout)
	c.Cmd.Flag("rate-limit-window", "Sliding window for per-client rate limiting.").Default("60s").DurationVar(&c.rateLimitWindow)
	c.Cmd.Flag("rate-limit-max", "Maximum requests per client per window.").Default("30").IntVar(&c.rateLimitMax)
	c.Cmd.Flag("progress-interval", "Minimum spacing between progress events.").Default("500ms").DurationVar(&c.progressInterval)
	c.Cmd.Flag("commands-file", "YAML file overriding the built-in command catalog.").StringVar(&c.commandsFile)

	return c
}

func (c ServerCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServerCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	catalog, err := loadCatalog(ctx, c.commandsFile, logger)
	if err != nil {
		return err
	}

	sanitizer, err := sanitize.NewSanitizer(sanitize.SanitizerConfig{
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create sanitizer: %w", err)
	}

	execRunner, err := runner.NewExecRunner(runner.ExecRunnerConfig{
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create runner: %w", err)
	}

	relaySvc, err := relay.NewService(relay.ServiceConfig{
		Catalog:          catalog,
		Sanitizer:        sanitizer,
		Runner:           execRunner,
		Repository:       repo,
		CLIPath:          c.cliPath,
		Runtime:          c.runtime,
		ProjectDir:       c.projectDir,
		Timeout:          c.timeout,
		ProgressInterval: c.progressInterval,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("could not create relay service: %w", err)
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.LimiterConfig{
		Window:      c.rateLimitWindow,
		MaxRequests: c.rateLimitMax,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create rate limiter: %w", err)
	}

	srv, err := server.NewServer(server.ServerConfig{
		ListenAddr: c.listenAddr,
		Relay:      relaySvc,
		Limiter:    limiter,
		Catalog:    catalog,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	return srv.Run(ctx)
}
