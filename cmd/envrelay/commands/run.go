package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/envrelay/envrelay/internal/model"
	"github.com/envrelay/envrelay/internal/relay"
	"github.com/envrelay/envrelay/internal/runner"
	"github.com/envrelay/envrelay/internal/sanitize"
	"github.com/envrelay/envrelay/internal/storage/memory"
	"github.com/envrelay/envrelay/internal/utils/opts"
)

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	command      []string
	optSpecs     []string
	cliPath      string
	runtime      string
	projectDir   string
	timeout      time.Duration
	commandsFile string
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Execute a catalog command locally and print its output.")
	c.Cmd.Arg("command", "Catalog command name (e.g. environment backup).").Required().StringsVar(&c.command)
	c.Cmd.Flag("opt", "Command option (key=value). Can be repeated.").Short('o').StringsVar(&c.optSpecs)
	c.Cmd.Flag("cli-path", "Path to the wrapped CLI executable.").Envar("ENVRELAY_CLI_PATH").Required().StringVar(&c.cliPath)
	c.Cmd.Flag("runtime", "Interpreter to run the wrapped CLI with (e.g. node).").StringVar(&c.runtime)
	c.Cmd.Flag("project-dir", "Working directory for the spawned process.").StringVar(&c.projectDir)
	c.Cmd.Flag("timeout", "Wall-clock budget for the execution.").Default("1h").DurationVar(&c.timeout)
	c.Cmd.Flag("commands-file", "YAML file overriding the built-in command catalog.").StringVar(&c.commandsFile)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cmdOpts, err := opts.ParseSpecs(c.optSpecs)
	if err != nil {
		return fmt.Errorf("invalid --opt value: %w", err)
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

	// One-shot local executions don't persist history.
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	svc, err := relay.NewService(relay.ServiceConfig{
		Catalog:    catalog,
		Sanitizer:  sanitizer,
		Runner:     execRunner,
		Repository: repo,
		CLIPath:    c.cliPath,
		Runtime:    c.runtime,
		ProjectDir: c.projectDir,
		Timeout:    c.timeout,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create relay service: %w", err)
	}

	exec, err := svc.Prepare(ctx, model.ExecutionRequest{
		Command: strings.Join(c.command, " "),
		Options: cmdOpts,
	}, "local")
	if err != nil {
		return err
	}

	var terminal *model.StreamEvent
	err = svc.Run(ctx, exec, func(ev model.StreamEvent) error {
		switch ev.Type {
		case model.EventOutput:
			if ev.Level == model.OutputLevelError {
				fmt.Fprintln(c.rootCmd.Stderr, ev.Message)
			} else {
				fmt.Fprintln(c.rootCmd.Stdout, ev.Message)
			}
		case model.EventProgress:
			if ev.Percent != nil {
				fmt.Fprintf(c.rootCmd.Stderr, "[%3.0f%%] %s\n", *ev.Percent, ev.Stage)
			} else if ev.Stage != "" {
				fmt.Fprintf(c.rootCmd.Stderr, "[ ...] %s\n", ev.Stage)
			}
		case model.EventComplete, model.EventError:
			terminal = &ev
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not run command: %w", err)
	}

	if terminal == nil {
		return fmt.Errorf("execution was cancelled")
	}
	if terminal.Type == model.EventError {
		if terminal.Solution != "" {
			fmt.Fprintf(c.rootCmd.Stderr, "Hint: %s\n", terminal.Solution)
		}
		return fmt.Errorf("%s", terminal.Message)
	}
	if terminal.Success == nil || !*terminal.Success {
		return fmt.Errorf("%s", terminal.Message)
	}

	return nil
}
