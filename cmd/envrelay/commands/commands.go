package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/envrelay/envrelay/internal/command"
	"github.com/envrelay/envrelay/internal/conventions"
	"github.com/envrelay/envrelay/internal/log"
	"github.com/envrelay/envrelay/internal/model"
	storageio "github.com/envrelay/envrelay/internal/storage/io"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DBPath     string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDBPath := conventions.DBPath(homedir.HomeDir())
	app.Flag("db-path", "Path to the SQLite database file.").Envar("ENVRELAY_DB_PATH").Default(defaultDBPath).StringVar(&c.DBPath)

	return c
}

// loadCatalog builds the command catalog, from a YAML override file when
// given, from the built-in definitions otherwise.
func loadCatalog(ctx context.Context, file string, logger log.Logger) (*command.Catalog, error) {
	var defs []model.CommandDefinition

	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, fmt.Errorf("could not resolve catalog file: %w", err)
		}
		repo := storageio.NewCatalogYAMLRepository(os.DirFS(filepath.Dir(abs)))
		defs, err = repo.GetDefinitions(ctx, filepath.Base(abs))
		if err != nil {
			return nil, fmt.Errorf("could not load catalog file: %w", err)
		}
	}

	catalog, err := command.NewCatalog(command.CatalogConfig{
		Definitions: defs,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create catalog: %w", err)
	}

	return catalog, nil
}
