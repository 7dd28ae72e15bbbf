package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/envrelay/envrelay/internal/printer"
	"github.com/envrelay/envrelay/internal/storage/sqlite"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	executionID string
	format      string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List recorded executions, or show one in detail.")
	c.Cmd.Arg("execution-id", "Show a single execution by ID.").StringVar(&c.executionID)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if c.executionID != "" {
		execution, err := repo.GetExecution(ctx, c.executionID)
		if err != nil {
			return fmt.Errorf("could not get execution: %w", err)
		}
		if err := p.PrintExecution(*execution); err != nil {
			return fmt.Errorf("could not print execution: %w", err)
		}
		return nil
	}

	executions, err := repo.ListExecutions(ctx)
	if err != nil {
		return fmt.Errorf("could not list executions: %w", err)
	}

	if err := p.PrintExecutionList(executions); err != nil {
		return fmt.Errorf("could not print executions: %w", err)
	}

	return nil
}
