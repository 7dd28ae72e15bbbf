package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/envrelay/envrelay/internal/printer"
)

type CatalogCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	commandsFile string
	format       string
}

// NewCatalogCommand returns the commands listing command.
func NewCatalogCommand(rootCmd *RootCommand, app *kingpin.Application) *CatalogCommand {
	c := &CatalogCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("commands", "List the command catalog.")
	c.Cmd.Flag("commands-file", "YAML file overriding the built-in command catalog.").StringVar(&c.commandsFile)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c CatalogCommand) Name() string { return c.Cmd.FullCommand() }

func (c CatalogCommand) Run(ctx context.Context) error {
	catalog, err := loadCatalog(ctx, c.commandsFile, c.rootCmd.Logger)
	if err != nil {
		return err
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintCommandList(catalog.Definitions()); err != nil {
		return fmt.Errorf("could not print commands: %w", err)
	}

	return nil
}
