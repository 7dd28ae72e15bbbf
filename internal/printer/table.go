package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/envrelay/envrelay/internal/model"
)

// TablePrinter prints execution information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintExecutionList prints executions in a table format.
func (t *TablePrinter) PrintExecutionList(executions []model.Execution) error {
	if len(executions) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "ID\tCOMMAND\tSTATUS\tEXIT\tSTARTED")

	// Print rows
	for _, e := range executions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.ID, e.Command, e.Status, e.ExitCode, TimeAgo(e.StartedAt))
	}

	return nil
}

// PrintExecution prints detailed execution information.
func (t *TablePrinter) PrintExecution(execution model.Execution) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", execution.ID)
	fmt.Fprintf(t.writer, "Command:    %s\n", execution.Command)
	fmt.Fprintf(t.writer, "Args:       %s\n", strings.Join(execution.Args, " "))
	fmt.Fprintf(t.writer, "Client:     %s\n", execution.ClientID)
	fmt.Fprintf(t.writer, "Status:     %s\n", execution.Status)
	fmt.Fprintf(t.writer, "Exit code:  %d\n", execution.ExitCode)
	fmt.Fprintf(t.writer, "Started:    %s\n", FormatTimestamp(execution.StartedAt))

	if execution.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:   %s\n", FormatTimestamp(*execution.FinishedAt))
	}

	if execution.Error != "" {
		fmt.Fprintf(t.writer, "Error:      %s\n", execution.Error)
	}

	return nil
}

// PrintCommandList prints command definitions in a table format.
func (t *TablePrinter) PrintCommandList(definitions []model.CommandDefinition) error {
	if len(definitions) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "COMMAND\tREQUIRED OPTIONS\tDESCRIPTION")

	// Print rows.
	for _, d := range definitions {
		var required []string
		for _, opt := range d.Options {
			if opt.Required {
				required = append(required, opt.ID)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, strings.Join(required, ","), d.Description)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
