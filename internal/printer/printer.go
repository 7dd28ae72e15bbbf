package printer

import "github.com/envrelay/envrelay/internal/model"

// Printer knows how to print execution information in different formats.
type Printer interface {
	PrintExecutionList(executions []model.Execution) error
	PrintExecution(execution model.Execution) error
	PrintCommandList(definitions []model.CommandDefinition) error
	PrintMessage(msg string) error
}
