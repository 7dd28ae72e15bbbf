package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/envrelay/envrelay/internal/model"
)

// JSONPrinter prints execution information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents an execution in the list output (subset of fields).
type listItem struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Status    string    `json:"status"`
	ExitCode  int       `json:"exit_code"`
	StartedAt time.Time `json:"started_at"`
}

// executionOutput represents the full execution output.
type executionOutput struct {
	ID         string     `json:"id"`
	Command    string     `json:"command"`
	Args       []string   `json:"args"`
	ClientID   string     `json:"client_id"`
	Status     string     `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// commandItem represents one command definition in the catalog output.
type commandItem struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Options     []optionItem `json:"options"`
}

// optionItem represents one option spec in the catalog output.
type optionItem struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	DependsOn   string `json:"depends_on,omitempty"`
	Description string `json:"description,omitempty"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintExecutionList prints executions in JSON format with a subset of fields.
func (j *JSONPrinter) PrintExecutionList(executions []model.Execution) error {
	items := make([]listItem, len(executions))
	for i, e := range executions {
		items[i] = listItem{
			ID:        e.ID,
			Command:   e.Command,
			Status:    string(e.Status),
			ExitCode:  e.ExitCode,
			StartedAt: e.StartedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintExecution prints detailed execution information in JSON format.
func (j *JSONPrinter) PrintExecution(execution model.Execution) error {
	output := executionOutput{
		ID:         execution.ID,
		Command:    execution.Command,
		Args:       execution.Args,
		ClientID:   execution.ClientID,
		Status:     string(execution.Status),
		ExitCode:   execution.ExitCode,
		Error:      execution.Error,
		StartedAt:  execution.StartedAt.UTC(),
		FinishedAt: nil,
	}

	if execution.FinishedAt != nil {
		utcTime := execution.FinishedAt.UTC()
		output.FinishedAt = &utcTime
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintCommandList prints command definitions in JSON format.
func (j *JSONPrinter) PrintCommandList(definitions []model.CommandDefinition) error {
	items := make([]commandItem, len(definitions))
	for i, d := range definitions {
		item := commandItem{
			Name:        d.Name,
			Description: d.Description,
			Options:     make([]optionItem, 0, len(d.Options)),
		}
		for _, opt := range d.Options {
			item.Options = append(item.Options, optionItem{
				ID:          opt.ID,
				Type:        string(opt.Type),
				Required:    opt.Required,
				DependsOn:   opt.DependsOn,
				Description: opt.Description,
			})
		}
		items[i] = item
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
