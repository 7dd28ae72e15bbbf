package model

import "strings"

// OptionType is the declared type of a command option.
type OptionType string

const (
	OptionTypeString OptionType = "string"
	OptionTypeNumber OptionType = "number"
	OptionTypeBool   OptionType = "boolean"
	OptionTypeList   OptionType = "list"
)

// OptionSpec declares a single option of a command definition.
type OptionSpec struct {
	// ID is the option key as sent by callers (camelCase).
	ID string
	// Type is the declared value type.
	Type OptionType
	// Required marks the option as unconditionally required.
	Required bool
	// DependsOn names a boolean option that, when true, makes this
	// option required.
	DependsOn string
	// Description is a human-readable summary for catalog listings.
	Description string
}

// CommandDefinition describes one command of the wrapped CLI: its
// space-separated name ("environment backup") and its declared options.
// Definitions are read-only configuration supplied at startup.
type CommandDefinition struct {
	Name        string
	Description string
	Options     []OptionSpec
}

// Tokens returns the command name split into its positional tokens.
func (d CommandDefinition) Tokens() []string {
	return strings.Fields(d.Name)
}

// Option returns the spec for an option ID.
func (d CommandDefinition) Option(id string) (OptionSpec, bool) {
	for _, o := range d.Options {
		if o.ID == id {
			return o, true
		}
	}
	return OptionSpec{}, false
}

// ExecutionRequest is one inbound request to execute a wrapped CLI command.
type ExecutionRequest struct {
	Command string         `json:"command"`
	Options CommandOptions `json:"options"`
}
