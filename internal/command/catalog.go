// Package command owns the catalog of wrapped CLI commands, the validation
// of option combinations and the translation of options into argument
// vectors.
package command

import (
	"fmt"

	"github.com/envrelay/envrelay/internal/log"
	"github.com/envrelay/envrelay/internal/model"
)

// CatalogConfig is the configuration for the command catalog.
type CatalogConfig struct {
	// Definitions is the command table. Defaults to DefaultDefinitions.
	Definitions []model.CommandDefinition
	Logger      log.Logger
}

func (c *CatalogConfig) defaults() error {
	if len(c.Definitions) == 0 {
		c.Definitions = DefaultDefinitions()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "command.Catalog"})
	return nil
}

// Catalog is the read-only table of known wrapped CLI commands.
type Catalog struct {
	defs   []model.CommandDefinition
	byName map[string]model.CommandDefinition
	logger log.Logger
}

// NewCatalog creates a new command catalog.
func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	byName := make(map[string]model.CommandDefinition, len(cfg.Definitions))
	for _, def := range cfg.Definitions {
		if def.Name == "" {
			return nil, fmt.Errorf("command definition without name: %w", model.ErrNotValid)
		}
		if _, ok := byName[def.Name]; ok {
			return nil, fmt.Errorf("duplicated command definition %q: %w", def.Name, model.ErrNotValid)
		}
		byName[def.Name] = def
	}

	cfg.Logger.Debugf("Catalog loaded with %d commands", len(cfg.Definitions))

	return &Catalog{
		defs:   cfg.Definitions,
		byName: byName,
		logger: cfg.Logger,
	}, nil
}

// Lookup returns the definition for a command name.
func (c *Catalog) Lookup(name string) (model.CommandDefinition, bool) {
	def, ok := c.byName[name]
	return def, ok
}

// Definitions returns all command definitions in declaration order.
func (c *Catalog) Definitions() []model.CommandDefinition {
	return c.defs
}

// DefaultDefinitions returns the built-in command table for the wrapped
// environment-management CLI.
func DefaultDefinitions() []model.CommandDefinition {
	return []model.CommandDefinition{
		{
			Name:        "environment backup",
			Description: "Create a backup of a remote environment.",
			Options: []model.OptionSpec{
				{ID: "environmentId", Type: model.OptionTypeString, Required: true, Description: "Environment UUID."},
				{ID: "apiKey", Type: model.OptionTypeString, Required: true, Description: "API key for the remote environment."},
				{ID: "fileName", Type: model.OptionTypeString, Description: "Target backup file name."},
				{ID: "include", Type: model.OptionTypeList, Description: "Content types to include."},
				{ID: "advancedOutput", Type: model.OptionTypeBool, Description: "Write results to a custom output path."},
				{ID: "outPath", Type: model.OptionTypeString, DependsOn: "advancedOutput", Description: "Output path, required with advancedOutput."},
				{ID: "verbose", Type: model.OptionTypeBool, Description: "Verbose CLI output."},
			},
		},
		{
			Name:        "environment restore",
			Description: "Restore an environment from a backup file.",
			Options: []model.OptionSpec{
				{ID: "fileName", Type: model.OptionTypeString, Required: true, Description: "Backup file to restore from."},
				{ID: "environmentId", Type: model.OptionTypeString, Description: "Target environment UUID (remote restore)."},
				{ID: "apiKey", Type: model.OptionTypeString, Description: "API key, required with environmentId."},
				{ID: "folder", Type: model.OptionTypeString, Description: "Local folder to restore into (local restore)."},
				{ID: "skipAttachments", Type: model.OptionTypeBool, Description: "Skip restoring attachments."},
				{ID: "verbose", Type: model.OptionTypeBool, Description: "Verbose CLI output."},
			},
		},
		{
			Name:        "environment sync",
			Description: "Sync content between a remote environment and a local folder.",
			Options: []model.OptionSpec{
				{ID: "environmentId", Type: model.OptionTypeString, Description: "Source environment UUID (remote source)."},
				{ID: "apiKey", Type: model.OptionTypeString, Description: "API key, required with environmentId."},
				{ID: "folder", Type: model.OptionTypeString, Description: "Local source folder."},
				{ID: "include", Type: model.OptionTypeList, Description: "Content types to sync."},
				{ID: "dryRun", Type: model.OptionTypeBool, Description: "Report changes without applying them."},
				{ID: "verbose", Type: model.OptionTypeBool, Description: "Verbose CLI output."},
			},
		},
	}
}
