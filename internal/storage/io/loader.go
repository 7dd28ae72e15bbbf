package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/envrelay/envrelay/internal/model"
)

// CatalogYAMLRepository loads command catalog definitions from YAML files.
type CatalogYAMLRepository struct {
	fs fs.FS
}

// NewCatalogYAMLRepository creates a new YAML catalog repository.
func NewCatalogYAMLRepository(filesystem fs.FS) *CatalogYAMLRepository {
	return &CatalogYAMLRepository{fs: filesystem}
}

// GetDefinitions loads command definitions from a YAML file and returns
// validated domain models.
func (r *CatalogYAMLRepository) GetDefinitions(ctx context.Context, path string) ([]model.CommandDefinition, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := catalog.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	return catalog.toModel(), nil
}

// catalogFile represents the YAML structure of a command catalog file.
type catalogFile struct {
	Commands []commandConfig `yaml:"commands"`
}

// commandConfig represents the YAML structure of one command definition.
type commandConfig struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Options     []optionConfig `yaml:"options"`
}

// optionConfig represents the YAML structure of one option spec.
type optionConfig struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"`
	Required    bool   `yaml:"required"`
	DependsOn   string `yaml:"depends_on"`
	Description string `yaml:"description"`
}

var validOptionTypes = map[string]model.OptionType{
	"":        model.OptionTypeString,
	"string":  model.OptionTypeString,
	"number":  model.OptionTypeNumber,
	"boolean": model.OptionTypeBool,
	"list":    model.OptionTypeList,
}

func (c catalogFile) validate() error {
	if len(c.Commands) == 0 {
		return fmt.Errorf("at least one command is required")
	}

	for _, cmd := range c.Commands {
		if cmd.Name == "" {
			return fmt.Errorf("command name is required")
		}
		for _, opt := range cmd.Options {
			if opt.ID == "" {
				return fmt.Errorf("command %q: option id is required", cmd.Name)
			}
			if _, ok := validOptionTypes[opt.Type]; !ok {
				return fmt.Errorf("command %q: option %q has unknown type %q", cmd.Name, opt.ID, opt.Type)
			}
		}
	}

	return nil
}

func (c catalogFile) toModel() []model.CommandDefinition {
	defs := make([]model.CommandDefinition, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		opts := make([]model.OptionSpec, 0, len(cmd.Options))
		for _, opt := range cmd.Options {
			opts = append(opts, model.OptionSpec{
				ID:          opt.ID,
				Type:        validOptionTypes[opt.Type],
				Required:    opt.Required,
				DependsOn:   opt.DependsOn,
				Description: opt.Description,
			})
		}
		defs = append(defs, model.CommandDefinition{
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     opts,
		})
	}

	return defs
}
