package command

import (
	"fmt"
	"strings"

	"github.com/envrelay/envrelay/internal/model"
)

// Validate checks that the combination of command name and present options
// satisfies the command's required and conditional rules. It is a pure
// check, options are not modified. The returned error wraps
// model.ErrNotValid and names at least one violated rule.
func (c *Catalog) Validate(name string, opts model.CommandOptions) error {
	def, ok := c.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown command %q: %w", name, model.ErrNotValid)
	}

	var violations []string

	// Definition-driven rules: unconditional requirements and options that
	// become required when their boolean dependency flag is set.
	for _, spec := range def.Options {
		required := spec.Required
		if !required && spec.DependsOn != "" && opts.GetBool(spec.DependsOn) {
			required = true
		}
		if required && !optionPresent(opts, spec) {
			violations = append(violations, fmt.Sprintf("option %q is required", spec.ID))
		}
	}

	// Source rules are disjunctive and specific to each command, they are
	// kept as per-command code instead of a generic constraint language.
	if rule, ok := sourceRules[def.Name]; ok {
		violations = append(violations, rule(opts)...)
	}

	if len(violations) > 0 {
		return fmt.Errorf("command %q: %s: %w", name, strings.Join(violations, "; "), model.ErrNotValid)
	}

	return nil
}

// optionPresent reports whether a required option is satisfied: present,
// non-empty for strings, and non-empty for lists.
func optionPresent(opts model.CommandOptions, spec model.OptionSpec) bool {
	v, ok := opts.Get(spec.ID)
	if !ok {
		return false
	}

	switch spec.Type {
	case model.OptionTypeList:
		return v.Kind == model.OptionKindStringList && len(v.List) > 0
	case model.OptionTypeString:
		return v.Kind == model.OptionKindString && strings.TrimSpace(v.Str) != ""
	default:
		return v.Kind != model.OptionKindNone
	}
}

// sourceRules holds the per-command disjunctive source requirements: the
// commands below accept either a remote source (environmentId plus apiKey)
// or a local folder, and supplying the identifier makes its paired key
// required too.
var sourceRules = map[string]func(opts model.CommandOptions) []string{
	"environment restore": remoteOrFolderRule,
	"environment sync":    remoteOrFolderRule,
}

func remoteOrFolderRule(opts model.CommandOptions) []string {
	envID := opts.GetString("environmentId")
	apiKey := opts.GetString("apiKey")
	folder := opts.GetString("folder")

	if envID == "" && folder == "" {
		return []string{`either option "environmentId" or option "folder" is required`}
	}
	if envID != "" && apiKey == "" {
		return []string{`option "apiKey" is required when "environmentId" is set`}
	}

	return nil
}
