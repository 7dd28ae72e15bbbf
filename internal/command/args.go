package command

import (
	"strings"

	"github.com/envrelay/envrelay/internal/model"
)

// BuildArgs deterministically converts a command name and a sanitized
// option mapping into a flat argument vector for the wrapped CLI. The
// result is passed directly to process creation, never through a shell.
func BuildArgs(name string, opts model.CommandOptions) []string {
	args := strings.Fields(name)

	for _, entry := range opts {
		// Internal marker keys and absent values never reach the CLI.
		if strings.HasPrefix(entry.Key, model.InternalOptionPrefix) {
			continue
		}
		if entry.Value.IsEmpty() {
			continue
		}

		flag := "--" + camelToKebab(entry.Key)

		switch entry.Value.Kind {
		case model.OptionKindBool:
			if entry.Value.Bool {
				args = append(args, flag)
			}
		case model.OptionKindStringList:
			// Repeated flag per element for CLIs with multi-valued options.
			for _, item := range entry.Value.List {
				args = append(args, flag, item)
			}
		case model.OptionKindNumber:
			args = append(args, flag, entry.Value.FormatNumber())
		case model.OptionKindString:
			args = append(args, flag, entry.Value.Str)
		}
	}

	return args
}

// camelToKebab converts a camelCase option key into its kebab-case CLI
// flag name (environmentId -> environment-id).
func camelToKebab(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}
