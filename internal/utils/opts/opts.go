package opts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/envrelay/envrelay/internal/model"
)

var optKeyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseSpecs parses command line "key=value" option specs into command
// options. Values are typed by shape: "true"/"false" become booleans,
// numbers become numbers, everything else stays a string. Repeating a key
// turns its values into a list.
func ParseSpecs(specs []string) (model.CommandOptions, error) {
	opts := model.CommandOptions{}

	for _, spec := range specs {
		if spec == "" {
			return nil, fmt.Errorf("option spec cannot be empty")
		}

		key, value, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("option spec %q must be key=value", spec)
		}
		if !isValidKey(key) {
			return nil, fmt.Errorf("invalid option key %q", key)
		}

		prev, exists := opts.Get(key)
		if !exists {
			opts.Set(key, parseValue(value))
			continue
		}

		// Repeated keys accumulate into a list.
		switch prev.Kind {
		case model.OptionKindStringList:
			opts.Set(key, model.ListValue(append(prev.List, value)...))
		case model.OptionKindString:
			opts.Set(key, model.ListValue(prev.Str, value))
		default:
			return nil, fmt.Errorf("option %q cannot be repeated", key)
		}
	}

	return opts, nil
}

func parseValue(value string) model.OptionValue {
	switch value {
	case "true":
		return model.BoolValue(true)
	case "false":
		return model.BoolValue(false)
	}

	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return model.NumberValue(n)
	}

	return model.StringValue(value)
}

func isValidKey(k string) bool {
	return optKeyRegexp.MatchString(k)
}
