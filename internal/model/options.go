package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// InternalOptionPrefix marks option keys that carry caller-internal metadata.
// They bypass sanitization and are never translated into CLI arguments.
const InternalOptionPrefix = "_"

// OptionKind identifies the value kind held by an OptionValue.
type OptionKind int

const (
	// OptionKindNone is an absent value (JSON null or an unsupported value
	// such as a nested object). It is skipped by the argument builder.
	OptionKindNone OptionKind = iota
	// OptionKindString is a string value.
	OptionKindString
	// OptionKindNumber is a numeric value.
	OptionKindNumber
	// OptionKindBool is a boolean value.
	OptionKindBool
	// OptionKindStringList is a list of string values.
	OptionKindStringList
)

func (k OptionKind) String() string {
	switch k {
	case OptionKindString:
		return "string"
	case OptionKindNumber:
		return "number"
	case OptionKindBool:
		return "boolean"
	case OptionKindStringList:
		return "list"
	default:
		return "none"
	}
}

// OptionValue is a closed union of the value kinds a command option can hold.
// Exactly one of the value fields is meaningful, selected by Kind.
type OptionValue struct {
	Kind OptionKind
	Str  string
	Num  float64
	Bool bool
	List []string
}

// StringValue returns a string OptionValue.
func StringValue(s string) OptionValue { return OptionValue{Kind: OptionKindString, Str: s} }

// NumberValue returns a numeric OptionValue.
func NumberValue(n float64) OptionValue { return OptionValue{Kind: OptionKindNumber, Num: n} }

// BoolValue returns a boolean OptionValue.
func BoolValue(b bool) OptionValue { return OptionValue{Kind: OptionKindBool, Bool: b} }

// ListValue returns a string-list OptionValue.
func ListValue(items ...string) OptionValue {
	return OptionValue{Kind: OptionKindStringList, List: items}
}

// IsEmpty reports whether the value carries nothing worth forwarding to the
// CLI: absent values, empty strings and empty lists.
func (v OptionValue) IsEmpty() bool {
	switch v.Kind {
	case OptionKindNone:
		return true
	case OptionKindString:
		return v.Str == ""
	case OptionKindStringList:
		return len(v.List) == 0
	default:
		return false
	}
}

// FormatNumber renders the numeric value without a trailing fractional part
// for whole numbers (42 instead of 42.000000).
func (v OptionValue) FormatNumber() string {
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

// UnmarshalJSON decodes a JSON value into the closed option union. Strings,
// numbers, booleans and arrays map to their kinds, arrays have every element
// coerced to its string form. Null and objects decode to OptionKindNone.
func (v *OptionValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*v = OptionValue{Kind: OptionKindNone}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("could not decode string option: %w", err)
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return fmt.Errorf("could not decode boolean option: %w", err)
		}
		*v = BoolValue(b)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("could not decode list option: %w", err)
		}
		items := make([]string, 0, len(raw))
		for _, elem := range raw {
			var item OptionValue
			if err := item.UnmarshalJSON(elem); err != nil {
				return err
			}
			switch item.Kind {
			case OptionKindString:
				items = append(items, item.Str)
			case OptionKindNumber:
				items = append(items, item.FormatNumber())
			case OptionKindBool:
				items = append(items, strconv.FormatBool(item.Bool))
			}
		}
		*v = ListValue(items...)
	case '{':
		// Objects are not valid CLI arguments, keep the key but mark the
		// value as absent so the argument builder drops it.
		*v = OptionValue{Kind: OptionKindNone}
	default:
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("could not decode numeric option: %w", err)
		}
		*v = NumberValue(n)
	}

	return nil
}

// MarshalJSON encodes the option value back to its JSON form.
func (v OptionValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case OptionKindString:
		return json.Marshal(v.Str)
	case OptionKindNumber:
		return json.Marshal(v.Num)
	case OptionKindBool:
		return json.Marshal(v.Bool)
	case OptionKindStringList:
		return json.Marshal(v.List)
	default:
		return []byte("null"), nil
	}
}

// OptionEntry is a single key/value pair of a command's options.
type OptionEntry struct {
	Key   string
	Value OptionValue
}

// CommandOptions is an ordered mapping of option keys to values. Order is
// preserved from the incoming request so argument building is deterministic.
type CommandOptions []OptionEntry

// Get returns the value for a key.
func (o CommandOptions) Get(key string) (OptionValue, bool) {
	for _, e := range o {
		if e.Key == key {
			return e.Value, true
		}
	}
	return OptionValue{}, false
}

// GetString returns the trimmed string value for a key, or "" if the key is
// missing or not a string.
func (o CommandOptions) GetString(key string) string {
	v, ok := o.Get(key)
	if !ok || v.Kind != OptionKindString {
		return ""
	}
	return strings.TrimSpace(v.Str)
}

// GetBool returns the boolean value for a key, false if missing or not a bool.
func (o CommandOptions) GetBool(key string) bool {
	v, ok := o.Get(key)
	return ok && v.Kind == OptionKindBool && v.Bool
}

// Set replaces the value for a key, appending the entry if the key is new.
func (o *CommandOptions) Set(key string, v OptionValue) {
	for i, e := range *o {
		if e.Key == key {
			(*o)[i].Value = v
			return
		}
	}
	*o = append(*o, OptionEntry{Key: key, Value: v})
}

// UnmarshalJSON decodes a JSON object into CommandOptions preserving the
// key order of the document.
func (o *CommandOptions) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("could not decode options: %w", err)
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("options must be an object: %w", ErrNotValid)
	}

	opts := CommandOptions{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("could not decode option key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("invalid option key: %w", ErrNotValid)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("could not decode option %q: %w", key, err)
		}
		var v OptionValue
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("option %q: %w", key, err)
		}
		opts = append(opts, OptionEntry{Key: key, Value: v})
	}

	*o = opts
	return nil
}

// MarshalJSON encodes the options as a JSON object in entry order.
func (o CommandOptions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := e.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
