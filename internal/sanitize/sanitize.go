// Package sanitize normalizes and validates command options before any
// process is spawned. It never mutates the incoming options, a cleaned copy
// is returned instead.
package sanitize

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/envrelay/envrelay/internal/log"
	"github.com/envrelay/envrelay/internal/model"
)

const (
	// DefaultMinAPIKeyLength is the hard floor for API key option lengths.
	DefaultMinAPIKeyLength = 10
	// DefaultMaxPathLength is the maximum accepted length for path options.
	DefaultMaxPathLength = 500
)

// SanitizerConfig is the configuration for the sanitizer.
type SanitizerConfig struct {
	MinAPIKeyLength int
	MaxPathLength   int
	Logger          log.Logger
}

func (c *SanitizerConfig) defaults() error {
	if c.MinAPIKeyLength <= 0 {
		c.MinAPIKeyLength = DefaultMinAPIKeyLength
	}
	if c.MaxPathLength <= 0 {
		c.MaxPathLength = DefaultMaxPathLength
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "sanitize.Sanitizer"})
	return nil
}

// Sanitizer validates and normalizes command options.
type Sanitizer struct {
	minAPIKeyLength int
	maxPathLength   int
	logger          log.Logger
}

// NewSanitizer creates a new sanitizer.
func NewSanitizer(cfg SanitizerConfig) (*Sanitizer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Sanitizer{
		minAPIKeyLength: cfg.MinAPIKeyLength,
		maxPathLength:   cfg.MaxPathLength,
		logger:          cfg.Logger,
	}, nil
}

// Sanitize returns a cleaned copy of the options: string values trimmed,
// other kinds passed through. Every violation found is accumulated and
// reported in a single error wrapping model.ErrNotValid.
func (s *Sanitizer) Sanitize(command string, opts model.CommandOptions) (model.CommandOptions, error) {
	cleaned := make(model.CommandOptions, 0, len(opts))
	var violations []string

	for _, entry := range opts {
		// Internal marker keys carry caller metadata, pass them verbatim.
		if strings.HasPrefix(entry.Key, model.InternalOptionPrefix) {
			cleaned = append(cleaned, entry)
			continue
		}

		value := entry.Value
		if value.Kind == model.OptionKindString {
			value.Str = strings.TrimSpace(value.Str)
		}

		violations = append(violations, s.checkValue(entry.Key, value)...)
		cleaned = append(cleaned, model.OptionEntry{Key: entry.Key, Value: value})
	}

	if len(violations) > 0 {
		s.logger.Debugf("Rejected options for %q: %d violations", command, len(violations))
		return nil, fmt.Errorf("%s: %w", strings.Join(violations, "; "), model.ErrNotValid)
	}

	return cleaned, nil
}

func (s *Sanitizer) checkValue(key string, value model.OptionValue) []string {
	var violations []string

	switch {
	case isIdentifierKey(key):
		if value.Kind == model.OptionKindString && value.Str != "" && !isCanonicalUUID(value.Str) {
			violations = append(violations, fmt.Sprintf("option %q must be a valid UUID", key))
		}

	case isAPIKeyKey(key):
		if value.Kind == model.OptionKindString && value.Str != "" && len(value.Str) < s.minAPIKeyLength {
			violations = append(violations, fmt.Sprintf("option %q must be at least %d characters", key, s.minAPIKeyLength))
		}

	case isPathKey(key):
		if value.Kind != model.OptionKindString {
			break
		}
		switch {
		case value.Str == "":
			violations = append(violations, fmt.Sprintf("option %q must not be empty", key))
		case strings.Contains(value.Str, ".."):
			violations = append(violations, fmt.Sprintf("option %q must not contain parent directory references", key))
		case strings.ContainsRune(value.Str, 0):
			violations = append(violations, fmt.Sprintf("option %q must not contain NUL bytes", key))
		case len(value.Str) > s.maxPathLength:
			violations = append(violations, fmt.Sprintf("option %q must be at most %d characters", key, s.maxPathLength))
		}
	}

	return violations
}

// isCanonicalUUID accepts only the 36-character hyphenated textual form,
// case-insensitive hex.
func isCanonicalUUID(s string) bool {
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isIdentifierKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "environmentid") || strings.Contains(k, "environment_id")
}

func isAPIKeyKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "apikey") || strings.Contains(k, "api_key")
}

func isPathKey(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range []string{"filename", "file_name", "outpath", "folder"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}
