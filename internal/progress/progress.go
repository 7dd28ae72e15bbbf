// Package progress derives normalized progress signals from unstructured
// wrapped CLI output lines. Classification is a pure function over a single
// line driven by ordered rule tables.
package progress

import (
	"regexp"
	"strconv"
	"strings"
)

// Signal is a normalized progress signal extracted from an output line.
type Signal struct {
	// Percent is the derived completion percentage, nil when only a stage
	// was recognized.
	Percent *float64
	// Stage is a human-readable stage label, free text and non-authoritative.
	Stage string
	// Message is the originating output line, trimmed.
	Message string
}

// numericRule is one ordered pattern for numeric extraction. Patterns with
// two captures are ratios (percent = 100*N/M), patterns with one capture
// are direct percentages.
type numericRule struct {
	re    *regexp.Regexp
	ratio bool
}

var numericRules = []numericRule{
	// "45% / 100" and "45% \ 100" style ratios.
	{re: regexp.MustCompile(`(\d+)%\s*[/\\]\s*(\d+)`), ratio: true},
	// "3 of 10".
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+of\s+(\d+)\b`), ratio: true},
	// "Progress: 72%".
	{re: regexp.MustCompile(`(?i)progress:?\s*(\d+)%`)},
	// "7/10".
	{re: regexp.MustCompile(`\b(\d+)\s*/\s*(\d+)\b`), ratio: true},
	// "[55%]".
	{re: regexp.MustCompile(`\[(\d+)%\]`)},
}

// stageRule maps a case-insensitive output keyword to a fixed stage label.
type stageRule struct {
	keyword string
	stage   string
}

var stageRules = []stageRule{
	{keyword: "backing up", stage: "Backing up data..."},
	{keyword: "restoring", stage: "Restoring data..."},
	{keyword: "syncing", stage: "Syncing data..."},
	{keyword: "processing", stage: "Processing..."},
	{keyword: "validating", stage: "Validating..."},
	{keyword: "fetching", stage: "Fetching..."},
	{keyword: "uploading", stage: "Uploading..."},
	{keyword: "downloading", stage: "Downloading..."},
}

// Classify inspects one output line and derives a progress signal, or nil
// when the line carries no recognizable progress information. Numeric
// patterns are tried in order and the first match wins, stage keywords are
// only consulted when no numeric pattern matched.
func Classify(line string) *Signal {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	for _, rule := range numericRules {
		match := rule.re.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}

		if rule.ratio {
			n, errN := strconv.Atoi(match[1])
			m, errM := strconv.Atoi(match[2])
			if errN != nil || errM != nil || m <= 0 {
				continue
			}
			pct := 100 * float64(n) / float64(m)
			return &Signal{Percent: &pct, Message: trimmed}
		}

		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		pct := float64(n)
		return &Signal{Percent: &pct, Message: trimmed}
	}

	lower := strings.ToLower(trimmed)
	for _, rule := range stageRules {
		if strings.Contains(lower, rule.keyword) {
			return &Signal{Stage: rule.stage, Message: trimmed}
		}
	}

	return nil
}
