package relay

import "strings"

// remedy maps a failure-message pattern to a suggested remediation. The
// lookup is a best-effort classifier over message content, not a guarantee
// of correct diagnosis.
type remedy struct {
	pattern  string
	solution string
}

var remedies = []remedy{
	{pattern: "unauthorized", solution: "Check that the API key is valid and has access to the environment."},
	{pattern: "401", solution: "Check that the API key is valid and has access to the environment."},
	{pattern: "api key", solution: "Check that the API key is valid and has access to the environment."},
	{pattern: "not found, build or install", solution: "Build or install the wrapped CLI and point --cli-path at it."},
	{pattern: "not found", solution: "Check that the referenced environment or file exists."},
	{pattern: "permission denied", solution: "Check the file permissions of the CLI executable and the project directory."},
	{pattern: "network", solution: "Check your network connection and retry."},
	{pattern: "connection refused", solution: "Check your network connection and retry."},
	{pattern: "timed out", solution: "Retry the command, or increase the execution timeout."},
	{pattern: "invalid", solution: "Review the command options and retry."},
}

// solutionFor returns a remediation hint for a failure message, or "" when
// no pattern matches.
func solutionFor(message string) string {
	lower := strings.ToLower(message)
	for _, r := range remedies {
		if strings.Contains(lower, r.pattern) {
			return r.solution
		}
	}
	return ""
}
