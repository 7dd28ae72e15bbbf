package model

// EventType identifies the kind of a stream event.
type EventType string

const (
	// EventConnected is sent once when an execution request is accepted.
	EventConnected EventType = "connected"
	// EventOutput carries one raw output line from the wrapped CLI.
	EventOutput EventType = "output"
	// EventProgress carries a heuristic progress signal derived from output.
	EventProgress EventType = "progress"
	// EventComplete is the terminal event for a command that ran to exit.
	EventComplete EventType = "complete"
	// EventError is the terminal event for an infrastructure failure.
	EventError EventType = "error"
)

// OutputLevel is the severity of an output event.
type OutputLevel string

const (
	// OutputLevelInfo is output read from the process stdout.
	OutputLevelInfo OutputLevel = "info"
	// OutputLevelError is output read from the process stderr.
	OutputLevelError OutputLevel = "error"
)

// StreamEvent is one event of the execution stream. It is a tagged union:
// the fields that are meaningful depend on Type. Exactly one Complete or
// Error event terminates every stream.
type StreamEvent struct {
	Type    EventType   `json:"type"`
	Message string      `json:"message,omitempty"`
	Level   OutputLevel `json:"level,omitempty"`
	Percent *float64    `json:"percent,omitempty"`
	Stage   string      `json:"stage,omitempty"`
	Success *bool       `json:"success,omitempty"`
	// Solution is a best-effort remediation hint for error events.
	Solution string `json:"solution,omitempty"`
}

// NewConnectedEvent returns a connected event.
func NewConnectedEvent(message string) StreamEvent {
	return StreamEvent{Type: EventConnected, Message: message}
}

// NewOutputEvent returns an output event.
func NewOutputEvent(level OutputLevel, message string) StreamEvent {
	return StreamEvent{Type: EventOutput, Level: level, Message: message}
}

// NewProgressEvent returns a progress event. Percent, when present, is
// clamped to [0, 100].
func NewProgressEvent(percent *float64, stage, message string) StreamEvent {
	if percent != nil {
		p := *percent
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		percent = &p
	}
	return StreamEvent{Type: EventProgress, Percent: percent, Stage: stage, Message: message}
}

// NewCompleteEvent returns the terminal event of a command that ran to exit.
func NewCompleteEvent(success bool, message string) StreamEvent {
	return StreamEvent{Type: EventComplete, Success: &success, Message: message}
}

// NewErrorEvent returns the terminal event of an infrastructure failure.
func NewErrorEvent(message, solution string) StreamEvent {
	return StreamEvent{Type: EventError, Message: message, Solution: solution}
}
