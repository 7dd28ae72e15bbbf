package model

import "time"

// ExecutionStatus is the lifecycle state of a recorded execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusSucceeded ExecutionStatus = "succeeded"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Execution is the history record of one wrapped CLI execution.
type Execution struct {
	ID         string
	Command    string
	Args       []string
	ClientID   string
	Status     ExecutionStatus
	ExitCode   int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}
