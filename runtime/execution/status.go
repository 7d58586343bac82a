package execution

// Status is the lifecycle state of a workflow instance.
type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusPaused           Status = "paused"
	StatusAwaitingApproval Status = "awaitingApproval"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusCancelled        Status = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the move from s to next is legal. Terminal
// states accept nothing; paused instances resume, await approval instances
// resume or fail, running instances reach any non-pending state.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusCancelled || next == StatusFailed
	case StatusRunning:
		switch next {
		case StatusPaused, StatusAwaitingApproval, StatusCompleted, StatusFailed, StatusCancelled:
			return true
		}
	case StatusPaused:
		return next == StatusRunning || next == StatusCancelled
	case StatusAwaitingApproval:
		return next == StatusRunning || next == StatusFailed || next == StatusCancelled
	}
	return false
}

// StepStatus is the outcome state of a single step execution.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)
