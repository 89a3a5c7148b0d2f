package deferred

import "fmt"

// PanicError wraps a panic recovered from a task
type PanicError struct {
	Task  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}
