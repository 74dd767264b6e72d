package pipeline

import (
	"fmt"
	"strings"
)

// ValidationError reports bad or missing input. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// ServiceUnavailableError reports an external call that kept failing
// after every retry attempt was spent.
type ServiceUnavailableError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

// ParseError reports model output that could not be interpreted as
// structured data. Stages recover from it locally with a documented
// default instead of failing the pipeline.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: could not parse model output: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SynchronizationError means the barrier was reached with a branch
// missing. The DAG contract makes this impossible, so seeing one
// indicates an orchestrator bug.
type SynchronizationError struct {
	Missing []string
}

func (e *SynchronizationError) Error() string {
	return fmt.Sprintf("synchronization barrier reached without %s", strings.Join(e.Missing, ", "))
}
