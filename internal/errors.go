package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NYCU-SDC/summer/pkg/problem"
)

var (
	ErrPartitionNotFound = errors.New("partition not found")
)

// ParseError reports malformed text from an external source, either a cell of
// the scheduler status output or a raw user-submitted field.
type ParseError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s value %q: %s", e.Field, e.Value, e.Reason)
}

// ConfigurationError reports an unusable deployment configuration, for example
// a partition catalogue entry that contradicts the live cluster. It is never
// silently defaulted away.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// SchedulerError wraps a failure of the status pipeline: the status command
// could not run, timed out, or produced output that does not parse. Resource
// data derived from a failed fetch is never returned partially.
type SchedulerError struct {
	Err error
}

func (e *SchedulerError) Error() string {
	return "scheduler status unavailable: " + e.Err.Error()
}

func (e *SchedulerError) Unwrap() error {
	return e.Err
}

// Violation names one offending field of a spawn request.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in a spawn request, not just
// the first one.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "invalid spawn request: " + strings.Join(parts, "; ")
}

// ResourceUnavailableError reports a request for a resource the target
// partition does not offer at all, as opposed to exceeding a limit.
type ResourceUnavailableError struct {
	Partition string
	Resource  string
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("%s not available for partition %q", e.Resource, e.Partition)
}

func NewProblemWriter() *problem.HttpWriter {
	return problem.NewWithMapping(ErrorHandler)
}

func ErrorHandler(err error) problem.Problem {
	switch {
	case errors.Is(err, ErrPartitionNotFound):
		return problem.NewNotFoundProblem("partition not found")
	}
	return problem.Problem{}
}
