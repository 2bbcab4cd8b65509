package engine

import (
	"context"
	"errors"
	"fmt"
)

// ConfigurationError reports engine settings that make a run impossible.
// It is returned before any computation starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// CancellationError reports a run abandoned because its context ended
type CancellationError struct {
	Phase string
	Err   error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("allocation cancelled during %s: %v", e.Phase, e.Err)
}

func (e *CancellationError) Unwrap() error {
	return e.Err
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
