package orchestrator

import (
	"errors"
	"fmt"

	"cluster-dashboard-go/clustering"
	"cluster-dashboard-go/models"
)

var (
	// ErrValidation matches RunErrors caused by bad parameters, ours or the service's.
	ErrValidation = errors.New("validation error")
	// ErrTransport matches RunErrors caused by network failures or unusable responses.
	ErrTransport = errors.New("transport error")
)

// ErrorKind classifies a failed run.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindTransport  ErrorKind = "transport"
)

// RunError is the single error surfaced for a failed mode fetch.
type RunError struct {
	Mode models.Mode
	Kind ErrorKind
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s clustering failed: %v", e.Mode, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrValidation and ErrTransport by kind.
func (e *RunError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

// Message is the text shown to the caller.
func (e *RunError) Message() string {
	var se *clustering.StatusError
	if errors.As(e.Err, &se) && se.Message != "" {
		return se.Message
	}
	return e.Err.Error()
}

func wrapFetchError(mode models.Mode, err error) *RunError {
	var re *RunError
	if errors.As(err, &re) {
		return re
	}
	kind := KindTransport
	var se *clustering.StatusError
	if errors.As(err, &se) && se.Validation() {
		kind = KindValidation
	}
	return &RunError{Mode: mode, Kind: kind, Err: err}
}
