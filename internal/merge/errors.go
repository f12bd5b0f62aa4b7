package merge

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConversion    = errors.New("conversion error")
	ErrConcatenation = errors.New("concatenation error")
	ErrEmptyOutput   = errors.New("empty output")
)

// Stage is a state of the merge state machine.
type Stage string

// Merge stages in the order a successful merge visits them.
const (
	StageIdle          Stage = "idle"
	StageNormalizing   Stage = "normalizing"
	StageManifestBuilt Stage = "manifest_built"
	StageConcatenating Stage = "concatenating"
	StageVerified      Stage = "verified"
	StageFailed        Stage = "failed"
)

// Error is a typed merge failure.
//
// Stage is the stage that was running when the failure happened; requests
// rejected by validation fail in StageIdle. Reason is suitable for end
// users and never contains filesystem paths. Err keeps the underlying
// cause for logs.
type Error struct {
	Stage  Stage
	Kind   error
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v during %s: %s", e.Kind, e.Stage, e.Reason)
	}
	return fmt.Sprintf("%v during %s: %s: %v", e.Kind, e.Stage, e.Reason, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a short label for the error kind.
func (e *Error) KindName() string {
	return KindName(e.Kind)
}

// KindName returns the label used in metrics and API responses for kind.
func KindName(kind error) string {
	switch {
	case errors.Is(kind, ErrValidation):
		return "validation"
	case errors.Is(kind, ErrConversion):
		return "conversion"
	case errors.Is(kind, ErrConcatenation):
		return "concatenation"
	case errors.Is(kind, ErrEmptyOutput):
		return "empty_output"
	default:
		return "unknown"
	}
}

func validationError(format string, args ...interface{}) *Error {
	return &Error{Stage: StageIdle, Kind: ErrValidation, Reason: fmt.Sprintf(format, args...)}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var me *Error
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
