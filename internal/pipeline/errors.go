package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/tendant/bucket-thumbnailer/internal/storage"
	"github.com/tendant/bucket-thumbnailer/pkg/schema"
)

// ValidationError ends a run early without counting as a failure. Quiet ones
// are routine (a non-image upload) and logged at info level.
type ValidationError struct {
	Type    schema.FailureType
	Message string
	Quiet   bool
}

func (e ValidationError) Error() string {
	return e.Message
}

func invalid(quiet bool, format string, args ...any) ValidationError {
	return ValidationError{
		Type:    schema.FailureTypeValidation,
		Message: fmt.Sprintf(format, args...),
		Quiet:   quiet,
	}
}

type Stage string

const (
	StageFetch  Stage = "fetch"
	StageDecode Stage = "decode"
	StageResize Stage = "resize"
	StageUpload Stage = "upload"
	StageNotify Stage = "notify"
)

// StageError attributes a failure to the stage, and for fan-out stages the
// edge, it happened in.
type StageError struct {
	Stage Stage
	Edge  int
	Err   error
}

func (e *StageError) Error() string {
	if e.Edge > 0 {
		return fmt.Sprintf("%s S%d: %v", e.Stage, e.Edge, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// classifyError tells the invoker whether re-delivering the event may help.
// A joined error is retryable when any of its parts is.
func classifyError(err error) schema.FailureType {
	if err == nil {
		return ""
	}

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Type
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if classifyError(e) == schema.FailureTypeRetryable {
				return schema.FailureTypeRetryable
			}
		}
		return schema.FailureTypePermanent
	}

	if errors.Is(err, storage.ErrNotFound) {
		return schema.FailureTypePermanent
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return schema.FailureTypeRetryable
	}
	var transportErr *storage.TransportError
	if errors.As(err, &transportErr) {
		return schema.FailureTypeRetryable
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case StageDecode, StageResize:
			return schema.FailureTypePermanent
		}
	}

	// Unknown errors, including queue sends, may succeed on re-delivery.
	return schema.FailureTypeRetryable
}
