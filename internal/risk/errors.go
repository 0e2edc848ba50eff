package risk

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCalculationFailed is the only message callers see for internal failures.
var ErrCalculationFailed = errors.New("could not complete calculation")

// FieldError describes one violated input constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (fe FieldError) String() string {
	return fe.Field + ": " + fe.Message
}

// ValidationError carries every constraint violation found in an input.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (ve *ValidationError) Error() string {
	parts := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		parts[i] = fe.String()
	}
	return "invalid risk input: " + strings.Join(parts, "; ")
}

// Has reports whether a violation was recorded for field.
func (ve *ValidationError) Has(field string) bool {
	for _, fe := range ve.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// ComputationError signals a broken internal invariant inside a pipeline stage.
type ComputationError struct {
	Stage string
	Err   error
}

func (ce *ComputationError) Error() string {
	return fmt.Sprintf("%s: %v", ce.Stage, ce.Err)
}

func (ce *ComputationError) Unwrap() error {
	return ce.Err
}

// NewComputationError wraps err as a failure of the named stage.
func NewComputationError(stage string, err error) *ComputationError {
	return &ComputationError{Stage: stage, Err: err}
}

// Is makes every ComputationError match ErrCalculationFailed.
func (ce *ComputationError) Is(target error) bool {
	return target == ErrCalculationFailed
}
