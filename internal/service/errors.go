package service

import (
	"errors"
	"fmt"
)

// Step names a stage of a plan submission.
type Step string

const (
	StepValidate     Step = "validate"
	StepConfig       Step = "config"
	StepLookup       Step = "lookup"
	StepCustomFields Step = "custom_fields"
	StepUpsert       Step = "upsert"
	StepTagRemove    Step = "tag_remove"
	StepTagAdd       Step = "tag_add"
)

// Code is the machine-readable failure reported to callers.
type Code string

const (
	CodeInvalidPayload       Code = "invalid_payload"
	CodePayloadTooLarge      Code = "payload_too_large"
	CodeMissingIdentity      Code = "missing_identity"
	CodeMissingConfiguration Code = "missing_configuration"
	CodeLookupFailed         Code = "external_lookup_failed"
	CodeFieldSchemaFailed    Code = "field_schema_failed"
	CodeCreateFailed         Code = "external_create_failed"
	CodeUpdateFailed         Code = "external_update_failed"
	CodeContactUnresolved    Code = "contact_unresolved"
	CodeTagRemoveFailed      Code = "tag_remove_failed"
	CodeTagAddFailed         Code = "tag_add_failed"
	CodeUnhandled            Code = "unhandled"
)

var ErrContactUnresolved = errors.New("unable to resolve contact id")

// StepError is the failure of one submission step.
type StepError struct {
	Step Step
	Code Code
	Err  error
}

func NewStepError(step Step, code Code, err error) *StepError {
	return &StepError{Step: step, Code: code, Err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Step, e.Code, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// AsStepError unwraps err to a *StepError when there is one.
func AsStepError(err error) (*StepError, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr, true
	}
	return nil, false
}
