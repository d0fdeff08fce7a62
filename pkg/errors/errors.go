package errors

import (
	"errors"
	"fmt"
)

var (
	ErrConversion          = errors.New("document conversion failed")
	ErrRecognition         = errors.New("text recognition failed")
	ErrLookup              = errors.New("reference record lookup failed")
	ErrJobNotFound         = errors.New("job not found")
	ErrJobExists           = errors.New("job already exists")
	ErrJobTerminal         = errors.New("job already in terminal state")
	ErrValidation          = errors.New("request validation failed")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// StageError records which pipeline stage a job failed in. The stage name
// ends up in the failure record shown to status pollers.
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Err.Error())
}

func (e StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage string, err error) error {
	return StageError{
		Stage: stage,
		Err:   err,
	}
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for '%s': %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrValidation
}
