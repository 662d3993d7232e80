package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
	ErrConfiguration     = errors.New("configuration error")
	ErrUnavailable       = errors.New("service unavailable")
	ErrNoModelsAvailable = errors.New("no models available")
	ErrUnauthorized      = errors.New("unauthorized")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Stage names the pipeline step a user-visible failure originated from.
type Stage string

const (
	StageRetrieval  Stage = "retrieval"
	StageRouting    Stage = "routing"
	StageGeneration Stage = "generation"
	StageIngestion  Stage = "ingestion"
)

type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// WithStage tags err with stage. An error already carrying a stage keeps the
// innermost one.
func WithStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var staged *StageError
	if errors.As(err, &staged) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

func StageOf(err error) (Stage, bool) {
	var staged *StageError
	if errors.As(err, &staged) {
		return staged.Stage, true
	}
	return "", false
}
