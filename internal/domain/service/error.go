package service

import (
	"errors"
	"fmt"

	"massdownloader/internal/domain/entity/artifact"
	"massdownloader/internal/domain/entity/outcome"
)

func ErrCreateCacheDir(path string, err error) error {
	return fmt.Errorf("failed to create cache directory %s: %w", path, err)
}

func ErrInvalidPathSegment(segment string) error {
	return fmt.Errorf("invalid cache path segment %q", segment)
}

// RetrievalError ties a classified failure to the input that produced it
type RetrievalError struct {
	Input string
	Kind  outcome.Kind
	Err   error
}

func NewRetrievalError(input string, err error) *RetrievalError {
	return &RetrievalError{
		Input: input,
		Kind:  Classify(err),
		Err:   err,
	}
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Input, e.Kind, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Classify maps an error returned by a pipeline stage to its kind
func Classify(err error) outcome.Kind {
	var retrievalErr *RetrievalError
	switch {
	case err == nil:
		return outcome.KindNone
	case errors.As(err, &retrievalErr):
		return retrievalErr.Kind
	case errors.Is(err, artifact.ErrConsentDeclined):
		return outcome.KindConsentDeclined
	case errors.Is(err, artifact.ErrNotExecutable), errors.Is(err, artifact.ErrNoDebugInfo):
		return outcome.KindStructural
	case errors.Is(err, artifact.ErrNotFound):
		return outcome.KindNotFound
	case errors.Is(err, artifact.ErrTransport):
		return outcome.KindTransport
	case errors.Is(err, artifact.ErrUnreadablePDB):
		return outcome.KindUnreadablePDB
	default:
		return outcome.KindInternal
	}
}
