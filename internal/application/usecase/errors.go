package usecase

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks a request rejected before any processing began
var ErrInvalidRequest = errors.New("invalid request")

func ErrRequestValidation(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}

func ErrCreateOutputRoot(path string, err error) error {
	return fmt.Errorf("%w: failed to create output directory %s: %w", ErrInvalidRequest, path, err)
}

func ErrStagePanic(recovered interface{}) error {
	return fmt.Errorf("panic while processing input: %v", recovered)
}

func ErrRunInterrupted(err error) error {
	return fmt.Errorf("run interrupted: %w", err)
}

func ErrMirrorOpen(err error) error {
	return fmt.Errorf("failed to open cached PDB: %w", err)
}

func ErrMirrorUpload(key string, err error) error {
	return fmt.Errorf("failed to mirror %s: %w", key, err)
}

func ErrMirrorRestore(key string, err error) error {
	return fmt.Errorf("failed to restore %s from mirror: %w", key, err)
}

func ErrMirrorDiscard(key string, err error) error {
	return fmt.Errorf("failed to remove %s from mirror: %w", key, err)
}
