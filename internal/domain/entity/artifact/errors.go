package artifact

import (
	"errors"
	"fmt"
)

var (
	// Raised by the locator
	ErrNotExecutable = errors.New("not a PE executable")
	ErrNoDebugInfo   = errors.New("no debug section")

	// Raised by the fetcher
	ErrNotFound  = errors.New("not found on symbol server")
	ErrTransport = errors.New("symbol server unreachable")

	// Raised by the source extraction driver
	ErrUnreadablePDB   = errors.New("unreadable PDB")
	ErrConsentDeclined = errors.New("license agreement not accepted")

	ErrEmptyVersion = errors.New("artifact version cannot be empty")
)

func ErrInvalidName(name string) error {
	return fmt.Errorf("invalid artifact name %q", name)
}

func ErrNotExecutableWith(err error) error {
	return fmt.Errorf("%w: %w", ErrNotExecutable, err)
}

func ErrTransportWith(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func ErrUnreadablePDBWith(err error) error {
	return fmt.Errorf("%w: %w", ErrUnreadablePDB, err)
}
