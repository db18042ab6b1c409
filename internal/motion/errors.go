package motion

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is fatal and reported before any frame is processed.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidRecord        = errors.New("invalid motion record")
	ErrOutOfOrder           = errors.New("motion record out of order")
	ErrTableFrozen          = errors.New("motion table is frozen")
	ErrUnsortedBeats        = errors.New("beat timestamps must be finite and ascending")
)

// ConfigError names the offending option.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

func invalid(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
