package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every ConfigError via errors.Is.
	ErrConfiguration = errors.New("mesh: invalid configuration")

	// ErrCapacityExceeded is returned when a run needs more vertex slots
	// than the bound vertex buffer provides. Buffers must be treated as
	// unusable after it.
	ErrCapacityExceeded = errors.New("mesh: vertex capacity exceeded")

	// ErrInUse is returned when an Operation is already running.
	ErrInUse = errors.New("mesh: operation already in use")
)

// ConfigError describes a binding or configuration problem detected before
// any buffer is mutated.
type ConfigError struct {
	Field   string // which setting is wrong, e.g. "vertex stride"
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "mesh: " + e.Message
	}
	return fmt.Sprintf("mesh: %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrConfiguration) hold for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}
