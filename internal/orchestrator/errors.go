package orchestrator

import (
	"errors"
	"fmt"
)

// ErrConfiguration is wrapped by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError is the only fatal pipeline error. It is returned before
// any stage runs.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("orchestrator: %s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
