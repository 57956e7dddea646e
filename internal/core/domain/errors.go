package domain

import (
	"errors"
	"fmt"
)

// ConfigError reports a missing or unreadable configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ValidationError reports an unknown service or container name.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// EndpointUnresolvedError is returned when neither a default endpoint nor a
// per-container override is available.
type EndpointUnresolvedError struct {
	Container string
}

func (e *EndpointUnresolvedError) Error() string {
	return fmt.Sprintf("DOCKER_HOST not set globally or for container %s", e.Container)
}

// RuntimeError wraps a failure reported by the container engine.
type RuntimeError struct {
	Op        string
	Container string
	NotFound  bool
	Err       error
}

func (e *RuntimeError) Error() string {
	if e.Container == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Container, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an engine error for a missing object.
func IsNotFound(err error) bool {
	var rerr *RuntimeError
	return errors.As(err, &rerr) && rerr.NotFound
}
