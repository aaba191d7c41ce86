package connector

import (
	"github.com/google/uuid"
)

// ErrorObserver is notified of every failure before it is returned to the
// caller. It can not suppress or replace the failure.
type ErrorObserver interface {
	ObserveError(err error)
}

// ErrorHandlerFunc adapts a function to the ErrorObserver interface.
type ErrorHandlerFunc func(err error)

// ObserveError calls f(err).
func (f ErrorHandlerFunc) ObserveError(err error) {
	f(err)
}

// Configuration holds the settings of a connector. It is immutable after
// construction and can be shared by any number of connectors.
type Configuration struct {
	source       string
	id           string
	explicitID   bool
	errorHandler ErrorObserver
}

// ConfigOption configures a Configuration.
type ConfigOption func(*Configuration)

// NewConfiguration creates a configuration for source. If no id is given a
// random one is generated here, once, and kept for the lifetime of the
// configuration.
func NewConfiguration(source string, opts ...ConfigOption) *Configuration {
	c := &Configuration{source: source}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
		c.explicitID = false
	}
	return c
}

// WithID sets an explicit connector id.
func WithID(id string) ConfigOption {
	return func(c *Configuration) {
		c.id = id
		c.explicitID = id != ""
	}
}

// WithErrorHandler sets the observer notified of failures.
func WithErrorHandler(h ErrorObserver) ConfigOption {
	return func(c *Configuration) {
		c.errorHandler = h
	}
}

// WithErrorHandlerFunc sets a function notified of failures.
func WithErrorHandlerFunc(f func(error)) ConfigOption {
	return func(c *Configuration) {
		if f == nil {
			c.errorHandler = nil
			return
		}
		c.errorHandler = ErrorHandlerFunc(f)
	}
}

// Source returns the configured source location.
func (c *Configuration) Source() string {
	return c.source
}

// ID returns the configured or generated id.
func (c *Configuration) ID() string {
	return c.id
}

// HasExplicitID reports whether the id was set with WithID.
func (c *Configuration) HasExplicitID() bool {
	return c.explicitID
}

// ErrorHandler returns the configured error observer, or nil.
func (c *Configuration) ErrorHandler() ErrorObserver {
	return c.errorHandler
}
