package core

import "time"

const (
	DefaultSessionMaxAge = 30 * 24 * time.Hour
	DefaultStateMaxAge   = 10 * time.Minute

	// DefaultTokenLifetime applies when the provider omits expires_in.
	DefaultTokenLifetime = time.Hour
)

// SessionConfig configures cookie lifetimes
type SessionConfig struct {
	// MaxAge of the session cookie
	MaxAge time.Duration
	// StateMaxAge bounds the authorization round-trip
	StateMaxAge time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxAge:      DefaultSessionMaxAge,
		StateMaxAge: DefaultStateMaxAge,
	}
}

// WithDefaults fills zero values.
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultSessionMaxAge
	}
	if c.StateMaxAge <= 0 {
		c.StateMaxAge = DefaultStateMaxAge
	}
	return c
}
