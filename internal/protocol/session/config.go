package session

import (
	"time"

	"github.com/retrokiller543/nexsock2/internal/protocol/frame"
)

// BackoffConfig defines retry backoff behavior for request callers.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines session reliability defaults.
type Config struct {
	// RequestTimeout bounds SendRequest when the caller's context
	// carries no deadline of its own.
	RequestTimeout time.Duration
	// DrainTimeout bounds how long Shutdown waits for outstanding
	// requests before forcing the close.
	DrainTimeout time.Duration
	// ReadChunkBytes sizes the read-loop buffer.
	ReadChunkBytes int
	Limits         frame.Limits
	Backoff        BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout: 10 * time.Second,
		DrainTimeout:   15 * time.Second,
		ReadChunkBytes: 32 * 1024,
		Limits:         frame.DefaultLimits(),
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = def.DrainTimeout
	}
	if c.ReadChunkBytes <= 0 {
		c.ReadChunkBytes = def.ReadChunkBytes
	}
	if c.Limits.MaxFrameBytes == 0 {
		c.Limits = def.Limits
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	return c
}
