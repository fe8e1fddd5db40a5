package config

import (
	"time"

	"github.com/retrokiller543/nexsock2/internal/protocol/frame"
	"github.com/retrokiller543/nexsock2/internal/protocol/session"
)

// SessionConfig converts the file shape into a runtime session config,
// filling unset fields from session defaults.
func SessionConfig(cfg ProtocolConfig) session.Config {
	out := session.Config{
		RequestTimeout: time.Duration(cfg.Session.RequestTimeoutMS) * time.Millisecond,
		DrainTimeout:   time.Duration(cfg.Session.DrainTimeoutMS) * time.Millisecond,
		ReadChunkBytes: cfg.Session.ReadChunkBytes,
		Limits:         frame.Limits{MaxFrameBytes: cfg.Frame.MaxFrameBytes},
		Backoff: session.BackoffConfig{
			InitialDelay: time.Duration(cfg.Session.Backoff.InitialDelayMS) * time.Millisecond,
			Multiplier:   cfg.Session.Backoff.Multiplier,
			MaxDelay:     time.Duration(cfg.Session.Backoff.MaxDelayMS) * time.Millisecond,
			Jitter:       cfg.Session.Backoff.Jitter,
		},
	}
	return out.WithDefaults()
}
