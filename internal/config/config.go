package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("config: invalid protocol config")

// ProtocolConfig is the on-disk shape of a nexsock protocol config
// file. Durations are milliseconds; zero fields fall back to session
// defaults at conversion time.
type ProtocolConfig struct {
	Session SessionEntry `toml:"session"`
	Frame   FrameEntry   `toml:"frame"`
}

type SessionEntry struct {
	RequestTimeoutMS int64        `toml:"request_timeout_ms"`
	DrainTimeoutMS   int64        `toml:"drain_timeout_ms"`
	ReadChunkBytes   int          `toml:"read_chunk_bytes"`
	Backoff          BackoffEntry `toml:"backoff"`
}

type BackoffEntry struct {
	InitialDelayMS int64   `toml:"initial_delay_ms"`
	Multiplier     float64 `toml:"multiplier"`
	MaxDelayMS     int64   `toml:"max_delay_ms"`
	Jitter         bool    `toml:"jitter"`
}

type FrameEntry struct {
	MaxFrameBytes uint32 `toml:"max_frame_bytes"`
}

// LoadProtocolConfig reads and validates a TOML protocol config file.
func LoadProtocolConfig(path string) (ProtocolConfig, error) {
	var cfg ProtocolConfig
	if err := loadToml(path, &cfg); err != nil {
		return ProtocolConfig{}, err
	}
	if err := ValidateProtocolConfig(cfg); err != nil {
		return ProtocolConfig{}, err
	}
	return cfg, nil
}

func ValidateProtocolConfig(cfg ProtocolConfig) error {
	if cfg.Session.RequestTimeoutMS < 0 {
		return fmt.Errorf("%w: negative request_timeout_ms", ErrInvalidConfig)
	}
	if cfg.Session.DrainTimeoutMS < 0 {
		return fmt.Errorf("%w: negative drain_timeout_ms", ErrInvalidConfig)
	}
	if cfg.Session.ReadChunkBytes < 0 {
		return fmt.Errorf("%w: negative read_chunk_bytes", ErrInvalidConfig)
	}
	if cfg.Session.Backoff.InitialDelayMS < 0 || cfg.Session.Backoff.MaxDelayMS < 0 {
		return fmt.Errorf("%w: negative backoff delay", ErrInvalidConfig)
	}
	if m := cfg.Session.Backoff.Multiplier; m != 0 && m < 1.0 {
		return fmt.Errorf("%w: backoff multiplier below 1.0", ErrInvalidConfig)
	}
	return nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
