package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.wpp-web/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`

	Host    Host    `toml:"host"`
	History History `toml:"history"`
	Media   Media   `toml:"media"`
	Bridge  Bridge  `toml:"bridge"`
	Metrics Metrics `toml:"metrics"`
}

// Host locates the automation host. An empty address means the session's
// default socket.
type Host struct {
	Address string `toml:"address"`
}

type History struct {
	DefaultLimit int `toml:"default_limit"`
	// BackfillLimit is how many messages per chat the daemon archives once the
	// session is ready. Zero disables the backfill.
	BackfillLimit int `toml:"backfill_limit"`
}

// Media bounds media resolution.
type Media struct {
	MaxAttempts   int      `toml:"max_attempts"`
	RemoteRetries int      `toml:"remote_retries"`
	RetryDelay    Duration `toml:"retry_delay"`
}

type Bridge struct {
	BufferOutsideReady bool `toml:"buffer_outside_ready"`
	BufferSize         int  `toml:"buffer_size"`
}

// Metrics configures the Prometheus endpoint. An empty Listen disables it.
type Metrics struct {
	Listen string `toml:"listen"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		DefaultSession: "main",
		History:        History{DefaultLimit: 50},
		Media: Media{
			MaxAttempts:   1,
			RemoteRetries: 1,
			RetryDelay:    Duration{250 * time.Millisecond},
		},
		Bridge: Bridge{BufferSize: 256},
	}
}

// Load reads config from the given path on top of Default. Returns nil and an
// error if the file is missing or invalid.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %s", path, keys[0])
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
