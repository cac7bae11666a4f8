// Package config handles configuration loading and validation for the
// trust core and its host-side tooling.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Configuration errors
var (
	ErrInvalidKeySource     = errors.New("config: invalid key source")
	ErrInvalidEntropySource = errors.New("config: invalid entropy source")
	ErrInvalidLogLevel      = errors.New("config: invalid log level")
	ErrInvalidLogFormat     = errors.New("config: invalid log format")
	ErrInvalidRNGBudget     = errors.New("config: rng max_attempts must be positive")
	ErrInvalidSampleRate    = errors.New("config: rng sample_rate must be positive")
)

// Key source variants.
const (
	// KeySourceImported selects the caller-supplied key slot.
	KeySourceImported = "imported"
	// KeySourceBuiltin selects the platform-provisioned key table.
	KeySourceBuiltin = "builtin"
)

// Entropy source variants for host-side tooling.
const (
	// EntropySourceReader draws entropy blocks from the operating
	// system random source.
	EntropySourceReader = "reader"
	// EntropySourceTPM draws entropy blocks from a TPM 2.0 device.
	EntropySourceTPM = "tpm"
)

// Config holds the complete trust core configuration.
type Config struct {
	// RNG configuration for the entropy subsystem.
	RNG RNGConfig `toml:"rng"`

	// Keys configuration for key slot sourcing.
	Keys KeysConfig `toml:"keys"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging"`
}

// RNGConfig holds entropy subsystem configuration.
type RNGConfig struct {
	// SampleRate is the oscillator subsampling divider for the noise
	// source.
	SampleRate uint32 `toml:"sample_rate"`

	// MaxAttempts bounds every entropy retry loop.
	MaxAttempts int `toml:"max_attempts"`

	// DPAMitigations enables permutation shuffling for side-channel
	// countermeasures.
	DPAMitigations bool `toml:"dpa_mitigations"`

	// SelfTest re-checks drawn blocks with software statistical tests.
	SelfTest bool `toml:"self_test"`

	// Source selects the entropy source: "reader" or "tpm".
	Source string `toml:"source"`

	// TPMDevice is the TPM character device path for the "tpm" source.
	// Empty auto-detects the first usable device.
	TPMDevice string `toml:"tpm_device"`
}

// KeysConfig holds key slot configuration.
type KeysConfig struct {
	// Source selects the key slot variant: "imported" or "builtin".
	Source string `toml:"source"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level"`

	// Format is the output format: text or json.
	Format string `toml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		RNG: RNGConfig{
			SampleRate:     0x500,
			MaxAttempts:    16,
			DPAMitigations: true,
			SelfTest:       false,
			Source:         EntropySourceReader,
		},
		Keys: KeysConfig{
			Source: KeySourceImported,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML configuration file, applying defaults for anything
// the file does not set.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.RNG.MaxAttempts <= 0 {
		return ErrInvalidRNGBudget
	}
	if c.RNG.SampleRate == 0 {
		return ErrInvalidSampleRate
	}
	switch c.RNG.Source {
	case EntropySourceReader, EntropySourceTPM:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEntropySource, c.RNG.Source)
	}
	switch c.Keys.Source {
	case KeySourceImported, KeySourceBuiltin:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKeySource, c.Keys.Source)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}
	return nil
}
