// Package config loads the server's HCL configuration: logging, worker
// bound, healthcheck port, and one listen block per transport.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Listener configures one transport endpoint.
type Listener struct {
	// Kind selects the transport: "http" or "ws".
	Kind string `hcl:"kind,label"`

	// Addr is the listen address, e.g. "127.0.0.1:8545".
	Addr string `hcl:"addr"`

	// Path is the endpoint path; defaults to "/rpc".
	Path string `hcl:"path,optional"`

	// Codec selects the serializer: "json" (default) or "cbor".
	Codec string `hcl:"codec,optional"`
}

// Config is the server's top-level configuration.
type Config struct {
	LogLevel        string     `hcl:"log_level,optional"`
	LogFormat       string     `hcl:"log_format,optional"`
	Workers         int        `hcl:"workers,optional"`
	HealthcheckPort int        `hcl:"healthcheck_port,optional"`
	Listeners       []Listener `hcl:"listen,block"`
}

// Load reads and validates an HCL config file.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := cfg.applyDefaultsAndValidate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return &cfg, nil
}

// Parse decodes config from bytes; filename only labels diagnostics.
func Parse(filename string, src []byte) (*Config, error) {
	var cfg Config
	if err := hclsimple.Decode(filename, src, nil, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", filename, err)
	}
	if err := cfg.applyDefaultsAndValidate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", filename, err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given: one local
// HTTP listener with JSON framing.
func Default() *Config {
	cfg := &Config{
		Listeners: []Listener{{Kind: "http", Addr: "127.0.0.1:8545"}},
	}
	// Defaults cannot fail validation.
	if err := cfg.applyDefaultsAndValidate(); err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) applyDefaultsAndValidate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q: must be debug, info, warn, or error", c.LogLevel)
	}

	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format %q: must be text or json", c.LogFormat)
	}

	if c.Workers == 0 {
		c.Workers = 10
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}

	if len(c.Listeners) == 0 {
		return fmt.Errorf("at least one listen block is required")
	}
	for i := range c.Listeners {
		l := &c.Listeners[i]
		switch l.Kind {
		case "http", "ws":
		default:
			return fmt.Errorf("listen %q: unknown transport kind", l.Kind)
		}
		if l.Addr == "" {
			return fmt.Errorf("listen %q: addr is required", l.Kind)
		}
		if l.Path == "" {
			l.Path = "/rpc"
		}
		if l.Codec == "" {
			l.Codec = "json"
		}
		switch l.Codec {
		case "json", "cbor":
		default:
			return fmt.Errorf("listen %q: unknown codec %q", l.Kind, l.Codec)
		}
	}
	return nil
}
