// Package config handles SDK configuration: which backend executes dispatch
// calls, how deep handoff mailboxes are, and where local shadow documents
// persist. Backend selection is configuration-time, never per call.
package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by Config.Backend.
const (
	BackendMock   = "mock"
	BackendNative = "native"
)

// Runtime modes accepted by Config.RuntimeMode.
const (
	RuntimeModeSync  = "sync"
	RuntimeModeAsync = "async"
)

// Config holds all SDK configuration. The zero value is not valid; start
// from Default.
type Config struct {
	Backend        string `yaml:"backend"`        // Which backend executes calls: mock or native
	FunctionArn    string `yaml:"functionArn"`    // ARN stamped into mock invocation contexts
	ShadowStoreURI string `yaml:"shadowStoreUri"` // file:// URI for persistent local shadows; empty keeps them in memory
	MailboxDepth   int    `yaml:"mailboxDepth"`   // Buffered capacity of handoff mailboxes
	RuntimeMode    string `yaml:"runtimeMode"`    // How the native runtime start blocks: sync or async
	LogLevel       string `yaml:"logLevel"`       // Minimum SDK log level (zap level name)
}

// Default returns the configuration tests and examples start from: the mock
// backend with in-memory shadows.
func Default() Config {
	return Config{
		Backend:      BackendMock,
		MailboxDepth: 64,
		RuntimeMode:  RuntimeModeSync,
		LogLevel:     "info",
	}
}

// Validate ensures all fields hold usable values.
func (c *Config) Validate() error {
	if c.Backend != BackendMock && c.Backend != BackendNative {
		return fmt.Errorf("backend must be %s or %s", BackendMock, BackendNative)
	}

	if c.MailboxDepth < 1 {
		return fmt.Errorf("mailbox depth must be at least 1")
	}

	if c.RuntimeMode != RuntimeModeSync && c.RuntimeMode != RuntimeModeAsync {
		return fmt.Errorf("runtime mode must be %s or %s", RuntimeModeSync, RuntimeModeAsync)
	}

	if c.ShadowStoreURI != "" && !strings.HasPrefix(c.ShadowStoreURI, "file://") {
		return fmt.Errorf("shadow store URI must start with file://")
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	return nil
}

// ZapLevel returns the configured minimum log level. Call Validate first;
// unparseable levels degrade to info here.
func (c *Config) ZapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// LoadFile reads a YAML configuration file, applying defaults for fields the
// file omits, and validates the result.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
