package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
	if cfg.Backend != BackendMock {
		t.Errorf("default backend: got %q, want %q", cfg.Backend, BackendMock)
	}
	if cfg.MailboxDepth != 64 {
		t.Errorf("default mailbox depth: got %d, want 64", cfg.MailboxDepth)
	}
	if cfg.RuntimeMode != RuntimeModeSync {
		t.Errorf("default runtime mode: got %q, want %q", cfg.RuntimeMode, RuntimeModeSync)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default is valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "native backend is valid",
			mutate: func(c *Config) { c.Backend = BackendNative },
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Backend = "cloud" },
			wantErr: "backend must be",
		},
		{
			name:    "empty backend",
			mutate:  func(c *Config) { c.Backend = "" },
			wantErr: "backend must be",
		},
		{
			name:    "zero mailbox depth",
			mutate:  func(c *Config) { c.MailboxDepth = 0 },
			wantErr: "mailbox depth",
		},
		{
			name:    "negative mailbox depth",
			mutate:  func(c *Config) { c.MailboxDepth = -1 },
			wantErr: "mailbox depth",
		},
		{
			name:    "unknown runtime mode",
			mutate:  func(c *Config) { c.RuntimeMode = "parallel" },
			wantErr: "runtime mode",
		},
		{
			name:   "async runtime mode is valid",
			mutate: func(c *Config) { c.RuntimeMode = RuntimeModeAsync },
		},
		{
			name:   "file shadow store URI is valid",
			mutate: func(c *Config) { c.ShadowStoreURI = "file:///tmp/shadows" },
		},
		{
			name:    "non-file shadow store URI",
			mutate:  func(c *Config) { c.ShadowStoreURI = "s3://bucket/shadows" },
			wantErr: "shadow store URI",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestZapLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	if got := cfg.ZapLevel(); got != zapcore.DebugLevel {
		t.Errorf("zap level: got %v, want %v", got, zapcore.DebugLevel)
	}

	cfg.LogLevel = "not-a-level"
	if got := cfg.ZapLevel(); got != zapcore.InfoLevel {
		t.Errorf("zap level fallback: got %v, want %v", got, zapcore.InfoLevel)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `backend: mock
functionArn: arn:aws:lambda:local:000000000000:function:echo
mailboxDepth: 8
logLevel: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Backend != BackendMock {
		t.Errorf("backend: got %q, want %q", cfg.Backend, BackendMock)
	}
	if cfg.MailboxDepth != 8 {
		t.Errorf("mailbox depth: got %d, want 8", cfg.MailboxDepth)
	}
	// Fields the file omits keep their defaults.
	if cfg.RuntimeMode != RuntimeModeSync {
		t.Errorf("runtime mode: got %q, want %q", cfg.RuntimeMode, RuntimeModeSync)
	}
	if cfg.FunctionArn != "arn:aws:lambda:local:000000000000:function:echo" {
		t.Errorf("function arn: got %q", cfg.FunctionArn)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("backend: [unclosed"), 0o644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Error("expected an error for invalid yaml")
		}
	})

	t.Run("fails validation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("backend: cloud"), 0o644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Error("expected a validation error")
		}
	})
}
