package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoad_Defaults verifies an empty environment selects the memory driver.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.Driver != DriverMemory || cfg.Addr != ":8080" || cfg.Photo.Timeout != 5*time.Second {
		t.Errorf("cfg=%+v", cfg)
	}
	if cfg.IdentityField != "Clinicians Name" {
		t.Errorf("identity_field=%q", cfg.IdentityField)
	}
}

// TestLoad_Environment verifies prefixed variables with dotted keys override defaults.
func TestLoad_Environment(t *testing.T) {
	t.Setenv("DIRECTORY_SOURCE_DRIVER", "sheets")
	t.Setenv("DIRECTORY_SOURCE_SPREADSHEET_URL", "https://docs.google.com/spreadsheets/d/abc123/edit")
	t.Setenv("DIRECTORY_PHOTO_TIMEOUT", "2s")
	t.Setenv("DIRECTORY_REQUIRE_FILTER", "true")
	t.Setenv("DIRECTORY_NOTIFY_TO", "a@example.org, b@example.org")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.Driver != DriverSheets || cfg.Photo.Timeout != 2*time.Second || !cfg.RequireFilter {
		t.Errorf("cfg=%+v", cfg)
	}
	if len(cfg.NotifyTo) != 2 || cfg.NotifyTo[1] != "b@example.org" {
		t.Errorf("notify.to=%v", cfg.NotifyTo)
	}
}

// TestLoad_DotEnv verifies values from the .env file are applied and a missing file is ignored.
func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DIRECTORY_ADDR=:9191\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DIRECTORY_ADDR", "")
	os.Unsetenv("DIRECTORY_ADDR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9191" {
		t.Errorf("addr=%q want :9191", cfg.Addr)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored: %v", err)
	}
}

// TestValidate verifies each rejected configuration.
func TestValidate(t *testing.T) {
	base := FromViper(New())
	key32 := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown driver", func(c *Config) { c.Source.Driver = "csv" }, false},
		{"sheets without url", func(c *Config) { c.Source.Driver = DriverSheets }, false},
		{"xlsx without path", func(c *Config) { c.Source.Driver = DriverXLSX }, false},
		{"xlsx with path", func(c *Config) { c.Source.Driver = DriverXLSX; c.Source.XLSXPath = "staff.xlsx" }, true},
		{"zero timeout", func(c *Config) { c.Photo.Timeout = 0 }, false},
		{"short csrf key", func(c *Config) { c.CSRFKey = base64.StdEncoding.EncodeToString([]byte("short")) }, false},
		{"valid csrf key", func(c *Config) { c.CSRFKey = key32 }, true},
		{"production without csrf", func(c *Config) { c.Env = "production" }, false},
		{"blank identity", func(c *Config) { c.IdentityField = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Errorf("err=%v want ErrInvalid", err)
			}
		})
	}
}

// TestLogger verifies the handler format follows the environment.
func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	Config{Env: "production", LogLevel: "debug"}.Logger(&buf).Debug("roster_loaded", "records", 3)
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("production log not JSON: %q", buf.String())
	}
	buf.Reset()
	Config{Env: "development", LogLevel: "warn"}.Logger(&buf).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}
