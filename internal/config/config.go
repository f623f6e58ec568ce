// Package config loads runtime settings from the environment, an optional
// .env file and built-in defaults.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. DIRECTORY_SOURCE_DRIVER.
const EnvPrefix = "DIRECTORY"

// Source drivers.
const (
	DriverSheets = "sheets"
	DriverXLSX   = "xlsx"
	DriverMemory = "memory"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the typed view of the loaded settings.
type Config struct {
	Env      string
	Addr     string
	LogLevel string
	DBPath   string

	Source Source

	IdentityField string
	RequireFilter bool

	Photo Photo

	AddStaffPasswordHash string
	CSRFKey              string

	ResendKey  string
	ResendFrom string
	NotifyTo   []string

	SlowRequestMs      int
	SlowSourceMs       int
	SlowQueryMs        int
	RateLimitPerSecond int
}

// Source selects and configures the roster source.
type Source struct {
	Driver          string
	SpreadsheetURL  string
	CredentialsFile string
	Sheet           string
	XLSXPath        string
}

// Photo configures the photo fetcher.
type Photo struct {
	Timeout     time.Duration
	MaxBytes    int64
	ThumbnailPx int
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("env", "development")
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "directory.db")
	v.SetDefault("source.driver", DriverMemory)
	v.SetDefault("source.spreadsheet_url", "")
	v.SetDefault("source.credentials_file", "credentials.json")
	v.SetDefault("source.sheet", "")
	v.SetDefault("source.xlsx_path", "")
	v.SetDefault("identity_field", "Clinicians Name")
	v.SetDefault("require_filter", false)
	v.SetDefault("photo.timeout", 5*time.Second)
	v.SetDefault("photo.max_bytes", int64(10<<20))
	v.SetDefault("photo.thumbnail_px", 320)
	v.SetDefault("add_staff.password_hash", "")
	v.SetDefault("csrf_key", "")
	v.SetDefault("resend.key", "")
	v.SetDefault("resend.from", "directory@localhost")
	v.SetDefault("notify.to", "")
	v.SetDefault("slow_request_ms", 100)
	v.SetDefault("slow_source_ms", 1500)
	v.SetDefault("slow_query_ms", 50)
	v.SetDefault("rate_limit_per_second", 20)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads dotEnvPath if it exists, then builds the Config from the environment.
// PRE: none
// POST: Returns a validated Config or an error wrapping ErrInvalid
func Load(dotEnvPath string) (Config, error) {
	if dotEnvPath != "" {
		if err := godotenv.Load(dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config.godotenv(%s): %w", dotEnvPath, err)
		}
	}
	cfg := FromViper(New())
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromViper maps viper keys onto Config.
func FromViper(v *viper.Viper) Config {
	return Config{
		Env:      strings.ToLower(v.GetString("env")),
		Addr:     v.GetString("addr"),
		LogLevel: v.GetString("log_level"),
		DBPath:   v.GetString("db_path"),
		Source: Source{
			Driver:          strings.ToLower(v.GetString("source.driver")),
			SpreadsheetURL:  v.GetString("source.spreadsheet_url"),
			CredentialsFile: v.GetString("source.credentials_file"),
			Sheet:           v.GetString("source.sheet"),
			XLSXPath:        v.GetString("source.xlsx_path"),
		},
		IdentityField: v.GetString("identity_field"),
		RequireFilter: v.GetBool("require_filter"),
		Photo: Photo{
			Timeout:     v.GetDuration("photo.timeout"),
			MaxBytes:    v.GetInt64("photo.max_bytes"),
			ThumbnailPx: v.GetInt("photo.thumbnail_px"),
		},
		AddStaffPasswordHash: v.GetString("add_staff.password_hash"),
		CSRFKey:              v.GetString("csrf_key"),
		ResendKey:            v.GetString("resend.key"),
		ResendFrom:           v.GetString("resend.from"),
		NotifyTo:             splitList(v.GetString("notify.to")),
		SlowRequestMs:        v.GetInt("slow_request_ms"),
		SlowSourceMs:         v.GetInt("slow_source_ms"),
		SlowQueryMs:          v.GetInt("slow_query_ms"),
		RateLimitPerSecond:   v.GetInt("rate_limit_per_second"),
	}
}

// Validate checks the driver settings, durations and the CSRF key.
// PRE: none
// POST: Returns nil or an error wrapping ErrInvalid naming the first bad key
func (c Config) Validate() error {
	switch c.Source.Driver {
	case DriverSheets:
		if c.Source.SpreadsheetURL == "" {
			return fmt.Errorf("%w: source.spreadsheet_url is required for the sheets driver", ErrInvalid)
		}
		if c.Source.CredentialsFile == "" {
			return fmt.Errorf("%w: source.credentials_file is required for the sheets driver", ErrInvalid)
		}
	case DriverXLSX:
		if c.Source.XLSXPath == "" {
			return fmt.Errorf("%w: source.xlsx_path is required for the xlsx driver", ErrInvalid)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown source.driver %q", ErrInvalid, c.Source.Driver)
	}
	if c.Photo.Timeout <= 0 {
		return fmt.Errorf("%w: photo.timeout must be positive", ErrInvalid)
	}
	if c.Photo.MaxBytes <= 0 {
		return fmt.Errorf("%w: photo.max_bytes must be positive", ErrInvalid)
	}
	if c.CSRFKey != "" {
		if _, err := c.CSRFKeyBytes(); err != nil {
			return err
		}
	} else if c.Production() {
		return fmt.Errorf("%w: csrf_key is required in production", ErrInvalid)
	}
	if c.IdentityField == "" {
		return fmt.Errorf("%w: identity_field must not be empty", ErrInvalid)
	}
	return nil
}

// Production reports whether the service runs with production settings.
func (c Config) Production() bool {
	return c.Env == "production"
}

// CSRFKeyBytes decodes csrf_key as base64; gorilla/csrf needs exactly 32 bytes.
func (c Config) CSRFKeyBytes() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.CSRFKey)
	if err != nil {
		return nil, fmt.Errorf("%w: csrf_key is not base64: %v", ErrInvalid, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: csrf_key must decode to 32 bytes, got %d", ErrInvalid, len(key))
	}
	return key, nil
}

// Logger builds the process logger: text in development, JSON in production.
func (c Config) Logger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if c.Production() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
