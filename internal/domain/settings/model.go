package settings

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"directory/internal/domain/theme"
)

// Default values applied when the settings store is missing or unreadable.
const (
	DefaultFont     = "Roboto"
	DefaultFontSize = 12
	DefaultTheme    = theme.Default
	DefaultRevision = 14
)

// Font size bounds.
const (
	MinFontSize = 8
	MaxFontSize = 24
)

// VersionPrefix prefixes the revision counter in the displayed version string.
const VersionPrefix = "V2.0."

// Settings holds the local user preferences and the write-back revision counter.
type Settings struct {
	Font     string `json:"font" validate:"required,max=64"`
	FontSize int    `json:"font_size" validate:"min=8,max=24"`
	Theme    string `json:"theme" validate:"required,theme"`
	Revision int    `json:"revision" validate:"min=0"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Font:     DefaultFont,
		FontSize: DefaultFontSize,
		Theme:    DefaultTheme,
		Revision: DefaultRevision,
	}
}

// Version renders the revision counter for display, e.g. "V2.0.14".
func (s Settings) Version() string {
	return fmt.Sprintf("%s%d", VersionPrefix, s.Revision)
}

// Bumped returns a copy with the revision counter incremented.
// POST: returned Revision == s.Revision + 1
func (s Settings) Bumped() Settings {
	s.Revision++
	return s
}

// FieldError names one invalid settings field.
type FieldError struct {
	Field string
	Rule  string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s is invalid (%s)", e.Field, e.Rule)
}

// ErrInvalid wraps every settings validation failure.
var ErrInvalid = errors.New("invalid settings")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the theme rule registered
// and json tag names reported in errors.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
			_, ok := theme.Lookup(fl.Field().String())
			return ok
		})
	})
	return validate
}

// Validate checks the settings against their field rules.
// PRE: none
// POST: Returns nil or an error wrapping ErrInvalid whose chain carries the first FieldError
func (s Settings) Validate() error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, FieldError{Field: verrs[0].Field(), Rule: verrs[0].Tag()})
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}

// Sanitize replaces each invalid field with its default.
// POST: returned settings always validate
func (s Settings) Sanitize() Settings {
	d := Defaults()
	if strings.TrimSpace(s.Font) == "" || len(s.Font) > 64 {
		s.Font = d.Font
	}
	if s.FontSize < MinFontSize || s.FontSize > MaxFontSize {
		s.FontSize = d.FontSize
	}
	if _, ok := theme.Lookup(s.Theme); !ok {
		s.Theme = d.Theme
	}
	if s.Revision < 0 {
		s.Revision = d.Revision
	}
	return s
}
