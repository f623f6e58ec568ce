package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	domainAudit "directory/internal/domain/audit"
	domainSettings "directory/internal/domain/settings"
)

// SettingsStore loads and saves local settings.
type SettingsStore interface {
	Load(ctx context.Context) (domainSettings.Settings, error)
	Save(ctx context.Context, s domainSettings.Settings) error
}

// SaveSettingsInput carries the user-editable preferences.
type SaveSettingsInput struct {
	Font     string
	FontSize int
	Theme    string
	Actor    Actor
}

// SaveSettingsDeps holds dependencies for SaveSettings.
type SaveSettingsDeps struct {
	Settings SettingsStore
	Audit    AuditStore
}

// ExecuteSaveSettings validates and persists the preferences, keeping the stored revision.
// PRE: none
// POST: Valid input is persisted; invalid input returns an error wrapping settings.ErrInvalid
// and the store is unchanged
func ExecuteSaveSettings(ctx context.Context, input SaveSettingsInput, deps SaveSettingsDeps) (domainSettings.Settings, error) {
	current, err := deps.Settings.Load(ctx)
	if err != nil {
		slog.Warn("settings_load_failed", "error", err.Error())
		current = domainSettings.Defaults()
	}
	next := current
	next.Font = input.Font
	next.FontSize = input.FontSize
	next.Theme = input.Theme
	if err := next.Validate(); err != nil {
		return current, err
	}
	if err := deps.Settings.Save(ctx, next); err != nil {
		return current, fmt.Errorf("save settings: %w", err)
	}
	saveAudit(ctx, deps.Audit, domainAudit.NewEvent(input.Actor.SessionID, domainAudit.ActionSettings).
		WithRevision(next.Revision).
		WithIP(input.Actor.IP).
		WithDescription(fmt.Sprintf("font=%s size=%d theme=%s", next.Font, next.FontSize, next.Theme)))
	return next, nil
}
