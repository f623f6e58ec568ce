package orchestrators

import (
	"context"
	"log/slog"
	"time"

	domainAudit "directory/internal/domain/audit"
)

// RefreshRosterInput carries input for the refresh orchestrator.
type RefreshRosterInput struct {
	Actor Actor
}

// RefreshRosterDeps holds dependencies for RefreshRoster.
type RefreshRosterDeps struct {
	Roster   RosterStore
	Audit    AuditStore
	Observer WriteObserver
}

// RefreshRosterResult summarises the new snapshot.
type RefreshRosterResult struct {
	Records  int
	Fields   int
	LoadedAt time.Time
}

// ExecuteRefreshRoster reloads the full roster from the source.
// PRE: none
// POST: On success the store publishes a new snapshot; on error the previous one is kept
func ExecuteRefreshRoster(ctx context.Context, input RefreshRosterInput, deps RefreshRosterDeps) (RefreshRosterResult, error) {
	snap, err := deps.Roster.Load(ctx)
	if err != nil {
		slog.Error("roster_refresh_failed", "error", err.Error())
		return RefreshRosterResult{}, err
	}
	observeRecords(deps.Observer, snap)
	if input.Actor.SessionID != "" {
		saveAudit(ctx, deps.Audit, domainAudit.NewEvent(input.Actor.SessionID, domainAudit.ActionRefresh).
			WithIP(input.Actor.IP).
			WithDescription("roster reloaded"))
	}
	return RefreshRosterResult{
		Records:  len(snap.Records),
		Fields:   len(snap.Headers),
		LoadedAt: snap.LoadedAt,
	}, nil
}
