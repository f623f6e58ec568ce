package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	domainAudit "directory/internal/domain/audit"
	domainRoster "directory/internal/domain/roster"
)

// ErrReloadAfterWrite means the row was written but the follow-up reload failed.
var ErrReloadAfterWrite = errors.New("record saved but reload failed")

// ErrNoIdentity is returned when no identity value is supplied.
var ErrNoIdentity = errors.New("staff identity is required")

// UpdateStaffInput carries input for the update orchestrator.
type UpdateStaffInput struct {
	// Identity is the identity-field value of the record being edited, as last loaded.
	Identity string
	// Fields holds the submitted values by field name. Fields not present keep their current value.
	Fields map[string]string
	Actor  Actor
}

// UpdateStaffDeps holds dependencies for UpdateStaff.
type UpdateStaffDeps struct {
	Roster    RosterStore
	Revisions RevisionStore
	Audit     AuditStore
	Notify    Notify
	Observer  WriteObserver
}

// UpdateStaffResult describes a completed write-back.
type UpdateStaffResult struct {
	Row      int
	Record   domainRoster.Record
	Revision int
	Reloaded bool
}

// ExecuteUpdateStaff replaces one staff record wholesale and reloads the roster.
// PRE: a roster snapshot is loaded
// POST: On success the sheet row holds the merged record, the snapshot is reloaded and
// the revision counter bumped. On write failure nothing is reloaded or bumped
func ExecuteUpdateStaff(ctx context.Context, input UpdateStaffInput, deps UpdateStaffDeps) (UpdateStaffResult, error) {
	if input.Identity == "" {
		return UpdateStaffResult{}, ErrNoIdentity
	}
	snap, ok := deps.Roster.Current()
	if !ok {
		return UpdateStaffResult{}, domainRoster.ErrNotLoaded
	}
	current, _, err := snap.Lookup(deps.Roster.IdentityField(), input.Identity)
	if err != nil {
		return UpdateStaffResult{}, err
	}

	next, err := mergeFields(snap.Headers, current, input.Fields)
	if err != nil {
		return UpdateStaffResult{}, err
	}

	row, err := deps.Roster.UpdateOne(ctx, input.Identity, next)
	observeWrite(deps.Observer, "update", err)
	if err != nil {
		slog.Error("staff_update_failed", "identity", input.Identity, "error", err.Error())
		return UpdateStaffResult{}, err
	}

	result := UpdateStaffResult{Row: row, Record: next}
	newSnap, loadErr := deps.Roster.Load(ctx)
	if loadErr == nil {
		result.Reloaded = true
		observeRecords(deps.Observer, newSnap)
	}
	result.Revision = bumpRevision(ctx, deps.Revisions)

	saveAudit(ctx, deps.Audit, domainAudit.NewEvent(input.Actor.SessionID, domainAudit.ActionUpdate).
		WithRecord(input.Identity, row).
		WithRevision(result.Revision).
		WithIP(input.Actor.IP).
		WithDescription(fmt.Sprintf("updated %d field(s)", len(input.Fields))))

	identity := next.Value(snap.Headers, deps.Roster.IdentityField())
	sendChangeNotice(ctx, deps.Notify, "updated", identity, snap.Headers, next, result.Revision)
	slog.Info("staff_updated", "identity", identity, "row", row, "revision", result.Revision)

	if loadErr != nil {
		return result, fmt.Errorf("%w: %w", ErrReloadAfterWrite, loadErr)
	}
	return result, nil
}

// mergeFields copies current and overlays the submitted fields.
// Unknown field names fail with UnknownFieldError, checked in name order.
func mergeFields(headers domainRoster.Headers, current domainRoster.Record, fields map[string]string) (domainRoster.Record, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	next := make(domainRoster.Record, len(headers))
	copy(next, current)
	for _, name := range names {
		i, err := headers.Index(name)
		if err != nil {
			return nil, err
		}
		next[i] = fields[name]
	}
	return next, nil
}
