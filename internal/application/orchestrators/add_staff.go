package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	domainAudit "directory/internal/domain/audit"
	domainRoster "directory/internal/domain/roster"
)

// ErrAccessDenied is returned when the add-staff password is wrong or the gate is disabled.
var ErrAccessDenied = errors.New("access denied")

// Gate verifies the shared add-staff password.
type Gate interface {
	Verify(password string) error
}

// AddStaffInput carries input for the add-staff orchestrator.
type AddStaffInput struct {
	Password string            `validate:"required"`
	Fields   map[string]string `validate:"min=1"`
	Actor    Actor
}

// AddStaffDeps holds dependencies for AddStaff.
type AddStaffDeps struct {
	Roster    RosterStore
	Gate      Gate
	Revisions RevisionStore
	Audit     AuditStore
	Notify    Notify
	Observer  WriteObserver
}

// AddStaffResult describes the appended record.
type AddStaffResult struct {
	Record   domainRoster.Record
	Revision int
	Reloaded bool
}

var addStaffValidate = validator.New()

// ExecuteAddStaff appends a new staff record after the password gate admits the caller.
// PRE: a roster snapshot is loaded
// POST: On success one row is appended, the snapshot reloaded and the revision bumped.
// Wrong passwords return ErrAccessDenied and write nothing
func ExecuteAddStaff(ctx context.Context, input AddStaffInput, deps AddStaffDeps) (AddStaffResult, error) {
	if err := addStaffValidate.Struct(input); err != nil {
		return AddStaffResult{}, fmt.Errorf("invalid add-staff request: %w", err)
	}
	if err := deps.Gate.Verify(input.Password); err != nil {
		slog.Warn("auth_event", "event", "add_staff_denied", "session", input.Actor.SessionID, "ip", input.Actor.IP)
		saveAudit(ctx, deps.Audit, domainAudit.NewEvent(input.Actor.SessionID, domainAudit.ActionDenied).
			WithSeverity(domainAudit.SeverityWarning).
			WithIP(input.Actor.IP).
			WithDescription("add staff password rejected"))
		return AddStaffResult{}, fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}

	snap, ok := deps.Roster.Current()
	if !ok {
		return AddStaffResult{}, domainRoster.ErrNotLoaded
	}
	idField := deps.Roster.IdentityField()
	if strings.TrimSpace(input.Fields[idField]) == "" {
		return AddStaffResult{}, fmt.Errorf("%w: %s", ErrNoIdentity, idField)
	}
	rec, err := domainRoster.FromMap(snap.Headers, input.Fields)
	if err != nil {
		return AddStaffResult{}, err
	}

	err = deps.Roster.AppendOne(ctx, rec)
	observeWrite(deps.Observer, "create", err)
	if err != nil {
		slog.Error("staff_add_failed", "error", err.Error())
		return AddStaffResult{}, err
	}

	result := AddStaffResult{Record: rec}
	newSnap, loadErr := deps.Roster.Load(ctx)
	if loadErr == nil {
		result.Reloaded = true
		observeRecords(deps.Observer, newSnap)
	}
	result.Revision = bumpRevision(ctx, deps.Revisions)

	identity := input.Fields[idField]
	saveAudit(ctx, deps.Audit, domainAudit.NewEvent(input.Actor.SessionID, domainAudit.ActionCreate).
		WithRecord(identity, 0).
		WithRevision(result.Revision).
		WithIP(input.Actor.IP).
		WithDescription("staff member added"))
	sendChangeNotice(ctx, deps.Notify, "added", identity, snap.Headers, rec, result.Revision)
	slog.Info("staff_added", "identity", identity, "revision", result.Revision)

	if loadErr != nil {
		return result, fmt.Errorf("%w: %w", ErrReloadAfterWrite, loadErr)
	}
	return result, nil
}
