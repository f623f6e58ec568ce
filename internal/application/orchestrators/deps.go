package orchestrators

import (
	"context"
	"log/slog"

	emailAdapter "directory/internal/adapters/email"
	"directory/internal/application/directory"
	domainAudit "directory/internal/domain/audit"
	domainRoster "directory/internal/domain/roster"
	domainSettings "directory/internal/domain/settings"
)

// RosterStore is the record store used by the roster orchestrators.
type RosterStore interface {
	Load(ctx context.Context) (directory.Snapshot, error)
	Current() (directory.Snapshot, bool)
	UpdateOne(ctx context.Context, identity string, rec domainRoster.Record) (int, error)
	AppendOne(ctx context.Context, rec domainRoster.Record) error
	IdentityField() string
}

// RevisionStore bumps the settings revision after each successful write-back.
type RevisionStore interface {
	BumpRevision(ctx context.Context) (domainSettings.Settings, error)
}

// AuditStore persists audit events.
type AuditStore interface {
	Save(ctx context.Context, event domainAudit.Event) error
}

// WriteObserver receives write-back outcomes; the metrics adapter implements it.
type WriteObserver interface {
	ObserveWriteBack(kind string, err error)
	SetRecords(n int)
}

// Actor identifies who triggered a change.
type Actor struct {
	SessionID string
	IP        string
}

// Notify configures change notifications. A nil Sender or empty To disables them.
type Notify struct {
	Sender emailAdapter.Sender
	To     []string
}

// saveAudit persists e, logging instead of failing the surrounding operation.
func saveAudit(ctx context.Context, store AuditStore, e domainAudit.Event) {
	if store == nil {
		return
	}
	if err := store.Save(ctx, e); err != nil {
		slog.Error("audit_save_failed", "action", string(e.Action), "error", err.Error())
	}
}

func observeWrite(o WriteObserver, kind string, err error) {
	if o != nil {
		o.ObserveWriteBack(kind, err)
	}
}

func observeRecords(o WriteObserver, snap directory.Snapshot) {
	if o != nil {
		o.SetRecords(len(snap.Records))
	}
}

// bumpRevision increments the revision counter. Failures are logged; the write already happened.
func bumpRevision(ctx context.Context, store RevisionStore) int {
	if store == nil {
		return 0
	}
	s, err := store.BumpRevision(ctx)
	if err != nil {
		slog.Warn("revision_bump_failed", "error", err.Error())
		return 0
	}
	return s.Revision
}
