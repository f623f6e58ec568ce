package orchestrators

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	emailAdapter "directory/internal/adapters/email"
	rosterStore "directory/internal/adapters/storage/roster"
	"directory/internal/application/directory"
	domainAudit "directory/internal/domain/audit"
	domainRoster "directory/internal/domain/roster"
	domainSettings "directory/internal/domain/settings"
)

// mockRevisionStore counts revision bumps.
type mockRevisionStore struct {
	revision int
	err      error
	bumps    int
}

// BumpRevision increments the in-memory revision.
// PRE: none
// POST: revision incremented unless err is set
func (m *mockRevisionStore) BumpRevision(_ context.Context) (domainSettings.Settings, error) {
	if m.err != nil {
		return domainSettings.Settings{}, m.err
	}
	m.bumps++
	m.revision++
	s := domainSettings.Defaults()
	s.Revision = m.revision
	return s, nil
}

// mockAuditStore collects saved events.
type mockAuditStore struct {
	mu     sync.Mutex
	events []domainAudit.Event
}

// Save appends the event.
// PRE: none
// POST: event is the last element of events
func (m *mockAuditStore) Save(_ context.Context, e domainAudit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// mockGate accepts one password.
type mockGate struct{ password string }

// Verify compares against the configured password.
// PRE: none
// POST: nil only on an exact match
func (g mockGate) Verify(p string) error {
	if p != g.password {
		return errors.New("wrong password")
	}
	return nil
}

// failingWriteSource wraps a memory source and fails writes on demand.
type failingWriteSource struct {
	*rosterStore.MemorySource
	writeErr error
}

// WriteRow fails with writeErr when set.
// PRE: none
// POST: delegates to the memory source otherwise
func (f *failingWriteSource) WriteRow(ctx context.Context, row int, values []string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.MemorySource.WriteRow(ctx, row, values)
}

// AppendRow fails with writeErr when set.
// PRE: none
// POST: delegates to the memory source otherwise
func (f *failingWriteSource) AppendRow(ctx context.Context, values []string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.MemorySource.AppendRow(ctx, values)
}

type fixture struct {
	source    *failingWriteSource
	store     *directory.Store
	revisions *mockRevisionStore
	audit     *mockAuditStore
	mail      *emailAdapter.NoopSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	src := &failingWriteSource{MemorySource: rosterStore.NewMemorySource([][]string{
		{"Clinicians Name", "Location", "Role", "Photo"},
		{"Ann", "NPD", "SLP", "https://img.example.org/ann.jpg"},
		{"Ben", "CDC", "OT", ""},
	})}
	store := directory.NewStore(src, "")
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return &fixture{
		source:    src,
		store:     store,
		revisions: &mockRevisionStore{revision: 14},
		audit:     &mockAuditStore{},
		mail:      emailAdapter.NewNoopSender(),
	}
}

func (f *fixture) updateDeps() UpdateStaffDeps {
	return UpdateStaffDeps{
		Roster:    f.store,
		Revisions: f.revisions,
		Audit:     f.audit,
		Notify:    Notify{Sender: f.mail, To: []string{"office@example.org"}},
	}
}

func (f *fixture) addDeps() AddStaffDeps {
	return AddStaffDeps{
		Roster:    f.store,
		Gate:      mockGate{password: "letmein"},
		Revisions: f.revisions,
		Audit:     f.audit,
		Notify:    Notify{Sender: f.mail, To: []string{"office@example.org"}},
	}
}

// TestExecuteUpdateStaff_MergesAndReloads verifies untouched fields survive, the roster reloads and the revision bumps.
func TestExecuteUpdateStaff_MergesAndReloads(t *testing.T) {
	f := newFixture(t)
	res, err := ExecuteUpdateStaff(context.Background(), UpdateStaffInput{
		Identity: "Ben",
		Fields:   map[string]string{"Role": "Senior OT"},
		Actor:    Actor{SessionID: "s1", IP: "10.0.0.1"},
	}, f.updateDeps())
	if err != nil {
		t.Fatalf("ExecuteUpdateStaff: %v", err)
	}
	if res.Row != 3 || !res.Reloaded || res.Revision != 15 {
		t.Errorf("result=%+v", res)
	}
	snap, _ := f.store.Current()
	if got := snap.Records[1]; got[2] != "Senior OT" || got[1] != "CDC" {
		t.Errorf("record after reload=%v", got)
	}
	if len(f.audit.events) != 1 || f.audit.events[0].Action != domainAudit.ActionUpdate || f.audit.events[0].RowIndex != 3 {
		t.Errorf("audit=%+v", f.audit.events)
	}
	sent := f.mail.Sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Subject, "Ben") {
		t.Fatalf("sent=%+v", sent)
	}
	if strings.Contains(sent[0].HTML, "Photo") {
		t.Error("notice must not include sensitive fields")
	}
}

// swappingStore serves one snapshot to the first Current call and another afterwards,
// as if a refresh from another viewer landed mid-update.
type swappingStore struct {
	first, next directory.Snapshot
	calls       int
	written     domainRoster.Record
}

func (m *swappingStore) Load(context.Context) (directory.Snapshot, error) { return m.next, nil }

func (m *swappingStore) Current() (directory.Snapshot, bool) {
	m.calls++
	if m.calls == 1 {
		return m.first, true
	}
	return m.next, true
}

func (m *swappingStore) UpdateOne(_ context.Context, _ string, rec domainRoster.Record) (int, error) {
	m.written = rec
	return 3, nil
}

func (m *swappingStore) AppendOne(context.Context, domainRoster.Record) error { return nil }

func (m *swappingStore) IdentityField() string { return domainRoster.FieldName }

// TestExecuteUpdateStaff_MergesWithinOneSnapshot verifies the merged record takes its
// headers and current values from the same load.
func TestExecuteUpdateStaff_MergesWithinOneSnapshot(t *testing.T) {
	before, _ := domainRoster.Parse([][]string{
		{"Clinicians Name", "Location", "Role"},
		{"Ann", "NPD", "SLP"},
		{"Ben", "CDC", "OT"},
	})
	after, _ := domainRoster.Parse([][]string{
		{"Clinicians Name", "Role", "Location"},
		{"Ann", "SLP", "NPD"},
		{"Ben", "OT", "CDC"},
	})
	store := &swappingStore{first: directory.Snapshot{Roster: before}, next: directory.Snapshot{Roster: after}}
	_, err := ExecuteUpdateStaff(context.Background(), UpdateStaffInput{
		Identity: "Ben",
		Fields:   map[string]string{"Role": "Senior OT"},
	}, UpdateStaffDeps{Roster: store, Revisions: &mockRevisionStore{}})
	if err != nil {
		t.Fatalf("ExecuteUpdateStaff: %v", err)
	}
	want := domainRoster.Record{"Ben", "CDC", "Senior OT"}
	for i := range want {
		if i >= len(store.written) || store.written[i] != want[i] {
			t.Fatalf("written=%v want %v", store.written, want)
		}
	}
}

// TestExecuteUpdateStaff_NotFound verifies an unknown identity writes and bumps nothing.
func TestExecuteUpdateStaff_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := ExecuteUpdateStaff(context.Background(), UpdateStaffInput{
		Identity: "Zed", Fields: map[string]string{"Role": "x"},
	}, f.updateDeps())
	var nfe *domainRoster.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("err=%v want NotFoundError", err)
	}
	if f.revisions.bumps != 0 || len(f.audit.events) != 0 {
		t.Errorf("side effects after failure: bumps=%d audit=%d", f.revisions.bumps, len(f.audit.events))
	}
}

// TestExecuteUpdateStaff_UnknownField verifies fields outside the header schema are rejected.
func TestExecuteUpdateStaff_UnknownField(t *testing.T) {
	f := newFixture(t)
	_, err := ExecuteUpdateStaff(context.Background(), UpdateStaffInput{
		Identity: "Ann", Fields: map[string]string{"Pager": "1"},
	}, f.updateDeps())
	var ufe *domainRoster.UnknownFieldError
	if !errors.As(err, &ufe) {
		t.Fatalf("err=%v want UnknownFieldError", err)
	}
}

// TestExecuteUpdateStaff_WriteFailure verifies a failed write leaves the snapshot and revision as they were.
func TestExecuteUpdateStaff_WriteFailure(t *testing.T) {
	f := newFixture(t)
	f.source.writeErr = errors.New("quota")
	before, _ := f.store.Current()

	_, err := ExecuteUpdateStaff(context.Background(), UpdateStaffInput{
		Identity: "Ann", Fields: map[string]string{"Role": "Lead"},
	}, f.updateDeps())
	var dse *domainRoster.DataSourceError
	if !errors.As(err, &dse) {
		t.Fatalf("err=%v want DataSourceError", err)
	}
	after, _ := f.store.Current()
	if !after.LoadedAt.Equal(before.LoadedAt) {
		t.Error("store reloaded after failed write")
	}
	if f.revisions.bumps != 0 || len(f.mail.Sent()) != 0 {
		t.Errorf("bumps=%d mails=%d want none", f.revisions.bumps, len(f.mail.Sent()))
	}
}

// TestExecuteUpdateStaff_ReloadFailure verifies a failed reload is reported but the write stands.
func TestExecuteUpdateStaff_ReloadFailure(t *testing.T) {
	f := newFixture(t)
	deps := f.updateDeps()
	deps.Roster = reloadFailingStore{f.store}
	res, err := ExecuteUpdateStaff(context.Background(), UpdateStaffInput{
		Identity: "Ann", Fields: map[string]string{"Role": "Lead"},
	}, deps)
	if !errors.Is(err, ErrReloadAfterWrite) {
		t.Fatalf("err=%v want ErrReloadAfterWrite", err)
	}
	if res.Row != 2 || res.Reloaded || f.revisions.bumps != 1 {
		t.Errorf("result=%+v bumps=%d", res, f.revisions.bumps)
	}
}

// reloadFailingStore fails every Load.
type reloadFailingStore struct{ *directory.Store }

// Load always fails.
// PRE: none
// POST: returns a DataSourceError
func (s reloadFailingStore) Load(_ context.Context) (directory.Snapshot, error) {
	return directory.Snapshot{}, &domainRoster.DataSourceError{Op: "rows", Err: errors.New("timeout")}
}

// TestExecuteAddStaff_Appends verifies an admitted caller appends a record aligned to the headers.
func TestExecuteAddStaff_Appends(t *testing.T) {
	f := newFixture(t)
	res, err := ExecuteAddStaff(context.Background(), AddStaffInput{
		Password: "letmein",
		Fields:   map[string]string{"Clinicians Name": "Cy", "Role": "Psych"},
		Actor:    Actor{SessionID: "s1"},
	}, f.addDeps())
	if err != nil {
		t.Fatalf("ExecuteAddStaff: %v", err)
	}
	if !res.Reloaded || res.Revision != 15 {
		t.Errorf("result=%+v", res)
	}
	snap, _ := f.store.Current()
	if len(snap.Records) != 3 {
		t.Fatalf("records=%d want 3", len(snap.Records))
	}
	last := snap.Records[2]
	if last[0] != "Cy" || last[1] != "" || last[2] != "Psych" || last[3] != "" {
		t.Errorf("appended=%q", last)
	}
	if len(f.audit.events) != 1 || f.audit.events[0].Action != domainAudit.ActionCreate {
		t.Errorf("audit=%+v", f.audit.events)
	}
}

// TestExecuteAddStaff_WrongPassword verifies the gate blocks the append and audits the denial.
func TestExecuteAddStaff_WrongPassword(t *testing.T) {
	f := newFixture(t)
	_, err := ExecuteAddStaff(context.Background(), AddStaffInput{
		Password: "guess",
		Fields:   map[string]string{"Clinicians Name": "Cy"},
	}, f.addDeps())
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("err=%v want ErrAccessDenied", err)
	}
	rows, _ := f.source.Rows(context.Background())
	if len(rows) != 3 {
		t.Errorf("rows=%d want 3", len(rows))
	}
	if len(f.audit.events) != 1 || f.audit.events[0].Action != domainAudit.ActionDenied {
		t.Errorf("audit=%+v", f.audit.events)
	}
}

// TestExecuteAddStaff_Validation verifies missing password, fields and identity are rejected.
func TestExecuteAddStaff_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		input AddStaffInput
	}{
		{"no password", AddStaffInput{Fields: map[string]string{"Clinicians Name": "Cy"}}},
		{"no fields", AddStaffInput{Password: "letmein"}},
		{"blank identity", AddStaffInput{Password: "letmein", Fields: map[string]string{"Role": "OT"}}},
		{"unknown field", AddStaffInput{Password: "letmein", Fields: map[string]string{"Clinicians Name": "Cy", "Pager": "1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExecuteAddStaff(context.Background(), tt.input, f.addDeps()); err == nil {
				t.Error("expected error")
			}
		})
	}
	if f.revisions.bumps != 0 {
		t.Errorf("bumps=%d want 0", f.revisions.bumps)
	}
}

// TestExecuteRefreshRoster verifies the summary of a reload.
func TestExecuteRefreshRoster(t *testing.T) {
	f := newFixture(t)
	_ = f.source.AppendRow(context.Background(), []string{"Cy", "NPS", "OT", ""})
	res, err := ExecuteRefreshRoster(context.Background(), RefreshRosterInput{Actor: Actor{SessionID: "s1"}},
		RefreshRosterDeps{Roster: f.store, Audit: f.audit})
	if err != nil {
		t.Fatalf("ExecuteRefreshRoster: %v", err)
	}
	if res.Records != 3 || res.Fields != 4 {
		t.Errorf("result=%+v", res)
	}
	if len(f.audit.events) != 1 || f.audit.events[0].Action != domainAudit.ActionRefresh {
		t.Errorf("audit=%+v", f.audit.events)
	}
}

// TestExecuteSeedRoster verifies seeding fills an empty source once.
func TestExecuteSeedRoster(t *testing.T) {
	src := rosterStore.NewMemorySource(nil)
	n, err := ExecuteSeedRoster(context.Background(), SeedRosterDeps{Source: src})
	if err != nil {
		t.Fatalf("ExecuteSeedRoster: %v", err)
	}
	if n != len(sampleStaff)+1 {
		t.Errorf("written=%d want %d", n, len(sampleStaff)+1)
	}
	rows, _ := src.Rows(context.Background())
	if _, err := domainRoster.Parse(rows); err != nil {
		t.Errorf("seeded rows do not parse: %v", err)
	}
	if n, _ := ExecuteSeedRoster(context.Background(), SeedRosterDeps{Source: src}); n != 0 {
		t.Errorf("second seed wrote %d rows", n)
	}
}
