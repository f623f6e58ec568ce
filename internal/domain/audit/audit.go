package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names a change made through the directory.
type Action string

const (
	ActionUpdate   Action = "update"
	ActionCreate   Action = "create"
	ActionRefresh  Action = "refresh"
	ActionSettings Action = "settings"
	ActionDenied   Action = "denied"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Event is one audit log entry describing a roster write or a settings change.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      Action    `json:"action"`
	Severity    Severity  `json:"severity"`
	ActorID     string    `json:"actor_id"`
	Identity    string    `json:"identity"`
	RowIndex    int       `json:"row_index"`
	Revision    int       `json:"revision"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address"`
}

// NewEvent creates an info-level event stamped with the current time.
// PRE: action is non-empty
// POST: ID is a fresh UUID
func NewEvent(actorID string, action Action) Event {
	return Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Severity:  SeverityInfo,
		ActorID:   actorID,
	}
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithRecord sets the identity value and sheet row the event touched.
func (e Event) WithRecord(identity string, rowIndex int) Event {
	e.Identity = identity
	e.RowIndex = rowIndex
	return e
}

// WithRevision records the settings revision after the change.
func (e Event) WithRevision(rev int) Event {
	e.Revision = rev
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithIP sets the client address.
func (e Event) WithIP(ip string) Event {
	e.IPAddress = ip
	return e
}
