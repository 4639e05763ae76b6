package audit

import (
	"context"
	"time"

	auditDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/audit"
)

type Action string

const (
	ActionDocumentCreate     Action = "document.create"
	ActionDocumentTransition Action = "document.transition"
	ActionDocumentUpdate     Action = "document.update"
	ActionVersionCreate      Action = "document.version_create"
	ActionDirectoryCreate    Action = "directory.create"
	ActionDirectoryMove      Action = "directory.move"
	ActionPermissionGrant    Action = "permission.grant"
	ActionPermissionRevoke   Action = "permission.revoke"
	ActionDecisionSetCreate  Action = "workflow.decision_set_create"
	ActionDecisionRecord     Action = "workflow.decision_record"
	ActionChangeRequestOpen  Action = "change_request.open"
	ActionChangeRequestMove  Action = "change_request.transition"
	ActionRetentionPurge     Action = "audit.retention_purge"
)

// Entry is one append-only audit record.
type Entry struct {
	ID         string         `json:"id"`
	ActorID    int64          `json:"actor_id"`
	Action     Action         `json:"action"`
	ResourceID *int64         `json:"resource_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Emitter is the audit hook consumed by every service. Recording is
// fire-and-forget: implementations never block the caller and never return
// an error into the business operation.
type Emitter interface {
	Record(actorID int64, action Action, resourceID *int64, details map[string]any)
}

// Sink is the durable store behind the async writer.
type Sink interface {
	Append(ctx context.Context, entry *Entry) error
}

// Repository adds the query side used by the admin audit endpoint and the
// retention purge.
type Repository interface {
	Sink
	List(ctx context.Context, filter ListFilter) ([]*Entry, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ListFilter struct {
	ActorID    *int64
	Action     *Action
	ResourceID *int64
	Since      *time.Time
	Limit      int
	Offset     int
}

// NopEmitter discards everything; used in tests that do not assert on audit.
type NopEmitter struct{}

func (NopEmitter) Record(int64, Action, *int64, map[string]any) {}

func ToDataModel(e *Entry, details *string) *auditDatamodel.AuditEntry {
	return &auditDatamodel.AuditEntry{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		ResourceID: e.ResourceID,
		Details:    details,
		Timestamp:  e.Timestamp,
	}
}
