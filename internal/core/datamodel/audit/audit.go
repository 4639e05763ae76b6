package audit

import "time"

// AuditEntry rows are append-only; no update or delete path exists outside
// the retention purge.
type AuditEntry struct {
	ID         string    `gorm:"primaryKey;type:uuid"`
	ActorID    int64     `gorm:"column:actor_id;not null;index"`
	Action     string    `gorm:"column:action;not null;index"`
	ResourceID *int64    `gorm:"column:resource_id;index"`
	Details    *string   `gorm:"column:details"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;index"`
}

func (AuditEntry) TableName() string {
	return "audit_entries"
}
