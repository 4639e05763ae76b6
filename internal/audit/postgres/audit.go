package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/frahmantamala/document-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

// AuditRepository persists audit entries. Rows are append-only; the only
// delete path is the retention purge.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	var details *string
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		s := string(raw)
		details = &s
	}

	return r.db.WithContext(ctx).Create(audit.ToDataModel(entry, details)).Error
}

func (r *AuditRepository) List(ctx context.Context, filter audit.ListFilter) ([]*audit.Entry, error) {
	query := r.db.WithContext(ctx).Model(&auditDatamodel.AuditEntry{}).Order("timestamp DESC")

	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", string(*filter.Action))
	}
	if filter.ResourceID != nil {
		query = query.Where("resource_id = ?", *filter.ResourceID)
	}
	if filter.Since != nil {
		query = query.Where("timestamp >= ?", *filter.Since)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query = query.Limit(limit).Offset(filter.Offset)

	var rows []*auditDatamodel.AuditEntry
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*audit.Entry, len(rows))
	for i, row := range rows {
		entries[i] = fromDataModel(row)
	}
	return entries, nil
}

// PurgeBefore deletes entries older than the cutoff. Separately authorized
// retention path; everything else treats the table as append-only.
func (r *AuditRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&auditDatamodel.AuditEntry{})
	return result.RowsAffected, result.Error
}

func fromDataModel(m *auditDatamodel.AuditEntry) *audit.Entry {
	entry := &audit.Entry{
		ID:         m.ID,
		ActorID:    m.ActorID,
		Action:     audit.Action(m.Action),
		ResourceID: m.ResourceID,
		Timestamp:  m.Timestamp,
	}
	if m.Details != nil {
		var details map[string]any
		if err := json.Unmarshal([]byte(*m.Details), &details); err == nil {
			entry.Details = details
		}
	}
	return entry
}
