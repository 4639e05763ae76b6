package document

import (
	"context"
	"time"

	documentDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/document"
)

type Document struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Status              Status     `json:"status"`
	DirectoryID         *int64     `json:"directory_id,omitempty"`
	OwnerID             int64      `json:"owner_id"`
	CurrentVersionID    *int64     `json:"current_version_id,omitempty"`
	EffectiveDate       *time.Time `json:"effective_date,omitempty"`
	ReviewFrequencyDays *int       `json:"review_frequency_days,omitempty"`
	NextReviewDate      *time.Time `json:"next_review_date,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type Version struct {
	ID            int64     `json:"id"`
	DocumentID    int64     `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	ContentHash   string    `json:"content_hash"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// RecomputeNextReviewDate rederives next_review_date from its inputs. Called
// whenever effective_date or review_frequency_days changes.
func (d *Document) RecomputeNextReviewDate() {
	if d.EffectiveDate == nil || d.ReviewFrequencyDays == nil {
		d.NextReviewDate = nil
		return
	}
	next := d.EffectiveDate.AddDate(0, 0, *d.ReviewFrequencyDays)
	d.NextReviewDate = &next
}

type Repository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id int64) (*Document, error)
	Update(ctx context.Context, doc *Document) error
	ListByDirectory(ctx context.Context, directoryID *int64) ([]*Document, error)
	ListDueForReview(ctx context.Context, asOf time.Time, limit int) ([]*Document, error)

	// UpdateStatusIf is the conditional write that serializes transitions.
	// It returns false when the stored status no longer matches expected.
	UpdateStatusIf(ctx context.Context, id int64, expected, next Status) (bool, error)

	// ApproveStatusIf is the approval variant: the review schedule lands in
	// the same conditional write as the status swap.
	ApproveStatusIf(ctx context.Context, id int64, expected, next Status, effectiveDate, nextReviewDate *time.Time) (bool, error)

	// CreateVersion inserts the version and repoints current_version_id in
	// one transaction.
	CreateVersion(ctx context.Context, version *Version) error
	ListVersions(ctx context.Context, documentID int64) ([]*Version, error)
}

func ToDataModel(d *Document) *documentDatamodel.Document {
	return &documentDatamodel.Document{
		ID:                  d.ID,
		Title:               d.Title,
		Status:              string(d.Status),
		DirectoryID:         d.DirectoryID,
		OwnerID:             d.OwnerID,
		CurrentVersionID:    d.CurrentVersionID,
		EffectiveDate:       d.EffectiveDate,
		ReviewFrequencyDays: d.ReviewFrequencyDays,
		NextReviewDate:      d.NextReviewDate,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

func FromDataModel(m *documentDatamodel.Document) *Document {
	return &Document{
		ID:                  m.ID,
		Title:               m.Title,
		Status:              Status(m.Status),
		DirectoryID:         m.DirectoryID,
		OwnerID:             m.OwnerID,
		CurrentVersionID:    m.CurrentVersionID,
		EffectiveDate:       m.EffectiveDate,
		ReviewFrequencyDays: m.ReviewFrequencyDays,
		NextReviewDate:      m.NextReviewDate,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func FromDataModelSlice(docs []*documentDatamodel.Document) []*Document {
	result := make([]*Document, len(docs))
	for i, d := range docs {
		result[i] = FromDataModel(d)
	}
	return result
}

func VersionToDataModel(v *Version) *documentDatamodel.DocumentVersion {
	return &documentDatamodel.DocumentVersion{
		ID:            v.ID,
		DocumentID:    v.DocumentID,
		VersionNumber: v.VersionNumber,
		ContentHash:   v.ContentHash,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt,
	}
}

func VersionFromDataModel(m *documentDatamodel.DocumentVersion) *Version {
	return &Version{
		ID:            m.ID,
		DocumentID:    m.DocumentID,
		VersionNumber: m.VersionNumber,
		ContentHash:   m.ContentHash,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
}
