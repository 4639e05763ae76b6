package document

import (
	"context"
	"errors"
	"time"

	documentDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/document"
	"github.com/frahmantamala/document-management/internal/document"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, doc *document.Document) error {
	dm := document.ToDataModel(doc)
	if err := r.db.WithContext(ctx).Create(dm).Error; err != nil {
		return err
	}
	doc.ID = dm.ID
	doc.CreatedAt = dm.CreatedAt
	doc.UpdatedAt = dm.UpdatedAt
	return nil
}

// GetByID returns (nil, nil) when the document does not exist.
func (r *Repository) GetByID(ctx context.Context, id int64) (*document.Document, error) {
	var dm documentDatamodel.Document
	err := r.db.WithContext(ctx).First(&dm, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return document.FromDataModel(&dm), nil
}

func (r *Repository) Update(ctx context.Context, doc *document.Document) error {
	dm := document.ToDataModel(doc)
	return r.db.WithContext(ctx).
		Model(&documentDatamodel.Document{}).
		Where("id = ?", doc.ID).
		Updates(map[string]interface{}{
			"title":                 dm.Title,
			"directory_id":          dm.DirectoryID,
			"current_version_id":    dm.CurrentVersionID,
			"effective_date":        dm.EffectiveDate,
			"review_frequency_days": dm.ReviewFrequencyDays,
			"next_review_date":      dm.NextReviewDate,
		}).Error
}

// UpdateStatusIf performs the compare-and-swap transitions rely on: the
// UPDATE matches on both id and expected status, so a concurrent transition
// that already moved the row makes RowsAffected zero.
func (r *Repository) UpdateStatusIf(ctx context.Context, id int64, expected, next document.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&documentDatamodel.Document{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Update("status", string(next))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ApproveStatusIf swaps the status and writes the review schedule in one
// conditional UPDATE, so a row can never end up approved without its
// schedule.
func (r *Repository) ApproveStatusIf(ctx context.Context, id int64, expected, next document.Status, effectiveDate, nextReviewDate *time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&documentDatamodel.Document{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(map[string]interface{}{
			"status":           string(next),
			"effective_date":   effectiveDate,
			"next_review_date": nextReviewDate,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) ListByDirectory(ctx context.Context, directoryID *int64) ([]*document.Document, error) {
	var dms []*documentDatamodel.Document
	q := r.db.WithContext(ctx)
	if directoryID == nil {
		q = q.Where("directory_id IS NULL")
	} else {
		q = q.Where("directory_id = ?", *directoryID)
	}
	if err := q.Order("title ASC").Find(&dms).Error; err != nil {
		return nil, err
	}
	return document.FromDataModelSlice(dms), nil
}

func (r *Repository) ListDueForReview(ctx context.Context, asOf time.Time, limit int) ([]*document.Document, error) {
	var dms []*documentDatamodel.Document
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_review_date IS NOT NULL AND next_review_date <= ?",
			string(document.StatusApproved), asOf).
		Order("next_review_date ASC").
		Limit(limit).
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return document.FromDataModelSlice(dms), nil
}

// CreateVersion assigns the next 1-based version number, inserts the row and
// repoints current_version_id inside one transaction. Both happen or neither
// does.
func (r *Repository) CreateVersion(ctx context.Context, version *document.Version) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxNumber int
		err := tx.Model(&documentDatamodel.DocumentVersion{}).
			Where("document_id = ?", version.DocumentID).
			Select("COALESCE(MAX(version_number), 0)").
			Scan(&maxNumber).Error
		if err != nil {
			return err
		}

		dm := document.VersionToDataModel(version)
		dm.VersionNumber = maxNumber + 1
		if err := tx.Create(dm).Error; err != nil {
			return err
		}

		err = tx.Model(&documentDatamodel.Document{}).
			Where("id = ?", version.DocumentID).
			Update("current_version_id", dm.ID).Error
		if err != nil {
			return err
		}

		version.ID = dm.ID
		version.VersionNumber = dm.VersionNumber
		version.CreatedAt = dm.CreatedAt
		return nil
	})
}

func (r *Repository) ListVersions(ctx context.Context, documentID int64) ([]*document.Version, error) {
	var dms []*documentDatamodel.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("version_number ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	versions := make([]*document.Version, len(dms))
	for i, dm := range dms {
		versions[i] = document.VersionFromDataModel(dm)
	}
	return versions, nil
}
