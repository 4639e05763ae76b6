package changerequest

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/document-management/internal/changerequest"
	changerequestDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/changerequest"
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

func (r *Repository) Create(ctx context.Context, cr *changerequest.ChangeRequest) error {
	dm := changerequest.ToDataModel(cr)
	if err := r.db.WithContext(ctx).Create(dm).Error; err != nil {
		return err
	}
	cr.ID = dm.ID
	cr.CreatedAt = dm.CreatedAt
	cr.UpdatedAt = dm.UpdatedAt
	return nil
}

// GetByID returns (nil, nil) when the change request does not exist.
func (r *Repository) GetByID(ctx context.Context, id int64) (*changerequest.ChangeRequest, error) {
	var dm changerequestDatamodel.ChangeRequest
	err := r.db.WithContext(ctx).First(&dm, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return changerequest.FromDataModel(&dm), nil
}

func (r *Repository) ListByDocument(ctx context.Context, documentID int64) ([]*changerequest.ChangeRequest, error) {
	var dms []*changerequestDatamodel.ChangeRequest
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("id DESC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return changerequest.FromDataModelSlice(dms), nil
}

// UpdateStatusIf matches on both id and expected status so concurrent moves
// serialize.
func (r *Repository) UpdateStatusIf(ctx context.Context, id int64, expected, next changerequest.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&changerequestDatamodel.ChangeRequest{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Update("status", string(next))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) SetImplementedAt(ctx context.Context, id int64, implementedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&changerequestDatamodel.ChangeRequest{}).
		Where("id = ?", id).
		Update("implemented_at", implementedAt).Error
}
