package directory

import (
	"context"
	"errors"

	directoryDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/directory"
	"github.com/frahmantamala/document-management/internal/directory"
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

func (r *Repository) Create(ctx context.Context, dir *directory.Directory) error {
	dm := directory.ToDataModel(dir)
	if err := r.db.WithContext(ctx).Create(dm).Error; err != nil {
		return err
	}
	dir.ID = dm.ID
	dir.CreatedAt = dm.CreatedAt
	dir.UpdatedAt = dm.UpdatedAt
	return nil
}

// GetByID returns (nil, nil) when the directory does not exist.
func (r *Repository) GetByID(ctx context.Context, id int64) (*directory.Directory, error) {
	var dm directoryDatamodel.Directory
	err := r.db.WithContext(ctx).First(&dm, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return directory.FromDataModel(&dm), nil
}

func (r *Repository) SetParent(ctx context.Context, id int64, parentID *int64) error {
	return r.db.WithContext(ctx).
		Model(&directoryDatamodel.Directory{}).
		Where("id = ?", id).
		Update("parent_id", parentID).Error
}

func (r *Repository) ListChildren(ctx context.Context, parentID *int64) ([]*directory.Directory, error) {
	var dms []*directoryDatamodel.Directory
	q := r.db.WithContext(ctx)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if err := q.Order("name ASC").Find(&dms).Error; err != nil {
		return nil, err
	}
	return directory.FromDataModelSlice(dms), nil
}
