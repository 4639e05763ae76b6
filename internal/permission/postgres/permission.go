package permission

import (
	"context"
	"errors"

	"github.com/frahmantamala/document-management/internal/core/datamodel/directory"
	"github.com/frahmantamala/document-management/internal/core/datamodel/document"
	permissionDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/permission"
	"github.com/frahmantamala/document-management/internal/permission"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// GetGrant returns (nil, nil) when no grant exists, so the resolver can
// tell absence apart from a store failure.
func (r *Repository) GetGrant(ctx context.Context, kind permission.ResourceKind, resourceID, userID int64) (*permission.Grant, error) {
	var dm permissionDatamodel.PermissionGrant
	err := r.db.WithContext(ctx).
		Where("resource_kind = ? AND resource_id = ? AND user_id = ?", string(kind), resourceID, userID).
		First(&dm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return permission.FromDataModel(&dm), nil
}

// UpsertGrant overwrites any existing grant for the same resource and user.
func (r *Repository) UpsertGrant(ctx context.Context, grant *permission.Grant) error {
	dm := permission.ToDataModel(grant)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "resource_kind"},
				{Name: "resource_id"},
				{Name: "user_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"fine_role", "granted_by", "granted_at"}),
		}).
		Create(dm).Error
	if err != nil {
		return err
	}
	grant.ID = dm.ID
	return nil
}

func (r *Repository) DeleteGrant(ctx context.Context, kind permission.ResourceKind, resourceID, userID int64) error {
	return r.db.WithContext(ctx).
		Where("resource_kind = ? AND resource_id = ? AND user_id = ?", string(kind), resourceID, userID).
		Delete(&permissionDatamodel.PermissionGrant{}).Error
}

func (r *Repository) ListGrantsForResource(ctx context.Context, kind permission.ResourceKind, resourceID int64) ([]*permission.Grant, error) {
	var dms []*permissionDatamodel.PermissionGrant
	err := r.db.WithContext(ctx).
		Where("resource_kind = ? AND resource_id = ?", string(kind), resourceID).
		Order("user_id ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return permission.FromDataModelSlice(dms), nil
}

func (r *Repository) DocumentDirectory(ctx context.Context, documentID int64) (*int64, error) {
	var dm document.Document
	err := r.db.WithContext(ctx).
		Select("id", "directory_id").
		First(&dm, documentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return dm.DirectoryID, nil
}

func (r *Repository) DirectoryParent(ctx context.Context, directoryID int64) (*int64, error) {
	var dm directory.Directory
	err := r.db.WithContext(ctx).
		Select("id", "parent_id").
		First(&dm, directoryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return dm.ParentID, nil
}
