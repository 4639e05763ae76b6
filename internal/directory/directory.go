package directory

import (
	"context"
	"time"

	directoryDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/directory"
)

type Directory struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository interface {
	Create(ctx context.Context, dir *Directory) error
	GetByID(ctx context.Context, id int64) (*Directory, error)
	SetParent(ctx context.Context, id int64, parentID *int64) error
	ListChildren(ctx context.Context, parentID *int64) ([]*Directory, error)
}

func ToDataModel(d *Directory) *directoryDatamodel.Directory {
	return &directoryDatamodel.Directory{
		ID:        d.ID,
		Name:      d.Name,
		ParentID:  d.ParentID,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func FromDataModel(m *directoryDatamodel.Directory) *Directory {
	return &Directory{
		ID:        m.ID,
		Name:      m.Name,
		ParentID:  m.ParentID,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func FromDataModelSlice(dirs []*directoryDatamodel.Directory) []*Directory {
	result := make([]*Directory, len(dirs))
	for i, d := range dirs {
		result[i] = FromDataModel(d)
	}
	return result
}
