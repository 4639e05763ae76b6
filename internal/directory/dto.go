package directory

import "github.com/frahmantamala/document-management/internal"

type CreateDirectoryDTO struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func (d CreateDirectoryDTO) Validate() error {
	if d.Name == "" {
		return internal.NewValidationError("name is required", internal.ErrCodeValidationFailed)
	}
	if len(d.Name) > 255 {
		return internal.NewValidationError("name must be at most 255 characters", internal.ErrCodeValidationFailed)
	}
	if d.ParentID != nil && *d.ParentID <= 0 {
		return internal.NewValidationError("parent_id must be positive", internal.ErrCodeValidationFailed)
	}
	return nil
}

type MoveDirectoryDTO struct {
	ParentID *int64 `json:"parent_id"`
}

func (d MoveDirectoryDTO) Validate() error {
	if d.ParentID != nil && *d.ParentID <= 0 {
		return internal.NewValidationError("parent_id must be positive", internal.ErrCodeValidationFailed)
	}
	return nil
}
