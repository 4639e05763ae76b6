package permission

import "github.com/frahmantamala/document-management/internal"

type GrantDTO struct {
	ResourceKind string `json:"resource_kind"`
	ResourceID   int64  `json:"resource_id"`
	UserID       int64  `json:"user_id"`
	FineRole     string `json:"fine_role"`
}

func (d GrantDTO) Validate() error {
	switch ResourceKind(d.ResourceKind) {
	case KindDocument, KindDirectory:
	default:
		return internal.NewValidationError("resource_kind must be document or directory", internal.ErrCodeValidationFailed)
	}
	if d.ResourceID <= 0 {
		return internal.NewValidationError("resource_id is required", internal.ErrCodeValidationFailed)
	}
	if d.UserID <= 0 {
		return internal.NewValidationError("user_id is required", internal.ErrCodeValidationFailed)
	}
	if !FineRole(d.FineRole).Valid() {
		return internal.NewValidationError("fine_role must be one of owner, approver, reviewer, viewer", internal.ErrCodeValidationFailed)
	}
	return nil
}

type RevokeDTO struct {
	ResourceKind string `json:"resource_kind"`
	ResourceID   int64  `json:"resource_id"`
	UserID       int64  `json:"user_id"`
}

func (d RevokeDTO) Validate() error {
	switch ResourceKind(d.ResourceKind) {
	case KindDocument, KindDirectory:
	default:
		return internal.NewValidationError("resource_kind must be document or directory", internal.ErrCodeValidationFailed)
	}
	if d.ResourceID <= 0 {
		return internal.NewValidationError("resource_id is required", internal.ErrCodeValidationFailed)
	}
	if d.UserID <= 0 {
		return internal.NewValidationError("user_id is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
