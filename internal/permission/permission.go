package permission

import (
	"time"

	permissionDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/permission"
)

// ResourceKind identifies which inheritance chain a resource participates in.
type ResourceKind string

const (
	KindDocument  ResourceKind = "document"
	KindDirectory ResourceKind = "directory"
)

// FineRole is a resource-scoped permission attached to a single grant,
// totally ordered owner > approver > reviewer > viewer.
type FineRole string

const (
	FineRoleOwner    FineRole = "owner"
	FineRoleApprover FineRole = "approver"
	FineRoleReviewer FineRole = "reviewer"
	FineRoleViewer   FineRole = "viewer"
)

var fineRoleRank = map[FineRole]int{
	FineRoleViewer:   1,
	FineRoleReviewer: 2,
	FineRoleApprover: 3,
	FineRoleOwner:    4,
}

// Valid reports whether r is one of the four known fine roles.
func (r FineRole) Valid() bool {
	_, ok := fineRoleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min.
func (r FineRole) AtLeast(min FineRole) bool {
	return fineRoleRank[r] >= fineRoleRank[min]
}

type Grant struct {
	ID           int64        `json:"id"`
	ResourceKind ResourceKind `json:"resource_kind"`
	ResourceID   int64        `json:"resource_id"`
	UserID       int64        `json:"user_id"`
	FineRole     FineRole     `json:"fine_role"`
	GrantedBy    int64        `json:"granted_by"`
	GrantedAt    time.Time    `json:"granted_at"`
}

func ToDataModel(g *Grant) *permissionDatamodel.PermissionGrant {
	return &permissionDatamodel.PermissionGrant{
		ID:           g.ID,
		ResourceKind: string(g.ResourceKind),
		ResourceID:   g.ResourceID,
		UserID:       g.UserID,
		FineRole:     string(g.FineRole),
		GrantedBy:    g.GrantedBy,
		GrantedAt:    g.GrantedAt,
	}
}

func FromDataModel(m *permissionDatamodel.PermissionGrant) *Grant {
	return &Grant{
		ID:           m.ID,
		ResourceKind: ResourceKind(m.ResourceKind),
		ResourceID:   m.ResourceID,
		UserID:       m.UserID,
		FineRole:     FineRole(m.FineRole),
		GrantedBy:    m.GrantedBy,
		GrantedAt:    m.GrantedAt,
	}
}

func FromDataModelSlice(grants []*permissionDatamodel.PermissionGrant) []*Grant {
	result := make([]*Grant, len(grants))
	for i, g := range grants {
		result[i] = FromDataModel(g)
	}
	return result
}
