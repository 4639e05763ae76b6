package permission

import "time"

// PermissionGrant holds at most one row per (resource_kind, resource_id,
// user_id); re-granting overwrites (last write wins).
type PermissionGrant struct {
	ID           int64     `gorm:"primaryKey"`
	ResourceKind string    `gorm:"column:resource_kind;not null;uniqueIndex:idx_grant_resource_user,priority:1"`
	ResourceID   int64     `gorm:"column:resource_id;not null;uniqueIndex:idx_grant_resource_user,priority:2"`
	UserID       int64     `gorm:"column:user_id;not null;uniqueIndex:idx_grant_resource_user,priority:3"`
	FineRole     string    `gorm:"column:fine_role;not null"`
	GrantedBy    int64     `gorm:"column:granted_by;not null"`
	GrantedAt    time.Time `gorm:"column:granted_at;autoCreateTime"`
}

func (PermissionGrant) TableName() string {
	return "permission_grants"
}
