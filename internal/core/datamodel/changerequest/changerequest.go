package changerequest

import "time"

type ChangeRequest struct {
	ID            int64      `gorm:"primaryKey"`
	DocumentID    int64      `gorm:"column:document_id;not null;index"`
	Status        string     `gorm:"column:status;not null;default:draft"`
	Title         string     `gorm:"column:title;not null"`
	Description   string     `gorm:"column:description"`
	ContentHash   string     `gorm:"column:content_hash;not null"`
	RequestedBy   int64      `gorm:"column:requested_by;not null"`
	ImplementedAt *time.Time `gorm:"column:implemented_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ChangeRequest) TableName() string {
	return "change_requests"
}
