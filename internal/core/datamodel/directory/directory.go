package directory

import "time"

type Directory struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	ParentID  *int64    `gorm:"column:parent_id;index"`
	CreatedBy int64     `gorm:"column:created_by;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Directory) TableName() string {
	return "directories"
}
