package document

import "time"

type Document struct {
	ID                  int64      `gorm:"primaryKey"`
	Title               string     `gorm:"column:title;not null"`
	Status              string     `gorm:"column:status;not null;default:draft"`
	DirectoryID         *int64     `gorm:"column:directory_id;index"`
	OwnerID             int64      `gorm:"column:owner_id;not null;index"`
	CurrentVersionID    *int64     `gorm:"column:current_version_id"`
	EffectiveDate       *time.Time `gorm:"column:effective_date;type:date"`
	ReviewFrequencyDays *int       `gorm:"column:review_frequency_days"`
	NextReviewDate      *time.Time `gorm:"column:next_review_date;type:date;index"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentVersion rows are immutable once created; only the document's
// current_version_id pointer moves.
type DocumentVersion struct {
	ID            int64     `gorm:"primaryKey"`
	DocumentID    int64     `gorm:"column:document_id;not null;index"`
	VersionNumber int       `gorm:"column:version_number;not null"`
	ContentHash   string    `gorm:"column:content_hash;not null"`
	CreatedBy     int64     `gorm:"column:created_by;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (DocumentVersion) TableName() string {
	return "document_versions"
}
