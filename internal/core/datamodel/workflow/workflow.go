package workflow

import "time"

type DecisionSet struct {
	ID          int64      `gorm:"primaryKey"`
	SubjectKind string     `gorm:"column:subject_kind;not null;index:idx_decision_set_subject,priority:1"`
	SubjectID   int64      `gorm:"column:subject_id;not null;index:idx_decision_set_subject,priority:2"`
	Mode        string     `gorm:"column:mode;not null"`
	Outcome     string     `gorm:"column:outcome;not null;default:pending"`
	CreatedBy   int64      `gorm:"column:created_by;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

func (DecisionSet) TableName() string {
	return "decision_sets"
}

type DecisionRecord struct {
	ID            int64      `gorm:"primaryKey"`
	DecisionSetID int64      `gorm:"column:decision_set_id;not null;index"`
	ApproverID    int64      `gorm:"column:approver_id;not null"`
	DecisionRole  string     `gorm:"column:decision_role;not null"`
	Position      int        `gorm:"column:position;not null"`
	Status        string     `gorm:"column:status;not null;default:pending"`
	Notes         *string    `gorm:"column:notes"`
	DecidedAt     *time.Time `gorm:"column:decided_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (DecisionRecord) TableName() string {
	return "decision_records"
}
