package workflow

import (
	"context"
	"errors"
	"time"

	workflowDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/workflow"
	"github.com/frahmantamala/document-management/internal/workflow"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// CreateSet inserts the set row and every decision record in one
// transaction.
func (r *Repository) CreateSet(ctx context.Context, set *workflow.DecisionSet, decisions []*workflow.Decision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		setDM := workflow.SetToDataModel(set)
		if err := tx.Create(setDM).Error; err != nil {
			return err
		}
		set.ID = setDM.ID
		set.CreatedAt = setDM.CreatedAt

		for _, d := range decisions {
			d.DecisionSetID = set.ID
			dm := workflow.DecisionToDataModel(d)
			if err := tx.Create(dm).Error; err != nil {
				return err
			}
			d.ID = dm.ID
			d.CreatedAt = dm.CreatedAt
		}
		return nil
	})
}

func (r *Repository) GetSet(ctx context.Context, id int64) (*workflow.DecisionSet, error) {
	var dm workflowDatamodel.DecisionSet
	err := r.db.WithContext(ctx).First(&dm, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return workflow.SetFromDataModel(&dm), nil
}

func (r *Repository) LatestSetForSubject(ctx context.Context, kind workflow.SubjectKind, subjectID int64) (*workflow.DecisionSet, error) {
	var dm workflowDatamodel.DecisionSet
	err := r.db.WithContext(ctx).
		Where("subject_kind = ? AND subject_id = ?", string(kind), subjectID).
		Order("id DESC").
		First(&dm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return workflow.SetFromDataModel(&dm), nil
}

func (r *Repository) GetDecision(ctx context.Context, id int64) (*workflow.Decision, error) {
	var dm workflowDatamodel.DecisionRecord
	err := r.db.WithContext(ctx).First(&dm, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return workflow.DecisionFromDataModel(&dm), nil
}

func (r *Repository) ListDecisions(ctx context.Context, setID int64) ([]*workflow.Decision, error) {
	var dms []*workflowDatamodel.DecisionRecord
	err := r.db.WithContext(ctx).
		Where("decision_set_id = ?", setID).
		Order("position ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return workflow.DecisionFromDataModelSlice(dms), nil
}

// UpdateDecisionIf flips the record only while it is still pending, so a
// duplicate submission makes RowsAffected zero instead of overwriting.
func (r *Repository) UpdateDecisionIf(ctx context.Context, id int64, next workflow.DecisionStatus, notes *string, decidedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&workflowDatamodel.DecisionRecord{}).
		Where("id = ? AND status = ?", id, string(workflow.DecisionPending)).
		Updates(map[string]interface{}{
			"status":     string(next),
			"notes":      notes,
			"decided_at": decidedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CompleteSetIf claims the completion: only one caller can move the outcome
// off pending.
func (r *Repository) CompleteSetIf(ctx context.Context, id int64, outcome workflow.Outcome, completedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&workflowDatamodel.DecisionSet{}).
		Where("id = ? AND outcome = ?", id, string(workflow.OutcomePending)).
		Updates(map[string]interface{}{
			"outcome":      string(outcome),
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
