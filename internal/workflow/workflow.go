package workflow

import (
	"context"
	"time"

	workflowDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/workflow"
)

// SubjectKind names what a decision set approves.
type SubjectKind string

const (
	SubjectDocument      SubjectKind = "document"
	SubjectChangeRequest SubjectKind = "change_request"
)

// Mode controls how approvers may decide.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// DecisionStatus is one approver's answer. A request for changes denies the
// set like a rejection does, but signals the author may resubmit after edits.
type DecisionStatus string

const (
	DecisionPending          DecisionStatus = "pending"
	DecisionApproved         DecisionStatus = "approved"
	DecisionRejected         DecisionStatus = "rejected"
	DecisionChangesRequested DecisionStatus = "changes_requested"
)

// Decision roles name the capacity an approver decides in.
const (
	DecisionRoleReviewer = "reviewer"
	DecisionRoleApprover = "approver"
)

// Outcome is the aggregated answer of a whole decision set.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

type DecisionSet struct {
	ID          int64       `json:"id"`
	SubjectKind SubjectKind `json:"subject_kind"`
	SubjectID   int64       `json:"subject_id"`
	Mode        Mode        `json:"mode"`
	Outcome     Outcome     `json:"outcome"`
	CreatedBy   int64       `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

type Decision struct {
	ID            int64          `json:"id"`
	DecisionSetID int64          `json:"decision_set_id"`
	ApproverID    int64          `json:"approver_id"`
	DecisionRole  string         `json:"decision_role"`
	Position      int            `json:"position"`
	Status        DecisionStatus `json:"status"`
	Notes         *string        `json:"notes,omitempty"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Aggregate folds individual decisions into a set outcome. A set is complete
// once no decision is pending. Unanimity is required for approval; a single
// rejection or request for changes denies the whole set no matter how many
// others approved.
func Aggregate(decisions []*Decision) (complete bool, outcome Outcome) {
	if len(decisions) == 0 {
		return false, OutcomePending
	}
	outcome = OutcomeApproved
	for _, d := range decisions {
		switch d.Status {
		case DecisionPending:
			return false, OutcomePending
		case DecisionRejected, DecisionChangesRequested:
			outcome = OutcomeRejected
		}
	}
	return true, outcome
}

type Repository interface {
	// CreateSet inserts the set and all its decision records atomically.
	CreateSet(ctx context.Context, set *DecisionSet, decisions []*Decision) error
	GetSet(ctx context.Context, id int64) (*DecisionSet, error)
	// LatestSetForSubject returns the most recent set for a subject,
	// (nil, nil) when none exists.
	LatestSetForSubject(ctx context.Context, kind SubjectKind, subjectID int64) (*DecisionSet, error)
	GetDecision(ctx context.Context, id int64) (*Decision, error)
	ListDecisions(ctx context.Context, setID int64) ([]*Decision, error)
	// UpdateDecisionIf flips a decision from pending, returning false when
	// it was already decided.
	UpdateDecisionIf(ctx context.Context, id int64, next DecisionStatus, notes *string, decidedAt time.Time) (bool, error)
	// CompleteSetIf writes the outcome only if the set is still pending,
	// returning false when another completion already won.
	CompleteSetIf(ctx context.Context, id int64, outcome Outcome, completedAt time.Time) (bool, error)
}

func SetToDataModel(s *DecisionSet) *workflowDatamodel.DecisionSet {
	return &workflowDatamodel.DecisionSet{
		ID:          s.ID,
		SubjectKind: string(s.SubjectKind),
		SubjectID:   s.SubjectID,
		Mode:        string(s.Mode),
		Outcome:     string(s.Outcome),
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
	}
}

func SetFromDataModel(m *workflowDatamodel.DecisionSet) *DecisionSet {
	return &DecisionSet{
		ID:          m.ID,
		SubjectKind: SubjectKind(m.SubjectKind),
		SubjectID:   m.SubjectID,
		Mode:        Mode(m.Mode),
		Outcome:     Outcome(m.Outcome),
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
}

func DecisionToDataModel(d *Decision) *workflowDatamodel.DecisionRecord {
	return &workflowDatamodel.DecisionRecord{
		ID:            d.ID,
		DecisionSetID: d.DecisionSetID,
		ApproverID:    d.ApproverID,
		DecisionRole:  d.DecisionRole,
		Position:      d.Position,
		Status:        string(d.Status),
		Notes:         d.Notes,
		DecidedAt:     d.DecidedAt,
		CreatedAt:     d.CreatedAt,
	}
}

func DecisionFromDataModel(m *workflowDatamodel.DecisionRecord) *Decision {
	return &Decision{
		ID:            m.ID,
		DecisionSetID: m.DecisionSetID,
		ApproverID:    m.ApproverID,
		DecisionRole:  m.DecisionRole,
		Position:      m.Position,
		Status:        DecisionStatus(m.Status),
		Notes:         m.Notes,
		DecidedAt:     m.DecidedAt,
		CreatedAt:     m.CreatedAt,
	}
}

func DecisionFromDataModelSlice(records []*workflowDatamodel.DecisionRecord) []*Decision {
	result := make([]*Decision, len(records))
	for i, r := range records {
		result[i] = DecisionFromDataModel(r)
	}
	return result
}
