package changerequest

import (
	"context"
	"time"

	changerequestDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/changerequest"
)

// Status is a change request's position in its own lattice, separate from
// the document lifecycle it eventually drives.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusImplemented Status = "implemented"
)

// Action moves a change request through the lattice.
type Action string

const (
	ActionSubmit      Action = "submit"
	ActionStartReview Action = "start_review"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionImplement   Action = "implement"
)

// transitions is the change-request lattice. rejected and implemented are
// terminal.
var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionSubmit: StatusSubmitted,
	},
	StatusSubmitted: {
		ActionStartReview: StatusUnderReview,
	},
	StatusUnderReview: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
	StatusApproved: {
		ActionImplement: StatusImplemented,
	},
}

// CanTransition reports whether action is valid from the given status.
func CanTransition(from Status, action Action) bool {
	_, ok := transitions[from][action]
	return ok
}

// NextState returns the status action leads to, or ("", false) for an
// invalid pair.
func NextState(from Status, action Action) (Status, bool) {
	next, ok := transitions[from][action]
	return next, ok
}

// ValidAction reports whether a is a known lattice action.
func ValidAction(a Action) bool {
	switch a {
	case ActionSubmit, ActionStartReview, ActionApprove, ActionReject, ActionImplement:
		return true
	}
	return false
}

type ChangeRequest struct {
	ID            int64      `json:"id"`
	DocumentID    int64      `json:"document_id"`
	Status        Status     `json:"status"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	ContentHash   string     `json:"content_hash"`
	RequestedBy   int64      `json:"requested_by"`
	ImplementedAt *time.Time `json:"implemented_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Repository interface {
	Create(ctx context.Context, cr *ChangeRequest) error
	GetByID(ctx context.Context, id int64) (*ChangeRequest, error)
	ListByDocument(ctx context.Context, documentID int64) ([]*ChangeRequest, error)
	// UpdateStatusIf is the conditional write serializing lattice moves.
	UpdateStatusIf(ctx context.Context, id int64, expected, next Status) (bool, error)
	SetImplementedAt(ctx context.Context, id int64, implementedAt time.Time) error
}

func ToDataModel(cr *ChangeRequest) *changerequestDatamodel.ChangeRequest {
	return &changerequestDatamodel.ChangeRequest{
		ID:            cr.ID,
		DocumentID:    cr.DocumentID,
		Status:        string(cr.Status),
		Title:         cr.Title,
		Description:   cr.Description,
		ContentHash:   cr.ContentHash,
		RequestedBy:   cr.RequestedBy,
		ImplementedAt: cr.ImplementedAt,
		CreatedAt:     cr.CreatedAt,
		UpdatedAt:     cr.UpdatedAt,
	}
}

func FromDataModel(m *changerequestDatamodel.ChangeRequest) *ChangeRequest {
	return &ChangeRequest{
		ID:            m.ID,
		DocumentID:    m.DocumentID,
		Status:        Status(m.Status),
		Title:         m.Title,
		Description:   m.Description,
		ContentHash:   m.ContentHash,
		RequestedBy:   m.RequestedBy,
		ImplementedAt: m.ImplementedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func FromDataModelSlice(crs []*changerequestDatamodel.ChangeRequest) []*ChangeRequest {
	result := make([]*ChangeRequest, len(crs))
	for i, cr := range crs {
		result[i] = FromDataModel(cr)
	}
	return result
}
