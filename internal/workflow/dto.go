package workflow

import "github.com/frahmantamala/document-management/internal"

type CreateDecisionSetDTO struct {
	SubjectKind string  `json:"subject_kind"`
	SubjectID   int64   `json:"subject_id"`
	Mode        string  `json:"mode"`
	ApproverIDs []int64 `json:"approver_ids"`
	// Roles optionally names the capacity of each approver, position by
	// position. Unnamed positions default to approver.
	Roles []string `json:"roles,omitempty"`
}

func (d CreateDecisionSetDTO) Validate() error {
	switch SubjectKind(d.SubjectKind) {
	case SubjectDocument, SubjectChangeRequest:
	default:
		return internal.NewValidationError("subject_kind must be document or change_request", internal.ErrCodeValidationFailed)
	}
	if d.SubjectID <= 0 {
		return internal.NewValidationError("subject_id is required", internal.ErrCodeValidationFailed)
	}
	switch Mode(d.Mode) {
	case ModeSequential, ModeParallel:
	default:
		return internal.NewValidationError("mode must be sequential or parallel", internal.ErrCodeValidationFailed)
	}
	if len(d.ApproverIDs) == 0 {
		return internal.NewValidationError("at least one approver is required", internal.ErrCodeValidationFailed)
	}
	seen := make(map[int64]bool, len(d.ApproverIDs))
	for _, id := range d.ApproverIDs {
		if id <= 0 {
			return internal.NewValidationError("approver ids must be positive", internal.ErrCodeValidationFailed)
		}
		if seen[id] {
			return internal.NewValidationError("approver ids must be unique", internal.ErrCodeValidationFailed)
		}
		seen[id] = true
	}
	if len(d.Roles) > 0 {
		if len(d.Roles) != len(d.ApproverIDs) {
			return internal.NewValidationError("roles must match approver_ids position for position", internal.ErrCodeValidationFailed)
		}
		for _, role := range d.Roles {
			switch role {
			case DecisionRoleReviewer, DecisionRoleApprover:
			default:
				return internal.NewValidationError("roles must be reviewer or approver", internal.ErrCodeValidationFailed)
			}
		}
	}
	return nil
}

type RecordDecisionDTO struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (d RecordDecisionDTO) Validate() error {
	switch DecisionStatus(d.Status) {
	case DecisionApproved:
	case DecisionRejected, DecisionChangesRequested:
		if d.Notes == "" {
			return internal.NewValidationError("a denying decision requires notes", internal.ErrCodeValidationFailed)
		}
	default:
		return internal.NewValidationError("status must be approved, rejected or changes_requested", internal.ErrCodeValidationFailed)
	}
	return nil
}
