package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/document-management/internal"
	"github.com/frahmantamala/document-management/internal/audit"
	"github.com/frahmantamala/document-management/internal/auth"
)

// SubjectTransitioner applies a completed decision set's outcome to its
// subject. Implementations must treat "the subject already transitioned" as
// a benign no-op so the at-most-once guarantee holds under retries.
type SubjectTransitioner interface {
	// SubjectOwner reports the principal whose self-approval must be
	// screened out of the subject's decision sets.
	SubjectOwner(ctx context.Context, subjectID int64) (int64, error)
	ApplyWorkflowOutcome(ctx context.Context, actor *auth.User, subjectID int64, approved bool, notes string) error
}

type Service struct {
	repo          Repository
	transitioners map[SubjectKind]SubjectTransitioner
	auditor       audit.Emitter
	now           func() time.Time
	logger        *slog.Logger
}

func NewService(repo Repository, transitioners map[SubjectKind]SubjectTransitioner, auditor audit.Emitter, logger *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		transitioners: transitioners,
		auditor:       auditor,
		now:           time.Now,
		logger:        logger,
	}
}

// CreateDecisionSet opens a new approval round for a subject. Approver order
// in the DTO is the sequence for sequential mode; a subject with a still
// pending set cannot open another.
func (s *Service) CreateDecisionSet(ctx context.Context, actor *auth.User, dto CreateDecisionSetDTO) (*DecisionSet, error) {
	if actor == nil {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.LatestSetForSubject(ctx, SubjectKind(dto.SubjectKind), dto.SubjectID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check existing decision sets", err)
	}
	if existing != nil && existing.Outcome == OutcomePending {
		return nil, internal.NewConflictError("subject already has a pending decision set", internal.ErrCodeAlreadyDecided)
	}

	owner, err := s.subjectOwner(ctx, SubjectKind(dto.SubjectKind), dto.SubjectID)
	if err != nil {
		return nil, err
	}
	for _, approverID := range dto.ApproverIDs {
		if approverID == owner {
			s.logger.Warn("subject owner listed as approver, refusing decision set",
				"subject_kind", dto.SubjectKind, "subject_id", dto.SubjectID, "owner_id", owner)
			return nil, internal.ErrSelfApproval
		}
	}

	set := &DecisionSet{
		SubjectKind: SubjectKind(dto.SubjectKind),
		SubjectID:   dto.SubjectID,
		Mode:        Mode(dto.Mode),
		Outcome:     OutcomePending,
		CreatedBy:   actor.ID,
	}
	decisions := make([]*Decision, len(dto.ApproverIDs))
	for i, approverID := range dto.ApproverIDs {
		role := DecisionRoleApprover
		if i < len(dto.Roles) {
			role = dto.Roles[i]
		}
		decisions[i] = &Decision{
			ApproverID:   approverID,
			DecisionRole: role,
			Position:     i + 1,
			Status:       DecisionPending,
		}
	}

	if err := s.repo.CreateSet(ctx, set, decisions); err != nil {
		s.logger.Error("failed to create decision set", "error", err,
			"subject_kind", dto.SubjectKind, "subject_id", dto.SubjectID)
		return nil, internal.NewInternalError("failed to create decision set", err)
	}

	s.auditor.Record(actor.ID, audit.ActionDecisionSetCreate, &set.ID, map[string]any{
		"subject_kind": set.SubjectKind,
		"subject_id":   set.SubjectID,
		"mode":         set.Mode,
		"approvers":    len(decisions),
	})

	return set, nil
}

// RecordDecision writes one approver's answer. Duplicates are rejected with
// AlreadyDecided; in sequential mode an approver whose predecessors have not
// all approved gets OutOfOrderDecision. When the decision completes the set,
// the outcome is claimed with a compare-and-swap so the downstream subject
// transition fires at most once even under concurrent completions.
func (s *Service) RecordDecision(ctx context.Context, actor *auth.User, decisionID int64, dto RecordDecisionDTO) (*Decision, error) {
	if actor == nil {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	decision, err := s.repo.GetDecision(ctx, decisionID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load decision", err)
	}
	if decision == nil {
		return nil, internal.ErrDecisionNotFound
	}
	if decision.ApproverID != actor.ID {
		s.logger.Warn("decision recorded by wrong approver",
			"decision_id", decisionID, "approver_id", decision.ApproverID, "actor_id", actor.ID)
		return nil, internal.ErrAccessDenied
	}
	if decision.Status != DecisionPending {
		return nil, internal.ErrAlreadyDecided
	}

	set, err := s.repo.GetSet(ctx, decision.DecisionSetID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load decision set", err)
	}
	if set == nil {
		return nil, internal.ErrDecisionNotFound
	}
	if set.Outcome != OutcomePending {
		return nil, internal.ErrAlreadyDecided
	}

	// The subject's owner never decides their own approval, even if a set
	// was seeded with them before ownership changed.
	owner, err := s.subjectOwner(ctx, set.SubjectKind, set.SubjectID)
	if err != nil {
		return nil, err
	}
	if actor.ID == owner {
		s.logger.Warn("subject owner attempted to decide own approval",
			"decision_set_id", set.ID, "decision_id", decision.ID, "user_id", actor.ID)
		return nil, internal.ErrSelfApproval
	}

	siblings, err := s.repo.ListDecisions(ctx, set.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load decisions", err)
	}

	if set.Mode == ModeSequential {
		for _, sibling := range siblings {
			if sibling.Position < decision.Position && sibling.Status != DecisionApproved {
				return nil, internal.ErrOutOfOrderDecision.WithDetails(map[string]any{
					"position":         decision.Position,
					"blocked_position": sibling.Position,
				})
			}
		}
	}

	var notes *string
	if dto.Notes != "" {
		notes = &dto.Notes
	}
	decidedAt := s.now()
	swapped, err := s.repo.UpdateDecisionIf(ctx, decision.ID, DecisionStatus(dto.Status), notes, decidedAt)
	if err != nil {
		return nil, internal.NewInternalError("failed to record decision", err)
	}
	if !swapped {
		return nil, internal.ErrAlreadyDecided
	}

	decision.Status = DecisionStatus(dto.Status)
	decision.Notes = notes
	decision.DecidedAt = &decidedAt

	s.auditor.Record(actor.ID, audit.ActionDecisionRecord, &set.SubjectID, map[string]any{
		"decision_set_id": set.ID,
		"decision_id":     decision.ID,
		"status":          decision.Status,
	})

	s.maybeComplete(ctx, actor, set, dto.Notes)

	return decision, nil
}

// IsComplete reports whether the subject's latest decision set has no
// pending decisions.
func (s *Service) IsComplete(ctx context.Context, kind SubjectKind, subjectID int64) (bool, error) {
	_, complete, _, err := s.latestAggregate(ctx, kind, subjectID)
	return complete, err
}

// IsApproved reports whether the subject's latest decision set completed
// with unanimous approval.
func (s *Service) IsApproved(ctx context.Context, kind SubjectKind, subjectID int64) (bool, error) {
	_, complete, outcome, err := s.latestAggregate(ctx, kind, subjectID)
	if err != nil {
		return false, err
	}
	return complete && outcome == OutcomeApproved, nil
}

// GetSetWithDecisions returns a set and its decisions for display.
func (s *Service) GetSetWithDecisions(ctx context.Context, actor *auth.User, setID int64) (*DecisionSet, []*Decision, error) {
	if actor == nil {
		return nil, nil, internal.ErrAccessDenied
	}
	set, err := s.repo.GetSet(ctx, setID)
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to load decision set", err)
	}
	if set == nil {
		return nil, nil, internal.ErrDecisionNotFound
	}
	decisions, err := s.repo.ListDecisions(ctx, set.ID)
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to load decisions", err)
	}
	return set, decisions, nil
}

// maybeComplete re-reads the set's decisions, and if they are now all
// decided claims the completion. Losing the claim means a concurrent
// completion already fired the downstream transition, which is fine.
func (s *Service) maybeComplete(ctx context.Context, actor *auth.User, set *DecisionSet, notes string) {
	decisions, err := s.repo.ListDecisions(ctx, set.ID)
	if err != nil {
		s.logger.Error("failed to reload decisions for completion check",
			"error", err, "decision_set_id", set.ID)
		return
	}

	complete, outcome := Aggregate(decisions)
	if !complete {
		return
	}

	claimed, err := s.repo.CompleteSetIf(ctx, set.ID, outcome, s.now())
	if err != nil {
		s.logger.Error("failed to complete decision set",
			"error", err, "decision_set_id", set.ID)
		return
	}
	if !claimed {
		return
	}

	transitioner, ok := s.transitioners[set.SubjectKind]
	if !ok {
		s.logger.Error("no transitioner registered for subject kind",
			"subject_kind", set.SubjectKind, "decision_set_id", set.ID)
		return
	}

	approved := outcome == OutcomeApproved
	if err := transitioner.ApplyWorkflowOutcome(ctx, actor, set.SubjectID, approved, notes); err != nil {
		s.logger.Error("failed to apply workflow outcome to subject",
			"error", err,
			"subject_kind", set.SubjectKind,
			"subject_id", set.SubjectID,
			"outcome", outcome)
	}
}

func (s *Service) subjectOwner(ctx context.Context, kind SubjectKind, subjectID int64) (int64, error) {
	transitioner, ok := s.transitioners[kind]
	if !ok {
		return 0, internal.NewInternalError("no transitioner registered for subject kind", nil)
	}
	return transitioner.SubjectOwner(ctx, subjectID)
}

func (s *Service) latestAggregate(ctx context.Context, kind SubjectKind, subjectID int64) (*DecisionSet, bool, Outcome, error) {
	set, err := s.repo.LatestSetForSubject(ctx, kind, subjectID)
	if err != nil {
		return nil, false, OutcomePending, internal.NewInternalError("failed to load decision set", err)
	}
	if set == nil {
		return nil, false, OutcomePending, nil
	}
	decisions, err := s.repo.ListDecisions(ctx, set.ID)
	if err != nil {
		return nil, false, OutcomePending, internal.NewInternalError("failed to load decisions", err)
	}
	complete, outcome := Aggregate(decisions)
	return set, complete, outcome, nil
}
