package document

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/document-management/internal"
	"github.com/frahmantamala/document-management/internal/audit"
	"github.com/frahmantamala/document-management/internal/auth"
	"github.com/frahmantamala/document-management/internal/core/events"
	"github.com/frahmantamala/document-management/internal/permission"
)

// PermissionResolver is the slice of the permission service the lifecycle
// needs. Resolution failures surface as ErrResolutionUnavailable and every
// gate fails closed on them.
type PermissionResolver interface {
	Resolve(ctx context.Context, kind permission.ResourceKind, resourceID, userID int64) (permission.FineRole, bool, error)
}

// EventPublisher carries lifecycle outcomes to subscribers outside the
// request path. A nil publisher disables publication.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo        Repository
	permissions PermissionResolver
	auditor     audit.Emitter
	publisher   EventPublisher
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(repo Repository, permissions PermissionResolver, auditor audit.Emitter, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
		auditor:     auditor,
		publisher:   publisher,
		now:         time.Now,
		logger:      logger,
	}
}

// Create makes a new draft document owned by the actor, with version 1
// pointing at the supplied content.
func (s *Service) Create(ctx context.Context, actor *auth.User, dto CreateDocumentDTO) (*Document, error) {
	if actor == nil {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	doc := &Document{
		Title:               dto.Title,
		Status:              StatusDraft,
		DirectoryID:         dto.DirectoryID,
		OwnerID:             actor.ID,
		EffectiveDate:       dto.EffectiveDate,
		ReviewFrequencyDays: dto.ReviewFrequencyDays,
	}
	doc.RecomputeNextReviewDate()

	if err := s.repo.Create(ctx, doc); err != nil {
		s.logger.Error("failed to create document", "error", err, "title", dto.Title)
		return nil, internal.NewInternalError("failed to create document", err)
	}

	version := &Version{
		DocumentID:  doc.ID,
		ContentHash: dto.ContentHash,
		CreatedBy:   actor.ID,
	}
	if err := s.repo.CreateVersion(ctx, version); err != nil {
		s.logger.Error("failed to create initial version", "error", err, "document_id", doc.ID)
		return nil, internal.NewInternalError("failed to create document version", err)
	}
	doc.CurrentVersionID = &version.ID

	s.auditor.Record(actor.ID, audit.ActionDocumentCreate, &doc.ID, map[string]any{
		"title":        doc.Title,
		"directory_id": doc.DirectoryID,
	})

	return doc, nil
}

// Get returns a document the actor is allowed to see: its owner, anyone with
// at least viewer on it or an ancestor directory, or a manager.
func (s *Service) Get(ctx context.Context, actor *auth.User, documentID int64) (*Document, error) {
	doc, err := s.mustGetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRead(ctx, actor, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDraft edits a draft's metadata. next_review_date is rederived when
// either of its inputs changes.
func (s *Service) UpdateDraft(ctx context.Context, actor *auth.User, documentID int64, dto UpdateDraftDTO) (*Document, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.mustGetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrManager(actor, doc); err != nil {
		return nil, err
	}
	if doc.Status != StatusDraft {
		return nil, internal.ErrInvalidTransition.WithDetails(map[string]any{
			"current_status": doc.Status,
			"reason":         "only drafts are directly editable",
		})
	}

	if dto.Title != nil {
		doc.Title = *dto.Title
	}
	if dto.EffectiveDate != nil {
		doc.EffectiveDate = dto.EffectiveDate
	}
	if dto.ReviewFrequencyDays != nil {
		doc.ReviewFrequencyDays = dto.ReviewFrequencyDays
	}
	doc.RecomputeNextReviewDate()

	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, internal.NewInternalError("failed to update document", err)
	}
	return doc, nil
}

// Transition applies a lifecycle action. The permission gate runs against the
// loaded status and the write is a compare-and-swap against that same status,
// so two racing transitions from one state cannot both win; the loser gets
// ErrConcurrentModification and may re-read and retry once.
func (s *Service) Transition(ctx context.Context, actor *auth.User, documentID int64, dto TransitionDTO) (*Document, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.mustGetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeAction(ctx, actor, doc, dto.Action); err != nil {
		return nil, err
	}

	next, ok := NextState(doc.Status, dto.Action)
	if !ok {
		return nil, internal.ErrInvalidTransition.WithDetails(map[string]any{
			"current_status": doc.Status,
			"action":         dto.Action,
		})
	}

	from := doc.Status
	var swapped bool
	if next == StatusApproved && from == StatusPendingApproval {
		// The review schedule rides the same conditional write as the
		// status, so an approved row can never be missing it.
		if doc.EffectiveDate == nil {
			today := s.now()
			doc.EffectiveDate = &today
		}
		doc.RecomputeNextReviewDate()
		swapped, err = s.repo.ApproveStatusIf(ctx, doc.ID, from, next, doc.EffectiveDate, doc.NextReviewDate)
	} else {
		swapped, err = s.repo.UpdateStatusIf(ctx, doc.ID, from, next)
	}
	if err != nil {
		return nil, internal.NewInternalError("failed to update document status", err)
	}
	if !swapped {
		s.logger.Warn("concurrent transition lost the race",
			"document_id", doc.ID, "expected_status", from, "action", dto.Action)
		return nil, internal.ErrConcurrentModification.WithDetails(map[string]any{
			"expected_status": from,
			"action":          dto.Action,
		})
	}

	doc.Status = next

	details := map[string]any{
		"action": dto.Action,
		"from":   from,
		"to":     next,
	}
	if dto.Reason != "" {
		details["reason"] = dto.Reason
	}
	s.auditor.Record(actorID(actor), audit.ActionDocumentTransition, &doc.ID, details)
	s.publishOutcome(ctx, dto.Action, doc, actor, dto.Reason)

	return doc, nil
}

// AddVersion appends a version to a draft. Approved content changes go
// through a change request instead.
func (s *Service) AddVersion(ctx context.Context, actor *auth.User, documentID int64, dto CreateVersionDTO) (*Version, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.mustGetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrManager(actor, doc); err != nil {
		return nil, err
	}
	if doc.Status != StatusDraft {
		return nil, internal.ErrInvalidTransition.WithDetails(map[string]any{
			"current_status": doc.Status,
			"reason":         "content changes outside draft go through a change request",
		})
	}

	return s.appendVersion(ctx, actor, doc, dto.ContentHash)
}

// ImplementVersion appends a version on behalf of an approved change request.
// The lifecycle gate is the change request's own approval, not draft status.
func (s *Service) ImplementVersion(ctx context.Context, actor *auth.User, documentID int64, contentHash string) (*Version, error) {
	doc, err := s.mustGetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == StatusArchived {
		return nil, internal.ErrDocumentArchived
	}
	return s.appendVersion(ctx, actor, doc, contentHash)
}

func (s *Service) ListVersions(ctx context.Context, actor *auth.User, documentID int64) ([]*Version, error) {
	doc, err := s.mustGetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRead(ctx, actor, doc); err != nil {
		return nil, err
	}
	versions, err := s.repo.ListVersions(ctx, documentID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list versions", err)
	}
	return versions, nil
}

func (s *Service) ListByDirectory(ctx context.Context, actor *auth.User, directoryID *int64) ([]*Document, error) {
	if actor == nil {
		return nil, internal.ErrAccessDenied
	}
	docs, err := s.repo.ListByDirectory(ctx, directoryID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list documents", err)
	}
	return docs, nil
}

// ListDueForReview returns approved documents whose next_review_date has
// passed. Used by the periodic review worker.
func (s *Service) ListDueForReview(ctx context.Context, asOf time.Time, limit int) ([]*Document, error) {
	docs, err := s.repo.ListDueForReview(ctx, asOf, limit)
	if err != nil {
		return nil, internal.NewInternalError("failed to list documents due for review", err)
	}
	return docs, nil
}

func (s *Service) appendVersion(ctx context.Context, actor *auth.User, doc *Document, contentHash string) (*Version, error) {
	version := &Version{
		DocumentID:  doc.ID,
		ContentHash: contentHash,
		CreatedBy:   actorID(actor),
	}
	if err := s.repo.CreateVersion(ctx, version); err != nil {
		s.logger.Error("failed to create version", "error", err, "document_id", doc.ID)
		return nil, internal.NewInternalError("failed to create document version", err)
	}

	s.auditor.Record(actorID(actor), audit.ActionVersionCreate, &doc.ID, map[string]any{
		"version_number": version.VersionNumber,
	})
	return version, nil
}

// effectiveFineRole treats the document's owner as holding the owner fine
// role implicitly; everyone else goes through the resolver.
func (s *Service) effectiveFineRole(ctx context.Context, actor *auth.User, doc *Document) (permission.FineRole, bool, error) {
	if actor.ID == doc.OwnerID {
		return permission.FineRoleOwner, true, nil
	}
	return s.permissions.Resolve(ctx, permission.KindDocument, doc.ID, actor.ID)
}

// authorizeAction enforces the per-action gates. Self-approval is forbidden
// absolutely, with no coarse-role override.
func (s *Service) authorizeAction(ctx context.Context, actor *auth.User, doc *Document, action Action) error {
	if actor == nil {
		return internal.ErrAccessDenied
	}

	switch action {
	case ActionApprove, ActionReject:
		if doc.Status == StatusPendingApproval {
			if actor.ID == doc.OwnerID {
				s.logger.Warn("self-approval attempt rejected",
					"document_id", doc.ID, "user_id", actor.ID)
				return internal.ErrSelfApproval
			}
			role, found, err := s.effectiveFineRole(ctx, actor, doc)
			if err != nil {
				return err
			}
			if !found || !role.AtLeast(permission.FineRoleApprover) {
				return internal.ErrAccessDenied
			}
			return nil
		}
		// reject at the review stage uses the reviewer gate
		return s.requireReviewerGate(ctx, actor, doc)

	case ActionSubmitForReview, ActionSubmitForApproval, ActionTriggerReview, ActionCompleteReview:
		return s.requireReviewerGate(ctx, actor, doc)

	case ActionArchive:
		if actor.ID == doc.OwnerID || actor.Role.AtLeast(auth.RoleManager) {
			return nil
		}
		role, found, err := s.effectiveFineRole(ctx, actor, doc)
		if err != nil {
			return err
		}
		if found && role == permission.FineRoleOwner {
			return nil
		}
		return internal.ErrAccessDenied

	default:
		return internal.ErrAccessDenied
	}
}

func (s *Service) requireReviewerGate(ctx context.Context, actor *auth.User, doc *Document) error {
	if actor.Role.AtLeast(auth.RoleManager) {
		return nil
	}
	role, found, err := s.effectiveFineRole(ctx, actor, doc)
	if err != nil {
		return err
	}
	if !found || !role.AtLeast(permission.FineRoleReviewer) {
		s.logger.Warn("lifecycle action denied",
			"document_id", doc.ID, "user_id", actor.ID)
		return internal.ErrAccessDenied
	}
	return nil
}

func (s *Service) requireRead(ctx context.Context, actor *auth.User, doc *Document) error {
	if actor == nil {
		return internal.ErrAccessDenied
	}
	if actor.ID == doc.OwnerID || actor.Role.AtLeast(auth.RoleManager) {
		return nil
	}
	role, found, err := s.effectiveFineRole(ctx, actor, doc)
	if err != nil {
		return err
	}
	if !found || !role.AtLeast(permission.FineRoleViewer) {
		return internal.ErrAccessDenied
	}
	return nil
}

func (s *Service) requireOwnerOrManager(actor *auth.User, doc *Document) error {
	if actor == nil {
		return internal.ErrAccessDenied
	}
	if actor.ID == doc.OwnerID || actor.Role.AtLeast(auth.RoleManager) {
		return nil
	}
	return internal.ErrAccessDenied
}

func (s *Service) mustGetDocument(ctx context.Context, id int64) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load document", err)
	}
	if doc == nil {
		return nil, internal.ErrDocumentNotFound
	}
	return doc, nil
}

func actorID(actor *auth.User) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}

// ApplyWorkflowOutcome is the decision-set completion hook. The per-action
// permission gate does not re-run here, the decision set itself is the
// authority, but the self-approval ban still holds. A document that already
// moved off pending_approval is a benign no-op so the at-most-once contract
// survives retries.
func (s *Service) ApplyWorkflowOutcome(ctx context.Context, actor *auth.User, documentID int64, approved bool, notes string) error {
	doc, err := s.mustGetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	action := ActionReject
	if approved {
		action = ActionApprove
		if actor != nil && actor.ID == doc.OwnerID {
			s.logger.Warn("self-approval attempt via workflow rejected",
				"document_id", doc.ID, "user_id", actor.ID)
			return internal.ErrSelfApproval
		}
	}

	next, ok := NextState(doc.Status, action)
	if !ok {
		s.logger.Info("workflow outcome arrived after transition, ignoring",
			"document_id", doc.ID, "status", doc.Status, "action", action)
		return nil
	}

	from := doc.Status
	var swapped bool
	if next == StatusApproved && from == StatusPendingApproval {
		if doc.EffectiveDate == nil {
			today := s.now()
			doc.EffectiveDate = &today
		}
		doc.RecomputeNextReviewDate()
		swapped, err = s.repo.ApproveStatusIf(ctx, doc.ID, from, next, doc.EffectiveDate, doc.NextReviewDate)
	} else {
		swapped, err = s.repo.UpdateStatusIf(ctx, doc.ID, from, next)
	}
	if err != nil {
		return internal.NewInternalError("failed to update document status", err)
	}
	if !swapped {
		s.logger.Info("workflow outcome lost the transition race, ignoring",
			"document_id", doc.ID, "status", from, "action", action)
		return nil
	}

	doc.Status = next

	details := map[string]any{
		"action":   action,
		"from":     from,
		"to":       next,
		"workflow": true,
	}
	if notes != "" {
		details["reason"] = notes
	}
	s.auditor.Record(actorID(actor), audit.ActionDocumentTransition, &doc.ID, details)
	s.publishOutcome(ctx, action, doc, actor, notes)

	return nil
}

// SubjectOwner reports who owns the document a decision set judges, so the
// workflow engine can screen the owner out of its approver pool.
func (s *Service) SubjectOwner(ctx context.Context, documentID int64) (int64, error) {
	doc, err := s.mustGetDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return doc.OwnerID, nil
}

// publishOutcome announces approval and rejection outcomes on the event bus.
// Other actions stay quiet.
func (s *Service) publishOutcome(ctx context.Context, action Action, doc *Document, actor *auth.User, reason string) {
	if s.publisher == nil {
		return
	}
	var event events.Event
	switch action {
	case ActionApprove:
		event = events.NewDocumentApprovedEvent(doc.ID, actorID(actor), doc.NextReviewDate)
	case ActionReject:
		event = events.NewDocumentRejectedEvent(doc.ID, actorID(actor), reason)
	default:
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish document event",
			"event_type", event.EventType(), "document_id", doc.ID, "error", err)
	}
}
