package changerequest

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/document-management/internal"
	"github.com/frahmantamala/document-management/internal/audit"
	"github.com/frahmantamala/document-management/internal/auth"
	"github.com/frahmantamala/document-management/internal/document"
	"github.com/frahmantamala/document-management/internal/permission"
)

// DocumentGateway is the slice of the document service a change request
// needs: read access for gating and version creation at implementation time.
type DocumentGateway interface {
	Get(ctx context.Context, actor *auth.User, documentID int64) (*document.Document, error)
	ImplementVersion(ctx context.Context, actor *auth.User, documentID int64, contentHash string) (*document.Version, error)
}

// PermissionResolver answers fine-role questions against the underlying
// document.
type PermissionResolver interface {
	Resolve(ctx context.Context, kind permission.ResourceKind, resourceID, userID int64) (permission.FineRole, bool, error)
}

type Service struct {
	repo        Repository
	documents   DocumentGateway
	permissions PermissionResolver
	auditor     audit.Emitter
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(repo Repository, documents DocumentGateway, permissions PermissionResolver, auditor audit.Emitter, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		documents:   documents,
		permissions: permissions,
		auditor:     auditor,
		now:         time.Now,
		logger:      logger,
	}
}

// Create opens a change request against a document the actor can read.
// Approved documents are only ever modified through this path.
func (s *Service) Create(ctx context.Context, actor *auth.User, dto CreateChangeRequestDTO) (*ChangeRequest, error) {
	if actor == nil {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.documents.Get(ctx, actor, dto.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == document.StatusArchived {
		return nil, internal.ErrDocumentArchived
	}

	cr := &ChangeRequest{
		DocumentID:  doc.ID,
		Status:      StatusDraft,
		Title:       dto.Title,
		Description: dto.Description,
		ContentHash: dto.ContentHash,
		RequestedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, cr); err != nil {
		s.logger.Error("failed to create change request", "error", err, "document_id", doc.ID)
		return nil, internal.NewInternalError("failed to create change request", err)
	}

	s.auditor.Record(actor.ID, audit.ActionChangeRequestOpen, &cr.ID, map[string]any{
		"document_id": cr.DocumentID,
		"title":       cr.Title,
	})

	return cr, nil
}

func (s *Service) Get(ctx context.Context, actor *auth.User, id int64) (*ChangeRequest, error) {
	if actor == nil {
		return nil, internal.ErrAccessDenied
	}
	return s.mustGet(ctx, id)
}

func (s *Service) ListByDocument(ctx context.Context, actor *auth.User, documentID int64) ([]*ChangeRequest, error) {
	if actor == nil {
		return nil, internal.ErrAccessDenied
	}
	if _, err := s.documents.Get(ctx, actor, documentID); err != nil {
		return nil, err
	}
	crs, err := s.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list change requests", err)
	}
	return crs, nil
}

// Transition moves a change request through its lattice with the same
// compare-and-swap discipline as documents. Implementing an approved change
// request appends the proposed content as a new document version.
func (s *Service) Transition(ctx context.Context, actor *auth.User, id int64, dto TransitionChangeRequestDTO) (*ChangeRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	cr, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeAction(ctx, actor, cr, dto.Action); err != nil {
		return nil, err
	}

	next, ok := NextState(cr.Status, dto.Action)
	if !ok {
		return nil, internal.ErrInvalidTransition.WithDetails(map[string]any{
			"current_status": cr.Status,
			"action":         dto.Action,
		})
	}

	swapped, err := s.repo.UpdateStatusIf(ctx, cr.ID, cr.Status, next)
	if err != nil {
		return nil, internal.NewInternalError("failed to update change request status", err)
	}
	if !swapped {
		return nil, internal.ErrConcurrentModification.WithDetails(map[string]any{
			"expected_status": cr.Status,
			"action":          dto.Action,
		})
	}

	from := cr.Status
	cr.Status = next

	if dto.Action == ActionImplement {
		if _, err := s.documents.ImplementVersion(ctx, actor, cr.DocumentID, cr.ContentHash); err != nil {
			s.logger.Error("failed to create version for implemented change request",
				"error", err, "change_request_id", cr.ID, "document_id", cr.DocumentID)
			// Undo the status claim so the implementation can be retried;
			// a request must not read as implemented without its version.
			cr.Status = from
			if reverted, revErr := s.repo.UpdateStatusIf(ctx, cr.ID, next, from); revErr != nil || !reverted {
				s.logger.Error("failed to revert change request after version failure",
					"error", revErr, "change_request_id", cr.ID, "stuck_status", next)
			}
			return nil, err
		}
		implementedAt := s.now()
		cr.ImplementedAt = &implementedAt
		if err := s.repo.SetImplementedAt(ctx, cr.ID, implementedAt); err != nil {
			s.logger.Error("failed to stamp implemented_at",
				"error", err, "change_request_id", cr.ID)
		}
	}

	details := map[string]any{
		"action": dto.Action,
		"from":   from,
		"to":     next,
	}
	if dto.Reason != "" {
		details["reason"] = dto.Reason
	}
	s.auditor.Record(actorID(actor), audit.ActionChangeRequestMove, &cr.ID, details)

	return cr, nil
}

// ApplyWorkflowOutcome is the decision-set completion hook for change
// requests. A request that already left under_review is a benign no-op.
func (s *Service) ApplyWorkflowOutcome(ctx context.Context, actor *auth.User, changeRequestID int64, approved bool, notes string) error {
	cr, err := s.mustGet(ctx, changeRequestID)
	if err != nil {
		return err
	}

	action := ActionReject
	if approved {
		action = ActionApprove
	}

	next, ok := NextState(cr.Status, action)
	if !ok {
		s.logger.Info("workflow outcome arrived after change request moved, ignoring",
			"change_request_id", cr.ID, "status", cr.Status, "action", action)
		return nil
	}

	swapped, err := s.repo.UpdateStatusIf(ctx, cr.ID, cr.Status, next)
	if err != nil {
		return internal.NewInternalError("failed to update change request status", err)
	}
	if !swapped {
		s.logger.Info("workflow outcome lost the change request race, ignoring",
			"change_request_id", cr.ID, "status", cr.Status, "action", action)
		return nil
	}

	details := map[string]any{
		"action":   action,
		"from":     cr.Status,
		"to":       next,
		"workflow": true,
	}
	if notes != "" {
		details["reason"] = notes
	}
	s.auditor.Record(actorID(actor), audit.ActionChangeRequestMove, &cr.ID, details)

	return nil
}

// SubjectOwner reports who opened the change request a decision set judges,
// so the workflow engine can screen the requester out of its approver pool.
func (s *Service) SubjectOwner(ctx context.Context, changeRequestID int64) (int64, error) {
	cr, err := s.mustGet(ctx, changeRequestID)
	if err != nil {
		return 0, err
	}
	return cr.RequestedBy, nil
}

// authorizeAction gates lattice moves: the requester drives submit, review
// and approval need standing on the underlying document, implementation
// needs the document owner or a manager.
func (s *Service) authorizeAction(ctx context.Context, actor *auth.User, cr *ChangeRequest, action Action) error {
	if actor == nil {
		return internal.ErrAccessDenied
	}

	// The requester never decides their own request. This holds before the
	// manager shortcut so no coarse role can bypass it.
	if action == ActionApprove || action == ActionReject {
		if actor.ID == cr.RequestedBy {
			s.logger.Warn("change request self-approval attempt rejected",
				"change_request_id", cr.ID, "user_id", actor.ID)
			return internal.ErrSelfApproval
		}
	}

	if actor.Role.AtLeast(auth.RoleManager) {
		return nil
	}

	switch action {
	case ActionSubmit:
		if actor.ID == cr.RequestedBy {
			return nil
		}
		return internal.ErrAccessDenied

	case ActionStartReview:
		return s.requireDocumentRole(ctx, actor, cr.DocumentID, permission.FineRoleReviewer)

	case ActionApprove, ActionReject:
		return s.requireDocumentRole(ctx, actor, cr.DocumentID, permission.FineRoleApprover)

	case ActionImplement:
		doc, err := s.documents.Get(ctx, actor, cr.DocumentID)
		if err != nil {
			return err
		}
		if actor.ID == doc.OwnerID {
			return nil
		}
		return internal.ErrAccessDenied

	default:
		return internal.ErrAccessDenied
	}
}

func (s *Service) requireDocumentRole(ctx context.Context, actor *auth.User, documentID int64, min permission.FineRole) error {
	role, found, err := s.permissions.Resolve(ctx, permission.KindDocument, documentID, actor.ID)
	if err != nil {
		return err
	}
	if !found || !role.AtLeast(min) {
		return internal.ErrAccessDenied
	}
	return nil
}

func (s *Service) mustGet(ctx context.Context, id int64) (*ChangeRequest, error) {
	cr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load change request", err)
	}
	if cr == nil {
		return nil, internal.NewNotFoundError("change request not found", internal.ErrCodeDocumentNotFound)
	}
	return cr, nil
}

func actorID(actor *auth.User) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}
