package permission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/document-management/internal"
	"github.com/frahmantamala/document-management/internal/audit"
	"github.com/frahmantamala/document-management/internal/auth"
)

// Service fronts the resolver with the TTL cache and owns every grant
// mutation, so cache invalidation and audit emission cannot be bypassed.
type Service struct {
	repo           Repository
	resolver       *Resolver
	cache          *Cache
	auditor        audit.Emitter
	resolveTimeout time.Duration
	logger         *slog.Logger
}

func NewService(repo Repository, resolver *Resolver, cache *Cache, auditor audit.Emitter, resolveTimeout time.Duration, logger *slog.Logger) *Service {
	if resolveTimeout <= 0 {
		resolveTimeout = 3 * time.Second
	}
	return &Service{
		repo:           repo,
		resolver:       resolver,
		cache:          cache,
		auditor:        auditor,
		resolveTimeout: resolveTimeout,
		logger:         logger,
	}
}

// Resolve answers "what is this user's effective fine role on this resource".
// Cache hits, positive or negative, short-circuit the store. On a store
// failure the answer is ErrResolutionUnavailable: authorization fails closed
// but the outage is distinguishable from a real denial.
func (s *Service) Resolve(ctx context.Context, kind ResourceKind, resourceID, userID int64) (FineRole, bool, error) {
	if role, found, hit := s.cache.Lookup(kind, resourceID, userID); hit {
		return role, found, nil
	}

	resolveCtx, cancel := internal.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	role, found, err := s.resolver.Resolve(resolveCtx, kind, resourceID, userID)
	if err != nil {
		s.logger.Error("permission resolution unavailable",
			"error", err,
			"resource_kind", kind,
			"resource_id", resourceID,
			"user_id", userID)
		return "", false, internal.ErrResolutionUnavailable.WithCause(err)
	}

	s.cache.Store(kind, resourceID, userID, role, found)
	return role, found, nil
}

// HasAtLeast reports whether the user's effective fine role ranks at or
// above min. Resolution failures fail closed.
func (s *Service) HasAtLeast(ctx context.Context, kind ResourceKind, resourceID, userID int64, min FineRole) bool {
	role, found, err := s.Resolve(ctx, kind, resourceID, userID)
	if err != nil || !found {
		return false
	}
	return role.AtLeast(min)
}

// Grant creates or replaces the single grant for (resource, user). The actor
// must hold owner on the resource or be at least a manager.
func (s *Service) Grant(ctx context.Context, actor *auth.User, dto GrantDTO) (*Grant, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.requireGrantAuthority(ctx, actor, ResourceKind(dto.ResourceKind), dto.ResourceID); err != nil {
		return nil, err
	}

	grant := &Grant{
		ResourceKind: ResourceKind(dto.ResourceKind),
		ResourceID:   dto.ResourceID,
		UserID:       dto.UserID,
		FineRole:     FineRole(dto.FineRole),
		GrantedBy:    actor.ID,
		GrantedAt:    time.Now(),
	}

	if err := s.repo.UpsertGrant(ctx, grant); err != nil {
		s.logger.Error("failed to upsert grant", "error", err,
			"resource_kind", grant.ResourceKind,
			"resource_id", grant.ResourceID,
			"user_id", grant.UserID)
		return nil, internal.NewInternalError("failed to store grant", err)
	}

	s.invalidateFor(grant.ResourceKind, grant.ResourceID, grant.UserID)

	s.auditor.Record(actor.ID, audit.ActionPermissionGrant, &grant.ResourceID, map[string]any{
		"resource_kind": grant.ResourceKind,
		"user_id":       grant.UserID,
		"fine_role":     grant.FineRole,
	})

	return grant, nil
}

// Revoke removes the grant for (resource, user); removing a grant that does
// not exist is a no-op.
func (s *Service) Revoke(ctx context.Context, actor *auth.User, kind ResourceKind, resourceID, userID int64) error {
	if err := s.requireGrantAuthority(ctx, actor, kind, resourceID); err != nil {
		return err
	}

	if err := s.repo.DeleteGrant(ctx, kind, resourceID, userID); err != nil {
		s.logger.Error("failed to delete grant", "error", err,
			"resource_kind", kind,
			"resource_id", resourceID,
			"user_id", userID)
		return internal.NewInternalError("failed to delete grant", err)
	}

	s.invalidateFor(kind, resourceID, userID)

	s.auditor.Record(actor.ID, audit.ActionPermissionRevoke, &resourceID, map[string]any{
		"resource_kind": kind,
		"user_id":       userID,
	})

	return nil
}

// ListForResource returns current grants on a resource; requires the same
// authority as mutating them.
func (s *Service) ListForResource(ctx context.Context, actor *auth.User, kind ResourceKind, resourceID int64) ([]*Grant, error) {
	if err := s.requireGrantAuthority(ctx, actor, kind, resourceID); err != nil {
		return nil, err
	}
	grants, err := s.repo.ListGrantsForResource(ctx, kind, resourceID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list grants", err)
	}
	return grants, nil
}

// InvalidateUser drops a single user's cached resolution for a resource.
// Exposed for administrative role changes.
func (s *Service) InvalidateUser(kind ResourceKind, resourceID, userID int64) {
	s.cache.Invalidate(kind, resourceID, userID)
}

func (s *Service) requireGrantAuthority(ctx context.Context, actor *auth.User, kind ResourceKind, resourceID int64) error {
	if actor == nil {
		return internal.ErrAccessDenied
	}
	if actor.Role.AtLeast(auth.RoleManager) {
		return nil
	}

	role, found, err := s.Resolve(ctx, kind, resourceID, actor.ID)
	if err != nil {
		if errors.Is(err, internal.ErrResolutionUnavailable) {
			return err
		}
		return internal.ErrAccessDenied
	}
	if !found || role != FineRoleOwner {
		return internal.ErrAccessDenied
	}
	return nil
}

// invalidateFor applies the invalidation policy: one entry for document
// grants, full clear for directory grants, because any document below the
// directory may inherit from it and no reverse index is kept.
func (s *Service) invalidateFor(kind ResourceKind, resourceID, userID int64) {
	switch kind {
	case KindDirectory:
		s.cache.Clear()
		s.logger.Debug("permission cache cleared after directory grant mutation",
			"directory_id", resourceID)
	default:
		s.cache.Invalidate(kind, resourceID, userID)
	}
}
