package directory

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/document-management/internal"
	"github.com/frahmantamala/document-management/internal/audit"
	"github.com/frahmantamala/document-management/internal/auth"
)

// maxTreeDepth caps ancestry walks, the same bound the permission resolver
// uses. A walk that exceeds it is treated as a cycle.
const maxTreeDepth = 50

// PermissionCache is the slice of the permission cache the directory service
// needs. Structural mutations change which grants documents inherit, so the
// whole cache is dropped rather than tracking affected subtrees.
type PermissionCache interface {
	Clear()
}

type Service struct {
	repo    Repository
	cache   PermissionCache
	auditor audit.Emitter
	logger  *slog.Logger
}

func NewService(repo Repository, cache PermissionCache, auditor audit.Emitter, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		auditor: auditor,
		logger:  logger,
	}
}

// Create makes a new directory. Only managers and admins restructure the
// tree.
func (s *Service) Create(ctx context.Context, actor *auth.User, dto CreateDirectoryDTO) (*Directory, error) {
	if err := s.requireTreeAuthority(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if dto.ParentID != nil {
		if _, err := s.mustGetDirectory(ctx, *dto.ParentID); err != nil {
			return nil, err
		}
	}

	dir := &Directory{
		Name:      dto.Name,
		ParentID:  dto.ParentID,
		CreatedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, dir); err != nil {
		s.logger.Error("failed to create directory", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create directory", err)
	}

	s.cache.Clear()
	s.auditor.Record(actor.ID, audit.ActionDirectoryCreate, &dir.ID, map[string]any{
		"name":      dir.Name,
		"parent_id": dir.ParentID,
	})

	return dir, nil
}

// Move re-parents a directory. The new parent chain is walked before the
// write: if it reaches the directory being moved the move would create a
// cycle and is rejected.
func (s *Service) Move(ctx context.Context, actor *auth.User, directoryID int64, dto MoveDirectoryDTO) (*Directory, error) {
	if err := s.requireTreeAuthority(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	dir, err := s.mustGetDirectory(ctx, directoryID)
	if err != nil {
		return nil, err
	}

	if dto.ParentID != nil {
		if *dto.ParentID == directoryID {
			return nil, internal.ErrCircularReference
		}
		if _, err := s.mustGetDirectory(ctx, *dto.ParentID); err != nil {
			return nil, err
		}
		if err := s.checkNoCycle(ctx, directoryID, *dto.ParentID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.SetParent(ctx, directoryID, dto.ParentID); err != nil {
		s.logger.Error("failed to move directory", "error", err, "directory_id", directoryID)
		return nil, internal.NewInternalError("failed to move directory", err)
	}

	s.cache.Clear()
	s.auditor.Record(actor.ID, audit.ActionDirectoryMove, &directoryID, map[string]any{
		"old_parent_id": dir.ParentID,
		"new_parent_id": dto.ParentID,
	})

	dir.ParentID = dto.ParentID
	return dir, nil
}

func (s *Service) Get(ctx context.Context, actor *auth.User, directoryID int64) (*Directory, error) {
	if actor == nil {
		return nil, internal.ErrAccessDenied
	}
	return s.mustGetDirectory(ctx, directoryID)
}

// ListChildren returns the directories directly under parentID, or the
// root-level directories when parentID is nil.
func (s *Service) ListChildren(ctx context.Context, actor *auth.User, parentID *int64) ([]*Directory, error) {
	if actor == nil {
		return nil, internal.ErrAccessDenied
	}
	dirs, err := s.repo.ListChildren(ctx, parentID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list directories", err)
	}
	return dirs, nil
}

// checkNoCycle walks up from the candidate parent. Reaching movingID means
// the candidate sits inside the subtree being moved.
func (s *Service) checkNoCycle(ctx context.Context, movingID, newParentID int64) error {
	current := newParentID
	for depth := 0; depth < maxTreeDepth; depth++ {
		if current == movingID {
			s.logger.Warn("directory move rejected, would create cycle",
				"directory_id", movingID, "new_parent_id", newParentID)
			return internal.ErrCircularReference
		}
		dir, err := s.repo.GetByID(ctx, current)
		if err != nil {
			return internal.NewInternalError("failed to walk directory ancestry", err)
		}
		if dir == nil || dir.ParentID == nil {
			return nil
		}
		current = *dir.ParentID
	}
	return internal.ErrCircularReference
}

func (s *Service) mustGetDirectory(ctx context.Context, id int64) (*Directory, error) {
	dir, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load directory", err)
	}
	if dir == nil {
		return nil, internal.ErrDirectoryNotFound
	}
	return dir, nil
}

func (s *Service) requireTreeAuthority(actor *auth.User) error {
	if actor == nil {
		return internal.ErrAccessDenied
	}
	if !actor.Role.AtLeast(auth.RoleManager) {
		s.logger.Warn("directory mutation denied", "user_id", actor.ID, "role", actor.Role)
		return internal.ErrAccessDenied
	}
	return nil
}
