package permission

import (
	"context"
	"fmt"
	"log/slog"
)

// Repository is the persistent grant store plus the ancestry queries the
// resolver walks. Lookups that find nothing return (nil, nil); errors mean
// the store itself failed.
type Repository interface {
	GetGrant(ctx context.Context, kind ResourceKind, resourceID, userID int64) (*Grant, error)
	UpsertGrant(ctx context.Context, grant *Grant) error
	DeleteGrant(ctx context.Context, kind ResourceKind, resourceID, userID int64) error
	ListGrantsForResource(ctx context.Context, kind ResourceKind, resourceID int64) ([]*Grant, error)

	// DocumentDirectory returns the directory a document lives in, nil for
	// root-level documents.
	DocumentDirectory(ctx context.Context, documentID int64) (*int64, error)
	// DirectoryParent returns a directory's parent, nil at the root.
	DirectoryParent(ctx context.Context, directoryID int64) (*int64, error)
}

// DefaultMaxDepth bounds the ancestry walk for pathological trees.
const DefaultMaxDepth = 50

// Resolver computes the effective fine role of a user on a resource: the
// direct grant if one exists, otherwise the first grant found walking up the
// directory ancestry. Grants are substituted, never merged, so a low direct
// grant shadows a higher inherited one.
type Resolver struct {
	repo     Repository
	maxDepth int
	logger   *slog.Logger
}

func NewResolver(repo Repository, maxDepth int, logger *slog.Logger) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{
		repo:     repo,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// Resolve returns the effective fine role and whether any grant was found.
// Storage failures surface as errors so the caller can distinguish "denied"
// from "unknown"; authorization decisions on error must fail closed.
func (r *Resolver) Resolve(ctx context.Context, kind ResourceKind, resourceID, userID int64) (FineRole, bool, error) {
	grant, err := r.repo.GetGrant(ctx, kind, resourceID, userID)
	if err != nil {
		return "", false, fmt.Errorf("direct grant lookup for %s %d: %w", kind, resourceID, err)
	}
	if grant != nil {
		return grant.FineRole, true, nil
	}

	var next *int64
	switch kind {
	case KindDocument:
		next, err = r.repo.DocumentDirectory(ctx, resourceID)
	case KindDirectory:
		next, err = r.repo.DirectoryParent(ctx, resourceID)
	default:
		return "", false, fmt.Errorf("unknown resource kind %q", kind)
	}
	if err != nil {
		return "", false, fmt.Errorf("ancestry lookup for %s %d: %w", kind, resourceID, err)
	}

	// Explicit loop instead of recursion: bounded depth, cycle detection by
	// visited set.
	visited := make(map[int64]struct{})
	for depth := 0; next != nil; depth++ {
		if depth >= r.maxDepth {
			r.logger.Warn("directory ancestry walk exceeded max depth",
				"resource_kind", kind,
				"resource_id", resourceID,
				"max_depth", r.maxDepth)
			return "", false, nil
		}

		dirID := *next
		if _, seen := visited[dirID]; seen {
			r.logger.Error("cycle detected in directory ancestry",
				"directory_id", dirID,
				"resource_id", resourceID)
			return "", false, nil
		}
		visited[dirID] = struct{}{}

		grant, err = r.repo.GetGrant(ctx, KindDirectory, dirID, userID)
		if err != nil {
			return "", false, fmt.Errorf("inherited grant lookup for directory %d: %w", dirID, err)
		}
		if grant != nil {
			return grant.FineRole, true, nil
		}

		next, err = r.repo.DirectoryParent(ctx, dirID)
		if err != nil {
			return "", false, fmt.Errorf("parent lookup for directory %d: %w", dirID, err)
		}
	}

	return "", false, nil
}
