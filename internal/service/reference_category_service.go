package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/models"
	"github.com/paperdesk/paperdesk/internal/repository"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
)

type referenceCategoryRepository interface {
	Create(ctx context.Context, category *models.ReferenceCategory) error
	FindByID(ctx context.Context, id int64) (*models.ReferenceCategory, error)
	ExistsByNameAndParent(ctx context.Context, teamID int64, name string, parentID *int64, excludeID int64) (bool, error)
	List(ctx context.Context, teamID int64, parentID *int64, rootsOnly bool) ([]models.ReferenceCategory, error)
	ChildIDs(ctx context.Context, id int64) ([]int64, error)
	HasChildren(ctx context.Context, id int64) (bool, error)
	CountReferences(ctx context.Context, id int64) (int, error)
	CountReferencesIn(ctx context.Context, ids []int64) (int, error)
	Update(ctx context.Context, category *models.ReferenceCategory) error
	Delete(ctx context.Context, id int64) error
}

type teamGuard interface {
	RequireMember(ctx context.Context, actor *models.User, teamID int64) (*models.TeamUser, error)
	RequireAdmin(ctx context.Context, actor *models.User, teamID int64) (*models.TeamUser, error)
}

// ReferenceCategoryRequest represents payload for creating a reference
// category.
type ReferenceCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id"`
	TeamID      int64  `json:"team_id" validate:"required"`
}

// UpdateReferenceCategoryRequest carries a partial patch. Absent fields stay
// unchanged; ClearParent promotes the node to a team-level root. TeamID is
// accepted only to confirm the immutable binding.
type UpdateReferenceCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parent_id"`
	ClearParent bool    `json:"clear_parent"`
	TeamID      *int64  `json:"team_id"`
}

// ReferenceCategoryService manages per-team reference category trees. Reads
// need team membership; mutations need a team administrator.
type ReferenceCategoryService struct {
	repo      referenceCategoryRepository
	teams     teamGuard
	cache     subtreeCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReferenceCategoryService creates an instance of ReferenceCategoryService.
func NewReferenceCategoryService(repo referenceCategoryRepository, teams teamGuard, cache subtreeCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ReferenceCategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReferenceCategoryService{repo: repo, teams: teams, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Create adds a category node to the team's tree. Team admin required. The
// parent, when given, must belong to the same team.
func (s *ReferenceCategoryService) Create(ctx context.Context, actor *models.User, req ReferenceCategoryRequest) (*models.ReferenceCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	if _, err := s.teams.RequireAdmin(ctx, actor, req.TeamID); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		parent, err := s.find(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.TeamID != req.TeamID {
			return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "parent category belongs to another team")
		}
	}

	exists, err := s.repo.ExistsByNameAndParent(ctx, req.TeamID, req.Name, req.ParentID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a sibling category with this name already exists")
	}

	category := &models.ReferenceCategory{Name: req.Name, Description: req.Description, ParentID: req.ParentID, TeamID: req.TeamID}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}

	s.invalidate(ctx, req.TeamID)
	return category, nil
}

// Get returns a category with its direct reference count. Team membership
// required.
func (s *ReferenceCategoryService) Get(ctx context.Context, actor *models.User, id int64) (*models.ReferenceCategoryRead, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.teams.RequireMember(ctx, actor, category.TeamID); err != nil {
		return nil, err
	}
	count, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count references")
	}
	return &models.ReferenceCategoryRead{ReferenceCategory: *category, ReferenceCount: &count}, nil
}

func (s *ReferenceCategoryService) find(ctx context.Context, id int64) (*models.ReferenceCategory, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return category, nil
}

// List returns the team's categories. Team membership required.
func (s *ReferenceCategoryService) List(ctx context.Context, actor *models.User, teamID int64, parentID *int64, rootsOnly, includeStats bool) ([]models.ReferenceCategoryRead, error) {
	if _, err := s.teams.RequireMember(ctx, actor, teamID); err != nil {
		return nil, err
	}
	categories, err := s.repo.List(ctx, teamID, parentID, rootsOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}

	out := make([]models.ReferenceCategoryRead, len(categories))
	for i, category := range categories {
		out[i] = models.ReferenceCategoryRead{ReferenceCategory: category}
		if !includeStats {
			continue
		}
		ids, err := s.DescendantIDs(ctx, actor, category.ID)
		if err != nil {
			return nil, err
		}
		count, err := s.repo.CountReferencesIn(ctx, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subtree references")
		}
		out[i].ReferenceCount = &count
	}
	return out, nil
}

// DescendantIDs returns the node and every node below it. Team membership
// required. Results are cached per team.
func (s *ReferenceCategoryService) DescendantIDs(ctx context.Context, actor *models.User, id int64) ([]int64, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.teams.RequireMember(ctx, actor, category.TeamID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s%d:%d", repository.ReferenceCategorySubtreePrefix, category.TeamID, id)
	if s.cache != nil {
		var cached []int64
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	ids, err := collectDescendants(ctx, id, s.repo.ChildIDs)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, ids, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache reference category subtree", zap.Error(err))
		}
	}
	return ids, nil
}

// AncestorIDs returns the node and its parent chain. Team membership required.
func (s *ReferenceCategoryService) AncestorIDs(ctx context.Context, actor *models.User, id int64) ([]int64, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.teams.RequireMember(ctx, actor, category.TeamID); err != nil {
		return nil, err
	}
	return collectAncestors(ctx, id, func(ctx context.Context, nodeID int64) (*int64, error) {
		node, err := s.find(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		return node.ParentID, nil
	})
}

// Update patches a category node; fields absent from the request keep their
// value. Team admin required. The team binding is immutable; moving a node
// under its own descendant is rejected.
func (s *ReferenceCategoryService) Update(ctx context.Context, actor *models.User, id int64, req UpdateReferenceCategoryRequest) (*models.ReferenceCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}

	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.TeamID != nil && *req.TeamID != category.TeamID {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "categories cannot move between teams")
	}
	if _, err := s.teams.RequireAdmin(ctx, actor, category.TeamID); err != nil {
		return nil, err
	}

	parentID := category.ParentID
	switch {
	case req.ClearParent:
		parentID = nil
	case req.ParentID != nil:
		if *req.ParentID == id {
			return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "a category cannot be its own parent")
		}
		parent, err := s.find(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.TeamID != category.TeamID {
			return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "parent category belongs to another team")
		}
		descendants, err := collectDescendants(ctx, id, s.repo.ChildIDs)
		if err != nil {
			return nil, err
		}
		for _, descendantID := range descendants {
			if descendantID == *req.ParentID {
				return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "cannot move a category under its own descendant")
			}
		}
		parentID = req.ParentID
	}

	name := category.Name
	if req.Name != nil {
		name = *req.Name
	}

	exists, err := s.repo.ExistsByNameAndParent(ctx, category.TeamID, name, parentID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a sibling category with this name already exists")
	}

	category.Name = name
	category.ParentID = parentID
	if req.Description != nil {
		category.Description = *req.Description
	}
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update category")
	}

	s.invalidate(ctx, category.TeamID)
	return category, nil
}

// Delete removes a category node. Team admin required. Nodes with children or
// attached references are protected.
func (s *ReferenceCategoryService) Delete(ctx context.Context, actor *models.User, id int64) error {
	category, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.teams.RequireAdmin(ctx, actor, category.TeamID); err != nil {
		return err
	}

	hasChildren, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check children")
	}
	if hasChildren {
		return appErrors.Clone(appErrors.ErrInvalidOperation, "delete or move child categories first")
	}

	referenceCount, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count references")
	}
	if referenceCount > 0 {
		return appErrors.Clone(appErrors.ErrInvalidOperation, "category still has references attached")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
	}

	s.invalidate(ctx, category.TeamID)
	return nil
}

func (s *ReferenceCategoryService) invalidate(ctx context.Context, teamID int64) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("%s%d:*", repository.ReferenceCategorySubtreePrefix, teamID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate reference category subtree cache", zap.Error(err))
	}
}
