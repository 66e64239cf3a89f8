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

type categoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, id int64) (*models.Category, error)
	ExistsByNameAndParent(ctx context.Context, name string, parentID *int64, excludeID int64) (bool, error)
	List(ctx context.Context, parentID *int64, rootsOnly bool) ([]models.Category, error)
	ChildIDs(ctx context.Context, id int64) ([]int64, error)
	HasChildren(ctx context.Context, id int64) (bool, error)
	CountPapers(ctx context.Context, id int64) (int, error)
	CountPapersIn(ctx context.Context, ids []int64) (int, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id int64) error
}

type subtreeCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CategoryRequest represents payload for creating or updating a category.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id"`
}

// UpdateCategoryRequest carries a partial category patch. Absent fields stay
// unchanged; ClearParent promotes the node to a root.
type UpdateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parent_id"`
	ClearParent bool    `json:"clear_parent"`
}

// CategoryService manages the global paper category tree. Reads are open to
// any authenticated user; mutations are restricted to superusers.
type CategoryService struct {
	repo      categoryRepository
	cache     subtreeCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService creates an instance of CategoryService.
func NewCategoryService(repo categoryRepository, cache subtreeCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CategoryService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Create adds a category node. Superuser only.
func (s *CategoryService) Create(ctx context.Context, actor *models.User, req CategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	if !actor.IsSuperuser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only superusers may manage categories")
	}

	if req.ParentID != nil {
		if _, err := s.find(ctx, *req.ParentID); err != nil {
			return nil, err
		}
	}

	exists, err := s.repo.ExistsByNameAndParent(ctx, req.Name, req.ParentID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a sibling category with this name already exists")
	}

	category := &models.Category{Name: req.Name, Description: req.Description, ParentID: req.ParentID}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}

	s.invalidate(ctx)
	return category, nil
}

// Get returns a category with its direct paper count.
func (s *CategoryService) Get(ctx context.Context, id int64) (*models.CategoryRead, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountPapers(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count papers")
	}
	return &models.CategoryRead{Category: *category, PaperCount: &count}, nil
}

func (s *CategoryService) find(ctx context.Context, id int64) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return category, nil
}

// List returns categories. With parentID set it lists that node's children;
// with rootsOnly it lists root nodes; otherwise the whole forest.
func (s *CategoryService) List(ctx context.Context, parentID *int64, rootsOnly, includeStats bool) ([]models.CategoryRead, error) {
	categories, err := s.repo.List(ctx, parentID, rootsOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}

	out := make([]models.CategoryRead, len(categories))
	for i, category := range categories {
		out[i] = models.CategoryRead{Category: category}
		if !includeStats {
			continue
		}
		ids, err := s.DescendantIDs(ctx, category.ID)
		if err != nil {
			return nil, err
		}
		count, err := s.repo.CountPapersIn(ctx, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subtree papers")
		}
		out[i].PaperCount = &count
	}
	return out, nil
}

// DescendantIDs returns the node and every node below it. Results are cached.
func (s *CategoryService) DescendantIDs(ctx context.Context, id int64) ([]int64, error) {
	key := fmt.Sprintf("%s%d", repository.CategorySubtreePrefix, id)
	if s.cache != nil {
		var cached []int64
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	ids, err := collectDescendants(ctx, id, s.repo.ChildIDs)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, ids, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache category subtree", zap.Error(err))
		}
	}
	return ids, nil
}

// AncestorIDs returns the node and its parent chain up to the root.
func (s *CategoryService) AncestorIDs(ctx context.Context, id int64) ([]int64, error) {
	if _, err := s.find(ctx, id); err != nil {
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
// value. Superuser only. Moving a node under its own descendant is rejected.
func (s *CategoryService) Update(ctx context.Context, actor *models.User, id int64, req UpdateCategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	if !actor.IsSuperuser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only superusers may manage categories")
	}

	category, err := s.find(ctx, id)
	if err != nil {
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
		if _, err := s.find(ctx, *req.ParentID); err != nil {
			return nil, err
		}
		// Reject moves under the node's own subtree.
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

	exists, err := s.repo.ExistsByNameAndParent(ctx, name, parentID, id)
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

	s.invalidate(ctx)
	return category, nil
}

// Delete removes a category node. Superuser only. Nodes with children or
// attached papers are protected.
func (s *CategoryService) Delete(ctx context.Context, actor *models.User, id int64) error {
	if !actor.IsSuperuser {
		return appErrors.Clone(appErrors.ErrForbidden, "only superusers may manage categories")
	}
	if _, err := s.find(ctx, id); err != nil {
		return err
	}

	hasChildren, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check children")
	}
	if hasChildren {
		return appErrors.Clone(appErrors.ErrInvalidOperation, "delete or move child categories first")
	}

	paperCount, err := s.repo.CountPapers(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count papers")
	}
	if paperCount > 0 {
		return appErrors.Clone(appErrors.ErrInvalidOperation, "category still has papers attached")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
	}

	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, repository.CategorySubtreePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate category subtree cache", zap.Error(err))
	}
}
