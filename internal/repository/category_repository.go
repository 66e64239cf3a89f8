package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/paperdesk/paperdesk/internal/models"
)

// CategoryRepository provides database access for the global paper category tree.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a category node and fills the generated ID.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	const query = `INSERT INTO categories (name, description, parent_id) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, category.Name, category.Description, category.ParentID).Scan(&category.ID); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// FindByID returns a category by identifier.
func (r *CategoryRepository) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	const query = `SELECT id, name, description, parent_id FROM categories WHERE id = $1 LIMIT 1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return &category, nil
}

// ExistsByNameAndParent reports whether a sibling with the same name exists.
// Pass excludeID > 0 to ignore a node when checking during rename.
func (r *CategoryRepository) ExistsByNameAndParent(ctx context.Context, name string, parentID *int64, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM categories
		WHERE name = $1 AND parent_id IS NOT DISTINCT FROM $2 AND id <> $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name, parentID, excludeID); err != nil {
		return false, fmt.Errorf("category exists by name: %w", err)
	}
	return exists, nil
}

// List returns categories, optionally restricted to children of parentID.
// When parentID is nil and rootsOnly is true only root nodes are returned;
// when rootsOnly is false the whole forest is returned.
func (r *CategoryRepository) List(ctx context.Context, parentID *int64, rootsOnly bool) ([]models.Category, error) {
	var (
		query string
		args  []interface{}
	)
	switch {
	case parentID != nil:
		query = `SELECT id, name, description, parent_id FROM categories WHERE parent_id = $1 ORDER BY name ASC`
		args = append(args, *parentID)
	case rootsOnly:
		query = `SELECT id, name, description, parent_id FROM categories WHERE parent_id IS NULL ORDER BY name ASC`
	default:
		query = `SELECT id, name, description, parent_id FROM categories ORDER BY name ASC`
	}

	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ChildIDs returns the direct children IDs of a node.
func (r *CategoryRepository) ChildIDs(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	const query = `SELECT id FROM categories WHERE parent_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, id); err != nil {
		return nil, fmt.Errorf("category child ids: %w", err)
	}
	return ids, nil
}

// HasChildren reports whether the node has any direct children.
func (r *CategoryRepository) HasChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM categories WHERE parent_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("category has children: %w", err)
	}
	return exists, nil
}

// CountPapers returns the number of papers attached directly to the node.
func (r *CategoryRepository) CountPapers(ctx context.Context, id int64) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM papers WHERE category_id = $1`
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count category papers: %w", err)
	}
	return count, nil
}

// CountPapersIn returns the number of papers attached to any of the nodes.
func (r *CategoryRepository) CountPapersIn(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	const query = `SELECT COUNT(*) FROM papers WHERE category_id = ANY($1)`
	if err := r.db.GetContext(ctx, &count, query, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("count subtree papers: %w", err)
	}
	return count, nil
}

// Update updates mutable fields of a category node.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	const query = `UPDATE categories SET name = :name, description = :description, parent_id = :parent_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Delete removes a category node.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM categories WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
