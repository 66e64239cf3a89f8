package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/paperdesk/paperdesk/internal/models"
)

// ReferenceCategoryRepository provides database access for per-team reference
// category trees.
type ReferenceCategoryRepository struct {
	db *sqlx.DB
}

// NewReferenceCategoryRepository creates a new instance of ReferenceCategoryRepository.
func NewReferenceCategoryRepository(db *sqlx.DB) *ReferenceCategoryRepository {
	return &ReferenceCategoryRepository{db: db}
}

// Create inserts a reference category node and fills the generated ID.
func (r *ReferenceCategoryRepository) Create(ctx context.Context, category *models.ReferenceCategory) error {
	const query = `INSERT INTO reference_categories (name, description, parent_id, team_id) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, category.Name, category.Description, category.ParentID, category.TeamID).Scan(&category.ID); err != nil {
		return fmt.Errorf("create reference category: %w", err)
	}
	return nil
}

// FindByID returns a reference category by identifier.
func (r *ReferenceCategoryRepository) FindByID(ctx context.Context, id int64) (*models.ReferenceCategory, error) {
	const query = `SELECT id, name, description, parent_id, team_id FROM reference_categories WHERE id = $1 LIMIT 1`
	var category models.ReferenceCategory
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reference category by id: %w", err)
	}
	return &category, nil
}

// ExistsByNameAndParent reports whether a sibling with the same name exists
// within the team. Pass excludeID > 0 to ignore a node during rename.
func (r *ReferenceCategoryRepository) ExistsByNameAndParent(ctx context.Context, teamID int64, name string, parentID *int64, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM reference_categories
		WHERE team_id = $1 AND name = $2 AND parent_id IS NOT DISTINCT FROM $3 AND id <> $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, teamID, name, parentID, excludeID); err != nil {
		return false, fmt.Errorf("reference category exists by name: %w", err)
	}
	return exists, nil
}

// List returns the team's categories, optionally restricted to children of
// parentID or to roots only.
func (r *ReferenceCategoryRepository) List(ctx context.Context, teamID int64, parentID *int64, rootsOnly bool) ([]models.ReferenceCategory, error) {
	var (
		query string
		args  = []interface{}{teamID}
	)
	switch {
	case parentID != nil:
		query = `SELECT id, name, description, parent_id, team_id FROM reference_categories WHERE team_id = $1 AND parent_id = $2 ORDER BY name ASC`
		args = append(args, *parentID)
	case rootsOnly:
		query = `SELECT id, name, description, parent_id, team_id FROM reference_categories WHERE team_id = $1 AND parent_id IS NULL ORDER BY name ASC`
	default:
		query = `SELECT id, name, description, parent_id, team_id FROM reference_categories WHERE team_id = $1 ORDER BY name ASC`
	}

	var categories []models.ReferenceCategory
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("list reference categories: %w", err)
	}
	return categories, nil
}

// ChildIDs returns the direct children IDs of a node.
func (r *ReferenceCategoryRepository) ChildIDs(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	const query = `SELECT id FROM reference_categories WHERE parent_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, id); err != nil {
		return nil, fmt.Errorf("reference category child ids: %w", err)
	}
	return ids, nil
}

// HasChildren reports whether the node has any direct children.
func (r *ReferenceCategoryRepository) HasChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM reference_categories WHERE parent_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("reference category has children: %w", err)
	}
	return exists, nil
}

// CountReferences returns the number of references attached directly to the node.
func (r *ReferenceCategoryRepository) CountReferences(ctx context.Context, id int64) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM reference_papers WHERE category_id = $1`
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count category references: %w", err)
	}
	return count, nil
}

// CountReferencesIn returns the number of references attached to any of the nodes.
func (r *ReferenceCategoryRepository) CountReferencesIn(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	const query = `SELECT COUNT(*) FROM reference_papers WHERE category_id = ANY($1)`
	if err := r.db.GetContext(ctx, &count, query, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("count subtree references: %w", err)
	}
	return count, nil
}

// Update updates mutable fields of a reference category node.
func (r *ReferenceCategoryRepository) Update(ctx context.Context, category *models.ReferenceCategory) error {
	const query = `UPDATE reference_categories SET name = :name, description = :description, parent_id = :parent_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update reference category: %w", err)
	}
	return nil
}

// Delete removes a reference category node.
func (r *ReferenceCategoryRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM reference_categories WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete reference category: %w", err)
	}
	return nil
}
