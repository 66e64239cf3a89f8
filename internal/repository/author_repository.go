package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/paperdesk/paperdesk/internal/models"
)

// AuthorRepository provides database access for authors.
type AuthorRepository struct {
	db *sqlx.DB
}

// NewAuthorRepository creates a new instance of AuthorRepository.
func NewAuthorRepository(db *sqlx.DB) *AuthorRepository {
	return &AuthorRepository{db: db}
}

// Upsert resolves an author by exact name, creating the row when absent.
// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
func (r *AuthorRepository) Upsert(ctx context.Context, name string) (*models.Author, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO authors (name, created_at, updated_at) VALUES ($1, $2, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, email, affiliation, created_at, updated_at`
	var author models.Author
	if err := r.db.GetContext(ctx, &author, query, name, now); err != nil {
		return nil, fmt.Errorf("upsert author: %w", err)
	}
	return &author, nil
}

// FindByID returns an author by identifier.
func (r *AuthorRepository) FindByID(ctx context.Context, id int64) (*models.Author, error) {
	const query = `SELECT id, name, email, affiliation, created_at, updated_at FROM authors WHERE id = $1 LIMIT 1`
	var author models.Author
	if err := r.db.GetContext(ctx, &author, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find author by id: %w", err)
	}
	return &author, nil
}

// FindByName returns an author by exact name.
func (r *AuthorRepository) FindByName(ctx context.Context, name string) (*models.Author, error) {
	const query = `SELECT id, name, email, affiliation, created_at, updated_at FROM authors WHERE name = $1 LIMIT 1`
	var author models.Author
	if err := r.db.GetContext(ctx, &author, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find author by name: %w", err)
	}
	return &author, nil
}

// List returns authors matching an optional name substring.
func (r *AuthorRepository) List(ctx context.Context, search string, skip, limit int) ([]models.Author, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	base := `FROM authors WHERE 1=1`
	var args []interface{}
	if search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	listQuery := fmt.Sprintf("SELECT id, name, email, affiliation, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, limit, skip)
	var authors []models.Author
	if err := r.db.SelectContext(ctx, &authors, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list authors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count authors: %w", err)
	}
	return authors, total, nil
}
