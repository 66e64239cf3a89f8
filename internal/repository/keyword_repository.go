package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/paperdesk/paperdesk/internal/models"
)

// KeywordRepository provides database access for keywords shared by papers and
// references.
type KeywordRepository struct {
	db *sqlx.DB
}

// NewKeywordRepository creates a new instance of KeywordRepository.
func NewKeywordRepository(db *sqlx.DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

// Upsert resolves a keyword by exact name, creating the row when absent.
func (r *KeywordRepository) Upsert(ctx context.Context, name string) (*models.Keyword, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO keywords (name, created_at, updated_at) VALUES ($1, $2, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at, updated_at`
	var keyword models.Keyword
	if err := r.db.GetContext(ctx, &keyword, query, name, now); err != nil {
		return nil, fmt.Errorf("upsert keyword: %w", err)
	}
	return &keyword, nil
}

// NamesByPaper returns the keyword names linked to a paper.
func (r *KeywordRepository) NamesByPaper(ctx context.Context, paperID int64) ([]string, error) {
	var names []string
	const query = `SELECT k.name FROM keywords k
		JOIN paper_keywords pk ON pk.keyword_id = k.id
		WHERE pk.paper_id = $1 ORDER BY k.name ASC`
	if err := r.db.SelectContext(ctx, &names, query, paperID); err != nil {
		return nil, fmt.Errorf("keywords by paper: %w", err)
	}
	return names, nil
}

// NamesByReference returns the keyword names linked to a reference.
func (r *KeywordRepository) NamesByReference(ctx context.Context, referenceID int64) ([]string, error) {
	var names []string
	const query = `SELECT k.name FROM keywords k
		JOIN reference_paper_keywords rk ON rk.keyword_id = k.id
		WHERE rk.reference_paper_id = $1 ORDER BY k.name ASC`
	if err := r.db.SelectContext(ctx, &names, query, referenceID); err != nil {
		return nil, fmt.Errorf("keywords by reference: %w", err)
	}
	return names, nil
}

// List returns keywords matching an optional name substring.
func (r *KeywordRepository) List(ctx context.Context, search string, skip, limit int) ([]models.Keyword, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	base := `FROM keywords WHERE 1=1`
	var args []interface{}
	if search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+search+"%")
	}

	listQuery := fmt.Sprintf("SELECT id, name, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, limit, skip)
	var keywords []models.Keyword
	if err := r.db.SelectContext(ctx, &keywords, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list keywords: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count keywords: %w", err)
	}
	return keywords, total, nil
}
