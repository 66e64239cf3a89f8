package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/paperdesk/paperdesk/internal/models"
)

// ReferenceRepository provides database access for reference papers and their
// keyword links.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository creates a new instance of ReferenceRepository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

const referenceColumns = `id, title, authors, doi, file_path, publication_year, category_id, journal_id, team_id, created_by_id, created_at, updated_at`

// Create inserts a reference with its keyword links in one transaction.
// Keyword IDs must already be resolved.
func (r *ReferenceRepository) Create(ctx context.Context, reference *models.ReferencePaper, keywordIDs []int64) error {
	now := time.Now().UTC()
	reference.CreatedAt = now
	reference.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create reference: %w", err)
	}
	defer tx.Rollback()

	const insertReference = `INSERT INTO reference_papers (title, authors, doi, file_path, publication_year, category_id, journal_id, team_id, created_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	if err := tx.QueryRowxContext(ctx, insertReference,
		reference.Title, reference.Authors, reference.DOI, reference.FilePath, reference.PublicationYear,
		reference.CategoryID, reference.JournalID, reference.TeamID, reference.CreatedByID, reference.CreatedAt, reference.UpdatedAt,
	).Scan(&reference.ID); err != nil {
		return fmt.Errorf("create reference: %w", err)
	}

	if err := insertReferenceKeywords(ctx, tx, reference.ID, keywordIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create reference: %w", err)
	}
	return nil
}

func insertReferenceKeywords(ctx context.Context, tx *sqlx.Tx, referenceID int64, keywordIDs []int64) error {
	const insertKeyword = `INSERT INTO reference_paper_keywords (reference_paper_id, keyword_id) VALUES ($1, $2)`
	for _, keywordID := range keywordIDs {
		if _, err := tx.ExecContext(ctx, insertKeyword, referenceID, keywordID); err != nil {
			return fmt.Errorf("link reference keyword: %w", err)
		}
	}
	return nil
}

// FindByID returns a reference by identifier.
func (r *ReferenceRepository) FindByID(ctx context.Context, id int64) (*models.ReferencePaper, error) {
	query := fmt.Sprintf(`SELECT %s FROM reference_papers WHERE id = $1 LIMIT 1`, referenceColumns)
	var reference models.ReferencePaper
	if err := r.db.GetContext(ctx, &reference, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reference by id: %w", err)
	}
	return &reference, nil
}

// FindByTitleVisible returns the first reference with an exact title match
// visible through the given teams. An empty team set with includePublic
// false means no restriction.
func (r *ReferenceRepository) FindByTitleVisible(ctx context.Context, title string, teamIDs []int64, includePublic bool) (*models.ReferencePaper, error) {
	query := fmt.Sprintf(`SELECT %s FROM reference_papers WHERE title = $1`, referenceColumns)
	args := []interface{}{title}
	switch {
	case len(teamIDs) > 0 && includePublic:
		query += ` AND (team_id = ANY($2) OR team_id IS NULL)`
		args = append(args, pq.Array(teamIDs))
	case len(teamIDs) > 0:
		query += ` AND team_id = ANY($2)`
		args = append(args, pq.Array(teamIDs))
	case includePublic:
		query += ` AND team_id IS NULL`
	}
	query += ` ORDER BY id ASC LIMIT 1`

	var reference models.ReferencePaper
	if err := r.db.GetContext(ctx, &reference, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reference by title: %w", err)
	}
	return &reference, nil
}

// ExistsByDOI reports whether another reference already carries the DOI.
func (r *ReferenceRepository) ExistsByDOI(ctx context.Context, doi string, excludeID int64) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM reference_papers WHERE doi = $1 AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, doi, excludeID); err != nil {
		return false, fmt.Errorf("reference exists by doi: %w", err)
	}
	return exists, nil
}

func buildReferenceFilter(filter models.ReferenceFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	next := func() int { return len(args) + 1 }

	if filter.Title != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(r.title) LIKE $%d", next()))
		args = append(args, "%"+strings.ToLower(filter.Title)+"%")
	}
	if len(filter.CategoryIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.category_id = ANY($%d)", next()))
		args = append(args, pq.Array(filter.CategoryIDs))
	}
	if filter.Keyword != "" {
		// Exact name match; substring search is reserved for titles.
		conditions = append(conditions, fmt.Sprintf(`EXISTS (SELECT 1 FROM reference_paper_keywords rk JOIN keywords k ON k.id = rk.keyword_id
			WHERE rk.reference_paper_id = r.id AND k.name = $%d)`, next()))
		args = append(args, filter.Keyword)
	}
	if filter.JournalID != nil {
		conditions = append(conditions, fmt.Sprintf("r.journal_id = $%d", next()))
		args = append(args, *filter.JournalID)
	}
	if filter.PublicationYear != nil {
		conditions = append(conditions, fmt.Sprintf("r.publication_year = $%d", next()))
		args = append(args, *filter.PublicationYear)
	}

	// Visibility scope: the caller's teams, optionally widened with public rows.
	switch {
	case len(filter.TeamIDs) > 0 && filter.IncludePublic:
		conditions = append(conditions, fmt.Sprintf("(r.team_id = ANY($%d) OR r.team_id IS NULL)", next()))
		args = append(args, pq.Array(filter.TeamIDs))
	case len(filter.TeamIDs) > 0:
		conditions = append(conditions, fmt.Sprintf("r.team_id = ANY($%d)", next()))
		args = append(args, pq.Array(filter.TeamIDs))
	case filter.IncludePublic:
		conditions = append(conditions, "r.team_id IS NULL")
	}

	where := ""
	if len(conditions) > 0 {
		where = " AND " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// List returns references matching the filter with total count.
func (r *ReferenceRepository) List(ctx context.Context, filter models.ReferenceFilter) ([]models.ReferencePaper, int, error) {
	where, args := buildReferenceFilter(filter)

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	listQuery := fmt.Sprintf(`SELECT r.id, r.title, r.authors, r.doi, r.file_path, r.publication_year, r.category_id, r.journal_id, r.team_id, r.created_by_id, r.created_at, r.updated_at
		FROM reference_papers r WHERE 1=1%s ORDER BY r.created_at DESC LIMIT %d OFFSET %d`, where, limit, skip)

	var references []models.ReferencePaper
	if err := r.db.SelectContext(ctx, &references, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list references: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM reference_papers r WHERE 1=1%s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count references: %w", err)
	}
	return references, total, nil
}

// Update updates mutable fields of a reference.
// UpdateWithLinks writes the reference row and swaps its keyword links in one
// transaction. A nil slice leaves the links untouched.
func (r *ReferenceRepository) UpdateWithLinks(ctx context.Context, reference *models.ReferencePaper, keywordIDs *[]int64) error {
	reference.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update reference: %w", err)
	}
	defer tx.Rollback()

	const query = `UPDATE reference_papers SET title = :title, authors = :authors, doi = :doi, publication_year = :publication_year,
		category_id = :category_id, journal_id = :journal_id, team_id = :team_id, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, reference); err != nil {
		return fmt.Errorf("update reference: %w", err)
	}

	if keywordIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reference_paper_keywords WHERE reference_paper_id = $1`, reference.ID); err != nil {
			return fmt.Errorf("clear reference keywords: %w", err)
		}
		if err := insertReferenceKeywords(ctx, tx, reference.ID, *keywordIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update reference: %w", err)
	}
	return nil
}

// UpdateFilePath stores the uploaded file location.
func (r *ReferenceRepository) UpdateFilePath(ctx context.Context, id int64, filePath *string) error {
	const query = `UPDATE reference_papers SET file_path = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, filePath, time.Now().UTC()); err != nil {
		return fmt.Errorf("update reference file path: %w", err)
	}
	return nil
}

// Delete removes a reference with its keyword links in one transaction.
func (r *ReferenceRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete reference: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`DELETE FROM reference_paper_keywords WHERE reference_paper_id = $1`,
		`DELETE FROM reference_papers WHERE id = $1`,
	}
	for _, stmt := range steps {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete reference: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete reference: %w", err)
	}
	return nil
}
