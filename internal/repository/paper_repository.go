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

// PaperRepository provides database access for papers and their author and
// keyword links.
type PaperRepository struct {
	db *sqlx.DB
}

// NewPaperRepository creates a new instance of PaperRepository.
func NewPaperRepository(db *sqlx.DB) *PaperRepository {
	return &PaperRepository{db: db}
}

const paperColumns = `id, title, abstract, publication_date, doi, file_path, category_id, journal_id, team_id, created_by_id, created_at, updated_at`

// Create inserts a paper together with its author and keyword links in one
// transaction. Author and keyword IDs must already be resolved.
func (r *PaperRepository) Create(ctx context.Context, paper *models.Paper, authors []models.PaperAuthor, keywordIDs []int64) error {
	now := time.Now().UTC()
	paper.CreatedAt = now
	paper.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create paper: %w", err)
	}
	defer tx.Rollback()

	const insertPaper = `INSERT INTO papers (title, abstract, publication_date, doi, file_path, category_id, journal_id, team_id, created_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	if err := tx.QueryRowxContext(ctx, insertPaper,
		paper.Title, paper.Abstract, paper.PublicationDate, paper.DOI, paper.FilePath,
		paper.CategoryID, paper.JournalID, paper.TeamID, paper.CreatedByID, paper.CreatedAt, paper.UpdatedAt,
	).Scan(&paper.ID); err != nil {
		return fmt.Errorf("create paper: %w", err)
	}

	if err := insertPaperLinks(ctx, tx, paper.ID, authors, keywordIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create paper: %w", err)
	}
	return nil
}

func insertPaperLinks(ctx context.Context, tx *sqlx.Tx, paperID int64, authors []models.PaperAuthor, keywordIDs []int64) error {
	const insertAuthor = `INSERT INTO paper_authors (paper_id, author_id, contribution_ratio, is_corresponding, author_order)
		VALUES ($1, $2, $3, $4, $5)`
	for _, link := range authors {
		if _, err := tx.ExecContext(ctx, insertAuthor, paperID, link.AuthorID, link.ContributionRatio, link.IsCorresponding, link.AuthorOrder); err != nil {
			return fmt.Errorf("link paper author: %w", err)
		}
	}

	const insertKeyword = `INSERT INTO paper_keywords (paper_id, keyword_id) VALUES ($1, $2)`
	for _, keywordID := range keywordIDs {
		if _, err := tx.ExecContext(ctx, insertKeyword, paperID, keywordID); err != nil {
			return fmt.Errorf("link paper keyword: %w", err)
		}
	}
	return nil
}

// FindByID returns a paper by identifier.
func (r *PaperRepository) FindByID(ctx context.Context, id int64) (*models.Paper, error) {
	query := fmt.Sprintf(`SELECT %s FROM papers WHERE id = $1 LIMIT 1`, paperColumns)
	var paper models.Paper
	if err := r.db.GetContext(ctx, &paper, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find paper by id: %w", err)
	}
	return &paper, nil
}

// FindByTitleAndTeams returns the first paper with an exact title match
// within the given teams. An empty team set means no team restriction.
func (r *PaperRepository) FindByTitleAndTeams(ctx context.Context, title string, teamIDs []int64) (*models.Paper, error) {
	query := fmt.Sprintf(`SELECT %s FROM papers WHERE title = $1`, paperColumns)
	args := []interface{}{title}
	if len(teamIDs) > 0 {
		query += ` AND team_id = ANY($2)`
		args = append(args, pq.Array(teamIDs))
	}
	query += ` ORDER BY id ASC LIMIT 1`

	var paper models.Paper
	if err := r.db.GetContext(ctx, &paper, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find paper by title: %w", err)
	}
	return &paper, nil
}

// ExistsByDOI reports whether another paper already carries the DOI.
func (r *PaperRepository) ExistsByDOI(ctx context.Context, doi string, excludeID int64) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM papers WHERE doi = $1 AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, doi, excludeID); err != nil {
		return false, fmt.Errorf("paper exists by doi: %w", err)
	}
	return exists, nil
}

// buildPaperFilter renders WHERE conditions for the list query. CategoryIDs
// and TeamIDs are expected to be pre-expanded by the service layer.
func buildPaperFilter(filter models.PaperFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	next := func() int { return len(args) + 1 }

	if filter.Title != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(p.title) LIKE $%d", next()))
		args = append(args, "%"+strings.ToLower(filter.Title)+"%")
	}
	if len(filter.CategoryIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("p.category_id = ANY($%d)", next()))
		args = append(args, pq.Array(filter.CategoryIDs))
	}
	if filter.AuthorName != "" {
		// Exact name match; substring search is reserved for titles.
		conditions = append(conditions, fmt.Sprintf(`EXISTS (SELECT 1 FROM paper_authors pa JOIN authors a ON a.id = pa.author_id
			WHERE pa.paper_id = p.id AND a.name = $%d)`, next()))
		args = append(args, filter.AuthorName)
	}
	if filter.Keyword != "" {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (SELECT 1 FROM paper_keywords pk JOIN keywords k ON k.id = pk.keyword_id
			WHERE pk.paper_id = p.id AND k.name = $%d)`, next()))
		args = append(args, filter.Keyword)
	}
	if filter.JournalID != nil {
		conditions = append(conditions, fmt.Sprintf("p.journal_id = $%d", next()))
		args = append(args, *filter.JournalID)
	}
	if len(filter.TeamIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("p.team_id = ANY($%d)", next()))
		args = append(args, pq.Array(filter.TeamIDs))
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("p.publication_date >= $%d", next()))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("p.publication_date <= $%d", next()))
		args = append(args, *filter.DateTo)
	}

	where := ""
	if len(conditions) > 0 {
		where = " AND " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// List returns papers matching the filter with total count.
func (r *PaperRepository) List(ctx context.Context, filter models.PaperFilter) ([]models.Paper, int, error) {
	where, args := buildPaperFilter(filter)

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	listQuery := fmt.Sprintf(`SELECT p.id, p.title, p.abstract, p.publication_date, p.doi, p.file_path, p.category_id, p.journal_id, p.team_id, p.created_by_id, p.created_at, p.updated_at
		FROM papers p WHERE 1=1%s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, where, limit, skip)

	var papers []models.Paper
	if err := r.db.SelectContext(ctx, &papers, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list papers: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM papers p WHERE 1=1%s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count papers: %w", err)
	}
	return papers, total, nil
}

// Update updates mutable fields of a paper.
// UpdateWithLinks writes the paper row and swaps its link sets in one
// transaction. A nil slice leaves the corresponding links untouched.
func (r *PaperRepository) UpdateWithLinks(ctx context.Context, paper *models.Paper, authors *[]models.PaperAuthor, keywordIDs *[]int64) error {
	paper.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update paper: %w", err)
	}
	defer tx.Rollback()

	const query = `UPDATE papers SET title = :title, abstract = :abstract, publication_date = :publication_date, doi = :doi,
		category_id = :category_id, journal_id = :journal_id, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, paper); err != nil {
		return fmt.Errorf("update paper: %w", err)
	}

	if authors != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM paper_authors WHERE paper_id = $1`, paper.ID); err != nil {
			return fmt.Errorf("clear paper authors: %w", err)
		}
		if err := insertPaperLinks(ctx, tx, paper.ID, *authors, nil); err != nil {
			return err
		}
	}
	if keywordIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM paper_keywords WHERE paper_id = $1`, paper.ID); err != nil {
			return fmt.Errorf("clear paper keywords: %w", err)
		}
		if err := insertPaperLinks(ctx, tx, paper.ID, nil, *keywordIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update paper: %w", err)
	}
	return nil
}

// UpdateFilePath stores the uploaded file location.
func (r *PaperRepository) UpdateFilePath(ctx context.Context, id int64, filePath *string) error {
	const query = `UPDATE papers SET file_path = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, filePath, time.Now().UTC()); err != nil {
		return fmt.Errorf("update paper file path: %w", err)
	}
	return nil
}

// Delete removes a paper with its links in one transaction.
func (r *PaperRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete paper: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`DELETE FROM paper_authors WHERE paper_id = $1`,
		`DELETE FROM paper_keywords WHERE paper_id = $1`,
		`DELETE FROM papers WHERE id = $1`,
	}
	for _, stmt := range steps {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete paper: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete paper: %w", err)
	}
	return nil
}

// AuthorsByPaper returns the ordered author links with author details.
func (r *PaperRepository) AuthorsByPaper(ctx context.Context, paperID int64) ([]models.PaperAuthorRead, error) {
	const query = `SELECT pa.author_id, a.name, a.email, a.affiliation, pa.contribution_ratio, pa.is_corresponding, pa.author_order
		FROM paper_authors pa
		JOIN authors a ON a.id = pa.author_id
		WHERE pa.paper_id = $1
		ORDER BY pa.author_order ASC`
	var authors []models.PaperAuthorRead
	if err := r.db.SelectContext(ctx, &authors, query, paperID); err != nil {
		return nil, fmt.Errorf("authors by paper: %w", err)
	}
	return authors, nil
}

// JournalName returns the journal name for a paper, or nil when unset.
func (r *PaperRepository) JournalName(ctx context.Context, journalID int64) (*string, error) {
	var name string
	const query = `SELECT name FROM journals WHERE id = $1`
	if err := r.db.GetContext(ctx, &name, query, journalID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("journal name: %w", err)
	}
	return &name, nil
}

// RowsByAuthor returns the papers an author contributed to, with journal
// grade. An empty team set means no team restriction.
func (r *PaperRepository) RowsByAuthor(ctx context.Context, authorID int64, teamIDs []int64) ([]models.AuthorPaperRow, error) {
	query := `SELECT p.id AS paper_id, p.title, p.publication_date, pa.contribution_ratio, j.grade
		FROM paper_authors pa
		JOIN papers p ON p.id = pa.paper_id
		LEFT JOIN journals j ON j.id = p.journal_id
		WHERE pa.author_id = $1`
	args := []interface{}{authorID}
	if len(teamIDs) > 0 {
		query += ` AND p.team_id = ANY($2)`
		args = append(args, pq.Array(teamIDs))
	}
	query += ` ORDER BY p.publication_date DESC NULLS LAST`

	var rows []models.AuthorPaperRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("rows by author: %w", err)
	}
	return rows, nil
}

// CoAuthorRows returns every paper-author pair feeding collaboration network
// construction. An empty team set means no team restriction.
func (r *PaperRepository) CoAuthorRows(ctx context.Context, teamIDs []int64) ([]models.CoAuthorRow, error) {
	query := `SELECT pa.paper_id, pa.author_id, a.name AS author_name
		FROM paper_authors pa
		JOIN papers p ON p.id = pa.paper_id
		JOIN authors a ON a.id = pa.author_id`
	var args []interface{}
	if len(teamIDs) > 0 {
		query += ` WHERE p.team_id = ANY($1)`
		args = append(args, pq.Array(teamIDs))
	}
	query += ` ORDER BY pa.paper_id ASC, pa.author_order ASC`

	var rows []models.CoAuthorRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("co-author rows: %w", err)
	}
	return rows, nil
}
