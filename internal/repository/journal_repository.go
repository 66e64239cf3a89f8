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

// JournalRepository provides database access for journals.
type JournalRepository struct {
	db *sqlx.DB
}

// NewJournalRepository creates a new instance of JournalRepository.
func NewJournalRepository(db *sqlx.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

const journalColumns = `id, name, grade, description, created_at, updated_at`

// Create inserts a journal and fills the generated ID.
func (r *JournalRepository) Create(ctx context.Context, journal *models.Journal) error {
	now := time.Now().UTC()
	journal.CreatedAt = now
	journal.UpdatedAt = now
	const query = `INSERT INTO journals (name, grade, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		journal.Name, journal.Grade, journal.Description, journal.CreatedAt, journal.UpdatedAt,
	).Scan(&journal.ID); err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	return nil
}

// FindByID returns a journal by identifier.
func (r *JournalRepository) FindByID(ctx context.Context, id int64) (*models.Journal, error) {
	query := fmt.Sprintf(`SELECT %s FROM journals WHERE id = $1 LIMIT 1`, journalColumns)
	var journal models.Journal
	if err := r.db.GetContext(ctx, &journal, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find journal by id: %w", err)
	}
	return &journal, nil
}

// ExistsByName reports whether a journal with the given name exists.
// Pass excludeID > 0 to ignore a journal during rename.
func (r *JournalRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM journals WHERE name = $1 AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, name, excludeID); err != nil {
		return false, fmt.Errorf("journal exists by name: %w", err)
	}
	return exists, nil
}

// List returns journals matching the filter with total count.
func (r *JournalRepository) List(ctx context.Context, filter models.JournalFilter) ([]models.Journal, int, error) {
	base := `FROM journals WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", journalColumns, base, limit, skip)
	var journals []models.Journal
	if err := r.db.SelectContext(ctx, &journals, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list journals: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count journals: %w", err)
	}
	return journals, total, nil
}

// Search returns journals whose name contains the query, capped by limit.
func (r *JournalRepository) Search(ctx context.Context, query string, limit int) ([]models.Journal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := fmt.Sprintf(`SELECT %s FROM journals WHERE LOWER(name) LIKE $1 ORDER BY name ASC LIMIT %d`, journalColumns, limit)
	var journals []models.Journal
	if err := r.db.SelectContext(ctx, &journals, q, "%"+strings.ToLower(query)+"%"); err != nil {
		return nil, fmt.Errorf("search journals: %w", err)
	}
	return journals, nil
}

// Update updates mutable fields of a journal.
func (r *JournalRepository) Update(ctx context.Context, journal *models.Journal) error {
	journal.UpdatedAt = time.Now().UTC()
	const query = `UPDATE journals SET name = :name, grade = :grade, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, journal); err != nil {
		return fmt.Errorf("update journal: %w", err)
	}
	return nil
}

// Delete removes a journal.
func (r *JournalRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM journals WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete journal: %w", err)
	}
	return nil
}

// CountPapers returns the number of papers referencing the journal.
func (r *JournalRepository) CountPapers(ctx context.Context, id int64) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM papers WHERE journal_id = $1`
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count journal papers: %w", err)
	}
	return count, nil
}

// CountReferences returns the number of references linked to the journal.
func (r *JournalRepository) CountReferences(ctx context.Context, id int64) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM reference_papers WHERE journal_id = $1`
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count journal references: %w", err)
	}
	return count, nil
}
