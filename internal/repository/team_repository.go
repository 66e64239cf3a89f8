package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/paperdesk/paperdesk/internal/models"
)

// TeamRepository provides database access for teams and memberships.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository creates a new instance of TeamRepository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = `id, name, description, creator_id, is_active, created_at, updated_at`

// Create inserts a team and enrolls the creator as OWNER in one transaction.
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	now := time.Now().UTC()
	team.CreatedAt = now
	team.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create team: %w", err)
	}
	defer tx.Rollback()

	const insertTeam = `INSERT INTO teams (name, description, creator_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := tx.QueryRowxContext(ctx, insertTeam,
		team.Name, team.Description, team.CreatorID, team.IsActive, team.CreatedAt, team.UpdatedAt,
	).Scan(&team.ID); err != nil {
		return fmt.Errorf("create team: %w", err)
	}

	const insertOwner = `INSERT INTO team_users (team_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insertOwner, team.ID, team.CreatorID, models.TeamRoleOwner, now); err != nil {
		return fmt.Errorf("enroll team owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create team: %w", err)
	}
	return nil
}

// FindByID returns a team by identifier.
func (r *TeamRepository) FindByID(ctx context.Context, id int64) (*models.Team, error) {
	query := fmt.Sprintf(`SELECT %s FROM teams WHERE id = $1 LIMIT 1`, teamColumns)
	var team models.Team
	if err := r.db.GetContext(ctx, &team, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find team by id: %w", err)
	}
	return &team, nil
}

// ExistsByName reports whether a team with the given name exists.
func (r *TeamRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM teams WHERE name = $1)`
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		return false, fmt.Errorf("team exists by name: %w", err)
	}
	return exists, nil
}

// ListForUser returns the teams the user belongs to, with total count.
func (r *TeamRepository) ListForUser(ctx context.Context, userID int64, skip, limit int) ([]models.Team, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	listQuery := fmt.Sprintf(`SELECT t.id, t.name, t.description, t.creator_id, t.is_active, t.created_at, t.updated_at FROM teams t
		JOIN team_users tu ON tu.team_id = t.id
		WHERE tu.user_id = $1
		ORDER BY t.created_at DESC LIMIT %d OFFSET %d`, limit, skip)

	var teams []models.Team
	if err := r.db.SelectContext(ctx, &teams, listQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("list teams for user: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM teams t JOIN team_users tu ON tu.team_id = t.id WHERE tu.user_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count teams for user: %w", err)
	}
	return teams, total, nil
}

// ListAll returns every team, for superuser listings.
func (r *TeamRepository) ListAll(ctx context.Context, skip, limit int) ([]models.Team, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	listQuery := fmt.Sprintf(`SELECT %s FROM teams ORDER BY created_at DESC LIMIT %d OFFSET %d`, teamColumns, limit, skip)

	var teams []models.Team
	if err := r.db.SelectContext(ctx, &teams, listQuery); err != nil {
		return nil, 0, fmt.Errorf("list teams: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM teams`); err != nil {
		return nil, 0, fmt.Errorf("count teams: %w", err)
	}
	return teams, total, nil
}

// Update updates mutable fields of a team.
func (r *TeamRepository) Update(ctx context.Context, team *models.Team) error {
	team.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teams SET name = :name, description = :description, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, team); err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	return nil
}

// DeleteCascade removes a team together with its memberships, reference
// categories, references and papers inside one transaction. It returns the
// stored file paths of the deleted references and papers so the caller can
// remove the files after the transaction commits.
func (r *TeamRepository) DeleteCascade(ctx context.Context, teamID int64) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete team: %w", err)
	}
	defer tx.Rollback()

	var filePaths []string
	const selectReferenceFiles = `SELECT file_path FROM reference_papers WHERE team_id = $1 AND file_path IS NOT NULL`
	if err := tx.SelectContext(ctx, &filePaths, selectReferenceFiles, teamID); err != nil {
		return nil, fmt.Errorf("collect reference files: %w", err)
	}
	var paperPaths []string
	const selectPaperFiles = `SELECT file_path FROM papers WHERE team_id = $1 AND file_path IS NOT NULL`
	if err := tx.SelectContext(ctx, &paperPaths, selectPaperFiles, teamID); err != nil {
		return nil, fmt.Errorf("collect paper files: %w", err)
	}
	filePaths = append(filePaths, paperPaths...)

	steps := []string{
		`DELETE FROM reference_paper_keywords WHERE reference_paper_id IN (SELECT id FROM reference_papers WHERE team_id = $1)`,
		`DELETE FROM reference_papers WHERE team_id = $1`,
		`DELETE FROM reference_categories WHERE team_id = $1`,
		`DELETE FROM paper_authors WHERE paper_id IN (SELECT id FROM papers WHERE team_id = $1)`,
		`DELETE FROM paper_keywords WHERE paper_id IN (SELECT id FROM papers WHERE team_id = $1)`,
		`DELETE FROM papers WHERE team_id = $1`,
		`DELETE FROM team_users WHERE team_id = $1`,
		`DELETE FROM teams WHERE id = $1`,
	}
	for _, stmt := range steps {
		if _, err := tx.ExecContext(ctx, stmt, teamID); err != nil {
			return nil, fmt.Errorf("delete team cascade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete team: %w", err)
	}
	return filePaths, nil
}

// FindMember returns the membership row for a user in a team.
func (r *TeamRepository) FindMember(ctx context.Context, teamID, userID int64) (*models.TeamUser, error) {
	const query = `SELECT team_id, user_id, role, joined_at FROM team_users WHERE team_id = $1 AND user_id = $2 LIMIT 1`
	var member models.TeamUser
	if err := r.db.GetContext(ctx, &member, query, teamID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find team member: %w", err)
	}
	return &member, nil
}

// ListMembers returns the members of a team with user details.
func (r *TeamRepository) ListMembers(ctx context.Context, teamID int64) ([]models.TeamMember, error) {
	const query = `SELECT tu.user_id, u.username, u.full_name, u.email, tu.role, tu.joined_at
		FROM team_users tu
		JOIN users u ON u.id = tu.user_id
		WHERE tu.team_id = $1
		ORDER BY tu.joined_at ASC`
	var members []models.TeamMember
	if err := r.db.SelectContext(ctx, &members, query, teamID); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}

// AddMember enrolls a user into a team with the given role.
func (r *TeamRepository) AddMember(ctx context.Context, member *models.TeamUser) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO team_users (team_id, user_id, role, joined_at) VALUES (:team_id, :user_id, :role, :joined_at)`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}

// UpdateMemberRole changes the role of an existing membership.
func (r *TeamRepository) UpdateMemberRole(ctx context.Context, teamID, userID int64, role models.TeamRole) error {
	const query = `UPDATE team_users SET role = $3 WHERE team_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, teamID, userID, role); err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row.
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID int64) error {
	const query = `DELETE FROM team_users WHERE team_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, teamID, userID); err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	return nil
}

// TeamIDsForUser returns the IDs of all teams the user belongs to.
func (r *TeamRepository) TeamIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	const query = `SELECT team_id FROM team_users WHERE user_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("team ids for user: %w", err)
	}
	return ids, nil
}
