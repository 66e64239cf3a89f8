package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/paperdesk/internal/models"
)

func TestCreateTeamEnrollsOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeamRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO teams").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO team_users").
		WithArgs(int64(3), int64(9), models.TeamRoleOwner, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	team := &models.Team{Name: "lab", CreatorID: 9, IsActive: true}
	err := repo.Create(context.Background(), team)
	require.NoError(t, err)
	assert.Equal(t, int64(3), team.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTeamRollsBackOnEnrollFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeamRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO teams").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO team_users").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Team{Name: "lab", CreatorID: 9})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCascadeReturnsFilePaths(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeamRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT file_path FROM reference_papers").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("teams/3/references/1_a.pdf"))
	mock.ExpectQuery("SELECT file_path FROM papers").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("teams/3/papers/7_b.pdf"))
	mock.ExpectExec("DELETE FROM reference_paper_keywords").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM reference_papers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM reference_categories").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM paper_authors").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM paper_keywords").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM papers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM team_users").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM teams").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	paths, err := repo.DeleteCascade(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"teams/3/references/1_a.pdf", "teams/3/papers/7_b.pdf"}, paths)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindMember(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeamRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT team_id, user_id, role, joined_at FROM team_users").
		WithArgs(int64(3), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"team_id", "user_id", "role", "joined_at"}).
			AddRow(int64(3), int64(9), string(models.TeamRoleAdmin), now))

	member, err := repo.FindMember(context.Background(), 3, 9)
	require.NoError(t, err)
	assert.Equal(t, models.TeamRoleAdmin, member.Role)
	assert.True(t, member.Role.IsAdmin())
	assert.NoError(t, mock.ExpectationsWereMet())
}
