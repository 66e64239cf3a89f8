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

func TestCreatePaperWithLinks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO papers").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec("INSERT INTO paper_authors").
		WithArgs(int64(5), int64(11), 0.6, true, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO paper_keywords").
		WithArgs(int64(5), int64(21)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	paper := &models.Paper{Title: "Graph Sparsification", TeamID: 3, CreatedByID: 9}
	authors := []models.PaperAuthor{{AuthorID: 11, ContributionRatio: 0.6, IsCorresponding: true, AuthorOrder: 1}}
	err := repo.Create(context.Background(), paper, authors, []int64{21})
	require.NoError(t, err)
	assert.Equal(t, int64(5), paper.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPapersAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "abstract", "publication_date", "doi", "file_path", "category_id", "journal_id", "team_id", "created_by_id", "created_at", "updated_at"}).
		AddRow(int64(5), "Graph Sparsification", "", now, nil, nil, int64(2), nil, int64(3), int64(9), now, now)

	mock.ExpectQuery(`(?s)SELECT p\.id, p\.title.*LOWER\(p\.title\) LIKE.*p\.category_id = ANY.*p\.team_id = ANY`).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM papers`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	filter := models.PaperFilter{
		Title:       "graph",
		CategoryIDs: []int64{2, 4},
		TeamIDs:     []int64{3},
		Limit:       20,
	}
	papers, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPapersMatchesAuthorNameExactly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectQuery(`(?s)SELECT p\.id, p\.title.*a\.name = \$1.*k\.name = \$2`).
		WithArgs("Li", "graphs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM papers`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	filter := models.PaperFilter{AuthorName: "Li", Keyword: "graphs", Limit: 20}
	papers, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Empty(t, papers)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePaperWithLinksSingleTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE papers SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM paper_authors").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO paper_authors").
		WithArgs(int64(5), int64(11), 1.0, true, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM paper_keywords").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO paper_keywords").
		WithArgs(int64(5), int64(31)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	paper := &models.Paper{ID: 5, Title: "Graph Sparsification", TeamID: 3}
	authors := []models.PaperAuthor{{AuthorID: 11, ContributionRatio: 1.0, IsCorresponding: true, AuthorOrder: 1}}
	keywordIDs := []int64{31}
	err := repo.UpdateWithLinks(context.Background(), paper, &authors, &keywordIDs)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePaperWithLinksFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE papers SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM paper_keywords").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO paper_keywords").
		WithArgs(int64(5), int64(31)).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	paper := &models.Paper{ID: 5, Title: "Graph Sparsification", TeamID: 3}
	keywordIDs := []int64{31}
	err := repo.UpdateWithLinks(context.Background(), paper, nil, &keywordIDs)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePaperRemovesLinks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM paper_authors").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM paper_keywords").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM papers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), 5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorsByPaperOrdered(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	rows := sqlmock.NewRows([]string{"author_id", "name", "email", "affiliation", "contribution_ratio", "is_corresponding", "author_order"}).
		AddRow(int64(11), "Ada", nil, nil, 0.6, true, 1).
		AddRow(int64(12), "Ben", nil, nil, 0.4, false, 2)
	mock.ExpectQuery("SELECT pa.author_id, a.name").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	authors, err := repo.AuthorsByPaper(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, "Ada", authors[0].Name)
	assert.Equal(t, 1, authors[0].AuthorOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}
