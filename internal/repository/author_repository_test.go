package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAuthorsLowercasesSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthorRepository(db)

	mock.ExpectQuery(`LOWER\(name\) LIKE \$1`).
		WithArgs("%lindqvist%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM authors`).
		WithArgs("%lindqvist%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	authors, total, err := repo.List(context.Background(), "Lindqvist", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, authors)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
