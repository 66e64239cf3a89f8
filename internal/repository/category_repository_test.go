package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/paperdesk/internal/models"
)

func TestCreateCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectQuery("INSERT INTO categories").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	category := &models.Category{Name: "Machine Learning"}
	err := repo.Create(context.Background(), category)
	require.NoError(t, err)
	assert.Equal(t, int64(2), category.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryChildIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectQuery("SELECT id FROM categories WHERE parent_id").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)).AddRow(int64(5)))

	ids, err := repo.ChildIDs(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategorySiblingNameConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("Machine Learning", nil, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByNameAndParent(context.Background(), "Machine Learning", nil, 0)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
