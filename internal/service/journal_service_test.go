package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/paperdesk/internal/models"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
)

type mockJournalRepo struct {
	journals   map[int64]*models.Journal
	paperCount map[int64]int
	refCount   map[int64]int
	nextID     int64
}

func newMockJournalRepo() *mockJournalRepo {
	return &mockJournalRepo{
		journals:   make(map[int64]*models.Journal),
		paperCount: make(map[int64]int),
		refCount:   make(map[int64]int),
	}
}

func (m *mockJournalRepo) Create(_ context.Context, journal *models.Journal) error {
	m.nextID++
	journal.ID = m.nextID
	copied := *journal
	m.journals[journal.ID] = &copied
	return nil
}

func (m *mockJournalRepo) FindByID(_ context.Context, id int64) (*models.Journal, error) {
	journal, ok := m.journals[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *journal
	return &copied, nil
}

func (m *mockJournalRepo) ExistsByName(_ context.Context, name string, excludeID int64) (bool, error) {
	for _, journal := range m.journals {
		if journal.ID != excludeID && journal.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockJournalRepo) List(_ context.Context, filter models.JournalFilter) ([]models.Journal, int, error) {
	var out []models.Journal
	for _, journal := range m.journals {
		if filter.Grade != "" && journal.Grade != filter.Grade {
			continue
		}
		if filter.Name != "" && !strings.Contains(journal.Name, filter.Name) {
			continue
		}
		out = append(out, *journal)
	}
	return out, len(out), nil
}

func (m *mockJournalRepo) Search(_ context.Context, query string, _ int) ([]models.Journal, error) {
	var out []models.Journal
	for _, journal := range m.journals {
		if strings.Contains(strings.ToLower(journal.Name), strings.ToLower(query)) {
			out = append(out, *journal)
		}
	}
	return out, nil
}

func (m *mockJournalRepo) Update(_ context.Context, journal *models.Journal) error {
	copied := *journal
	m.journals[journal.ID] = &copied
	return nil
}

func (m *mockJournalRepo) Delete(_ context.Context, id int64) error {
	delete(m.journals, id)
	return nil
}

func (m *mockJournalRepo) CountPapers(_ context.Context, id int64) (int, error) {
	return m.paperCount[id], nil
}

func (m *mockJournalRepo) CountReferences(_ context.Context, id int64) (int, error) {
	return m.refCount[id], nil
}

func newJournalService(repo *mockJournalRepo) *JournalService {
	return NewJournalService(repo, nil, nil)
}

func TestCreateJournalRequiresSuperuser(t *testing.T) {
	svc := newJournalService(newMockJournalRepo())
	user := &models.User{ID: 5, Username: "mara"}

	_, err := svc.Create(context.Background(), user, JournalRequest{Name: "Nature", Grade: models.GradeSCIQ1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCreateJournalRejectsUnknownGrade(t *testing.T) {
	svc := newJournalService(newMockJournalRepo())
	root := &models.User{ID: 1, Username: "root", IsSuperuser: true}

	_, err := svc.Create(context.Background(), root, JournalRequest{Name: "Nature", Grade: "SCI_Q9"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJournalNameConflict(t *testing.T) {
	repo := newMockJournalRepo()
	svc := newJournalService(repo)
	root := &models.User{ID: 1, Username: "root", IsSuperuser: true}

	_, err := svc.Create(context.Background(), root, JournalRequest{Name: "Nature", Grade: models.GradeSCIQ1})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), root, JournalRequest{Name: "Nature", Grade: models.GradeSCIQ2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSearchJournalRequiresTwoCharacters(t *testing.T) {
	repo := newMockJournalRepo()
	svc := newJournalService(repo)
	root := &models.User{ID: 1, Username: "root", IsSuperuser: true}
	_, err := svc.Create(context.Background(), root, JournalRequest{Name: "Nature Methods", Grade: models.GradeSCIQ1})
	require.NoError(t, err)

	_, err = svc.Search(context.Background(), "n", 20)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	journals, err := svc.Search(context.Background(), "nat", 20)
	require.NoError(t, err)
	assert.Len(t, journals, 1)
}

func TestDeleteJournalBlockedWhileInUse(t *testing.T) {
	repo := newMockJournalRepo()
	svc := newJournalService(repo)
	root := &models.User{ID: 1, Username: "root", IsSuperuser: true}
	journal, err := svc.Create(context.Background(), root, JournalRequest{Name: "Nature", Grade: models.GradeSCIQ1})
	require.NoError(t, err)

	repo.paperCount[journal.ID] = 2
	err = svc.Delete(context.Background(), root, journal.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErrors.FromError(err).Code)

	repo.paperCount[journal.ID] = 0
	repo.refCount[journal.ID] = 1
	err = svc.Delete(context.Background(), root, journal.ID)
	require.Error(t, err)

	repo.refCount[journal.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), root, journal.ID))
}

func TestGradesListRanked(t *testing.T) {
	svc := newJournalService(newMockJournalRepo())

	grades := svc.Grades()
	require.Len(t, grades, 6)
	assert.Equal(t, models.GradeSCIQ1, grades[0].Grade)
	assert.InDelta(t, 10.0, grades[0].Score, 1e-9)
	assert.Equal(t, models.GradeOther, grades[5].Grade)
	assert.InDelta(t, 1.0, grades[5].Score, 1e-9)
}

func TestUpdateJournalChangesGrade(t *testing.T) {
	repo := newMockJournalRepo()
	svc := newJournalService(repo)
	root := &models.User{ID: 1, Username: "root", IsSuperuser: true}
	journal, err := svc.Create(context.Background(), root, JournalRequest{Name: "IEEE Access", Grade: models.GradeSCIQ2})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), root, journal.ID, JournalRequest{Name: "IEEE Access", Grade: models.GradeSCIQ3})
	require.NoError(t, err)
	assert.Equal(t, models.GradeSCIQ3, updated.Grade)
}
