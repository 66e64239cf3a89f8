package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/models"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
)

type mockCategoryRepo struct {
	categories  map[int64]*models.Category
	paperCounts map[int64]int
	nextID      int64
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{
		categories:  make(map[int64]*models.Category),
		paperCounts: make(map[int64]int),
		nextID:      1,
	}
}

func (m *mockCategoryRepo) add(name string, parentID *int64) *models.Category {
	category := &models.Category{ID: m.nextID, Name: name, ParentID: parentID}
	m.categories[category.ID] = category
	m.nextID++
	return category
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	category.ID = m.nextID
	m.nextID++
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepo) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	if c, ok := m.categories[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCategoryRepo) ExistsByNameAndParent(ctx context.Context, name string, parentID *int64, excludeID int64) (bool, error) {
	for _, c := range m.categories {
		if c.ID == excludeID || c.Name != name {
			continue
		}
		if (c.ParentID == nil) != (parentID == nil) {
			continue
		}
		if c.ParentID == nil || *c.ParentID == *parentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCategoryRepo) List(ctx context.Context, parentID *int64, rootsOnly bool) ([]models.Category, error) {
	var result []models.Category
	for _, c := range m.categories {
		switch {
		case parentID != nil:
			if c.ParentID != nil && *c.ParentID == *parentID {
				result = append(result, *c)
			}
		case rootsOnly:
			if c.ParentID == nil {
				result = append(result, *c)
			}
		default:
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCategoryRepo) ChildIDs(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	for _, c := range m.categories {
		if c.ParentID != nil && *c.ParentID == id {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (m *mockCategoryRepo) HasChildren(ctx context.Context, id int64) (bool, error) {
	ids, _ := m.ChildIDs(ctx, id)
	return len(ids) > 0, nil
}

func (m *mockCategoryRepo) CountPapersIn(ctx context.Context, ids []int64) (int, error) {
	total := 0
	for _, id := range ids {
		total += m.paperCounts[id]
	}
	return total, nil
}

func (m *mockCategoryRepo) CountPapers(ctx context.Context, id int64) (int, error) {
	return m.paperCounts[id], nil
}

func (m *mockCategoryRepo) Update(ctx context.Context, category *models.Category) error {
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepo) Delete(ctx context.Context, id int64) error {
	delete(m.categories, id)
	return nil
}

func newCategoryService(repo categoryRepository) *CategoryService {
	return NewCategoryService(repo, nil, 0, validator.New(), zap.NewNop())
}

var superuser = &models.User{ID: 1, Username: "root", IsSuperuser: true}

func TestDescendantIDsWalksSubtree(t *testing.T) {
	repo := newMockCategoryRepo()
	root := repo.add("cs", nil)
	ml := repo.add("ml", &root.ID)
	dl := repo.add("dl", &ml.ID)
	repo.add("db", &root.ID)
	repo.add("bio", nil)

	svc := newCategoryService(repo)
	ids, err := svc.DescendantIDs(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 4)
	assert.Contains(t, ids, dl.ID)
	assert.NotContains(t, ids, int64(5))
}

func TestDescendantIDsSurvivesCycle(t *testing.T) {
	repo := newMockCategoryRepo()
	a := repo.add("a", nil)
	b := repo.add("b", &a.ID)
	// Corrupt the chain: a's parent points back at b.
	a.ParentID = &b.ID

	svc := newCategoryService(repo)
	ids, err := svc.DescendantIDs(context.Background(), a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, ids)
}

func TestAncestorIDsDetectsCycle(t *testing.T) {
	repo := newMockCategoryRepo()
	a := repo.add("a", nil)
	b := repo.add("b", &a.ID)
	a.ParentID = &b.ID

	svc := newCategoryService(repo)
	_, err := svc.AncestorIDs(context.Background(), a.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErr.Code)
}

func TestUpdateRejectsMoveUnderDescendant(t *testing.T) {
	repo := newMockCategoryRepo()
	root := repo.add("cs", nil)
	ml := repo.add("ml", &root.ID)
	dl := repo.add("dl", &ml.ID)

	svc := newCategoryService(repo)
	_, err := svc.Update(context.Background(), superuser, root.ID, UpdateCategoryRequest{ParentID: &dl.ID})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErr.Code)
}

func TestUpdateRenameOnlyKeepsParent(t *testing.T) {
	repo := newMockCategoryRepo()
	root := repo.add("cs", nil)
	child := repo.add("nlp", &root.ID)

	svc := newCategoryService(repo)
	name := "nlp-renamed"
	updated, err := svc.Update(context.Background(), superuser, child.ID, UpdateCategoryRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "nlp-renamed", updated.Name)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, root.ID, *updated.ParentID)
}

func TestUpdateClearParentPromotesToRoot(t *testing.T) {
	repo := newMockCategoryRepo()
	root := repo.add("cs", nil)
	child := repo.add("nlp", &root.ID)

	svc := newCategoryService(repo)
	updated, err := svc.Update(context.Background(), superuser, child.ID, UpdateCategoryRequest{ClearParent: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	repo := newMockCategoryRepo()
	root := repo.add("cs", nil)

	svc := newCategoryService(repo)
	_, err := svc.Update(context.Background(), superuser, root.ID, UpdateCategoryRequest{ParentID: &root.ID})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErr.Code)
}

func TestCreateRejectsSiblingNameConflict(t *testing.T) {
	repo := newMockCategoryRepo()
	root := repo.add("cs", nil)
	repo.add("ml", &root.ID)

	svc := newCategoryService(repo)
	_, err := svc.Create(context.Background(), superuser, CategoryRequest{Name: "ml", ParentID: &root.ID})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCreateCategoryRequiresSuperuser(t *testing.T) {
	repo := newMockCategoryRepo()
	svc := newCategoryService(repo)

	_, err := svc.Create(context.Background(), &models.User{ID: 2, Username: "bob"}, CategoryRequest{Name: "cs"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestDeleteCategoryWithChildrenFails(t *testing.T) {
	repo := newMockCategoryRepo()
	root := repo.add("cs", nil)
	repo.add("ml", &root.ID)

	svc := newCategoryService(repo)
	err := svc.Delete(context.Background(), superuser, root.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErr.Code)
}

func TestDeleteCategoryWithPapersFails(t *testing.T) {
	repo := newMockCategoryRepo()
	root := repo.add("cs", nil)
	repo.paperCounts[root.ID] = 3

	svc := newCategoryService(repo)
	err := svc.Delete(context.Background(), superuser, root.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErr.Code)
}

func TestListWithStatsCountsSubtreePapers(t *testing.T) {
	repo := newMockCategoryRepo()
	root := repo.add("cs", nil)
	ml := repo.add("ml", &root.ID)
	repo.add("bio", nil)
	repo.paperCounts[root.ID] = 1
	repo.paperCounts[ml.ID] = 2

	svc := newCategoryService(repo)
	categories, err := svc.List(context.Background(), nil, true, true)
	require.NoError(t, err)
	require.Len(t, categories, 2)

	byName := make(map[string]models.CategoryRead)
	for _, c := range categories {
		byName[c.Name] = c
	}
	require.NotNil(t, byName["cs"].PaperCount)
	assert.Equal(t, 3, *byName["cs"].PaperCount)
	assert.Equal(t, 0, *byName["bio"].PaperCount)
}

func TestListWithoutStatsOmitsCounts(t *testing.T) {
	repo := newMockCategoryRepo()
	repo.add("cs", nil)

	svc := newCategoryService(repo)
	categories, err := svc.List(context.Background(), nil, false, false)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Nil(t, categories[0].PaperCount)
}
