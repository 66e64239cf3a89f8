package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/paperdesk/internal/models"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
)

type mockRefCategoryRepo struct {
	categories map[int64]*models.ReferenceCategory
	refCount   map[int64]int
	nextID     int64
}

func newMockRefCategoryRepo() *mockRefCategoryRepo {
	return &mockRefCategoryRepo{
		categories: make(map[int64]*models.ReferenceCategory),
		refCount:   make(map[int64]int),
	}
}

func (m *mockRefCategoryRepo) add(teamID int64, name string, parentID *int64) *models.ReferenceCategory {
	m.nextID++
	category := &models.ReferenceCategory{ID: m.nextID, Name: name, ParentID: parentID, TeamID: teamID}
	m.categories[category.ID] = category
	return category
}

func (m *mockRefCategoryRepo) Create(_ context.Context, category *models.ReferenceCategory) error {
	m.nextID++
	category.ID = m.nextID
	copied := *category
	m.categories[category.ID] = &copied
	return nil
}

func (m *mockRefCategoryRepo) FindByID(_ context.Context, id int64) (*models.ReferenceCategory, error) {
	category, ok := m.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *category
	return &copied, nil
}

func (m *mockRefCategoryRepo) ExistsByNameAndParent(_ context.Context, teamID int64, name string, parentID *int64, excludeID int64) (bool, error) {
	for _, category := range m.categories {
		if category.ID == excludeID || category.TeamID != teamID || category.Name != name {
			continue
		}
		if (category.ParentID == nil) != (parentID == nil) {
			continue
		}
		if parentID == nil || *category.ParentID == *parentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRefCategoryRepo) List(_ context.Context, teamID int64, parentID *int64, rootsOnly bool) ([]models.ReferenceCategory, error) {
	var out []models.ReferenceCategory
	for _, category := range m.categories {
		if category.TeamID != teamID {
			continue
		}
		if rootsOnly && category.ParentID != nil {
			continue
		}
		if parentID != nil && (category.ParentID == nil || *category.ParentID != *parentID) {
			continue
		}
		out = append(out, *category)
	}
	return out, nil
}

func (m *mockRefCategoryRepo) ChildIDs(_ context.Context, id int64) ([]int64, error) {
	var out []int64
	for _, category := range m.categories {
		if category.ParentID != nil && *category.ParentID == id {
			out = append(out, category.ID)
		}
	}
	return out, nil
}

func (m *mockRefCategoryRepo) HasChildren(ctx context.Context, id int64) (bool, error) {
	children, _ := m.ChildIDs(ctx, id)
	return len(children) > 0, nil
}

func (m *mockRefCategoryRepo) CountReferencesIn(_ context.Context, ids []int64) (int, error) {
	total := 0
	for _, id := range ids {
		total += m.refCount[id]
	}
	return total, nil
}

func (m *mockRefCategoryRepo) CountReferences(_ context.Context, id int64) (int, error) {
	return m.refCount[id], nil
}

func (m *mockRefCategoryRepo) Update(_ context.Context, category *models.ReferenceCategory) error {
	copied := *category
	m.categories[category.ID] = &copied
	return nil
}

func (m *mockRefCategoryRepo) Delete(_ context.Context, id int64) error {
	delete(m.categories, id)
	return nil
}

type refCategoryFixture struct {
	repo    *mockRefCategoryRepo
	teams   *mockRefTeamGuard
	service *ReferenceCategoryService
}

func newRefCategoryFixture() *refCategoryFixture {
	f := &refCategoryFixture{
		repo:  newMockRefCategoryRepo(),
		teams: &mockRefTeamGuard{members: make(map[int64]map[int64]models.TeamRole)},
	}
	f.service = NewReferenceCategoryService(f.repo, f.teams, nil, 0, nil, nil)
	return f
}

func (f *refCategoryFixture) enroll(teamID, userID int64, role models.TeamRole) {
	if f.teams.members[teamID] == nil {
		f.teams.members[teamID] = make(map[int64]models.TeamRole)
	}
	f.teams.members[teamID][userID] = role
}

func TestCreateReferenceCategoryRequiresAdmin(t *testing.T) {
	f := newRefCategoryFixture()
	member := &models.User{ID: 5, Username: "mara"}
	admin := &models.User{ID: 6, Username: "jun"}
	f.enroll(1, member.ID, models.TeamRoleMember)
	f.enroll(1, admin.ID, models.TeamRoleAdmin)

	_, err := f.service.Create(context.Background(), member, ReferenceCategoryRequest{Name: "Systems", TeamID: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	category, err := f.service.Create(context.Background(), admin, ReferenceCategoryRequest{Name: "Systems", TeamID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), category.TeamID)
}

func TestCreateReferenceCategoryParentSameTeam(t *testing.T) {
	f := newRefCategoryFixture()
	admin := &models.User{ID: 6, Username: "jun"}
	f.enroll(1, admin.ID, models.TeamRoleAdmin)
	foreign := f.repo.add(2, "Foreign", nil)

	_, err := f.service.Create(context.Background(), admin, ReferenceCategoryRequest{Name: "Child", TeamID: 1, ParentID: &foreign.ID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErrors.FromError(err).Code)
}

func TestReferenceCategoryTeamBindingImmutable(t *testing.T) {
	f := newRefCategoryFixture()
	admin := &models.User{ID: 6, Username: "jun"}
	f.enroll(1, admin.ID, models.TeamRoleAdmin)
	f.enroll(2, admin.ID, models.TeamRoleAdmin)
	category := f.repo.add(1, "Systems", nil)

	team := int64(2)
	_, err := f.service.Update(context.Background(), admin, category.ID, UpdateReferenceCategoryRequest{TeamID: &team})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErrors.FromError(err).Code)
}

func TestReferenceCategoryRenameOnlyKeepsParent(t *testing.T) {
	f := newRefCategoryFixture()
	admin := &models.User{ID: 6, Username: "jun"}
	f.enroll(1, admin.ID, models.TeamRoleAdmin)
	root := f.repo.add(1, "Systems", nil)
	child := f.repo.add(1, "Kernels", &root.ID)

	name := "Schedulers"
	updated, err := f.service.Update(context.Background(), admin, child.ID, UpdateReferenceCategoryRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Schedulers", updated.Name)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, root.ID, *updated.ParentID)
}

func TestReferenceCategoryClearParentPromotesToRoot(t *testing.T) {
	f := newRefCategoryFixture()
	admin := &models.User{ID: 6, Username: "jun"}
	f.enroll(1, admin.ID, models.TeamRoleAdmin)
	root := f.repo.add(1, "Systems", nil)
	child := f.repo.add(1, "Kernels", &root.ID)

	updated, err := f.service.Update(context.Background(), admin, child.ID, UpdateReferenceCategoryRequest{ClearParent: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)
}

func TestReferenceCategoryDescendantsScopedWalk(t *testing.T) {
	f := newRefCategoryFixture()
	member := &models.User{ID: 5, Username: "mara"}
	f.enroll(1, member.ID, models.TeamRoleMember)
	root := f.repo.add(1, "Root", nil)
	child := f.repo.add(1, "Child", &root.ID)
	f.repo.add(1, "Grandchild", &child.ID)
	f.repo.add(1, "Sibling", nil)

	ids, err := f.service.DescendantIDs(context.Background(), member, root.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Contains(t, ids, root.ID)
	assert.Contains(t, ids, child.ID)
}

func TestReferenceCategoryDeleteProtected(t *testing.T) {
	f := newRefCategoryFixture()
	admin := &models.User{ID: 6, Username: "jun"}
	f.enroll(1, admin.ID, models.TeamRoleAdmin)
	root := f.repo.add(1, "Root", nil)
	child := f.repo.add(1, "Child", &root.ID)

	err := f.service.Delete(context.Background(), admin, root.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErrors.FromError(err).Code)

	f.repo.refCount[child.ID] = 3
	err = f.service.Delete(context.Background(), admin, child.ID)
	require.Error(t, err)

	f.repo.refCount[child.ID] = 0
	require.NoError(t, f.service.Delete(context.Background(), admin, child.ID))
	require.NoError(t, f.service.Delete(context.Background(), admin, root.ID))
}

func TestReferenceCategoryReadsRequireMembership(t *testing.T) {
	f := newRefCategoryFixture()
	outsider := &models.User{ID: 9, Username: "zoe"}
	category := f.repo.add(1, "Systems", nil)

	_, err := f.service.Get(context.Background(), outsider, category.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReferenceCategoryListStatsRecursive(t *testing.T) {
	f := newRefCategoryFixture()
	member := &models.User{ID: 4, Username: "mia"}
	f.enroll(1, member.ID, models.TeamRoleMember)

	root := f.repo.add(1, "Reading", nil)
	child := f.repo.add(1, "Surveys", &root.ID)
	f.repo.refCount[root.ID] = 2
	f.repo.refCount[child.ID] = 5

	categories, err := f.service.List(context.Background(), member, 1, nil, true, true)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	require.NotNil(t, categories[0].ReferenceCount)
	assert.Equal(t, 7, *categories[0].ReferenceCount)
}
