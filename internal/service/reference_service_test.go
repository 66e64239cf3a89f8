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

type mockReferenceRepo struct {
	references map[int64]*models.ReferencePaper
	keywords   map[int64][]int64
	nextID     int64
}

func newMockReferenceRepo() *mockReferenceRepo {
	return &mockReferenceRepo{
		references: make(map[int64]*models.ReferencePaper),
		keywords:   make(map[int64][]int64),
	}
}

func (m *mockReferenceRepo) Create(_ context.Context, reference *models.ReferencePaper, keywordIDs []int64) error {
	m.nextID++
	reference.ID = m.nextID
	copied := *reference
	m.references[reference.ID] = &copied
	m.keywords[reference.ID] = keywordIDs
	return nil
}

func (m *mockReferenceRepo) FindByID(_ context.Context, id int64) (*models.ReferencePaper, error) {
	reference, ok := m.references[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *reference
	return &copied, nil
}

func (m *mockReferenceRepo) ExistsByDOI(_ context.Context, doi string, excludeID int64) (bool, error) {
	for _, reference := range m.references {
		if reference.ID != excludeID && reference.DOI != nil && *reference.DOI == doi {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReferenceRepo) List(_ context.Context, filter models.ReferenceFilter) ([]models.ReferencePaper, int, error) {
	var out []models.ReferencePaper
	for _, reference := range m.references {
		if !m.visible(reference, filter) {
			continue
		}
		out = append(out, *reference)
	}
	return out, len(out), nil
}

func (m *mockReferenceRepo) visible(reference *models.ReferencePaper, filter models.ReferenceFilter) bool {
	if len(filter.TeamIDs) == 0 && !filter.IncludePublic {
		return true
	}
	if filter.IncludePublic && reference.TeamID == nil {
		return true
	}
	if reference.TeamID == nil {
		return false
	}
	for _, teamID := range filter.TeamIDs {
		if *reference.TeamID == teamID {
			return true
		}
	}
	return false
}

func (m *mockReferenceRepo) FindByTitleVisible(_ context.Context, title string, teamIDs []int64, includePublic bool) (*models.ReferencePaper, error) {
	filter := models.ReferenceFilter{TeamIDs: teamIDs, IncludePublic: includePublic}
	var match *models.ReferencePaper
	for _, reference := range m.references {
		if reference.Title != title || !m.visible(reference, filter) {
			continue
		}
		if match == nil || reference.ID < match.ID {
			match = reference
		}
	}
	if match == nil {
		return nil, sql.ErrNoRows
	}
	copied := *match
	return &copied, nil
}

func (m *mockReferenceRepo) UpdateWithLinks(_ context.Context, reference *models.ReferencePaper, keywordIDs *[]int64) error {
	copied := *reference
	m.references[reference.ID] = &copied
	if keywordIDs != nil {
		m.keywords[reference.ID] = *keywordIDs
	}
	return nil
}

func (m *mockReferenceRepo) UpdateFilePath(_ context.Context, id int64, filePath *string) error {
	m.references[id].FilePath = filePath
	return nil
}

func (m *mockReferenceRepo) Delete(_ context.Context, id int64) error {
	delete(m.references, id)
	delete(m.keywords, id)
	return nil
}

type mockRefKeywordResolver struct {
	byName map[string]*models.Keyword
	names  map[int64][]string
	nextID int64
}

func newMockRefKeywordResolver() *mockRefKeywordResolver {
	return &mockRefKeywordResolver{byName: make(map[string]*models.Keyword), names: make(map[int64][]string)}
}

func (m *mockRefKeywordResolver) Upsert(_ context.Context, name string) (*models.Keyword, error) {
	if keyword, ok := m.byName[name]; ok {
		return keyword, nil
	}
	m.nextID++
	keyword := &models.Keyword{ID: m.nextID, Name: name}
	m.byName[name] = keyword
	return keyword, nil
}

func (m *mockRefKeywordResolver) NamesByReference(_ context.Context, referenceID int64) ([]string, error) {
	return m.names[referenceID], nil
}

type mockRefCategoryResolver struct {
	categories map[int64]*models.ReferenceCategory
}

func (m *mockRefCategoryResolver) Get(_ context.Context, _ *models.User, id int64) (*models.ReferenceCategoryRead, error) {
	if category, ok := m.categories[id]; ok {
		return &models.ReferenceCategoryRead{ReferenceCategory: *category}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
}

func (m *mockRefCategoryResolver) DescendantIDs(_ context.Context, _ *models.User, id int64) ([]int64, error) {
	return []int64{id}, nil
}

type mockRefTeamGuard struct {
	members map[int64]map[int64]models.TeamRole
}

func (m *mockRefTeamGuard) role(actor *models.User, teamID int64) (models.TeamRole, bool) {
	role, ok := m.members[teamID][actor.ID]
	return role, ok
}

func (m *mockRefTeamGuard) RequireMember(_ context.Context, actor *models.User, teamID int64) (*models.TeamUser, error) {
	if actor.IsSuperuser {
		return &models.TeamUser{TeamID: teamID, UserID: actor.ID, Role: models.TeamRoleOwner}, nil
	}
	if role, ok := m.role(actor, teamID); ok {
		return &models.TeamUser{TeamID: teamID, UserID: actor.ID, Role: role}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "not a member of this team")
}

func (m *mockRefTeamGuard) RequireAdmin(ctx context.Context, actor *models.User, teamID int64) (*models.TeamUser, error) {
	member, err := m.RequireMember(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	if !member.Role.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return member, nil
}

func (m *mockRefTeamGuard) VisibleTeamIDs(_ context.Context, actor *models.User) ([]int64, error) {
	var ids []int64
	for teamID, users := range m.members {
		if _, ok := users[actor.ID]; ok {
			ids = append(ids, teamID)
		}
	}
	return ids, nil
}

type refFixture struct {
	repo       *mockReferenceRepo
	keywords   *mockRefKeywordResolver
	categories *mockRefCategoryResolver
	journals   *mockJournalResolver
	teams      *mockRefTeamGuard
	files      *mockPaperFiles
	service    *ReferenceService
}

type refFileAdapter struct{ *mockPaperFiles }

func (a refFileAdapter) ReferencePath(teamID, referenceID int64, originalName string) string {
	return "teams/refs/" + originalName
}

func newRefFixture() *refFixture {
	f := &refFixture{
		repo:       newMockReferenceRepo(),
		keywords:   newMockRefKeywordResolver(),
		categories: &mockRefCategoryResolver{categories: make(map[int64]*models.ReferenceCategory)},
		journals:   &mockJournalResolver{journals: make(map[int64]*models.Journal)},
		teams:      &mockRefTeamGuard{members: make(map[int64]map[int64]models.TeamRole)},
		files:      newMockPaperFiles(),
	}
	f.service = NewReferenceService(f.repo, f.keywords, f.categories, f.journals, f.teams, refFileAdapter{f.files}, mockSigner{}, nil, nil)
	return f
}

func (f *refFixture) enroll(teamID, userID int64, role models.TeamRole) {
	if f.teams.members[teamID] == nil {
		f.teams.members[teamID] = make(map[int64]models.TeamRole)
	}
	f.teams.members[teamID][userID] = role
}

func TestCreateReferenceForTeam(t *testing.T) {
	f := newRefFixture()
	actor := &models.User{ID: 5, Username: "mara"}
	f.enroll(1, actor.ID, models.TeamRoleMember)

	teamID := int64(1)
	reference, err := f.service.Create(context.Background(), actor, CreateReferenceRequest{
		Title:    "A Survey of Consensus",
		Authors:  "L. Okafor; D. Virtanen",
		TeamID:   &teamID,
		Keywords: []string{"consensus", "raft"},
	})
	require.NoError(t, err)
	require.NotNil(t, reference.TeamID)
	assert.Equal(t, teamID, *reference.TeamID)
	assert.Len(t, f.repo.keywords[reference.ID], 2)
}

func TestCreatePublicReferenceRequiresSuperuser(t *testing.T) {
	f := newRefFixture()
	actor := &models.User{ID: 5, Username: "mara"}
	f.enroll(1, actor.ID, models.TeamRoleMember)

	_, err := f.service.Create(context.Background(), actor, CreateReferenceRequest{Title: "Public"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	root := &models.User{ID: 1, Username: "root", IsSuperuser: true}
	reference, err := f.service.Create(context.Background(), root, CreateReferenceRequest{Title: "Public"})
	require.NoError(t, err)
	assert.Nil(t, reference.TeamID)
}

func TestCreateReferenceRejectsZeroTeamID(t *testing.T) {
	f := newRefFixture()
	root := &models.User{ID: 1, Username: "root", IsSuperuser: true}

	zero := int64(0)
	_, err := f.service.Create(context.Background(), root, CreateReferenceRequest{Title: "T", TeamID: &zero})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateReferenceRejectsForeignCategory(t *testing.T) {
	f := newRefFixture()
	actor := &models.User{ID: 5, Username: "mara"}
	f.enroll(1, actor.ID, models.TeamRoleMember)
	f.categories.categories[7] = &models.ReferenceCategory{ID: 7, Name: "Systems", TeamID: 2}

	teamID := int64(1)
	categoryID := int64(7)
	_, err := f.service.Create(context.Background(), actor, CreateReferenceRequest{
		Title: "T", TeamID: &teamID, CategoryID: &categoryID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErrors.FromError(err).Code)
}

func TestListIncludesPublicReferences(t *testing.T) {
	f := newRefFixture()
	actor := &models.User{ID: 5, Username: "mara"}
	f.enroll(1, actor.ID, models.TeamRoleMember)

	teamID := int64(1)
	mine := &models.ReferencePaper{Title: "Team Ref", TeamID: &teamID, CreatedByID: actor.ID}
	require.NoError(t, f.repo.Create(context.Background(), mine, nil))
	public := &models.ReferencePaper{Title: "Public Ref", CreatedByID: 1}
	require.NoError(t, f.repo.Create(context.Background(), public, nil))
	foreignTeam := int64(2)
	foreign := &models.ReferencePaper{Title: "Foreign Ref", TeamID: &foreignTeam, CreatedByID: 9}
	require.NoError(t, f.repo.Create(context.Background(), foreign, nil))

	references, page, err := f.service.List(context.Background(), actor, models.ReferenceFilter{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	titles := make([]string, 0, len(references))
	for _, reference := range references {
		titles = append(titles, reference.Title)
	}
	assert.ElementsMatch(t, []string{"Team Ref", "Public Ref"}, titles)
}

func TestUpdateReferenceAllowsTeamAdmin(t *testing.T) {
	f := newRefFixture()
	creator := &models.User{ID: 5, Username: "mara"}
	admin := &models.User{ID: 6, Username: "jun"}
	member := &models.User{ID: 7, Username: "ade"}
	f.enroll(1, creator.ID, models.TeamRoleMember)
	f.enroll(1, admin.ID, models.TeamRoleAdmin)
	f.enroll(1, member.ID, models.TeamRoleMember)

	teamID := int64(1)
	reference := &models.ReferencePaper{Title: "Draft", TeamID: &teamID, CreatedByID: creator.ID}
	require.NoError(t, f.repo.Create(context.Background(), reference, nil))

	title := "Renamed"
	_, err := f.service.Update(context.Background(), member, reference.ID, UpdateReferenceRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := f.service.Update(context.Background(), admin, reference.ID, UpdateReferenceRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestUpdateReferenceClearsCategory(t *testing.T) {
	f := newRefFixture()
	creator := &models.User{ID: 5, Username: "mara"}
	f.enroll(1, creator.ID, models.TeamRoleMember)
	f.categories.categories[7] = &models.ReferenceCategory{ID: 7, Name: "Systems", TeamID: 1}

	teamID := int64(1)
	categoryID := int64(7)
	reference := &models.ReferencePaper{Title: "Draft", TeamID: &teamID, CategoryID: &categoryID, CreatedByID: creator.ID}
	require.NoError(t, f.repo.Create(context.Background(), reference, nil))

	updated, err := f.service.Update(context.Background(), creator, reference.ID, UpdateReferenceRequest{ClearCategory: true})
	require.NoError(t, err)
	assert.Nil(t, updated.CategoryID)
}

func TestReferenceDuplicateDOIConflict(t *testing.T) {
	f := newRefFixture()
	root := &models.User{ID: 1, Username: "root", IsSuperuser: true}
	doi := "10.1000/ref"
	existing := &models.ReferencePaper{Title: "Prior", DOI: &doi, CreatedByID: 1}
	require.NoError(t, f.repo.Create(context.Background(), existing, nil))

	_, err := f.service.Create(context.Background(), root, CreateReferenceRequest{Title: "New", DOI: &doi})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReferenceUploadAndDownloadToken(t *testing.T) {
	f := newRefFixture()
	actor := &models.User{ID: 5, Username: "mara"}
	f.enroll(1, actor.ID, models.TeamRoleMember)
	teamID := int64(1)
	reference := &models.ReferencePaper{Title: "Draft", TeamID: &teamID, CreatedByID: actor.ID}
	require.NoError(t, f.repo.Create(context.Background(), reference, nil))

	_, err := f.service.Upload(context.Background(), actor, reference.ID, "scan.docx", strings.NewReader("x"))
	require.Error(t, err)

	updated, err := f.service.Upload(context.Background(), actor, reference.ID, "scan.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	require.NotNil(t, updated.FilePath)

	token, _, err := f.service.DownloadToken(context.Background(), actor, reference.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestPublicReferenceVisibleToAnyUser(t *testing.T) {
	f := newRefFixture()
	outsider := &models.User{ID: 9, Username: "zoe"}
	public := &models.ReferencePaper{Title: "Public Ref", CreatedByID: 1}
	require.NoError(t, f.repo.Create(context.Background(), public, nil))

	reference, err := f.service.Get(context.Background(), outsider, public.ID)
	require.NoError(t, err)
	assert.Equal(t, "Public Ref", reference.Title)

	title := "Hack"
	_, err = f.service.Update(context.Background(), outsider, public.ID, UpdateReferenceRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDeleteReferenceRemovesStoredFile(t *testing.T) {
	f := newRefFixture()
	actor := &models.User{ID: 5, Username: "mara"}
	f.enroll(1, actor.ID, models.TeamRoleMember)
	teamID := int64(1)
	reference := &models.ReferencePaper{Title: "Draft", TeamID: &teamID, CreatedByID: actor.ID}
	require.NoError(t, f.repo.Create(context.Background(), reference, nil))
	_, err := f.service.Upload(context.Background(), actor, reference.ID, "scan.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), actor, reference.ID))
	assert.Contains(t, f.files.deleted, "teams/refs/scan.pdf")
}

func TestReferenceFileByTitleFindsPublic(t *testing.T) {
	f := newRefFixture()
	actor := &models.User{ID: 5, Username: "mara"}
	public := &models.ReferencePaper{Title: "Survey", CreatedByID: 1}
	require.NoError(t, f.repo.Create(context.Background(), public, nil))

	superuser := &models.User{ID: 1, Username: "root", IsSuperuser: true}
	_, err := f.service.Upload(context.Background(), superuser, public.ID, "survey.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	relPath, name, err := f.service.FileByTitle(context.Background(), actor, "Survey", nil)
	require.NoError(t, err)
	assert.Equal(t, "Survey.pdf", name)
	assert.NotEmpty(t, relPath)

	_, _, err = f.service.FileByTitle(context.Background(), actor, "Missing", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
