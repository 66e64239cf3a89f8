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

type memberKey struct {
	teamID int64
	userID int64
}

type mockTeamRepo struct {
	teams        map[int64]*models.Team
	members      map[memberKey]*models.TeamUser
	nextID       int64
	cascadeFiles []string
	cascaded     []int64
}

func newMockTeamRepo() *mockTeamRepo {
	return &mockTeamRepo{
		teams:   make(map[int64]*models.Team),
		members: make(map[memberKey]*models.TeamUser),
		nextID:  1,
	}
}

func (m *mockTeamRepo) Create(ctx context.Context, team *models.Team) error {
	team.ID = m.nextID
	m.nextID++
	m.teams[team.ID] = team
	m.members[memberKey{team.ID, team.CreatorID}] = &models.TeamUser{TeamID: team.ID, UserID: team.CreatorID, Role: models.TeamRoleOwner}
	return nil
}

func (m *mockTeamRepo) FindByID(ctx context.Context, id int64) (*models.Team, error) {
	if t, ok := m.teams[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeamRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	for _, t := range m.teams {
		if t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeamRepo) ListForUser(ctx context.Context, userID int64, skip, limit int) ([]models.Team, int, error) {
	var teams []models.Team
	for key, member := range m.members {
		if member.UserID == userID {
			teams = append(teams, *m.teams[key.teamID])
		}
	}
	return teams, len(teams), nil
}

func (m *mockTeamRepo) ListAll(ctx context.Context, skip, limit int) ([]models.Team, int, error) {
	var teams []models.Team
	for _, t := range m.teams {
		teams = append(teams, *t)
	}
	return teams, len(teams), nil
}

func (m *mockTeamRepo) Update(ctx context.Context, team *models.Team) error {
	m.teams[team.ID] = team
	return nil
}

func (m *mockTeamRepo) DeleteCascade(ctx context.Context, teamID int64) ([]string, error) {
	delete(m.teams, teamID)
	for key := range m.members {
		if key.teamID == teamID {
			delete(m.members, key)
		}
	}
	m.cascaded = append(m.cascaded, teamID)
	return m.cascadeFiles, nil
}

func (m *mockTeamRepo) FindMember(ctx context.Context, teamID, userID int64) (*models.TeamUser, error) {
	if member, ok := m.members[memberKey{teamID, userID}]; ok {
		return member, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeamRepo) ListMembers(ctx context.Context, teamID int64) ([]models.TeamMember, error) {
	var members []models.TeamMember
	for key, member := range m.members {
		if key.teamID == teamID {
			members = append(members, models.TeamMember{UserID: member.UserID, Role: member.Role})
		}
	}
	return members, nil
}

func (m *mockTeamRepo) AddMember(ctx context.Context, member *models.TeamUser) error {
	m.members[memberKey{member.TeamID, member.UserID}] = member
	return nil
}

func (m *mockTeamRepo) UpdateMemberRole(ctx context.Context, teamID, userID int64, role models.TeamRole) error {
	if member, ok := m.members[memberKey{teamID, userID}]; ok {
		member.Role = role
	}
	return nil
}

func (m *mockTeamRepo) RemoveMember(ctx context.Context, teamID, userID int64) error {
	delete(m.members, memberKey{teamID, userID})
	return nil
}

func (m *mockTeamRepo) TeamIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for key, member := range m.members {
		if member.UserID == userID {
			ids = append(ids, key.teamID)
		}
	}
	return ids, nil
}

type mockFileRemover struct {
	removed []string
}

func (m *mockFileRemover) Delete(relPath string) error {
	m.removed = append(m.removed, relPath)
	return nil
}

func newTeamService(repo *mockTeamRepo, users memberUserRepository, files referenceFileRemover) *TeamService {
	return NewTeamService(repo, users, files, validator.New(), zap.NewNop())
}

func TestCreateTeamEnrollsCreatorAsOwner(t *testing.T) {
	repo := newMockTeamRepo()
	svc := newTeamService(repo, newMockUserRepo(), nil)
	actor := &models.User{ID: 9, Username: "alice"}

	team, err := svc.Create(context.Background(), actor, CreateTeamRequest{Name: "lab"})
	require.NoError(t, err)
	member, err := repo.FindMember(context.Background(), team.ID, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamRoleOwner, member.Role)
}

func TestAddMemberRejectsOwnerRole(t *testing.T) {
	repo := newMockTeamRepo()
	users := newMockUserRepo(&models.User{ID: 10, Username: "bob", Email: "bob@example.com"})
	svc := newTeamService(repo, users, nil)
	owner := &models.User{ID: 9, Username: "alice"}
	team, err := svc.Create(context.Background(), owner, CreateTeamRequest{Name: "lab"})
	require.NoError(t, err)

	_, err = svc.AddMember(context.Background(), owner, team.ID, AddMemberRequest{UserID: 10, Role: models.TeamRoleOwner})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErr.Code)
}

func TestAddMemberDefaultsRoleToMember(t *testing.T) {
	repo := newMockTeamRepo()
	users := newMockUserRepo(&models.User{ID: 10, Username: "bob", Email: "bob@example.com"})
	svc := newTeamService(repo, users, nil)
	owner := &models.User{ID: 9, Username: "alice"}
	team, err := svc.Create(context.Background(), owner, CreateTeamRequest{Name: "lab"})
	require.NoError(t, err)

	member, err := svc.AddMember(context.Background(), owner, team.ID, AddMemberRequest{UserID: 10})
	require.NoError(t, err)
	assert.Equal(t, models.TeamRoleMember, member.Role)
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	repo := newMockTeamRepo()
	users := newMockUserRepo(&models.User{ID: 10, Username: "bob", Email: "bob@example.com"})
	svc := newTeamService(repo, users, nil)
	owner := &models.User{ID: 9, Username: "alice"}
	team, err := svc.Create(context.Background(), owner, CreateTeamRequest{Name: "lab"})
	require.NoError(t, err)
	repo.members[memberKey{team.ID, 10}] = &models.TeamUser{TeamID: team.ID, UserID: 10, Role: models.TeamRoleMember}

	plainMember := &models.User{ID: 10, Username: "bob"}
	_, err = svc.AddMember(context.Background(), plainMember, team.ID, AddMemberRequest{UserID: 11, Role: models.TeamRoleMember})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestOwnerRoleImmutable(t *testing.T) {
	repo := newMockTeamRepo()
	svc := newTeamService(repo, newMockUserRepo(), nil)
	owner := &models.User{ID: 9, Username: "alice"}
	team, err := svc.Create(context.Background(), owner, CreateTeamRequest{Name: "lab"})
	require.NoError(t, err)

	_, err = svc.UpdateMemberRole(context.Background(), owner, team.ID, owner.ID, UpdateMemberRoleRequest{Role: models.TeamRoleMember})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErr.Code)
}

func TestOwnerCannotBeRemoved(t *testing.T) {
	repo := newMockTeamRepo()
	svc := newTeamService(repo, newMockUserRepo(), nil)
	owner := &models.User{ID: 9, Username: "alice"}
	team, err := svc.Create(context.Background(), owner, CreateTeamRequest{Name: "lab"})
	require.NoError(t, err)

	err = svc.RemoveMember(context.Background(), owner, team.ID, owner.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErr.Code)
}

func TestAdminCannotRemoveSelf(t *testing.T) {
	repo := newMockTeamRepo()
	svc := newTeamService(repo, newMockUserRepo(), nil)
	owner := &models.User{ID: 9, Username: "alice"}
	team, err := svc.Create(context.Background(), owner, CreateTeamRequest{Name: "lab"})
	require.NoError(t, err)
	repo.members[memberKey{team.ID, 10}] = &models.TeamUser{TeamID: team.ID, UserID: 10, Role: models.TeamRoleAdmin}

	admin := &models.User{ID: 10, Username: "bob"}
	err = svc.RemoveMember(context.Background(), admin, team.ID, admin.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestDeleteTeamRemovesStoredFiles(t *testing.T) {
	repo := newMockTeamRepo()
	repo.cascadeFiles = []string{"teams/1/references/1_a.pdf", "teams/1/papers/7_b.pdf"}
	files := &mockFileRemover{}
	svc := newTeamService(repo, newMockUserRepo(), files)
	owner := &models.User{ID: 9, Username: "alice"}
	team, err := svc.Create(context.Background(), owner, CreateTeamRequest{Name: "lab"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), owner, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{team.ID}, repo.cascaded)
	assert.Equal(t, []string{"teams/1/references/1_a.pdf", "teams/1/papers/7_b.pdf"}, files.removed)
}

func TestDeleteTeamRequiresOwner(t *testing.T) {
	repo := newMockTeamRepo()
	svc := newTeamService(repo, newMockUserRepo(), nil)
	owner := &models.User{ID: 9, Username: "alice"}
	team, err := svc.Create(context.Background(), owner, CreateTeamRequest{Name: "lab"})
	require.NoError(t, err)
	repo.members[memberKey{team.ID, 10}] = &models.TeamUser{TeamID: team.ID, UserID: 10, Role: models.TeamRoleAdmin}

	admin := &models.User{ID: 10, Username: "bob"}
	err = svc.Delete(context.Background(), admin, team.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
