package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/paperdesk/paperdesk/internal/models"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
)

type mockUserRepo struct {
	byID       map[int64]*models.User
	byUsername map[string]*models.User
	byEmail    map[string]*models.User
	nextID     int64
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{
		byID:       make(map[int64]*models.User),
		byUsername: make(map[string]*models.User),
		byEmail:    make(map[string]*models.User),
		nextID:     1,
	}
	for _, u := range users {
		repo.store(u)
	}
	return repo
}

func (m *mockUserRepo) store(u *models.User) {
	if u.ID == 0 {
		u.ID = m.nextID
	}
	if u.ID >= m.nextID {
		m.nextID = u.ID + 1
	}
	m.byID[u.ID] = u
	m.byUsername[u.Username] = u
	m.byEmail[u.Email] = u
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var users []models.User
	for _, u := range m.byID {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := m.byUsername[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.store(user)
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.store(user)
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	if u, ok := m.byID[id]; ok {
		u.IsActive = false
	}
	return nil
}

func newUserService(repo userRepository) *UserService {
	return NewUserService(repo, validator.New(), zap.NewNop())
}

func TestRegisterUser(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserService(repo)

	user, err := svc.Register(context.Background(), RegisterUserRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		FullName: "Alice",
		Password: "supersecret",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecret")))
}

func TestRegisterUserUsernameConflict(t *testing.T) {
	repo := newMockUserRepo(&models.User{Username: "alice", Email: "alice@example.com"})
	svc := newUserService(repo)

	_, err := svc.Register(context.Background(), RegisterUserRequest{
		Username: "alice",
		Email:    "other@example.com",
		FullName: "Alice",
		Password: "supersecret",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUpdateUserForbiddenForOtherUser(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: 1, Username: "alice", Email: "alice@example.com"},
		&models.User{ID: 2, Username: "bob", Email: "bob@example.com"},
	)
	svc := newUserService(repo)

	name := "Changed"
	_, err := svc.Update(context.Background(), repo.byID[2], 1, UpdateUserRequest{FullName: &name})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestUpdateUserActiveToggleRequiresSuperuser(t *testing.T) {
	user := &models.User{ID: 1, Username: "alice", Email: "alice@example.com", IsActive: true}
	repo := newMockUserRepo(user)
	svc := newUserService(repo)

	inactive := false
	_, err := svc.Update(context.Background(), user, 1, UpdateUserRequest{IsActive: &inactive})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestDeleteUserDeactivates(t *testing.T) {
	admin := &models.User{ID: 1, Username: "root", Email: "root@example.com", IsSuperuser: true}
	target := &models.User{ID: 2, Username: "bob", Email: "bob@example.com", IsActive: true}
	repo := newMockUserRepo(admin, target)
	svc := newUserService(repo)

	err := svc.Delete(context.Background(), admin, 2)
	require.NoError(t, err)
	assert.False(t, repo.byID[2].IsActive)
}
