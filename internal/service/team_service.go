package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/models"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
)

type teamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	FindByID(ctx context.Context, id int64) (*models.Team, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	ListForUser(ctx context.Context, userID int64, skip, limit int) ([]models.Team, int, error)
	ListAll(ctx context.Context, skip, limit int) ([]models.Team, int, error)
	Update(ctx context.Context, team *models.Team) error
	DeleteCascade(ctx context.Context, teamID int64) ([]string, error)
	FindMember(ctx context.Context, teamID, userID int64) (*models.TeamUser, error)
	ListMembers(ctx context.Context, teamID int64) ([]models.TeamMember, error)
	AddMember(ctx context.Context, member *models.TeamUser) error
	UpdateMemberRole(ctx context.Context, teamID, userID int64, role models.TeamRole) error
	RemoveMember(ctx context.Context, teamID, userID int64) error
	TeamIDsForUser(ctx context.Context, userID int64) ([]int64, error)
}

type memberUserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type referenceFileRemover interface {
	Delete(relPath string) error
}

// CreateTeamRequest represents payload for creating a team.
type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description"`
}

// UpdateTeamRequest represents payload for updating a team.
type UpdateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// AddMemberRequest enrolls a user into a team. An omitted role defaults to
// MEMBER.
type AddMemberRequest struct {
	UserID int64           `json:"user_id" validate:"required"`
	Role   models.TeamRole `json:"role"`
}

// UpdateMemberRoleRequest changes a member's role.
type UpdateMemberRoleRequest struct {
	Role models.TeamRole `json:"role" validate:"required"`
}

// TeamService handles team and membership workflows.
type TeamService struct {
	repo      teamRepository
	users     memberUserRepository
	files     referenceFileRemover
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeamService creates an instance of TeamService.
func NewTeamService(repo teamRepository, users memberUserRepository, files referenceFileRemover, validate *validator.Validate, logger *zap.Logger) *TeamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeamService{repo: repo, users: users, files: files, validator: validate, logger: logger}
}

// RequireMember returns the membership for actor in the team. Superusers pass
// without a membership row and get a synthetic OWNER role.
func (s *TeamService) RequireMember(ctx context.Context, actor *models.User, teamID int64) (*models.TeamUser, error) {
	if actor.IsSuperuser {
		return &models.TeamUser{TeamID: teamID, UserID: actor.ID, Role: models.TeamRoleOwner}, nil
	}
	member, err := s.repo.FindMember(ctx, teamID, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not a member of this team")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	return member, nil
}

// RequireAdmin ensures the actor holds ADMIN or OWNER in the team.
func (s *TeamService) RequireAdmin(ctx context.Context, actor *models.User, teamID int64) (*models.TeamUser, error) {
	member, err := s.RequireMember(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	if !member.Role.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "team administrator role required")
	}
	return member, nil
}

// RequireOwner ensures the actor holds OWNER in the team.
func (s *TeamService) RequireOwner(ctx context.Context, actor *models.User, teamID int64) (*models.TeamUser, error) {
	member, err := s.RequireMember(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	if member.Role != models.TeamRoleOwner {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "team owner role required")
	}
	return member, nil
}

// Create creates a team. The creator is enrolled as OWNER atomically.
func (s *TeamService) Create(ctx context.Context, actor *models.User, req CreateTeamRequest) (*models.Team, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid team payload")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check team name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "team name already in use")
	}

	team := &models.Team{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   actor.ID,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, team); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a team with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create team")
	}

	s.logger.Info("team created", zap.Int64("team_id", team.ID), zap.Int64("creator_id", actor.ID))
	return team, nil
}

// Get returns a team the actor can see.
func (s *TeamService) Get(ctx context.Context, actor *models.User, teamID int64) (*models.Team, error) {
	if _, err := s.RequireMember(ctx, actor, teamID); err != nil {
		return nil, err
	}
	return s.find(ctx, teamID)
}

func (s *TeamService) find(ctx context.Context, teamID int64) (*models.Team, error) {
	team, err := s.repo.FindByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	return team, nil
}

// List returns the actor's teams, or every team for superusers.
func (s *TeamService) List(ctx context.Context, actor *models.User, skip, limit int) ([]models.Team, *models.Pagination, error) {
	var (
		teams []models.Team
		total int
		err   error
	)
	if actor.IsSuperuser {
		teams, total, err = s.repo.ListAll(ctx, skip, limit)
	} else {
		teams, total, err = s.repo.ListForUser(ctx, actor.ID, skip, limit)
	}
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teams")
	}
	return teams, models.NewPagination(total, skip, limit), nil
}

// Update patches a team. Admin role required.
func (s *TeamService) Update(ctx context.Context, actor *models.User, teamID int64, req UpdateTeamRequest) (*models.Team, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid team payload")
	}
	if _, err := s.RequireAdmin(ctx, actor, teamID); err != nil {
		return nil, err
	}

	team, err := s.find(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != team.Name {
		exists, err := s.repo.ExistsByName(ctx, *req.Name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check team name")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "team name already in use")
		}
		team.Name = *req.Name
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	if req.IsActive != nil {
		team.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update team")
	}
	return team, nil
}

// Delete removes a team with all members, reference categories, references
// and papers. Owner role required. Stored files of the deleted rows are
// removed after the database transaction commits.
func (s *TeamService) Delete(ctx context.Context, actor *models.User, teamID int64) error {
	if _, err := s.RequireOwner(ctx, actor, teamID); err != nil {
		return err
	}
	if _, err := s.find(ctx, teamID); err != nil {
		return err
	}

	filePaths, err := s.repo.DeleteCascade(ctx, teamID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete team")
	}

	if s.files != nil {
		for _, path := range filePaths {
			if err := s.files.Delete(path); err != nil {
				s.logger.Warn("failed to remove stored file", zap.String("path", path), zap.Error(err))
			}
		}
	}

	s.logger.Info("team deleted", zap.Int64("team_id", teamID), zap.Int("files_removed", len(filePaths)))
	return nil
}

// ListMembers returns the team's members. Membership required.
func (s *TeamService) ListMembers(ctx context.Context, actor *models.User, teamID int64) ([]models.TeamMember, error) {
	if _, err := s.RequireMember(ctx, actor, teamID); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, teamID); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return members, nil
}

// AddMember enrolls a user. Admin role required. The OWNER role cannot be
// granted; it belongs to the creator alone.
func (s *TeamService) AddMember(ctx context.Context, actor *models.User, teamID int64, req AddMemberRequest) (*models.TeamUser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}
	if req.Role == "" {
		req.Role = models.TeamRoleMember
	}
	if !req.Role.Valid() || req.Role == models.TeamRoleOwner {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "role must be ADMIN or MEMBER")
	}
	if _, err := s.RequireAdmin(ctx, actor, teamID); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, teamID); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if _, err := s.repo.FindMember(ctx, teamID, req.UserID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user is already a member")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}

	member := &models.TeamUser{TeamID: teamID, UserID: req.UserID, Role: req.Role}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add member")
	}
	return member, nil
}

// UpdateMemberRole changes a member's role. Admin role required. The OWNER
// role can be neither granted nor revoked.
func (s *TeamService) UpdateMemberRole(ctx context.Context, actor *models.User, teamID, userID int64, req UpdateMemberRoleRequest) (*models.TeamUser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	if !req.Role.Valid() || req.Role == models.TeamRoleOwner {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "role must be ADMIN or MEMBER")
	}
	if _, err := s.RequireAdmin(ctx, actor, teamID); err != nil {
		return nil, err
	}

	member, err := s.repo.FindMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "membership not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	if member.Role == models.TeamRoleOwner {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "the owner role cannot be changed")
	}

	if err := s.repo.UpdateMemberRole(ctx, teamID, userID, req.Role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update member role")
	}
	member.Role = req.Role
	return member, nil
}

// RemoveMember removes a member from the team. Admins may remove others; the
// owner can never be removed, and members cannot remove themselves.
func (s *TeamService) RemoveMember(ctx context.Context, actor *models.User, teamID, userID int64) error {
	if _, err := s.RequireAdmin(ctx, actor, teamID); err != nil {
		return err
	}

	member, err := s.repo.FindMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "membership not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	if member.Role == models.TeamRoleOwner {
		return appErrors.Clone(appErrors.ErrInvalidOperation, "the owner cannot be removed")
	}
	if actor.ID == userID && !actor.IsSuperuser {
		return appErrors.Clone(appErrors.ErrForbidden, "members cannot remove themselves")
	}

	if err := s.repo.RemoveMember(ctx, teamID, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove member")
	}
	return nil
}

// VisibleTeamIDs returns the IDs of teams the actor can read.
func (s *TeamService) VisibleTeamIDs(ctx context.Context, actor *models.User) ([]int64, error) {
	ids, err := s.repo.TeamIDsForUser(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team ids")
	}
	return ids, nil
}
