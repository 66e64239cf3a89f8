package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/models"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
)

type journalRepository interface {
	Create(ctx context.Context, journal *models.Journal) error
	FindByID(ctx context.Context, id int64) (*models.Journal, error)
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
	List(ctx context.Context, filter models.JournalFilter) ([]models.Journal, int, error)
	Search(ctx context.Context, query string, limit int) ([]models.Journal, error)
	Update(ctx context.Context, journal *models.Journal) error
	Delete(ctx context.Context, id int64) error
	CountPapers(ctx context.Context, id int64) (int, error)
	CountReferences(ctx context.Context, id int64) (int, error)
}

// JournalRequest represents payload for creating or updating a journal.
type JournalRequest struct {
	Name        string              `json:"name" validate:"required,min=1,max=255"`
	Grade       models.JournalGrade `json:"grade" validate:"required"`
	Description string              `json:"description"`
}

// JournalService manages the shared journal catalogue. Reads are open to
// every user; mutations are superuser only.
type JournalService struct {
	repo      journalRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewJournalService creates an instance of JournalService.
func NewJournalService(repo journalRepository, validate *validator.Validate, logger *zap.Logger) *JournalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &JournalService{repo: repo, validator: validate, logger: logger}
}

func requireSuperuser(actor *models.User) error {
	if actor == nil || !actor.IsSuperuser {
		return appErrors.Clone(appErrors.ErrForbidden, "superuser privileges required")
	}
	return nil
}

// Create adds a journal to the catalogue.
func (s *JournalService) Create(ctx context.Context, actor *models.User, req JournalRequest) (*models.Journal, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid journal payload")
	}
	if !req.Grade.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown journal grade")
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, name, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check journal name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a journal with this name already exists")
	}

	journal := &models.Journal{Name: name, Grade: req.Grade, Description: req.Description}
	if err := s.repo.Create(ctx, journal); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a journal with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create journal")
	}
	s.logger.Info("journal created", zap.Int64("journal_id", journal.ID), zap.String("grade", string(journal.Grade)))
	return journal, nil
}

// Get returns one journal.
func (s *JournalService) Get(ctx context.Context, id int64) (*models.Journal, error) {
	journal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "journal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal")
	}
	return journal, nil
}

// List returns journals filtered by name fragment and grade.
func (s *JournalService) List(ctx context.Context, filter models.JournalFilter) ([]models.Journal, *models.Pagination, error) {
	if filter.Grade != "" && !filter.Grade.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown journal grade")
	}
	journals, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list journals")
	}
	return journals, models.NewPagination(total, filter.Skip, filter.Limit), nil
}

// Search returns journals whose name matches the query. The query must be at
// least two characters to keep the scan bounded.
func (s *JournalService) Search(ctx context.Context, query string, limit int) ([]models.Journal, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search query must be at least 2 characters")
	}
	journals, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search journals")
	}
	return journals, nil
}

// Grades returns the known grade tiers with their workload base scores.
func (s *JournalService) Grades() []models.GradeInfo {
	grades := models.Grades()
	out := make([]models.GradeInfo, 0, len(grades))
	for _, grade := range grades {
		out = append(out, models.GradeInfo{Grade: grade, Score: GradeScore(grade)})
	}
	return out
}

// Update modifies a journal's name, grade or description.
func (s *JournalService) Update(ctx context.Context, actor *models.User, id int64, req JournalRequest) (*models.Journal, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid journal payload")
	}
	if !req.Grade.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown journal grade")
	}

	journal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check journal name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a journal with this name already exists")
	}

	journal.Name = name
	journal.Grade = req.Grade
	journal.Description = req.Description
	if err := s.repo.Update(ctx, journal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update journal")
	}
	return journal, nil
}

// Delete removes a journal. Blocked while papers or references still point
// at it.
func (s *JournalService) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	papers, err := s.repo.CountPapers(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count papers")
	}
	references, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count references")
	}
	if papers > 0 || references > 0 {
		return appErrors.Clone(appErrors.ErrInvalidOperation, "journal is still referenced by papers or references")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete journal")
	}
	return nil
}
