package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/models"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
	"github.com/paperdesk/paperdesk/pkg/export"
)

type referenceRepository interface {
	Create(ctx context.Context, reference *models.ReferencePaper, keywordIDs []int64) error
	FindByID(ctx context.Context, id int64) (*models.ReferencePaper, error)
	FindByTitleVisible(ctx context.Context, title string, teamIDs []int64, includePublic bool) (*models.ReferencePaper, error)
	ExistsByDOI(ctx context.Context, doi string, excludeID int64) (bool, error)
	List(ctx context.Context, filter models.ReferenceFilter) ([]models.ReferencePaper, int, error)
	UpdateWithLinks(ctx context.Context, reference *models.ReferencePaper, keywordIDs *[]int64) error
	UpdateFilePath(ctx context.Context, id int64, filePath *string) error
	Delete(ctx context.Context, id int64) error
}

type referenceKeywordResolver interface {
	Upsert(ctx context.Context, name string) (*models.Keyword, error)
	NamesByReference(ctx context.Context, referenceID int64) ([]string, error)
}

type referenceCategoryResolver interface {
	Get(ctx context.Context, actor *models.User, id int64) (*models.ReferenceCategoryRead, error)
	DescendantIDs(ctx context.Context, actor *models.User, id int64) ([]int64, error)
}

type referenceTeamGuard interface {
	RequireMember(ctx context.Context, actor *models.User, teamID int64) (*models.TeamUser, error)
	RequireAdmin(ctx context.Context, actor *models.User, teamID int64) (*models.TeamUser, error)
	VisibleTeamIDs(ctx context.Context, actor *models.User) ([]int64, error)
}

type referenceFileStore interface {
	ReferencePath(teamID int64, referenceID int64, originalName string) string
	Replace(relPath, priorPath string, r io.Reader) error
	Path(relPath string) string
	Exists(relPath string) bool
	Delete(relPath string) error
}

type referenceJournalResolver interface {
	FindByID(ctx context.Context, id int64) (*models.Journal, error)
}

// CreateReferenceRequest represents payload for creating a reference. A nil
// TeamID publishes the reference to every user.
type CreateReferenceRequest struct {
	Title           string   `json:"title" validate:"required,min=1,max=512"`
	Authors         string   `json:"authors"`
	DOI             *string  `json:"doi"`
	PublicationYear *int     `json:"publication_year" validate:"omitempty,gte=1500,lte=2100"`
	CategoryID      *int64   `json:"category_id"`
	JournalID       *int64   `json:"journal_id"`
	TeamID          *int64   `json:"team_id"`
	Keywords        []string `json:"keywords"`
}

// UpdateReferenceRequest is a partial reference update. ClearCategory and
// ClearJournal express explicit nulls that a pointer field cannot.
type UpdateReferenceRequest struct {
	Title           *string   `json:"title" validate:"omitempty,min=1,max=512"`
	Authors         *string   `json:"authors"`
	DOI             *string   `json:"doi"`
	PublicationYear *int      `json:"publication_year" validate:"omitempty,gte=1500,lte=2100"`
	CategoryID      *int64    `json:"category_id"`
	ClearCategory   bool      `json:"clear_category"`
	JournalID       *int64    `json:"journal_id"`
	ClearJournal    bool      `json:"clear_journal"`
	Keywords        *[]string `json:"keywords"`
}

// ReferenceService handles reference document workflows.
type ReferenceService struct {
	repo       referenceRepository
	keywords   referenceKeywordResolver
	categories referenceCategoryResolver
	journals   referenceJournalResolver
	teams      referenceTeamGuard
	files      referenceFileStore
	signer     downloadSigner
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewReferenceService creates an instance of ReferenceService.
func NewReferenceService(
	repo referenceRepository,
	keywords referenceKeywordResolver,
	categories referenceCategoryResolver,
	journals referenceJournalResolver,
	teams referenceTeamGuard,
	files referenceFileStore,
	signer downloadSigner,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReferenceService{
		repo: repo, keywords: keywords, categories: categories, journals: journals,
		teams: teams, files: files, signer: signer, validator: validate, logger: logger,
	}
}

// Create adds a reference. Team references require membership; public ones
// (nil team) require a superuser.
func (s *ReferenceService) Create(ctx context.Context, actor *models.User, req CreateReferenceRequest) (*models.ReferenceRead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reference payload")
	}
	if req.TeamID != nil && *req.TeamID == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "team_id must be a valid team or omitted")
	}
	if req.TeamID != nil {
		if _, err := s.teams.RequireMember(ctx, actor, *req.TeamID); err != nil {
			return nil, err
		}
	} else if !actor.IsSuperuser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only superusers may create public references")
	}
	if err := s.checkRelations(ctx, actor, req.CategoryID, req.JournalID, req.TeamID); err != nil {
		return nil, err
	}
	if req.DOI != nil && *req.DOI != "" {
		exists, err := s.repo.ExistsByDOI(ctx, *req.DOI, 0)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check doi")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a reference with this DOI already exists")
		}
	}

	keywordIDs, err := s.resolveKeywords(ctx, req.Keywords)
	if err != nil {
		return nil, err
	}

	reference := &models.ReferencePaper{
		Title:           req.Title,
		Authors:         req.Authors,
		DOI:             req.DOI,
		PublicationYear: req.PublicationYear,
		CategoryID:      req.CategoryID,
		JournalID:       req.JournalID,
		TeamID:          req.TeamID,
		CreatedByID:     actor.ID,
	}
	if err := s.repo.Create(ctx, reference, keywordIDs); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a reference with this DOI already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reference")
	}

	s.logger.Info("reference created", zap.Int64("reference_id", reference.ID))
	return s.read(ctx, actor, reference)
}

// checkRelations validates the category (must belong to the same team) and
// journal a reference points at.
func (s *ReferenceService) checkRelations(ctx context.Context, actor *models.User, categoryID, journalID, teamID *int64) error {
	if categoryID != nil {
		category, err := s.categories.Get(ctx, actor, *categoryID)
		if err != nil {
			return err
		}
		if teamID == nil || category.TeamID != *teamID {
			return appErrors.Clone(appErrors.ErrInvalidOperation, "category belongs to another team")
		}
	}
	if journalID != nil {
		if _, err := s.journals.FindByID(ctx, *journalID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "journal not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal")
		}
	}
	return nil
}

func (s *ReferenceService) resolveKeywords(ctx context.Context, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	seen := make(map[int64]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		keyword, err := s.keywords.Upsert(ctx, name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve keyword")
		}
		if seen[keyword.ID] {
			continue
		}
		seen[keyword.ID] = true
		ids = append(ids, keyword.ID)
	}
	return ids, nil
}

func (s *ReferenceService) find(ctx context.Context, id int64) (*models.ReferencePaper, error) {
	reference, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reference not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reference")
	}
	return reference, nil
}

func (s *ReferenceService) read(ctx context.Context, actor *models.User, reference *models.ReferencePaper) (*models.ReferenceRead, error) {
	keywords, err := s.keywords.NamesByReference(ctx, reference.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load keywords")
	}
	result := &models.ReferenceRead{ReferencePaper: *reference, Keywords: keywords}
	if reference.CategoryID != nil {
		if category, err := s.categories.Get(ctx, actor, *reference.CategoryID); err == nil {
			result.Category = &category.ReferenceCategory
		}
	}
	if reference.JournalID != nil {
		if journal, err := s.journals.FindByID(ctx, *reference.JournalID); err == nil {
			result.JournalName = &journal.Name
		}
	}
	return result, nil
}

// requireView ensures the actor can read the reference. Public references are
// visible to every authenticated user.
func (s *ReferenceService) requireView(ctx context.Context, actor *models.User, reference *models.ReferencePaper) error {
	if reference.TeamID == nil {
		return nil
	}
	_, err := s.teams.RequireMember(ctx, actor, *reference.TeamID)
	return err
}

// requireModify ensures the actor can change the reference: its creator, a
// superuser, or an admin of its team.
func (s *ReferenceService) requireModify(ctx context.Context, actor *models.User, reference *models.ReferencePaper) error {
	if actor.IsSuperuser || reference.CreatedByID == actor.ID {
		return nil
	}
	if reference.TeamID == nil {
		return appErrors.Clone(appErrors.ErrForbidden, "only superusers may modify public references")
	}
	if _, err := s.teams.RequireAdmin(ctx, actor, *reference.TeamID); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator or a team admin may modify this reference")
	}
	return nil
}

// Get returns a reference readable by the actor.
func (s *ReferenceService) Get(ctx context.Context, actor *models.User, id int64) (*models.ReferenceRead, error) {
	reference, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireView(ctx, actor, reference); err != nil {
		return nil, err
	}
	return s.read(ctx, actor, reference)
}

// expandFilter resolves category descendants and the caller's visibility:
// team references from the caller's teams plus public ones.
func (s *ReferenceService) expandFilter(ctx context.Context, actor *models.User, filter *models.ReferenceFilter) error {
	if filter.CategoryID != nil {
		ids, err := s.categories.DescendantIDs(ctx, actor, *filter.CategoryID)
		if err != nil {
			return err
		}
		filter.CategoryIDs = ids
	}

	if filter.TeamID != nil {
		if _, err := s.teams.RequireMember(ctx, actor, *filter.TeamID); err != nil {
			return err
		}
		filter.TeamIDs = []int64{*filter.TeamID}
		return nil
	}
	if actor.IsSuperuser {
		return nil
	}
	teamIDs, err := s.teams.VisibleTeamIDs(ctx, actor)
	if err != nil {
		return err
	}
	filter.TeamIDs = teamIDs
	filter.IncludePublic = true
	return nil
}

// List returns references visible to the actor, filtered and paginated.
func (s *ReferenceService) List(ctx context.Context, actor *models.User, filter models.ReferenceFilter) ([]models.ReferenceRead, *models.Pagination, error) {
	if err := s.expandFilter(ctx, actor, &filter); err != nil {
		return nil, nil, err
	}

	references, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list references")
	}

	reads := make([]models.ReferenceRead, 0, len(references))
	for i := range references {
		read, err := s.read(ctx, actor, &references[i])
		if err != nil {
			return nil, nil, err
		}
		reads = append(reads, *read)
	}
	return reads, models.NewPagination(total, filter.Skip, filter.Limit), nil
}

// Update patches a reference. Creator, team admin, or superuser only. The
// team binding is immutable; Clear flags null out the category or journal.
func (s *ReferenceService) Update(ctx context.Context, actor *models.User, id int64, req UpdateReferenceRequest) (*models.ReferenceRead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reference payload")
	}

	reference, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireModify(ctx, actor, reference); err != nil {
		return nil, err
	}
	if req.CategoryID != nil || req.JournalID != nil {
		if err := s.checkRelations(ctx, actor, req.CategoryID, req.JournalID, reference.TeamID); err != nil {
			return nil, err
		}
	}
	if req.DOI != nil && *req.DOI != "" {
		exists, err := s.repo.ExistsByDOI(ctx, *req.DOI, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check doi")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a reference with this DOI already exists")
		}
	}

	if req.Title != nil {
		reference.Title = *req.Title
	}
	if req.Authors != nil {
		reference.Authors = *req.Authors
	}
	if req.DOI != nil {
		reference.DOI = req.DOI
	}
	if req.PublicationYear != nil {
		reference.PublicationYear = req.PublicationYear
	}
	switch {
	case req.ClearCategory:
		reference.CategoryID = nil
	case req.CategoryID != nil:
		reference.CategoryID = req.CategoryID
	}
	switch {
	case req.ClearJournal:
		reference.JournalID = nil
	case req.JournalID != nil:
		reference.JournalID = req.JournalID
	}

	var keywordIDs *[]int64
	if req.Keywords != nil {
		ids, err := s.resolveKeywords(ctx, *req.Keywords)
		if err != nil {
			return nil, err
		}
		keywordIDs = &ids
	}

	if err := s.repo.UpdateWithLinks(ctx, reference, keywordIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reference")
	}

	return s.read(ctx, actor, reference)
}

// Delete removes a reference with its links and stored file.
func (s *ReferenceService) Delete(ctx context.Context, actor *models.User, id int64) error {
	reference, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireModify(ctx, actor, reference); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete reference")
	}

	if reference.FilePath != nil && s.files != nil {
		if err := s.files.Delete(*reference.FilePath); err != nil {
			s.logger.Warn("failed to remove reference file", zap.String("path", *reference.FilePath), zap.Error(err))
		}
	}
	return nil
}

// Upload stores a PDF for the reference, replacing any prior file.
func (s *ReferenceService) Upload(ctx context.Context, actor *models.User, id int64, filename string, r io.Reader) (*models.ReferenceRead, error) {
	reference, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireModify(ctx, actor, reference); err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimPrefix(filepathExt(filename), "."), "pdf") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only PDF uploads are accepted")
	}

	var teamID int64
	if reference.TeamID != nil {
		teamID = *reference.TeamID
	}
	relPath := s.files.ReferencePath(teamID, id, filename)
	var prior string
	if reference.FilePath != nil {
		prior = *reference.FilePath
	}
	if err := s.files.Replace(relPath, prior, r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if err := s.repo.UpdateFilePath(ctx, id, &relPath); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record file path")
	}
	reference.FilePath = &relPath
	return s.read(ctx, actor, reference)
}

// File returns the stored file's relative path and a download name.
func (s *ReferenceService) File(ctx context.Context, actor *models.User, id int64) (relPath, downloadName string, err error) {
	reference, err := s.find(ctx, id)
	if err != nil {
		return "", "", err
	}
	if err := s.requireView(ctx, actor, reference); err != nil {
		return "", "", err
	}
	if reference.FilePath == nil || !s.files.Exists(*reference.FilePath) {
		return "", "", appErrors.Clone(appErrors.ErrNotFound, "reference has no stored file")
	}
	return *reference.FilePath, reference.Title + ".pdf", nil
}

// FileByTitle resolves a download by exact title within the caller's visible
// scope, or within one named team.
func (s *ReferenceService) FileByTitle(ctx context.Context, actor *models.User, title string, teamID *int64) (relPath, downloadName string, err error) {
	var teamIDs []int64
	includePublic := false
	switch {
	case teamID != nil:
		if _, err := s.teams.RequireMember(ctx, actor, *teamID); err != nil {
			return "", "", err
		}
		teamIDs = []int64{*teamID}
	case actor.IsSuperuser:
		// Unrestricted.
	default:
		teamIDs, err = s.teams.VisibleTeamIDs(ctx, actor)
		if err != nil {
			return "", "", err
		}
		includePublic = true
	}

	reference, err := s.repo.FindByTitleVisible(ctx, title, teamIDs, includePublic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", appErrors.Clone(appErrors.ErrNotFound, "reference not found")
		}
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find reference")
	}
	if reference.FilePath == nil || !s.files.Exists(*reference.FilePath) {
		return "", "", appErrors.Clone(appErrors.ErrNotFound, "reference has no stored file")
	}
	return *reference.FilePath, reference.Title + ".pdf", nil
}

// DownloadToken issues a signed download token for the reference's file.
func (s *ReferenceService) DownloadToken(ctx context.Context, actor *models.User, id int64) (token string, expiresAt time.Time, err error) {
	relPath, _, err := s.File(ctx, actor, id)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err = s.signer.Generate("reference:"+strconv.FormatInt(id, 10), relPath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	return token, expiresAt, nil
}

// ExportDataset renders the filtered reference list into a tabular dataset.
func (s *ReferenceService) ExportDataset(ctx context.Context, actor *models.User, filter models.ReferenceFilter) (export.Dataset, error) {
	filter.Limit = 500
	references, _, err := s.List(ctx, actor, filter)
	if err != nil {
		return export.Dataset{}, err
	}

	headers := []string{"Title", "Authors", "Journal", "Year", "DOI", "Category", "Keywords", "Scope"}
	rows := make([]map[string]string, 0, len(references))
	for _, reference := range references {
		row := map[string]string{
			"Title":    reference.Title,
			"Authors":  reference.Authors,
			"Keywords": strings.Join(reference.Keywords, "; "),
			"Scope":    "team",
		}
		if reference.TeamID == nil {
			row["Scope"] = "public"
		}
		if reference.JournalName != nil {
			row["Journal"] = *reference.JournalName
		}
		if reference.PublicationYear != nil {
			row["Year"] = strconv.Itoa(*reference.PublicationYear)
		}
		if reference.DOI != nil {
			row["DOI"] = *reference.DOI
		}
		if reference.Category != nil {
			row["Category"] = reference.Category.Name
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}
