package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/models"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
	"github.com/paperdesk/paperdesk/pkg/export"
)

type paperRepository interface {
	Create(ctx context.Context, paper *models.Paper, authors []models.PaperAuthor, keywordIDs []int64) error
	FindByID(ctx context.Context, id int64) (*models.Paper, error)
	FindByTitleAndTeams(ctx context.Context, title string, teamIDs []int64) (*models.Paper, error)
	ExistsByDOI(ctx context.Context, doi string, excludeID int64) (bool, error)
	List(ctx context.Context, filter models.PaperFilter) ([]models.Paper, int, error)
	UpdateWithLinks(ctx context.Context, paper *models.Paper, authors *[]models.PaperAuthor, keywordIDs *[]int64) error
	UpdateFilePath(ctx context.Context, id int64, filePath *string) error
	Delete(ctx context.Context, id int64) error
	AuthorsByPaper(ctx context.Context, paperID int64) ([]models.PaperAuthorRead, error)
	JournalName(ctx context.Context, journalID int64) (*string, error)
	RowsByAuthor(ctx context.Context, authorID int64, teamIDs []int64) ([]models.AuthorPaperRow, error)
	CoAuthorRows(ctx context.Context, teamIDs []int64) ([]models.CoAuthorRow, error)
}

type authorResolver interface {
	Upsert(ctx context.Context, name string) (*models.Author, error)
	FindByName(ctx context.Context, name string) (*models.Author, error)
	FindByID(ctx context.Context, id int64) (*models.Author, error)
	List(ctx context.Context, search string, skip, limit int) ([]models.Author, int, error)
}

type keywordResolver interface {
	Upsert(ctx context.Context, name string) (*models.Keyword, error)
	NamesByPaper(ctx context.Context, paperID int64) ([]string, error)
}

type paperJournalResolver interface {
	FindByID(ctx context.Context, id int64) (*models.Journal, error)
}

type paperCategoryResolver interface {
	Get(ctx context.Context, id int64) (*models.CategoryRead, error)
	DescendantIDs(ctx context.Context, id int64) ([]int64, error)
}

type paperTeamGuard interface {
	RequireMember(ctx context.Context, actor *models.User, teamID int64) (*models.TeamUser, error)
	VisibleTeamIDs(ctx context.Context, actor *models.User) ([]int64, error)
}

type paperFileStore interface {
	PaperPath(paperID int64, originalName string) string
	Replace(relPath, priorPath string, r io.Reader) error
	Path(relPath string) string
	Exists(relPath string) bool
	Delete(relPath string) error
}

type downloadSigner interface {
	Generate(resource, relPath string) (string, time.Time, error)
}

// PaperAuthorInput names an author link in a create or update payload.
type PaperAuthorInput struct {
	Name              string  `json:"name" validate:"required"`
	ContributionRatio float64 `json:"contribution_ratio" validate:"gte=0,lte=1"`
	IsCorresponding   bool    `json:"is_corresponding"`
}

// CreatePaperRequest represents payload for creating a paper.
type CreatePaperRequest struct {
	Title           string             `json:"title" validate:"required,min=1,max=512"`
	Abstract        string             `json:"abstract"`
	PublicationDate *time.Time         `json:"publication_date"`
	DOI             *string            `json:"doi"`
	CategoryID      *int64             `json:"category_id"`
	JournalID       *int64             `json:"journal_id"`
	TeamID          int64              `json:"team_id" validate:"required"`
	Authors         []PaperAuthorInput `json:"authors" validate:"dive"`
	Keywords        []string           `json:"keywords"`
}

// UpdatePaperRequest represents a partial update of a paper. Nil fields are
// left untouched; Authors or Keywords, when present, replace the full set.
type UpdatePaperRequest struct {
	Title           *string             `json:"title" validate:"omitempty,min=1,max=512"`
	Abstract        *string             `json:"abstract"`
	PublicationDate *time.Time          `json:"publication_date"`
	DOI             *string             `json:"doi"`
	CategoryID      *int64              `json:"category_id"`
	JournalID       *int64              `json:"journal_id"`
	Authors         *[]PaperAuthorInput `json:"authors" validate:"omitempty,dive"`
	Keywords        *[]string           `json:"keywords"`
}

// PaperService handles paper workflows: CRUD, files, workload analytics and
// exports.
type PaperService struct {
	repo       paperRepository
	authors    authorResolver
	keywords   keywordResolver
	journals   paperJournalResolver
	categories paperCategoryResolver
	teams      paperTeamGuard
	files      paperFileStore
	signer     downloadSigner
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPaperService creates an instance of PaperService.
func NewPaperService(
	repo paperRepository,
	authors authorResolver,
	keywords keywordResolver,
	journals paperJournalResolver,
	categories paperCategoryResolver,
	teams paperTeamGuard,
	files paperFileStore,
	signer downloadSigner,
	validate *validator.Validate,
	logger *zap.Logger,
) *PaperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaperService{
		repo: repo, authors: authors, keywords: keywords, journals: journals,
		categories: categories, teams: teams, files: files, signer: signer,
		validator: validate, logger: logger,
	}
}

// Create adds a paper with author and keyword links. Team membership
// required; authors and keywords are resolved by name with get-or-create.
func (s *PaperService) Create(ctx context.Context, actor *models.User, req CreatePaperRequest) (*models.PaperRead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid paper payload")
	}
	if _, err := s.teams.RequireMember(ctx, actor, req.TeamID); err != nil {
		return nil, err
	}
	if err := s.checkRelations(ctx, req.CategoryID, req.JournalID); err != nil {
		return nil, err
	}
	if req.DOI != nil && *req.DOI != "" {
		exists, err := s.repo.ExistsByDOI(ctx, *req.DOI, 0)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check doi")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a paper with this DOI already exists")
		}
	}

	authorLinks, err := s.resolveAuthors(ctx, req.Authors)
	if err != nil {
		return nil, err
	}
	keywordIDs, err := s.resolveKeywords(ctx, req.Keywords)
	if err != nil {
		return nil, err
	}

	paper := &models.Paper{
		Title:           req.Title,
		Abstract:        req.Abstract,
		PublicationDate: req.PublicationDate,
		DOI:             req.DOI,
		CategoryID:      req.CategoryID,
		JournalID:       req.JournalID,
		TeamID:          req.TeamID,
		CreatedByID:     actor.ID,
	}
	if err := s.repo.Create(ctx, paper, authorLinks, keywordIDs); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a paper with this DOI already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create paper")
	}

	s.logger.Info("paper created", zap.Int64("paper_id", paper.ID), zap.Int64("team_id", paper.TeamID))
	return s.read(ctx, paper)
}

func (s *PaperService) checkRelations(ctx context.Context, categoryID, journalID *int64) error {
	if categoryID != nil {
		if _, err := s.categories.Get(ctx, *categoryID); err != nil {
			return err
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

func (s *PaperService) resolveAuthors(ctx context.Context, inputs []PaperAuthorInput) ([]models.PaperAuthor, error) {
	links := make([]models.PaperAuthor, 0, len(inputs))
	seen := make(map[int64]bool, len(inputs))
	for i, input := range inputs {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "author name cannot be empty")
		}
		author, err := s.authors.Upsert(ctx, name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve author")
		}
		if seen[author.ID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate author in payload")
		}
		seen[author.ID] = true
		links = append(links, models.PaperAuthor{
			AuthorID:          author.ID,
			ContributionRatio: input.ContributionRatio,
			IsCorresponding:   input.IsCorresponding,
			AuthorOrder:       i + 1,
		})
	}
	return links, nil
}

func (s *PaperService) resolveKeywords(ctx context.Context, names []string) ([]int64, error) {
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

func (s *PaperService) find(ctx context.Context, id int64) (*models.Paper, error) {
	paper, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}
	return paper, nil
}

func (s *PaperService) read(ctx context.Context, paper *models.Paper) (*models.PaperRead, error) {
	authors, err := s.repo.AuthorsByPaper(ctx, paper.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load authors")
	}
	keywords, err := s.keywords.NamesByPaper(ctx, paper.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load keywords")
	}

	result := &models.PaperRead{Paper: *paper, Authors: authors, Keywords: keywords}
	if paper.CategoryID != nil {
		if category, err := s.categories.Get(ctx, *paper.CategoryID); err == nil {
			result.Category = &category.Category
		}
	}
	if paper.JournalID != nil {
		name, err := s.repo.JournalName(ctx, *paper.JournalID)
		if err != nil {
			return nil, err
		}
		result.JournalName = name
	}
	return result, nil
}

// requireView ensures the actor can read the paper.
func (s *PaperService) requireView(ctx context.Context, actor *models.User, paper *models.Paper) error {
	_, err := s.teams.RequireMember(ctx, actor, paper.TeamID)
	return err
}

// requireModify ensures the actor may change the paper: its creator or a
// superuser.
func (s *PaperService) requireModify(actor *models.User, paper *models.Paper) error {
	if actor.IsSuperuser || paper.CreatedByID == actor.ID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the creator may modify this paper")
}

// Get returns a paper readable by the actor.
func (s *PaperService) Get(ctx context.Context, actor *models.User, id int64) (*models.PaperRead, error) {
	paper, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireView(ctx, actor, paper); err != nil {
		return nil, err
	}
	return s.read(ctx, paper)
}

// expandFilter resolves the descendant-inclusive category set and the
// caller's visible team scope.
func (s *PaperService) expandFilter(ctx context.Context, actor *models.User, filter *models.PaperFilter) error {
	if filter.CategoryID != nil {
		ids, err := s.categories.DescendantIDs(ctx, *filter.CategoryID)
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
	if len(teamIDs) == 0 {
		// No memberships: the visible set is empty, not unrestricted.
		filter.TeamIDs = []int64{-1}
		return nil
	}
	filter.TeamIDs = teamIDs
	return nil
}

// List returns papers visible to the actor, filtered and paginated.
func (s *PaperService) List(ctx context.Context, actor *models.User, filter models.PaperFilter) ([]models.PaperRead, *models.Pagination, error) {
	if err := s.expandFilter(ctx, actor, &filter); err != nil {
		return nil, nil, err
	}

	papers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list papers")
	}

	reads := make([]models.PaperRead, 0, len(papers))
	for i := range papers {
		read, err := s.read(ctx, &papers[i])
		if err != nil {
			return nil, nil, err
		}
		reads = append(reads, *read)
	}
	return reads, models.NewPagination(total, filter.Skip, filter.Limit), nil
}

// Update patches a paper. Creator or superuser only. Author and keyword sets,
// when present, are replaced wholesale.
func (s *PaperService) Update(ctx context.Context, actor *models.User, id int64, req UpdatePaperRequest) (*models.PaperRead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid paper payload")
	}

	paper, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireModify(actor, paper); err != nil {
		return nil, err
	}
	if err := s.checkRelations(ctx, req.CategoryID, req.JournalID); err != nil {
		return nil, err
	}
	if req.DOI != nil && *req.DOI != "" {
		exists, err := s.repo.ExistsByDOI(ctx, *req.DOI, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check doi")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a paper with this DOI already exists")
		}
	}

	if req.Title != nil {
		paper.Title = *req.Title
	}
	if req.Abstract != nil {
		paper.Abstract = *req.Abstract
	}
	if req.PublicationDate != nil {
		paper.PublicationDate = req.PublicationDate
	}
	if req.DOI != nil {
		paper.DOI = req.DOI
	}
	if req.CategoryID != nil {
		paper.CategoryID = req.CategoryID
	}
	if req.JournalID != nil {
		paper.JournalID = req.JournalID
	}

	var authorLinks *[]models.PaperAuthor
	if req.Authors != nil {
		links, err := s.resolveAuthors(ctx, *req.Authors)
		if err != nil {
			return nil, err
		}
		authorLinks = &links
	}
	var keywordIDs *[]int64
	if req.Keywords != nil {
		ids, err := s.resolveKeywords(ctx, *req.Keywords)
		if err != nil {
			return nil, err
		}
		keywordIDs = &ids
	}

	if err := s.repo.UpdateWithLinks(ctx, paper, authorLinks, keywordIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update paper")
	}

	return s.read(ctx, paper)
}

// Delete removes a paper with its links and stored file. Creator or superuser
// only.
func (s *PaperService) Delete(ctx context.Context, actor *models.User, id int64) error {
	paper, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireModify(actor, paper); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete paper")
	}

	if paper.FilePath != nil && s.files != nil {
		if err := s.files.Delete(*paper.FilePath); err != nil {
			s.logger.Warn("failed to remove paper file", zap.String("path", *paper.FilePath), zap.Error(err))
		}
	}
	return nil
}

// Upload stores a PDF for the paper, replacing any prior file. Creator or
// superuser only.
func (s *PaperService) Upload(ctx context.Context, actor *models.User, id int64, filename string, r io.Reader) (*models.PaperRead, error) {
	paper, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireModify(actor, paper); err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimPrefix(filepathExt(filename), "."), "pdf") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only PDF uploads are accepted")
	}

	relPath := s.files.PaperPath(id, filename)
	var prior string
	if paper.FilePath != nil {
		prior = *paper.FilePath
	}
	if err := s.files.Replace(relPath, prior, r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if err := s.repo.UpdateFilePath(ctx, id, &relPath); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record file path")
	}
	paper.FilePath = &relPath
	return s.read(ctx, paper)
}

func filepathExt(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}

// File returns the stored file's relative path and a download name. Team
// membership required.
func (s *PaperService) File(ctx context.Context, actor *models.User, id int64) (relPath, downloadName string, err error) {
	paper, err := s.find(ctx, id)
	if err != nil {
		return "", "", err
	}
	if err := s.requireView(ctx, actor, paper); err != nil {
		return "", "", err
	}
	if paper.FilePath == nil || !s.files.Exists(*paper.FilePath) {
		return "", "", appErrors.Clone(appErrors.ErrNotFound, "paper has no stored file")
	}
	return *paper.FilePath, paper.Title + ".pdf", nil
}

// FileByTitle resolves a download by exact title within the caller's teams,
// or within one named team.
func (s *PaperService) FileByTitle(ctx context.Context, actor *models.User, title string, teamID *int64) (relPath, downloadName string, err error) {
	var teamIDs []int64
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
		if len(teamIDs) == 0 {
			return "", "", appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
	}

	paper, err := s.repo.FindByTitleAndTeams(ctx, title, teamIDs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find paper")
	}
	if paper.FilePath == nil || !s.files.Exists(*paper.FilePath) {
		return "", "", appErrors.Clone(appErrors.ErrNotFound, "paper has no stored file")
	}
	return *paper.FilePath, paper.Title + ".pdf", nil
}

// DownloadToken issues a signed, time-limited download token for the paper's
// file. Team membership required.
func (s *PaperService) DownloadToken(ctx context.Context, actor *models.User, id int64) (token string, expiresAt time.Time, err error) {
	relPath, _, err := s.File(ctx, actor, id)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err = s.signer.Generate("paper:"+strconv.FormatInt(id, 10), relPath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	return token, expiresAt, nil
}

// Workload returns per-author workload rows for one paper. Team membership
// required.
func (s *PaperService) Workload(ctx context.Context, actor *models.User, id int64) ([]models.PaperWorkloadEntry, error) {
	paper, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireView(ctx, actor, paper); err != nil {
		return nil, err
	}

	grade := models.GradeOther
	if paper.JournalID != nil {
		journal, err := s.journals.FindByID(ctx, *paper.JournalID)
		if err == nil {
			grade = journal.Grade
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal")
		}
	}

	authors, err := s.repo.AuthorsByPaper(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load authors")
	}

	entries := make([]models.PaperWorkloadEntry, 0, len(authors))
	for _, author := range authors {
		entries = append(entries, models.PaperWorkloadEntry{
			AuthorID:          author.AuthorID,
			AuthorName:        author.Name,
			ContributionRatio: author.ContributionRatio,
			Grade:             grade,
			Score:             WorkloadScore(grade, author.ContributionRatio),
		})
	}
	return entries, nil
}

// Authors lists the author registry with an optional name substring search.
// The registry is global, so no team scoping applies.
func (s *PaperService) Authors(ctx context.Context, search string, skip, limit int) ([]models.Author, *models.Pagination, error) {
	authors, total, err := s.authors.List(ctx, strings.TrimSpace(search), skip, limit)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list authors")
	}
	if authors == nil {
		authors = []models.Author{}
	}
	return authors, models.NewPagination(total, skip, limit), nil
}

// Author returns one author from the registry.
func (s *PaperService) Author(ctx context.Context, id int64) (*models.Author, error) {
	author, err := s.authors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "author not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load author")
	}
	return author, nil
}

// AuthorWorkloadByName aggregates an author's workload across the papers
// visible to the actor. Results are sorted by publication date, missing dates
// first.
func (s *PaperService) AuthorWorkloadByName(ctx context.Context, actor *models.User, name string) (*models.AuthorWorkload, error) {
	author, err := s.authors.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "author not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load author")
	}

	var teamIDs []int64
	if !actor.IsSuperuser {
		teamIDs, err = s.teams.VisibleTeamIDs(ctx, actor)
		if err != nil {
			return nil, err
		}
		if len(teamIDs) == 0 {
			return &models.AuthorWorkload{Author: *author, Papers: []models.AuthorPaperWorkload{}}, nil
		}
	}

	rows, err := s.repo.RowsByAuthor(ctx, author.ID, teamIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load author papers")
	}

	papers := make([]models.AuthorPaperWorkload, 0, len(rows))
	var total float64
	for _, row := range rows {
		grade := normalizeGrade(row.Grade)
		score := WorkloadScore(grade, row.ContributionRatio)
		total += score
		papers = append(papers, models.AuthorPaperWorkload{
			PaperID:           row.PaperID,
			Title:             row.Title,
			PublicationDate:   row.PublicationDate,
			Grade:             grade,
			ContributionRatio: row.ContributionRatio,
			Score:             score,
		})
	}
	sort.SliceStable(papers, func(i, j int) bool {
		a, b := papers[i].PublicationDate, papers[j].PublicationDate
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return true
		case b == nil:
			return false
		}
		return a.Before(*b)
	})

	return &models.AuthorWorkload{Author: *author, Papers: papers, Total: total}, nil
}

// CollaborationNetwork builds the co-authorship graph over papers visible to
// the actor, optionally restricted to one team.
func (s *PaperService) CollaborationNetwork(ctx context.Context, actor *models.User, teamID *int64) (*models.CollaborationNetwork, error) {
	var teamIDs []int64
	switch {
	case teamID != nil:
		if _, err := s.teams.RequireMember(ctx, actor, *teamID); err != nil {
			return nil, err
		}
		teamIDs = []int64{*teamID}
	case actor.IsSuperuser:
		// Unrestricted.
	default:
		ids, err := s.teams.VisibleTeamIDs(ctx, actor)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return &models.CollaborationNetwork{Nodes: []models.CollaborationNode{}, Edges: []models.CollaborationEdge{}}, nil
		}
		teamIDs = ids
	}

	rows, err := s.repo.CoAuthorRows(ctx, teamIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load co-author rows")
	}
	return buildCollaborationNetwork(rows), nil
}

// buildCollaborationNetwork folds paper-author rows into weighted undirected
// edges between co-authors of the same paper.
func buildCollaborationNetwork(rows []models.CoAuthorRow) *models.CollaborationNetwork {
	names := make(map[int64]string)
	paperCounts := make(map[int64]int)
	byPaper := make(map[int64][]int64)
	for _, row := range rows {
		names[row.AuthorID] = row.AuthorName
		paperCounts[row.AuthorID]++
		byPaper[row.PaperID] = append(byPaper[row.PaperID], row.AuthorID)
	}

	type pair struct{ a, b int64 }
	weights := make(map[pair]int)
	for _, authorIDs := range byPaper {
		for i := 0; i < len(authorIDs); i++ {
			for j := i + 1; j < len(authorIDs); j++ {
				a, b := authorIDs[i], authorIDs[j]
				if a == b {
					continue
				}
				if a > b {
					a, b = b, a
				}
				weights[pair{a, b}]++
			}
		}
	}

	nodes := make([]models.CollaborationNode, 0, len(names))
	for authorID, name := range names {
		nodes = append(nodes, models.CollaborationNode{AuthorID: authorID, Name: name, PaperCount: paperCounts[authorID]})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].AuthorID < nodes[j].AuthorID })

	edges := make([]models.CollaborationEdge, 0, len(weights))
	for p, weight := range weights {
		edges = append(edges, models.CollaborationEdge{SourceID: p.a, TargetID: p.b, Weight: weight})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		return edges[i].TargetID < edges[j].TargetID
	})

	return &models.CollaborationNetwork{Nodes: nodes, Edges: edges}
}

// ExportDataset renders the filtered paper list into a tabular dataset for
// the Excel and CSV exporters.
func (s *PaperService) ExportDataset(ctx context.Context, actor *models.User, filter models.PaperFilter) (export.Dataset, error) {
	filter.Limit = 500
	papers, _, err := s.List(ctx, actor, filter)
	if err != nil {
		return export.Dataset{}, err
	}

	headers := []string{"Title", "Authors", "Journal", "Publication Date", "DOI", "Category", "Keywords"}
	rows := make([]map[string]string, 0, len(papers))
	for _, paper := range papers {
		authorNames := make([]string, 0, len(paper.Authors))
		for _, author := range paper.Authors {
			authorNames = append(authorNames, author.Name)
		}
		row := map[string]string{
			"Title":    paper.Title,
			"Authors":  strings.Join(authorNames, "; "),
			"Keywords": strings.Join(paper.Keywords, "; "),
		}
		if paper.JournalName != nil {
			row["Journal"] = *paper.JournalName
		}
		if paper.PublicationDate != nil {
			row["Publication Date"] = paper.PublicationDate.Format("2006-01-02")
		}
		if paper.DOI != nil {
			row["DOI"] = *paper.DOI
		}
		if paper.Category != nil {
			row["Category"] = paper.Category.Name
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}
