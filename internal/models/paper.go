package models

import "time"

// Paper is a team-scoped publication record.
type Paper struct {
	ID              int64      `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Abstract        string     `db:"abstract" json:"abstract"`
	PublicationDate *time.Time `db:"publication_date" json:"publication_date,omitempty"`
	DOI             *string    `db:"doi" json:"doi,omitempty"`
	FilePath        *string    `db:"file_path" json:"file_path,omitempty"`
	CategoryID      *int64     `db:"category_id" json:"category_id,omitempty"`
	JournalID       *int64     `db:"journal_id" json:"journal_id,omitempty"`
	TeamID          int64      `db:"team_id" json:"team_id"`
	CreatedByID     int64      `db:"created_by_id" json:"created_by_id"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// PaperAuthor is the paper↔author link carrying contribution metadata.
type PaperAuthor struct {
	PaperID           int64   `db:"paper_id" json:"paper_id"`
	AuthorID          int64   `db:"author_id" json:"author_id"`
	ContributionRatio float64 `db:"contribution_ratio" json:"contribution_ratio"`
	IsCorresponding   bool    `db:"is_corresponding" json:"is_corresponding"`
	AuthorOrder       int     `db:"author_order" json:"author_order"`
}

// PaperAuthorRead flattens an author link with author details.
type PaperAuthorRead struct {
	AuthorID          int64   `db:"author_id" json:"author_id"`
	Name              string  `db:"name" json:"name"`
	Email             *string `db:"email" json:"email,omitempty"`
	Affiliation       *string `db:"affiliation" json:"affiliation,omitempty"`
	ContributionRatio float64 `db:"contribution_ratio" json:"contribution_ratio"`
	IsCorresponding   bool    `db:"is_corresponding" json:"is_corresponding"`
	AuthorOrder       int     `db:"author_order" json:"author_order"`
}

// PaperRead is the flattened read model returned by the API.
type PaperRead struct {
	Paper
	Authors     []PaperAuthorRead `json:"authors"`
	Keywords    []string          `json:"keywords"`
	Category    *Category         `json:"category,omitempty"`
	JournalName *string           `json:"journal_name,omitempty"`
}

// PaperFilter captures list filters for papers. CategoryIDs holds the
// descendant-inclusive expansion of the requested category; TeamIDs restricts
// results to teams the caller belongs to.
type PaperFilter struct {
	Title      string
	CategoryID *int64
	AuthorName string
	Keyword    string
	JournalID  *int64
	TeamID     *int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Skip       int
	Limit      int

	CategoryIDs []int64 `json:"-"`
	TeamIDs     []int64 `json:"-"`
}

// PaperWorkloadEntry is one author's workload share for a single paper.
type PaperWorkloadEntry struct {
	AuthorID          int64        `json:"author_id"`
	AuthorName        string       `json:"author_name"`
	ContributionRatio float64      `json:"contribution_ratio"`
	Grade             JournalGrade `json:"grade"`
	Score             float64      `json:"score"`
}

// AuthorPaperWorkload is one paper's contribution to an author's workload.
type AuthorPaperWorkload struct {
	PaperID           int64        `json:"paper_id"`
	Title             string       `json:"title"`
	PublicationDate   *time.Time   `json:"publication_date,omitempty"`
	Grade             JournalGrade `json:"grade"`
	ContributionRatio float64      `json:"contribution_ratio"`
	Score             float64      `json:"score"`
}

// AuthorWorkload aggregates an author's workload across papers.
type AuthorWorkload struct {
	Author Author                `json:"author"`
	Papers []AuthorPaperWorkload `json:"papers"`
	Total  float64               `json:"total"`
}

// AuthorPaperRow is the repository row feeding workload aggregation.
type AuthorPaperRow struct {
	PaperID           int64      `db:"paper_id"`
	Title             string     `db:"title"`
	PublicationDate   *time.Time `db:"publication_date"`
	ContributionRatio float64    `db:"contribution_ratio"`
	Grade             *string    `db:"grade"`
}

// CoAuthorRow is the repository row feeding the collaboration network.
type CoAuthorRow struct {
	PaperID    int64  `db:"paper_id"`
	AuthorID   int64  `db:"author_id"`
	AuthorName string `db:"author_name"`
}

// CollaborationNode is an author in the co-authorship graph.
type CollaborationNode struct {
	AuthorID   int64  `json:"author_id"`
	Name       string `json:"name"`
	PaperCount int    `json:"paper_count"`
}

// CollaborationEdge is an undirected co-authorship edge weighted by the
// number of shared papers.
type CollaborationEdge struct {
	SourceID int64 `json:"source_id"`
	TargetID int64 `json:"target_id"`
	Weight   int   `json:"weight"`
}

// CollaborationNetwork is the whole co-authorship graph.
type CollaborationNetwork struct {
	Nodes []CollaborationNode `json:"nodes"`
	Edges []CollaborationEdge `json:"edges"`
}
