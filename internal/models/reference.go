package models

import "time"

// ReferencePaper is a reference document. A nil TeamID marks a public
// reference visible to every user; the legacy 0 sentinel is rejected at the
// boundary.
type ReferencePaper struct {
	ID              int64     `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Authors         string    `db:"authors" json:"authors"`
	DOI             *string   `db:"doi" json:"doi,omitempty"`
	FilePath        *string   `db:"file_path" json:"file_path,omitempty"`
	PublicationYear *int      `db:"publication_year" json:"publication_year,omitempty"`
	CategoryID      *int64    `db:"category_id" json:"category_id,omitempty"`
	JournalID       *int64    `db:"journal_id" json:"journal_id,omitempty"`
	TeamID          *int64    `db:"team_id" json:"team_id,omitempty"`
	CreatedByID     int64     `db:"created_by_id" json:"created_by_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ReferenceKeyword is the reference↔keyword link row.
type ReferenceKeyword struct {
	ReferenceID int64 `db:"reference_id" json:"reference_id"`
	KeywordID   int64 `db:"keyword_id" json:"keyword_id"`
}

// ReferenceRead is the flattened read model returned by the API.
type ReferenceRead struct {
	ReferencePaper
	Keywords    []string           `json:"keywords"`
	Category    *ReferenceCategory `json:"category,omitempty"`
	JournalName *string            `json:"journal_name,omitempty"`
}

// ReferenceFilter captures list filters for references. TeamIDs restricts
// results to the caller's teams; IncludePublic widens the scope to rows with
// no team.
type ReferenceFilter struct {
	Title           string
	CategoryID      *int64
	Keyword         string
	JournalID       *int64
	TeamID          *int64
	PublicationYear *int
	Skip            int
	Limit           int

	CategoryIDs   []int64 `json:"-"`
	TeamIDs       []int64 `json:"-"`
	IncludePublic bool    `json:"-"`
}
