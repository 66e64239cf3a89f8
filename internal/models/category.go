package models

// Category is a node of the global paper category forest, stored as a
// parent-pointer row.
type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	ParentID    *int64 `db:"parent_id" json:"parent_id,omitempty"`
}

// CategoryRead is a category with optional usage statistics.
type CategoryRead struct {
	Category
	PaperCount *int `json:"paper_count,omitempty"`
}

// ReferenceCategory is a node of a per-team reference category forest.
type ReferenceCategory struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	ParentID    *int64 `db:"parent_id" json:"parent_id,omitempty"`
	TeamID      int64  `db:"team_id" json:"team_id"`
}

// ReferenceCategoryRead is a reference category with optional statistics.
type ReferenceCategoryRead struct {
	ReferenceCategory
	ReferenceCount *int `json:"reference_count,omitempty"`
}
