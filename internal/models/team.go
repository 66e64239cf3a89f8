package models

import "time"

// TeamRole is the per-team role lattice: MEMBER < ADMIN < OWNER.
type TeamRole string

const (
	TeamRoleOwner  TeamRole = "OWNER"
	TeamRoleAdmin  TeamRole = "ADMIN"
	TeamRoleMember TeamRole = "MEMBER"
)

// Valid reports whether the role is a known lattice value.
func (r TeamRole) Valid() bool {
	switch r {
	case TeamRoleOwner, TeamRoleAdmin, TeamRoleMember:
		return true
	}
	return false
}

// IsAdmin reports whether the role satisfies administrator checks.
func (r TeamRole) IsAdmin() bool {
	return r == TeamRoleOwner || r == TeamRoleAdmin
}

// Team is the tenant boundary owning references and memberships.
type Team struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatorID   int64     `db:"creator_id" json:"creator_id"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TeamUser is a membership row.
type TeamUser struct {
	TeamID   int64     `db:"team_id" json:"team_id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	Role     TeamRole  `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// TeamMember flattens a membership row with user details for listings.
type TeamMember struct {
	UserID   int64     `db:"user_id" json:"user_id"`
	Username string    `db:"username" json:"username"`
	FullName string    `db:"full_name" json:"full_name"`
	Email    string    `db:"email" json:"email"`
	Role     TeamRole  `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
