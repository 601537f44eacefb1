// Package identity is the directory of team members allowed to use the
// pipeline, plus their gamification counters.
package identity

import (
	"strings"
	"time"
)

// Role is the category of work a member does.
type Role string

const (
	RoleSpeakerOutreach Role = "SPEAKER_OUTREACH"
	RoleSponsorOutreach Role = "SPONSOR_OUTREACH"
	RoleCreatives       Role = "CREATIVES"
	RoleAdmin           Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSpeakerOutreach, RoleSponsorOutreach, RoleCreatives, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalizes a role string; empty input yields the default role.
func ParseRole(raw string) (Role, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return RoleSpeakerOutreach, true
	}
	role := Role(raw)
	return role, role.Valid()
}

// Identity is one authorized team member.
type Identity struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	IsAdmin       bool      `json:"is_admin"`
	Role          Role      `json:"role"`
	XP            int       `json:"xp"`
	Streak        int       `json:"streak"`
	LastLoginDate string    `json:"last_login_date,omitempty"`
	AddedBy       string    `json:"added_by,omitempty"`
	AddedAt       time.Time `json:"added_at"`
}

// NormalizeID is the canonical form of a member identifier. Identifier
// uniqueness is enforced on this form.
func NormalizeID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NewIdentity is the admin payload for adding a member.
type NewIdentity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}

// Patch updates admin-managed fields. Nil fields are left unchanged.
type Patch struct {
	Name    *string `json:"name"`
	Role    *string `json:"role"`
	IsAdmin *bool   `json:"is_admin"`
}

// GamificationPatch updates the counters a member owns.
type GamificationPatch struct {
	XP            *int    `json:"xp"`
	Streak        *int    `json:"streak"`
	LastLoginDate *string `json:"last_login_date"`
}
