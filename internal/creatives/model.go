// Package creatives tracks design and video assets produced for outreach.
package creatives

import (
	"strings"
	"time"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
)

type Status string

const (
	StatusConcept    Status = "CONCEPT"
	StatusScripting  Status = "SCRIPTING"
	StatusProduction Status = "PRODUCTION"
	StatusEditing    Status = "EDITING"
	StatusReview     Status = "REVIEW"
	StatusApproved   Status = "APPROVED"
)

var statuses = []Status{StatusConcept, StatusScripting, StatusProduction, StatusEditing, StatusReview, StatusApproved}

// ParseStatus normalizes raw; empty input yields CONCEPT.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if s == "" {
		return StatusConcept, true
	}
	for _, known := range statuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// Asset is one creative deliverable.
type Asset struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	AssetType     string     `json:"asset_type"`
	Platform      string     `json:"platform"`
	CreativeBrief string     `json:"creative_brief"`
	MoodboardURL  string     `json:"moodboard_url"`
	Status        Status     `json:"status"`
	Priority      string     `json:"priority"`
	AssignedTo    string     `json:"assigned_to,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUpdated   time.Time  `json:"last_updated"`
}

// NewAsset is the create payload.
type NewAsset struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	AssetType     string     `json:"asset_type"`
	Platform      string     `json:"platform"`
	CreativeBrief string     `json:"creative_brief"`
	MoodboardURL  string     `json:"moodboard_url"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	AssignedTo    string     `json:"assigned_to"`
	DueDate       *time.Time `json:"due_date"`
}

// Patch is a partial update.
type Patch struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	AssetType     *string    `json:"asset_type"`
	Platform      *string    `json:"platform"`
	CreativeBrief *string    `json:"creative_brief"`
	MoodboardURL  *string    `json:"moodboard_url"`
	Status        *string    `json:"status"`
	Priority      *string    `json:"priority"`
	AssignedTo    *string    `json:"assigned_to"`
	DueDate       *time.Time `json:"due_date"`
}

var (
	ErrNotFound      = apperr.New(apperr.KindNotFound, "asset not found")
	ErrMissingTitle  = apperr.New(apperr.KindValidation, "title is required")
	ErrInvalidStatus = apperr.New(apperr.KindValidation, "unknown creative status")
)
