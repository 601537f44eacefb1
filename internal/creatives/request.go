package creatives

import (
	"strings"
	"time"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
)

// RequestStatus tracks a creative request through the creatives team.
type RequestStatus string

const (
	RequestPending    RequestStatus = "PENDING"
	RequestInProgress RequestStatus = "IN_PROGRESS"
	RequestCompleted  RequestStatus = "COMPLETED"
	RequestDeclined   RequestStatus = "DECLINED"
)

// ParseRequestStatus normalizes raw; empty input yields PENDING.
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	s := RequestStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case "":
		return RequestPending, true
	case RequestPending, RequestInProgress, RequestCompleted, RequestDeclined:
		return s, true
	}
	return "", false
}

// Request asks the creatives team for a deliverable. CompletedAt is stamped
// the first time the request reaches COMPLETED and is never moved after.
type Request struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    string        `json:"priority"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	Notes       string        `json:"notes"`
	Status      RequestStatus `json:"status"`
	RequestedBy string        `json:"requested_by"`
	AssignedTo  string        `json:"assigned_to,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	LastUpdated time.Time     `json:"last_updated"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// NewRequest is the create payload. DueDate takes a date input value
// ("2026-03-14") or an RFC3339 timestamp; empty means none.
type NewRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	Notes       string `json:"notes"`
}

// RequestPatch is a partial update. An empty DueDate clears it.
type RequestPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
	Notes       *string `json:"notes"`
	Status      *string `json:"status"`
	AssignedTo  *string `json:"assigned_to"`
}

var (
	ErrRequestNotFound      = apperr.New(apperr.KindNotFound, "request not found")
	ErrMissingDescription   = apperr.New(apperr.KindValidation, "description is required")
	ErrInvalidRequestStatus = apperr.New(apperr.KindValidation, "status must be PENDING, IN_PROGRESS, COMPLETED or DECLINED")
	ErrInvalidPriority      = apperr.New(apperr.KindValidation, "priority must be LOW, MEDIUM, HIGH or URGENT")
	ErrInvalidDueDate       = apperr.New(apperr.KindValidation, "due_date must be YYYY-MM-DD or RFC3339")
)

func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, ErrInvalidDueDate
}
