package outreach

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Kind separates the speaker and sponsor worklists. Both share one pipeline.
type Kind string

const (
	KindSpeaker Kind = "SPEAKER"
	KindSponsor Kind = "SPONSOR"
)

func (k Kind) Valid() bool { return k == KindSpeaker || k == KindSponsor }

// Priority of a prospect.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ParsePriority normalizes raw; empty input yields MEDIUM.
func ParsePriority(raw string) (Priority, bool) {
	p := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	switch p {
	case "":
		return PriorityMedium, true
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, true
	}
	return "", false
}

// Prospect is a speaker or sponsor being worked through the pipeline.
type Prospect struct {
	ID            string     `json:"id"`
	Kind          Kind       `json:"kind"`
	Name          string     `json:"name"`
	Domain        string     `json:"primary_domain"`
	Location      string     `json:"location"`
	Angle         string     `json:"angle"`
	Notes         string     `json:"notes"`
	LinkedInURL   string     `json:"linkedin_url"`
	SearchDetails string     `json:"search_details"`
	Batch         string     `json:"batch"`
	ContactMethod string     `json:"contact_method"`
	SPOCName      string     `json:"spoc_name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Status        Status     `json:"status"`
	AssignedTo    string     `json:"assigned_to,omitempty"`
	AssignedBy    string     `json:"assigned_by,omitempty"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty"`
	Priority      Priority   `json:"priority"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Tags          string     `json:"tags"`
	IsBounty      bool       `json:"is_bounty"`
	DraftText     *string    `json:"draft_text"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUpdated   time.Time  `json:"last_updated"`
	LastActivity  time.Time  `json:"last_activity"`
}

// HasContact reports whether the prospect can be reached.
func (p Prospect) HasContact() bool {
	return strings.TrimSpace(p.Email) != "" || strings.TrimSpace(p.Phone) != ""
}

func (p *Prospect) touch(now time.Time) {
	p.LastUpdated = now
	p.LastActivity = now
}

// NewProspect is the create payload.
type NewProspect struct {
	Kind          Kind       `json:"kind"`
	Name          string     `json:"name"`
	Domain        string     `json:"primary_domain"`
	Location      string     `json:"location"`
	Angle         string     `json:"angle"`
	Notes         string     `json:"notes"`
	LinkedInURL   string     `json:"linkedin_url"`
	SearchDetails string     `json:"search_details"`
	Batch         string     `json:"batch"`
	ContactMethod string     `json:"contact_method"`
	SPOCName      string     `json:"spoc_name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	DueDate       *time.Time `json:"due_date"`
	Tags          string     `json:"tags"`
	IsBounty      bool       `json:"is_bounty"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name          *string    `json:"name"`
	Domain        *string    `json:"primary_domain"`
	Location      *string    `json:"location"`
	Angle         *string    `json:"angle"`
	Notes         *string    `json:"notes"`
	LinkedInURL   *string    `json:"linkedin_url"`
	SearchDetails *string    `json:"search_details"`
	Batch         *string    `json:"batch"`
	ContactMethod *string    `json:"contact_method"`
	SPOCName      *string    `json:"spoc_name"`
	Email         *string    `json:"email"`
	Phone         *string    `json:"phone"`
	Status        *string    `json:"status"`
	Priority      *string    `json:"priority"`
	DueDate       *time.Time `json:"due_date"`
	Tags          *string    `json:"tags"`
	IsBounty      *bool      `json:"is_bounty"`
	DraftText     *string    `json:"draft_text"`
}

// contactSupplied reports whether the patch itself carries a non-empty email or phone.
func (p Patch) contactSupplied() bool {
	return (p.Email != nil && strings.TrimSpace(*p.Email) != "") ||
		(p.Phone != nil && strings.TrimSpace(*p.Phone) != "")
}

// apply copies every non-status field onto pr.
func (p Patch) apply(pr *Prospect) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&pr.Name, p.Name)
	set(&pr.Domain, p.Domain)
	set(&pr.Location, p.Location)
	set(&pr.Angle, p.Angle)
	if p.Notes != nil {
		pr.Notes = *p.Notes
	}
	set(&pr.LinkedInURL, p.LinkedInURL)
	set(&pr.SearchDetails, p.SearchDetails)
	set(&pr.Batch, p.Batch)
	set(&pr.ContactMethod, p.ContactMethod)
	set(&pr.SPOCName, p.SPOCName)
	set(&pr.Email, p.Email)
	set(&pr.Phone, p.Phone)
	set(&pr.Tags, p.Tags)
	if p.DueDate != nil {
		due := p.DueDate.UTC()
		pr.DueDate = &due
	}
	if p.IsBounty != nil {
		pr.IsBounty = *p.IsBounty
	}
	if p.DraftText != nil {
		draft := *p.DraftText
		pr.DraftText = &draft
	}
}

// AssigneeDirective is the decoded form of a bulk assigned_to value.
type AssigneeDirective int

const (
	AssigneeUnchanged AssigneeDirective = iota
	AssigneeClear
	AssigneeSet
)

// BulkUpdate applies one payload to many prospects.
type BulkUpdate struct {
	IDs      []string `json:"ids"`
	Status   *string  `json:"status"`
	IsBounty *bool    `json:"is_bounty"`
	Priority *string  `json:"priority"`

	Assignee   AssigneeDirective `json:"-"`
	AssigneeID string            `json:"-"`
}

// UnmarshalJSON decodes assigned_to sentinels: JSON null, "null" and "None"
// clear the assignment; "nan" in any case is ignored. Those strings come from
// spreadsheet imports upstream.
func (b *BulkUpdate) UnmarshalJSON(data []byte) error {
	type plain BulkUpdate
	var aux struct {
		plain
		AssignedTo json.RawMessage `json:"assigned_to"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = BulkUpdate(aux.plain)
	b.Assignee, b.AssigneeID = decodeAssignee(aux.AssignedTo)
	return nil
}

func decodeAssignee(raw json.RawMessage) (AssigneeDirective, string) {
	if len(raw) == 0 {
		return AssigneeUnchanged, ""
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return AssigneeClear, ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return AssigneeUnchanged, ""
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan":
		return AssigneeUnchanged, ""
	case "null", "none", "":
		return AssigneeClear, ""
	}
	return AssigneeSet, strings.ToLower(s)
}

// BulkResult reports per-item accounting for a bulk update.
type BulkResult struct {
	Updated int    `json:"count"`
	Skipped int    `json:"skipped"`
	Missing int    `json:"missing"`
	Message string `json:"message"`
}

// ListFilter narrows the worklist. All set fields are ANDed.
type ListFilter struct {
	Kind         Kind
	Status       Status
	AssignedTo   string
	Unassigned   bool
	AssignedToMe bool
	Search       string
	Limit        int
	Offset       int
}

const (
	DefaultListLimit = 300
	MaxListLimit     = 1000
)

// Normalize clamps paging. AssignedToMe is resolved by the caller.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Matches applies the filter in memory. Search is a case-insensitive
// substring match over name, domain and location.
func (f ListFilter) Matches(p Prospect) bool {
	if f.Kind != "" && p.Kind != f.Kind {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.AssignedTo != "" && p.AssignedTo != f.AssignedTo {
		return false
	}
	if f.Unassigned && p.AssignedTo != "" {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hay := strings.ToLower(p.Name + "\x00" + p.Domain + "\x00" + p.Location)
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

// StatusCount is one cell of the pipeline board.
type StatusCount struct {
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// PurgeResult reports the admin purge sweep.
type PurgeResult struct {
	Purged int64 `json:"purged"`
	Fixed  int64 `json:"fixed"`
}

// Candidate is a prospect proposed by AI ingestion.
type Candidate struct {
	Name     string `json:"name"`
	Domain   string `json:"primary_domain"`
	Location string `json:"location"`
	Angle    string `json:"angle"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// IngestResult reports created and duplicate candidates.
type IngestResult struct {
	Created    []Prospect `json:"created"`
	Duplicates []string   `json:"duplicates"`
}
