// Package audit records who did what to the outreach dataset. Entries are
// append-only; writes happen inside the store transaction of the mutation they
// describe, reads go through Reader.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action tags an audit entry.
type Action string

const (
	ActionAdd            Action = "ADD"
	ActionUpdate         Action = "UPDATE"
	ActionMove           Action = "MOVE"
	ActionBounty         Action = "BOUNTY"
	ActionAssign         Action = "ASSIGN"
	ActionUnassign       Action = "UNASSIGN"
	ActionAddUser        Action = "ADD_USER"
	ActionRemoveUser     Action = "REMOVE_USER"
	ActionUpdateUser     Action = "UPDATE_USER"
	ActionBulkUpdate     Action = "BULK_UPDATE"
	ActionBulkDelete     Action = "BULK_DELETE"
	ActionPurge          Action = "PURGE"
	ActionRestore        Action = "RESTORE"
	ActionApproveEmail   Action = "APPROVE_EMAIL"
	ActionDiscardEmail   Action = "DISCARD_EMAIL"
	ActionSendEmail      Action = "SEND_EMAIL"
	ActionAddCreative    Action = "ADD_CREATIVE"
	ActionUpdateCreative Action = "UPDATE_CREATIVE"
	ActionSetDeadline    Action = "SET_DEADLINE"

	ActionAddCreativeRequest    Action = "ADD_CREATIVE_REQUEST"
	ActionUpdateCreativeRequest Action = "UPDATE_CREATIVE_REQUEST"
)

var knownActions = map[Action]struct{}{
	ActionAdd: {}, ActionUpdate: {}, ActionMove: {}, ActionBounty: {}, ActionAssign: {},
	ActionUnassign: {}, ActionAddUser: {}, ActionRemoveUser: {}, ActionUpdateUser: {},
	ActionBulkUpdate: {}, ActionBulkDelete: {}, ActionPurge: {}, ActionRestore: {},
	ActionApproveEmail: {}, ActionDiscardEmail: {}, ActionSendEmail: {}, ActionAddCreative: {},
	ActionUpdateCreative: {}, ActionSetDeadline: {}, ActionAddCreativeRequest: {},
	ActionUpdateCreativeRequest: {},
}

// Valid reports whether a is a known tag.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// Entry is one immutable audit record.
type Entry struct {
	ID         string    `json:"id"`
	Actor      string    `json:"user_name"`
	Action     Action    `json:"action"`
	Details    string    `json:"details"`
	ProspectID string    `json:"speaker_id,omitempty"`
	CreatedAt  time.Time `json:"timestamp"`
}

// NewEntry stamps an id and the current time. prospectID may be empty.
func NewEntry(actor string, action Action, details, prospectID string) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Actor:      actor,
		Action:     action,
		Details:    details,
		ProspectID: prospectID,
		CreatedAt:  time.Now().UTC(),
	}
}
