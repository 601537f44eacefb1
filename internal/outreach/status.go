package outreach

import "strings"

// Status is a pipeline stage.
type Status string

const (
	StatusScouted          Status = "SCOUTED"
	StatusEmailAdded       Status = "EMAIL_ADDED"
	StatusResearched       Status = "RESEARCHED"
	StatusDrafted          Status = "DRAFTED"
	StatusContactInitiated Status = "CONTACT_INITIATED"
	StatusConnected        Status = "CONNECTED"
	StatusInTalks          Status = "IN_TALKS"
	StatusLocked           Status = "LOCKED"
)

// Pipeline lists the stages in board order. LOCKED is terminal by convention only.
var Pipeline = []Status{
	StatusScouted,
	StatusEmailAdded,
	StatusResearched,
	StatusDrafted,
	StatusContactInitiated,
	StatusConnected,
	StatusInTalks,
	StatusLocked,
}

var xpRewards = map[Status]int{
	StatusResearched:       10,
	StatusEmailAdded:       5,
	StatusDrafted:          5,
	StatusContactInitiated: 50,
	StatusConnected:        100,
	StatusInTalks:          150,
	StatusLocked:           500,
}

// ParseStatus accepts any casing.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Pipeline {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// XPFor is the reward for moving a prospect into s.
func XPFor(s Status) int {
	return xpRewards[s]
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Allow        bool
	Next         Status
	AutoAdvanced bool
	XP           int
}

// Changed reports whether the decision moves the prospect.
func (d Decision) Changed(current Status) bool {
	return d.Allow && d.Next != current
}

// Evaluate decides the status a prospect ends up in after an update.
//
// proposed is the explicitly requested status, nil when the update leaves it
// out. hasContact reports whether email or phone is non-empty after the update
// is applied; contactSupplied whether the update itself carries a non-empty
// email or phone. An explicit status always wins over auto-advance.
func Evaluate(current Status, proposed *Status, hasContact, contactSupplied bool) Decision {
	next := current
	auto := false
	switch {
	case proposed != nil:
		next = *proposed
	case current == StatusScouted && contactSupplied:
		next = StatusEmailAdded
		auto = true
	}

	if next != StatusScouted && !hasContact {
		return Decision{Allow: false, Next: current}
	}

	d := Decision{Allow: true, Next: next, AutoAdvanced: auto}
	if next != current {
		d.XP = XPFor(next)
	}
	return d
}
