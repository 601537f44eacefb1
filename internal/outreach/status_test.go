package outreach

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func statusPtr(s Status) *Status { return &s }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name            string
		current         Status
		proposed        *Status
		hasContact      bool
		contactSupplied bool
		want            Decision
	}{
		{
			name:            "scouted plus email auto-advances",
			current:         StatusScouted,
			hasContact:      true,
			contactSupplied: true,
			want:            Decision{Allow: true, Next: StatusEmailAdded, AutoAdvanced: true, XP: 5},
		},
		{
			name:            "explicit status wins over auto-advance",
			current:         StatusScouted,
			proposed:        statusPtr(StatusResearched),
			hasContact:      true,
			contactSupplied: true,
			want:            Decision{Allow: true, Next: StatusResearched, XP: 10},
		},
		{
			name:     "no contact blocks leaving scouted",
			current:  StatusScouted,
			proposed: statusPtr(StatusResearched),
			want:     Decision{Allow: false, Next: StatusScouted},
		},
		{
			name:       "drafted to contact initiated earns 50",
			current:    StatusDrafted,
			proposed:   statusPtr(StatusContactInitiated),
			hasContact: true,
			want:       Decision{Allow: true, Next: StatusContactInitiated, XP: 50},
		},
		{
			name:       "same status earns nothing",
			current:    StatusConnected,
			proposed:   statusPtr(StatusConnected),
			hasContact: true,
			want:       Decision{Allow: true, Next: StatusConnected},
		},
		{
			name:     "moving back to scouted needs no contact",
			current:  StatusDrafted,
			proposed: statusPtr(StatusScouted),
			want:     Decision{Allow: true, Next: StatusScouted},
		},
		{
			name:    "clearing contact past scouted is rejected",
			current: StatusDrafted,
			want:    Decision{Allow: false, Next: StatusDrafted},
		},
		{
			name:       "contact already present does not auto-advance",
			current:    StatusScouted,
			hasContact: true,
			want:       Decision{Allow: true, Next: StatusScouted},
		},
		{
			name:       "leaving locked is allowed",
			current:    StatusLocked,
			proposed:   statusPtr(StatusInTalks),
			hasContact: true,
			want:       Decision{Allow: true, Next: StatusInTalks, XP: 150},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.current, tt.proposed, tt.hasContact, tt.contactSupplied)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestXPFor(t *testing.T) {
	want := map[Status]int{
		StatusScouted: 0, StatusEmailAdded: 5, StatusResearched: 10, StatusDrafted: 5,
		StatusContactInitiated: 50, StatusConnected: 100, StatusInTalks: 150, StatusLocked: 500,
	}
	for s, xp := range want {
		assert.Equal(t, xp, XPFor(s), s)
	}
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" in_talks ")
	assert.True(t, ok)
	assert.Equal(t, StatusInTalks, s)

	_, ok = ParseStatus("WON")
	assert.False(t, ok)
}
