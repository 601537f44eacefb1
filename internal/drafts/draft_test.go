package drafts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		ok      bool
		subject string
		text    string
		html    string
	}{
		{
			name:    "plain json",
			raw:     `{"subject":"Hello","body_html":"<p>Hi</p>","body_text":"Hi"}`,
			ok:      true,
			subject: "Hello", text: "Hi", html: "<p>Hi</p>",
		},
		{
			name:    "fenced json with prose",
			raw:     "```json\nHere you go: {\"subject\":\"S\",\"body_text\":\"Line one\\n\\nLine two\"}\n```",
			ok:      true,
			subject: "S", text: "Line one\n\nLine two", html: "<p>Line one</p><p>Line two</p>",
		},
		{
			name:    "html only fills text",
			raw:     `{"subject":"S","body_html":"<p>A &amp; B</p><p>C</p>"}`,
			ok:      true,
			subject: "S", text: "A & B\n\nC", html: "<p>A &amp; B</p><p>C</p>",
		},
		{
			name:    "plain text with subject line",
			raw:     "Subject: Partnership\n\nDear Team,\nThanks <3",
			ok:      true,
			subject: "Partnership", text: "Dear Team,\nThanks <3", html: "<p>Dear Team,<br>Thanks &lt;3</p>",
		},
		{
			name: "plain text without subject",
			raw:  "Just a body",
			ok:   true,
			text: "Just a body", html: "<p>Just a body</p>",
		},
		{name: "empty", raw: "   ", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := ParseDraft(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.subject, d.Subject)
			assert.Equal(t, tt.text, d.BodyText)
			assert.Equal(t, tt.html, d.BodyHTML)
		})
	}
}

func TestDraftEncodeDropsTransientFields(t *testing.T) {
	d := Draft{Subject: "S", BodyText: "b", BodyHTML: "<p>b</p>", Fallback: true, Error: "boom"}
	back, ok := ParseDraft(d.Encode())
	require.True(t, ok)
	assert.False(t, back.Fallback)
	assert.Empty(t, back.Error)
	assert.Equal(t, "S", back.Subject)
}

func TestParseCandidates(t *testing.T) {
	out, err := ParseCandidates("Found these:\n```json\n[{\"name\":\" Ada Lovelace \",\"primary_domain\":\"Computing\"},{\"name\":\"\"}]\n```")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ada Lovelace", out[0].Name)
	assert.Equal(t, "Computing", out[0].Domain)

	_, err = ParseCandidates("no list here")
	assert.Error(t, err)
}

func TestParseHunt(t *testing.T) {
	assert.Equal(t, HuntResult{Email: "ada@example.org", Source: "https://example.org/team"},
		parseHunt(`{"email":"Ada@Example.org","source":"https://example.org/team"}`))
	assert.False(t, parseHunt(`{"email":"","source":""}`).Found())
	assert.False(t, parseHunt(`{"email":"not-an-address"}`).Found())
	assert.False(t, parseHunt("I could not find anything.").Found())
}
