package drafts

import (
	"encoding/json"
	"html"
	"strings"
)

// Draft is an outreach email. It is stored as JSON in the prospect's
// draft_text column.
type Draft struct {
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	BodyText string `json:"body_text"`
	Fallback bool   `json:"fallback,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Empty reports whether the draft carries no body.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.BodyText) == "" && strings.TrimSpace(d.BodyHTML) == ""
}

// Encode returns the JSON form saved on the prospect.
func (d Draft) Encode() string {
	d.Fallback = false
	d.Error = ""
	data, _ := json.Marshal(d)
	return string(data)
}

// ParseDraft reads model output or a stored draft. JSON objects, optionally
// wrapped in markdown fences, are decoded directly; anything else is treated
// as a plain text email with an optional leading "Subject:" line.
func ParseDraft(raw string) (Draft, bool) {
	text := stripFences(raw)
	if text == "" {
		return Draft{}, false
	}
	if obj, ok := extractJSON(text, '{', '}'); ok {
		var d Draft
		if err := json.Unmarshal([]byte(obj), &d); err == nil && !d.Empty() {
			d.Subject = strings.TrimSpace(d.Subject)
			if strings.TrimSpace(d.BodyText) == "" {
				d.BodyText = htmlToText(d.BodyHTML)
			}
			if strings.TrimSpace(d.BodyHTML) == "" {
				d.BodyHTML = textToHTML(d.BodyText)
			}
			return d, true
		}
	}

	var d Draft
	body := text
	first, rest, _ := strings.Cut(text, "\n")
	if first = strings.TrimSpace(first); strings.HasPrefix(strings.ToLower(first), "subject:") {
		d.Subject = strings.TrimSpace(first[len("subject:"):])
		body = strings.TrimSpace(rest)
	}
	d.BodyText = body
	d.BodyHTML = textToHTML(body)
	return d, !d.Empty()
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSON returns the outermost lo...hi span of s.
func extractJSON(s string, lo, hi byte) (string, bool) {
	start := strings.IndexByte(s, lo)
	end := strings.LastIndexByte(s, hi)
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func textToHTML(text string) string {
	paras := strings.Split(strings.TrimSpace(text), "\n\n")
	var b strings.Builder
	for _, p := range paras {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

var htmlBreaks = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n\n", "<p>", "")

func htmlToText(s string) string {
	return strings.TrimSpace(html.UnescapeString(htmlBreaks.Replace(s)))
}
