package drafts

import (
	"fmt"
	"strings"

	"github.com/wolfman30/outreach-pipeline/internal/outreach"
)

func systemPrompt(event string) string {
	return fmt.Sprintf("You are a professional outreach assistant for %s.", event)
}

// PreviewPrompt is the short instruction shown to members who want to draft by hand.
func PreviewPrompt(p outreach.Prospect, event string) string {
	if p.Kind == outreach.KindSponsor {
		return fmt.Sprintf("Draft a professional partnership email for %s who works in %s. Mention %s...",
			p.Name, orUnknown(p.Domain), event)
	}
	return fmt.Sprintf("Draft a professional invitation email for %s who is a %s. Mention %s...",
		p.Name, orUnknown(p.Domain), event)
}

const draftFormat = `Respond with a single JSON object and nothing else:
{"subject": "...", "body_html": "...", "body_text": "..."}
body_html uses <p> paragraphs only. body_text is the same email as plain text.`

func draftPrompt(p outreach.Prospect, event string) string {
	var b strings.Builder
	if p.Kind == outreach.KindSponsor {
		fmt.Fprintf(&b, "Write a concise sponsorship outreach email to %s on behalf of %s.\n", p.Name, event)
		if p.SPOCName != "" {
			fmt.Fprintf(&b, "Address it to %s.\n", p.SPOCName)
		}
	} else {
		fmt.Fprintf(&b, "Write a concise invitation asking %s to speak at %s.\n", p.Name, event)
	}
	writeField(&b, "Domain", p.Domain)
	writeField(&b, "Location", p.Location)
	writeField(&b, "Angle to pitch", p.Angle)
	writeField(&b, "Research notes", p.SearchDetails)
	writeField(&b, "Team notes", p.Notes)
	b.WriteString("Keep it under 200 words, warm and specific. Do not invent facts.\n\n")
	b.WriteString(draftFormat)
	return b.String()
}

func refinePrompt(current Draft, instruction string) string {
	var b strings.Builder
	b.WriteString("Revise this outreach email.\n")
	fmt.Fprintf(&b, "Instruction: %s\n\n", instruction)
	fmt.Fprintf(&b, "Subject: %s\n\n%s\n\n", current.Subject, current.BodyText)
	b.WriteString(draftFormat)
	return b.String()
}

func huntPrompt(p outreach.Prospect) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find a publicly listed professional email address for %s.\n", p.Name)
	writeField(&b, "Domain", p.Domain)
	writeField(&b, "Location", p.Location)
	writeField(&b, "LinkedIn", p.LinkedInURL)
	b.WriteString(`Only report an address that is published on a public page. Respond with JSON only:
{"email": "...", "source": "<url or description of where it is published>"}
Use an empty email when none is found.`)
	return b.String()
}

func ingestPrompt(raw string, kind outreach.Kind) string {
	noun := "speaker"
	if kind == outreach.KindSponsor {
		noun = "sponsor company"
	}
	return fmt.Sprintf(`Extract every %s candidate from the research notes below.
Respond with a JSON array only. Each element:
{"name": "...", "primary_domain": "...", "location": "...", "angle": "...", "email": "...", "phone": "..."}
Leave unknown fields empty. Never guess contact details.

Notes:
%s`, noun, raw)
}

func writeField(b *strings.Builder, label, value string) {
	if v := strings.TrimSpace(value); v != "" {
		fmt.Fprintf(b, "%s: %s\n", label, v)
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "professional"
	}
	return s
}
