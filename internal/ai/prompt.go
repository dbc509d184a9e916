package ai

import (
	"fmt"
	"strings"
)

// Feature names, used as the metrics label and log field.
const (
	FeatureScore      = "score"
	FeatureEmail      = "email"
	FeatureAgenda     = "agenda"
	FeatureCard       = "card"
	FeatureExtraction = "extraction"
	FeatureNote       = "note"
	FeatureTranscribe = "transcribe"
)

// NoteFact is one note as it appears in a prompt.
type NoteFact struct {
	Text      string
	Sentiment string
}

// LeadFacts is the account data prompts are built from. Numbers stay as
// the user typed them.
type LeadFacts struct {
	CompanyName    string
	Stage          string
	Value          string
	MonthlyValue   string
	ServicesNeeded string
	Industry       string
	ContactName    string
	ContactTitle   string
	Notes          []NoteFact
}

func (f LeadFacts) noteHistory() string {
	if len(f.Notes) == 0 {
		return "No notes yet."
	}
	var sb strings.Builder
	for i, n := range f.Notes {
		sentiment := n.Sentiment
		if sentiment == "" {
			sentiment = "unknown"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, sentiment, strings.TrimSpace(n.Text))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not provided"
	}
	return strings.TrimSpace(s)
}

// ScoreRequest asks for a single 0-100 close-probability integer.
func ScoreRequest(f LeadFacts) Request {
	prompt := fmt.Sprintf(`You are a B2B sales analyst. Estimate the probability (0-100) that this deal closes.
Company: %s
Stage: %s
Deal value: %s
Monthly value: %s
Notes (with sentiment):
%s

Reply with a single integer between 0 and 100 and nothing else.`,
		orNone(f.CompanyName), orNone(f.Stage), orNone(f.Value), orNone(f.MonthlyValue), f.noteHistory())
	return Request{Feature: FeatureScore, Parts: []Part{TextPart(prompt)}}
}

// EmailRequest asks for a follow-up email draft.
func EmailRequest(f LeadFacts) Request {
	prompt := fmt.Sprintf(`Write a concise, professional follow-up email to a prospect.
Company: %s
Contact: %s (%s)
Industry: %s
Services needed: %s
Pipeline stage: %s
Conversation history:
%s

Start with a line "Subject: ..." followed by the email body. Do not use placeholders for information given above.`,
		orNone(f.CompanyName), orNone(f.ContactName), orNone(f.ContactTitle), orNone(f.Industry),
		orNone(f.ServicesNeeded), orNone(f.Stage), f.noteHistory())
	return Request{Feature: FeatureEmail, Parts: []Part{TextPart(prompt)}}
}

// AgendaRequest asks for a markdown meeting agenda.
func AgendaRequest(f LeadFacts) Request {
	prompt := fmt.Sprintf(`Prepare a meeting agenda for the next call with this prospect, in markdown.
Company: %s
Contact: %s (%s)
Services needed: %s
Pipeline stage: %s
Deal value: %s
Notes:
%s

Use a heading, a numbered list of agenda items with time estimates, and a short list of open questions.`,
		orNone(f.CompanyName), orNone(f.ContactName), orNone(f.ContactTitle), orNone(f.ServicesNeeded),
		orNone(f.Stage), orNone(f.Value), f.noteHistory())
	return Request{Feature: FeatureAgenda, Parts: []Part{TextPart(prompt)}}
}

func stringSchema(fields ...string) map[string]any {
	props := make(map[string]any, len(fields))
	for _, name := range fields {
		props[name] = map[string]any{"type": "STRING"}
	}
	return map[string]any{"type": "OBJECT", "properties": props}
}

// CardRequest asks for the contact fields printed on a business card image.
func CardRequest(mimeType string, image []byte) Request {
	prompt := `Extract the contact details from this business card. Return JSON with the keys
companyName, contactName, contactTitle, contactEmail, contactPhone, website. Use an empty string for anything not on the card.`
	return Request{
		Feature: FeatureCard,
		Parts:   []Part{TextPart(prompt), InlinePart(mimeType, image)},
	}
}

var extractionSchema = func() map[string]any {
	s := stringSchema("companyName", "servicesNeeded", "contactName", "contactTitle", "contactEmail", "contactPhone")
	props := s["properties"].(map[string]any)
	props["value"] = map[string]any{"type": "NUMBER"}
	props["monthlyValue"] = map[string]any{"type": "NUMBER"}
	return s
}()

// AccountExtractionRequest asks for account fields mentioned in a dictated
// transcript.
func AccountExtractionRequest(transcript string) Request {
	prompt := fmt.Sprintf(`Extract CRM account details from this dictated description. Only include facts that were said.
Transcript:
%s`, strings.TrimSpace(transcript))
	return Request{Feature: FeatureExtraction, Parts: []Part{TextPart(prompt)}, Schema: extractionSchema}
}

var noteSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"summary":     map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		"actionItems": map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		"concerns":    map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		"sentiment":   map[string]any{"type": "STRING", "enum": []string{"positive", "neutral", "negative"}},
	},
	"required": []string{"summary", "sentiment"},
}

// NoteStructureRequest asks for a structured breakdown of a dictated call
// note.
func NoteStructureRequest(transcript string) Request {
	prompt := fmt.Sprintf(`Structure this dictated sales call note. Give summary bullet points, action items,
customer concerns and the overall customer sentiment.
Transcript:
%s`, strings.TrimSpace(transcript))
	return Request{Feature: FeatureNote, Parts: []Part{TextPart(prompt)}, Schema: noteSchema}
}

// TranscriptionRequest asks for a verbatim transcript of recorded audio.
func TranscriptionRequest(mimeType string, audio []byte, locale string) Request {
	prompt := fmt.Sprintf("Transcribe this recording verbatim. The speaker's language is %s. Reply with the transcript only.", orNone(locale))
	return Request{
		Feature: FeatureTranscribe,
		Parts:   []Part{TextPart(prompt), InlinePart(mimeType, audio)},
	}
}
