package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultScore is used when the scorer gives no usable answer.
const DefaultScore = 50

// scoreToken matches an integer standing on its own, so "Q3" or "3rd" do
// not count.
var scoreToken = regexp.MustCompile(`(?:^|[^\w])(-?\d+)\b`)

// ParseScore returns the first standalone integer in text clamped to
// 0-100, or DefaultScore when there is none.
func ParseScore(text string) int {
	match := scoreToken.FindStringSubmatch(text)
	if match == nil {
		return DefaultScore
	}
	m := match[1]
	n, err := strconv.Atoi(m)
	if err != nil {
		return DefaultScore
	}
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return n
}

// ContactCard is what a business-card scan yields.
type ContactCard struct {
	CompanyName  string `json:"companyName"`
	ContactName  string `json:"contactName"`
	ContactTitle string `json:"contactTitle"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
	Website      string `json:"website"`
}

// AccountExtraction is the set of account fields found in a transcript.
// Value and MonthlyValue are nil when not mentioned.
type AccountExtraction struct {
	CompanyName    string   `json:"companyName"`
	ServicesNeeded string   `json:"servicesNeeded"`
	Value          *float64 `json:"value"`
	MonthlyValue   *float64 `json:"monthlyValue"`
	ContactName    string   `json:"contactName"`
	ContactTitle   string   `json:"contactTitle"`
	ContactEmail   string   `json:"contactEmail"`
	ContactPhone   string   `json:"contactPhone"`
}

// NoteStructure is the structured form of a dictated note.
type NoteStructure struct {
	Summary     []string `json:"summary"`
	ActionItems []string `json:"actionItems"`
	Concerns    []string `json:"concerns"`
	Sentiment   string   `json:"sentiment"`
}

// stripFence removes a surrounding markdown code fence, which models add
// to JSON replies when no schema is enforced.
func stripFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

func decodeJSON(kind, text string, v any) error {
	if err := json.Unmarshal([]byte(stripFence(text)), v); err != nil {
		return fmt.Errorf("parse %s: %w", kind, err)
	}
	return nil
}

// ParseContactCard decodes a card-scan reply.
func ParseContactCard(text string) (ContactCard, error) {
	var card ContactCard
	err := decodeJSON("contact card", text, &card)
	return card, err
}

// ParseAccountExtraction decodes an account-extraction reply.
func ParseAccountExtraction(text string) (AccountExtraction, error) {
	var out AccountExtraction
	err := decodeJSON("account extraction", text, &out)
	return out, err
}

// ParseNoteStructure decodes a note-structure reply. Unknown sentiments
// become neutral.
func ParseNoteStructure(text string) (NoteStructure, error) {
	var out NoteStructure
	if err := decodeJSON("note structure", text, &out); err != nil {
		return out, err
	}
	switch s := strings.ToLower(strings.TrimSpace(out.Sentiment)); s {
	case "positive", "neutral", "negative":
		out.Sentiment = s
	default:
		out.Sentiment = "neutral"
	}
	return out, nil
}
