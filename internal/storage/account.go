package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stage is one of the fixed funnel stages an account moves through.
type Stage string

// Funnel stages in board order.
const (
	StageBusinessIntel Stage = "Business Intel"
	StageNewLeads      Stage = "New Leads"
	StageContacted     Stage = "Contacted"
	StageQualified     Stage = "Qualified Opportunities"
	StageProposal      Stage = "Proposal Sent"
	StageNegotiation   Stage = "Negotiation"
	StageContractSent  Stage = "Contract Sent"
	StageClosedWon     Stage = "Closed Won"
	StageClosedLost    Stage = "Closed Lost"
)

// Stages lists every funnel stage in board order.
var Stages = []Stage{
	StageBusinessIntel,
	StageNewLeads,
	StageContacted,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageContractSent,
	StageClosedWon,
	StageClosedLost,
}

// Valid reports whether s is one of the funnel stages.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Active reports whether accounts in s count towards pipeline metrics.
// Closed Won, Closed Lost and Business Intel do not.
func (s Stage) Active() bool {
	switch s {
	case StageClosedWon, StageClosedLost, StageBusinessIntel:
		return false
	}
	return s.Valid()
}

// Index returns the board position of s, or -1.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStage resolves a stage name case-insensitively.
func ParseStage(value string) (Stage, error) {
	trimmed := strings.TrimSpace(value)
	for _, st := range Stages {
		if strings.EqualFold(string(st), trimmed) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, value)
}

// Sentiment tags attached to notes produced from dictation.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Note is one entry in an account's note history.
type Note struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Sentiment string    `json:"sentiment,omitempty"`
}

// DefaultDealScore is the score assigned when no better estimate exists.
const DefaultDealScore = 50

// Account represents a sales lead owned by one user.
type Account struct {
	ID      string
	OwnerID string

	CompanyName    string
	ServicesNeeded string
	Industry       string
	Website        string
	CompanySize    string
	LeadSource     string

	ContactName  string
	ContactTitle string
	ContactEmail string
	ContactPhone string

	Stage        Stage
	Value        decimal.Decimal
	MonthlyValue decimal.Decimal
	DealScore    int

	ExpectedCloseDate *time.Time
	NextFollowUpDate  *time.Time

	Notes      []Note
	LostReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Patch keys accepted by UpdateFields.
const (
	FieldStage            = "stage"
	FieldNotes            = "notes"
	FieldDealScore        = "dealScore"
	FieldNextFollowUpDate = "nextFollowUpDate"
	FieldLostReason       = "lostReason"
)

// Patch is a field-level update. Keys are the Field* constants.
type Patch map[string]any
