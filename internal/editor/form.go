// Package editor holds the account form and the operations behind it:
// validated saves, deal scoring and the AI helpers.
package editor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"leadboard/internal/ai"
	"leadboard/internal/storage"
)

// DateLayout is how dates are typed into the form.
const DateLayout = "2006-01-02"

var (
	ErrCompanyRequired    = errors.New("company name is required")
	ErrLostReasonRequired = errors.New("a lost reason is required for Closed Lost accounts")
	ErrInvalidDate        = errors.New("dates must be YYYY-MM-DD")
)

// Form is the editable state of one account. Numbers and dates are kept as
// the user typed them until Save.
type Form struct {
	ID        string
	CreatedAt time.Time
	DealScore int

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

	Stage        storage.Stage
	Value        string
	MonthlyValue string

	ExpectedCloseDate string
	NextFollowUpDate  string

	Notes      []storage.Note
	LostReason string
}

// NewForm fills a form from an existing account, or with defaults when
// existing is nil. Dates are shown in loc.
func NewForm(existing *storage.Account, loc *time.Location) Form {
	if existing == nil {
		return Form{
			Stage:     storage.StageBusinessIntel,
			DealScore: storage.DefaultDealScore,
			Notes:     []storage.Note{},
		}
	}
	a := existing
	notes := make([]storage.Note, len(a.Notes))
	copy(notes, a.Notes)
	return Form{
		ID:                a.ID,
		CreatedAt:         a.CreatedAt,
		DealScore:         a.DealScore,
		CompanyName:       a.CompanyName,
		ServicesNeeded:    a.ServicesNeeded,
		Industry:          a.Industry,
		Website:           a.Website,
		CompanySize:       a.CompanySize,
		LeadSource:        a.LeadSource,
		ContactName:       a.ContactName,
		ContactTitle:      a.ContactTitle,
		ContactEmail:      a.ContactEmail,
		ContactPhone:      a.ContactPhone,
		Stage:             a.Stage,
		Value:             formatAmount(a.Value),
		MonthlyValue:      formatAmount(a.MonthlyValue),
		ExpectedCloseDate: formatDate(a.ExpectedCloseDate, loc),
		NextFollowUpDate:  formatDate(a.NextFollowUpDate, loc),
		Notes:             notes,
		LostReason:        a.LostReason,
	}
}

// IsNew reports whether the form creates an account on save.
func (f Form) IsNew() bool { return f.ID == "" }

func formatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// ParseAmount normalises a typed amount. Currency symbols, thousands
// separators and spaces are ignored; anything unparsable is zero.
func ParseAmount(text string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '$', '€', '£', ' ':
			return -1
		}
		return r
	}, text)
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDate(text string, loc *time.Location) (*time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, text, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, text)
	}
	return &t, nil
}

// Validate checks the form without touching any store.
func (f Form) Validate() error {
	if strings.TrimSpace(f.CompanyName) == "" {
		return ErrCompanyRequired
	}
	if f.Stage == storage.StageClosedLost && strings.TrimSpace(f.LostReason) == "" {
		return ErrLostReasonRequired
	}
	if !f.Stage.Valid() {
		return fmt.Errorf("%w: %q", storage.ErrInvalidStage, f.Stage)
	}
	return nil
}

// account validates and converts the form to a storage record. DealScore
// is copied as is.
func (f Form) account(loc *time.Location) (storage.Account, error) {
	if err := f.Validate(); err != nil {
		return storage.Account{}, err
	}
	expected, err := parseDate(f.ExpectedCloseDate, loc)
	if err != nil {
		return storage.Account{}, err
	}
	follow, err := parseDate(f.NextFollowUpDate, loc)
	if err != nil {
		return storage.Account{}, err
	}
	notes := f.Notes
	if notes == nil {
		notes = []storage.Note{}
	}
	lostReason := ""
	if f.Stage == storage.StageClosedLost {
		lostReason = strings.TrimSpace(f.LostReason)
	}
	return storage.Account{
		ID:                f.ID,
		CompanyName:       strings.TrimSpace(f.CompanyName),
		ServicesNeeded:    strings.TrimSpace(f.ServicesNeeded),
		Industry:          strings.TrimSpace(f.Industry),
		Website:           strings.TrimSpace(f.Website),
		CompanySize:       strings.TrimSpace(f.CompanySize),
		LeadSource:        strings.TrimSpace(f.LeadSource),
		ContactName:       strings.TrimSpace(f.ContactName),
		ContactTitle:      strings.TrimSpace(f.ContactTitle),
		ContactEmail:      strings.TrimSpace(f.ContactEmail),
		ContactPhone:      strings.TrimSpace(f.ContactPhone),
		Stage:             f.Stage,
		Value:             ParseAmount(f.Value),
		MonthlyValue:      ParseAmount(f.MonthlyValue),
		DealScore:         f.DealScore,
		ExpectedCloseDate: expected,
		NextFollowUpDate:  follow,
		Notes:             notes,
		LostReason:        lostReason,
		CreatedAt:         f.CreatedAt,
	}, nil
}

// Facts is the prompt view of the form.
func (f Form) Facts() ai.LeadFacts {
	notes := make([]ai.NoteFact, 0, len(f.Notes))
	for _, n := range f.Notes {
		notes = append(notes, ai.NoteFact{Text: n.Text, Sentiment: n.Sentiment})
	}
	return ai.LeadFacts{
		CompanyName:    f.CompanyName,
		Stage:          string(f.Stage),
		Value:          f.Value,
		MonthlyValue:   f.MonthlyValue,
		ServicesNeeded: f.ServicesNeeded,
		Industry:       f.Industry,
		ContactName:    f.ContactName,
		ContactTitle:   f.ContactTitle,
		Notes:          notes,
	}
}

func mergeText(dst *string, src string) {
	if s := strings.TrimSpace(src); s != "" {
		*dst = s
	}
}

// MergeCard copies the non-empty fields of a scanned card into the form.
func (f *Form) MergeCard(c ai.ContactCard) {
	mergeText(&f.CompanyName, c.CompanyName)
	mergeText(&f.ContactName, c.ContactName)
	mergeText(&f.ContactTitle, c.ContactTitle)
	mergeText(&f.ContactEmail, c.ContactEmail)
	mergeText(&f.ContactPhone, c.ContactPhone)
	mergeText(&f.Website, c.Website)
}

// MergeExtraction copies dictated account fields into the form.
func (f *Form) MergeExtraction(x ai.AccountExtraction) {
	mergeText(&f.CompanyName, x.CompanyName)
	mergeText(&f.ServicesNeeded, x.ServicesNeeded)
	mergeText(&f.ContactName, x.ContactName)
	mergeText(&f.ContactTitle, x.ContactTitle)
	mergeText(&f.ContactEmail, x.ContactEmail)
	mergeText(&f.ContactPhone, x.ContactPhone)
	if x.Value != nil {
		f.Value = decimal.NewFromFloat(*x.Value).String()
	}
	if x.MonthlyValue != nil {
		f.MonthlyValue = decimal.NewFromFloat(*x.MonthlyValue).String()
	}
}

// FormatNote renders a structured note as markdown.
func FormatNote(n ai.NoteStructure) string {
	var sb strings.Builder
	section := func(title string, items []string) {
		var kept []string
		for _, it := range items {
			if s := strings.TrimSpace(it); s != "" {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "**%s**\n", title)
		for _, it := range kept {
			fmt.Fprintf(&sb, "- %s\n", it)
		}
	}
	section("Summary", n.Summary)
	section("Action Items", n.ActionItems)
	section("Customer Concerns", n.Concerns)
	if n.Sentiment != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Sentiment: %s\n", n.Sentiment)
	}
	return strings.TrimRight(sb.String(), "\n")
}
