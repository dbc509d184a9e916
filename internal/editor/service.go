package editor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"leadboard/internal/ai"
	"leadboard/internal/storage"
)

// Messages shown when a feature degrades.
const (
	EmailFallback       = "Failed to generate email draft. Please try again."
	AgendaFallback      = "Failed to generate meeting agenda. Please try again."
	SaveFailedMessage   = "Failed to save account. Please try again."
	DeleteFailedMessage = "Failed to delete account. Please try again."
	NoteFailedMessage   = "Failed to save note. Please try again."
)

// ErrEmptyNote is returned when appending or editing a note to blank text.
var ErrEmptyNote = errors.New("note text is empty")

// Store is the persistence the editor writes through.
type Store interface {
	CreateAccount(ctx context.Context, ownerID string, a *storage.Account) error
	UpdateAccount(ctx context.Context, ownerID string, a *storage.Account) error
	UpdateFields(ctx context.Context, ownerID, id string, patch storage.Patch) error
	DeleteAccount(ctx context.Context, ownerID, id string) error
}

// Generator is the generative API.
type Generator interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
}

// Service runs editor operations against the store and the AI API.
type Service struct {
	store Store
	gen   Generator
	loc   *time.Location
	log   zerolog.Logger
	now   func() time.Time
}

// NewService wires the editor. loc is the timezone form dates are read in.
func NewService(store Store, gen Generator, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, gen: gen, loc: loc, log: logger, now: time.Now}
}

// SetLocation changes the timezone used for form dates.
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// Save validates the form, recomputes the deal score and creates or
// updates the account. Validation and date errors are returned before any
// AI or store call.
func (s *Service) Save(ctx context.Context, ownerID string, form Form) (storage.Account, error) {
	account, err := form.account(s.loc)
	if err != nil {
		return storage.Account{}, err
	}
	switch {
	case form.Stage == storage.StageClosedWon || form.Stage == storage.StageClosedLost:
		account.DealScore = s.Score(ctx, form)
	case form.IsNew():
		account.DealScore = storage.DefaultDealScore
	default:
		account.DealScore = s.Score(ctx, form)
	}

	if form.IsNew() {
		if err := s.store.CreateAccount(ctx, ownerID, &account); err != nil {
			s.log.Error().Err(err).Msg("create account failed")
			return storage.Account{}, fmt.Errorf("create account: %w", err)
		}
		s.log.Info().Str("account", account.ID).Msg("account created")
		return account, nil
	}
	if err := s.store.UpdateAccount(ctx, ownerID, &account); err != nil {
		s.log.Error().Err(err).Str("account", account.ID).Msg("update account failed")
		return storage.Account{}, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

// Delete removes an account. Callers confirm through Session first.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteAccount(ctx, ownerID, id); err != nil {
		s.log.Error().Err(err).Str("account", id).Msg("delete account failed")
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// Score returns the deal score for the form: fixed for terminal stages,
// otherwise the AI estimate, or the default when the API gives nothing.
func (s *Service) Score(ctx context.Context, form Form) int {
	switch form.Stage {
	case storage.StageClosedWon:
		return 100
	case storage.StageClosedLost:
		return 0
	}
	text, err := s.gen.Generate(ctx, ai.ScoreRequest(form.Facts()))
	if err != nil {
		s.log.Warn().Err(err).Msg("deal score unavailable")
		return storage.DefaultDealScore
	}
	return ai.ParseScore(text)
}

// DraftEmail returns a follow-up email or EmailFallback.
func (s *Service) DraftEmail(ctx context.Context, form Form) string {
	text, err := s.gen.Generate(ctx, ai.EmailRequest(form.Facts()))
	if err != nil {
		s.log.Error().Err(err).Msg("email draft failed")
		return EmailFallback
	}
	return strings.TrimSpace(text)
}

// Agenda returns a markdown meeting agenda or AgendaFallback.
func (s *Service) Agenda(ctx context.Context, form Form) string {
	text, err := s.gen.Generate(ctx, ai.AgendaRequest(form.Facts()))
	if err != nil {
		s.log.Error().Err(err).Msg("agenda failed")
		return AgendaFallback
	}
	return strings.TrimSpace(text)
}

// ScanCard reads a business card image and extracts its contact fields.
// A reply that is not valid JSON is logged and yields an empty card, which
// leaves a form unchanged when merged.
func (s *Service) ScanCard(ctx context.Context, path string) (ai.ContactCard, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return ai.ContactCard{}, fmt.Errorf("read card image: %w", err)
	}
	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		return ai.ContactCard{}, fmt.Errorf("read card image: unsupported type %s", mimeType)
	}
	text, err := s.gen.Generate(ctx, ai.CardRequest(mimeType, image))
	if err != nil {
		return ai.ContactCard{}, fmt.Errorf("scan card: %w", err)
	}
	card, err := ai.ParseContactCard(text)
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("business card reply is not valid JSON")
		return ai.ContactCard{}, nil
	}
	return card, nil
}

// ExtractAccount turns a dictated description into account fields.
func (s *Service) ExtractAccount(ctx context.Context, transcript string) (ai.AccountExtraction, error) {
	text, err := s.gen.Generate(ctx, ai.AccountExtractionRequest(transcript))
	if err != nil {
		return ai.AccountExtraction{}, fmt.Errorf("extract account: %w", err)
	}
	out, err := ai.ParseAccountExtraction(text)
	if err != nil {
		s.log.Error().Err(err).Msg("account extraction reply is not valid JSON")
		return ai.AccountExtraction{}, err
	}
	return out, nil
}

// StructureNote turns a dictated note into a formatted note candidate and
// its sentiment.
func (s *Service) StructureNote(ctx context.Context, transcript string) (string, string, error) {
	text, err := s.gen.Generate(ctx, ai.NoteStructureRequest(transcript))
	if err != nil {
		return "", "", fmt.Errorf("structure note: %w", err)
	}
	n, err := ai.ParseNoteStructure(text)
	if err != nil {
		s.log.Error().Err(err).Msg("note structure reply is not valid JSON")
		return "", "", err
	}
	return FormatNote(n), n.Sentiment, nil
}

// AppendNote adds a note. Saved accounts are patched immediately with the
// whole note list; new accounts keep it in the form until Save.
func (s *Service) AppendNote(ctx context.Context, ownerID string, form *Form, text, sentiment string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyNote
	}
	notes := make([]storage.Note, len(form.Notes), len(form.Notes)+1)
	copy(notes, form.Notes)
	notes = append(notes, storage.Note{Text: text, Timestamp: s.now().UTC(), Sentiment: sentiment})
	return s.persistNotes(ctx, ownerID, form, notes)
}

// EditNote replaces the text of note i.
func (s *Service) EditNote(ctx context.Context, ownerID string, form *Form, i int, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyNote
	}
	if i < 0 || i >= len(form.Notes) {
		return fmt.Errorf("edit note: index %d out of range", i)
	}
	notes := make([]storage.Note, len(form.Notes))
	copy(notes, form.Notes)
	notes[i].Text = text
	return s.persistNotes(ctx, ownerID, form, notes)
}

func (s *Service) persistNotes(ctx context.Context, ownerID string, form *Form, notes []storage.Note) error {
	if !form.IsNew() {
		if err := s.store.UpdateFields(ctx, ownerID, form.ID, storage.Patch{storage.FieldNotes: notes}); err != nil {
			s.log.Error().Err(err).Str("account", form.ID).Msg("save notes failed")
			return fmt.Errorf("save notes: %w", err)
		}
	}
	form.Notes = notes
	return nil
}
