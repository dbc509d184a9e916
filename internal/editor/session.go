package editor

import (
	"time"

	"leadboard/internal/speech"
	"leadboard/internal/storage"
)

// Session is one open editor: the form, the delete confirmation and the
// two dictation targets.
type Session struct {
	Form Form

	FieldDictation speech.Dictation
	NoteDictation  speech.Dictation

	// NoteCandidate is a dictated note waiting for the user to append it.
	NoteCandidate      string
	CandidateSentiment string

	deleteArmed bool
}

// NewSession opens the editor for existing, or for a new account.
func NewSession(existing *storage.Account, loc *time.Location) *Session {
	return &Session{Form: NewForm(existing, loc)}
}

// ArmDelete opens the delete confirmation. New accounts cannot be deleted.
func (s *Session) ArmDelete() bool {
	if s.Form.IsNew() {
		return false
	}
	s.deleteArmed = true
	return true
}

// DeleteArmed reports whether the confirmation is open.
func (s *Session) DeleteArmed() bool { return s.deleteArmed }

// ConfirmDelete closes the confirmation and reports whether the delete
// should go ahead.
func (s *Session) ConfirmDelete() bool {
	armed := s.deleteArmed
	s.deleteArmed = false
	return armed
}

// CancelDelete closes the confirmation.
func (s *Session) CancelDelete() { s.deleteArmed = false }

// SetNoteCandidate stores a dictated note for confirmation.
func (s *Session) SetNoteCandidate(text, sentiment string) {
	s.NoteCandidate = text
	s.CandidateSentiment = sentiment
}

// ClearNoteCandidate discards the dictated note.
func (s *Session) ClearNoteCandidate() {
	s.NoteCandidate = ""
	s.CandidateSentiment = ""
}
