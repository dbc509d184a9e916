package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"leadboard/internal/ai"
	"leadboard/internal/editor"
	"leadboard/internal/mail"
	"leadboard/internal/markdown"
	"leadboard/internal/speech"
	"leadboard/internal/storage"
)

type editorMode int

const (
	modeFields editorMode = iota
	modeNote
	modeCard
)

type fieldKind int

const (
	textField fieldKind = iota
	stageField
)

type formField struct {
	label string
	kind  fieldKind
	ref   func(*editor.Form) *string
}

var formFields = []formField{
	{label: "Company name", ref: func(f *editor.Form) *string { return &f.CompanyName }},
	{label: "Services needed", ref: func(f *editor.Form) *string { return &f.ServicesNeeded }},
	{label: "Industry", ref: func(f *editor.Form) *string { return &f.Industry }},
	{label: "Website", ref: func(f *editor.Form) *string { return &f.Website }},
	{label: "Company size", ref: func(f *editor.Form) *string { return &f.CompanySize }},
	{label: "Lead source", ref: func(f *editor.Form) *string { return &f.LeadSource }},
	{label: "Contact name", ref: func(f *editor.Form) *string { return &f.ContactName }},
	{label: "Contact title", ref: func(f *editor.Form) *string { return &f.ContactTitle }},
	{label: "Contact email", ref: func(f *editor.Form) *string { return &f.ContactEmail }},
	{label: "Contact phone", ref: func(f *editor.Form) *string { return &f.ContactPhone }},
	{label: "Stage", kind: stageField},
	{label: "Value", ref: func(f *editor.Form) *string { return &f.Value }},
	{label: "Monthly value", ref: func(f *editor.Form) *string { return &f.MonthlyValue }},
	{label: "Expected close", ref: func(f *editor.Form) *string { return &f.ExpectedCloseDate }},
	{label: "Next follow-up", ref: func(f *editor.Form) *string { return &f.NextFollowUpDate }},
	{label: "Lost reason", ref: func(f *editor.Form) *string { return &f.LostReason }},
}

type dictationTarget int

const (
	targetFields dictationTarget = iota
	targetNote
)

func (t dictationTarget) String() string {
	if t == targetNote {
		return "note"
	}
	return "fields"
}

type editorModel struct {
	session *editor.Session
	mode    editorMode
	focus   int
	input   textinput.Model
	aux     textinput.Model

	// editIndex is the note being edited, or -1 when appending.
	editIndex  int
	noteCursor int

	output      string
	outputTitle string
	draft       string

	err     string
	info    string
	pending string
	stops   [2]context.CancelFunc
}

type savedMsg struct {
	session *editor.Session
	account storage.Account
	err     error
}

type deletedMsg struct {
	session *editor.Session
	err     error
}

type aiTextMsg struct {
	session *editor.Session
	title   string
	text    string
	email   bool
}

type cardMsg struct {
	session *editor.Session
	card    ai.ContactCard
	err     error
}

type notesMsg struct {
	session   *editor.Session
	notes     []storage.Note
	candidate bool
	err       error
}

type mailSentMsg struct {
	session *editor.Session
	to      string
	err     error
}

type dictationEndedMsg struct {
	session *editor.Session
	target  dictationTarget
	err     error
}

type extractionMsg struct {
	session    *editor.Session
	extraction ai.AccountExtraction
	err        error
}

type noteCandidateMsg struct {
	session   *editor.Session
	text      string
	sentiment string
	err       error
}

// openEditor shows the editor for existing, or for a new account when
// existing is nil.
func (m *model) openEditor(existing *storage.Account) tea.Cmd {
	m.closeEditor()
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	m.editor = editorModel{
		session:   editor.NewSession(existing, m.location()),
		input:     ti,
		editIndex: -1,
	}
	if n := len(m.editor.session.Form.Notes); n > 0 {
		m.editor.noteCursor = n - 1
	}
	m.loadField()
	m.pushState(stateEditor)
	return m.editor.input.Focus()
}

// closeEditor stops any dictation and forgets the session. Results that
// arrive later for it are ignored.
func (m *model) closeEditor() {
	for i, stop := range m.editor.stops {
		if stop != nil {
			stop()
			m.editor.stops[i] = nil
		}
	}
	m.editor = editorModel{}
}

func (m *model) form() *editor.Form {
	return &m.editor.session.Form
}

func (m *model) commitField() {
	f := formFields[m.editor.focus]
	if f.kind == textField {
		*f.ref(m.form()) = m.editor.input.Value()
	}
}

func (m *model) loadField() {
	f := formFields[m.editor.focus]
	m.editor.input.Placeholder = f.label
	if f.kind == stageField {
		m.editor.input.SetValue(string(m.form().Stage))
	} else {
		m.editor.input.SetValue(*f.ref(m.form()))
	}
	m.editor.input.CursorEnd()
}

func (m *model) focusField(next int) {
	m.commitField()
	n := len(formFields)
	m.editor.focus = (next%n + n) % n
	m.loadField()
}

func (m *model) cycleStage(delta int) {
	n := len(storage.Stages)
	idx := m.form().Stage.Index()
	if idx < 0 {
		idx = 0
	}
	m.form().Stage = storage.Stages[((idx+delta)%n+n)%n]
	m.loadField()
}

func (m *model) dictation(target dictationTarget) *speech.Dictation {
	if target == targetNote {
		return &m.editor.session.NoteDictation
	}
	return &m.editor.session.FieldDictation
}

// startPending marks a background editor operation. Only one runs at a time.
func (m *model) startPending(label string) bool {
	if m.editor.pending != "" {
		return false
	}
	m.editor.pending = label
	m.editor.err = ""
	m.editor.info = ""
	return true
}

func (m *model) aiReady() bool {
	if !m.deps.AIEnabled {
		m.editor.err = aiDisabledMessage
		return false
	}
	return true
}

func (m *model) updateEditor(msg tea.Msg) tea.Cmd {
	e := &m.editor
	if e.session == nil {
		m.popState()
		return nil
	}
	key, isKey := msg.(tea.KeyMsg)

	if isKey && e.session.DeleteArmed() {
		if key.Type == tea.KeyRunes && strings.EqualFold(string(key.Runes), "y") {
			return m.confirmDelete()
		}
		e.session.CancelDelete()
		return nil
	}

	switch e.mode {
	case modeNote, modeCard:
		return m.updateAux(msg)
	}

	if isKey {
		switch key.Type {
		case tea.KeyEsc:
			m.escapeEditor()
			return nil
		case tea.KeyTab, tea.KeyDown, tea.KeyEnter:
			m.focusField(e.focus + 1)
			return nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.focusField(e.focus - 1)
			return nil
		case tea.KeyPgUp:
			if e.noteCursor > 0 {
				e.noteCursor--
			}
			return nil
		case tea.KeyPgDown:
			if e.noteCursor < len(m.form().Notes)-1 {
				e.noteCursor++
			}
			return nil
		case tea.KeyCtrlS:
			return m.saveEditor()
		case tea.KeyCtrlD:
			if !e.session.ArmDelete() {
				e.err = "Nothing to delete: this account has not been saved"
			}
			return nil
		case tea.KeyCtrlE:
			return m.generateText(true)
		case tea.KeyCtrlG:
			return m.generateText(false)
		case tea.KeyCtrlX:
			return m.sendDraft()
		case tea.KeyCtrlO:
			if !m.aiReady() {
				return nil
			}
			return m.openAux(modeCard, "Path to business card image", "")
		case tea.KeyCtrlT:
			e.editIndex = -1
			return m.openAux(modeNote, "Note", "")
		case tea.KeyCtrlL:
			notes := m.form().Notes
			if e.noteCursor < 0 || e.noteCursor >= len(notes) {
				return nil
			}
			e.editIndex = e.noteCursor
			return m.openAux(modeNote, "Note", notes[e.noteCursor].Text)
		case tea.KeyCtrlY:
			return m.appendCandidate()
		case tea.KeyCtrlR:
			return m.toggleDictation(targetFields)
		case tea.KeyCtrlN:
			return m.toggleDictation(targetNote)
		}
		if formFields[e.focus].kind == stageField {
			switch key.Type {
			case tea.KeyLeft:
				m.cycleStage(-1)
			case tea.KeyRight:
				m.cycleStage(1)
			}
			return nil
		}
	}

	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	return cmd
}

func (m *model) escapeEditor() {
	e := &m.editor
	switch {
	case e.session.NoteCandidate != "":
		e.session.ClearNoteCandidate()
	case e.output != "":
		e.output, e.outputTitle = "", ""
	default:
		m.closeEditor()
		m.popState()
	}
}

func (m *model) openAux(mode editorMode, placeholder, value string) tea.Cmd {
	m.commitField()
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 2000
	ti.SetValue(value)
	m.editor.aux = ti
	m.editor.mode = mode
	m.editor.err = ""
	return m.editor.aux.Focus()
}

func (m *model) updateAux(msg tea.Msg) tea.Cmd {
	e := &m.editor
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc:
			e.mode = modeFields
			return nil
		case tea.KeyEnter:
			value := strings.TrimSpace(e.aux.Value())
			if e.mode == modeCard {
				return m.scanCard(value)
			}
			return m.saveNote(value)
		}
	}
	var cmd tea.Cmd
	e.aux, cmd = e.aux.Update(msg)
	return cmd
}

func (m *model) saveEditor() tea.Cmd {
	m.commitField()
	if !m.startPending("Saving") {
		return nil
	}
	svc, owner, session := m.deps.Editor, m.ownerID(), m.editor.session
	form := session.Form
	return batchCmds([]tea.Cmd{func() tea.Msg {
		account, err := svc.Save(context.Background(), owner, form)
		return savedMsg{session: session, account: account, err: err}
	}, m.spinner.Tick})
}

func (m *model) handleSaved(msg savedMsg) tea.Cmd {
	if msg.session != m.editor.session {
		return nil
	}
	m.editor.pending = ""
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, editor.ErrCompanyRequired),
			errors.Is(msg.err, editor.ErrLostReasonRequired),
			errors.Is(msg.err, editor.ErrInvalidDate):
			m.editor.err = sentence(msg.err)
		default:
			m.editor.err = editor.SaveFailedMessage
		}
		return nil
	}
	m.closeEditor()
	m.popState()
	m.infoMessage = fmt.Sprintf("Saved %s (deal score %d)", msg.account.CompanyName, msg.account.DealScore)
	return nil
}

func (m *model) confirmDelete() tea.Cmd {
	e := &m.editor
	if !e.session.ConfirmDelete() || !m.startPending("Deleting") {
		return nil
	}
	svc, owner, session := m.deps.Editor, m.ownerID(), e.session
	id := session.Form.ID
	return batchCmds([]tea.Cmd{func() tea.Msg {
		return deletedMsg{session: session, err: svc.Delete(context.Background(), owner, id)}
	}, m.spinner.Tick})
}

func (m *model) handleDeleted(msg deletedMsg) tea.Cmd {
	if msg.session != m.editor.session {
		return nil
	}
	m.editor.pending = ""
	if msg.err != nil {
		m.editor.err = editor.DeleteFailedMessage
		return nil
	}
	m.closeEditor()
	m.popState()
	m.infoMessage = "Account deleted"
	return nil
}

// generateText drafts a follow-up email, or a meeting agenda when email is
// false. Both degrade to a fixed fallback text.
func (m *model) generateText(email bool) tea.Cmd {
	if !m.aiReady() {
		return nil
	}
	m.commitField()
	label, title := "Building agenda", "Meeting agenda"
	if email {
		label, title = "Drafting email", "Email draft"
	}
	if !m.startPending(label) {
		return nil
	}
	svc, session := m.deps.Editor, m.editor.session
	form := session.Form
	return batchCmds([]tea.Cmd{func() tea.Msg {
		var text string
		if email {
			text = svc.DraftEmail(context.Background(), form)
		} else {
			text = svc.Agenda(context.Background(), form)
		}
		return aiTextMsg{session: session, title: title, text: text, email: email}
	}, m.spinner.Tick})
}

func (m *model) handleAIText(msg aiTextMsg) {
	if msg.session != m.editor.session {
		return
	}
	e := &m.editor
	e.pending = ""
	e.outputTitle = msg.title
	if msg.email {
		e.output = msg.text
		e.draft = ""
		if msg.text != editor.EmailFallback {
			e.draft = msg.text
		}
		return
	}
	e.output = markdown.Render(msg.text, m.theme.Markdown())
}

func (m *model) sendDraft() tea.Cmd {
	e := &m.editor
	if e.draft == "" {
		e.err = "Draft an email first (ctrl+e)"
		return nil
	}
	if !m.deps.Mail.Enabled() {
		e.err = sentence(mail.ErrNotConfigured)
		return nil
	}
	m.commitField()
	if !m.startPending("Sending email") {
		return nil
	}
	sender, session, draft := m.deps.Mail, e.session, e.draft
	to := session.Form.ContactEmail
	return batchCmds([]tea.Cmd{func() tea.Msg {
		return mailSentMsg{session: session, to: to, err: sender.Send(to, draft)}
	}, m.spinner.Tick})
}

func (m *model) handleMailSent(msg mailSentMsg) {
	if msg.session != m.editor.session {
		return
	}
	m.editor.pending = ""
	if msg.err != nil {
		m.log.Error().Err(msg.err).Msg("send email failed")
		m.editor.err = sentence(msg.err)
		return
	}
	m.editor.info = "Email sent to " + msg.to
}

func (m *model) scanCard(value string) tea.Cmd {
	e := &m.editor
	path, err := expandPath(value)
	if err != nil {
		e.err = fmt.Sprintf("card path: %v", err)
		return nil
	}
	if !m.startPending("Scanning card") {
		return nil
	}
	e.mode = modeFields
	svc, session := m.deps.Editor, e.session
	return batchCmds([]tea.Cmd{func() tea.Msg {
		card, err := svc.ScanCard(context.Background(), path)
		return cardMsg{session: session, card: card, err: err}
	}, m.spinner.Tick})
}

// handleCard merges scanned contact fields. An empty card, which is what an
// unreadable reply produces, changes nothing and shows nothing.
func (m *model) handleCard(msg cardMsg) {
	if msg.session != m.editor.session {
		return
	}
	e := &m.editor
	e.pending = ""
	if msg.err != nil {
		m.log.Error().Err(msg.err).Msg("card scan failed")
		e.err = sentence(msg.err)
		return
	}
	if msg.card == (ai.ContactCard{}) {
		return
	}
	m.commitField()
	m.form().MergeCard(msg.card)
	m.loadField()
	e.info = "Business card details added"
}

func (m *model) saveNote(text string) tea.Cmd {
	e := &m.editor
	if !m.startPending("Saving note") {
		return nil
	}
	svc, owner, session, idx := m.deps.Editor, m.ownerID(), e.session, e.editIndex
	form := session.Form
	return batchCmds([]tea.Cmd{func() tea.Msg {
		var err error
		if idx < 0 {
			err = svc.AppendNote(context.Background(), owner, &form, text, "")
		} else {
			err = svc.EditNote(context.Background(), owner, &form, idx, text)
		}
		return notesMsg{session: session, notes: form.Notes, err: err}
	}, m.spinner.Tick})
}

func (m *model) appendCandidate() tea.Cmd {
	e := &m.editor
	text, sentiment := e.session.NoteCandidate, e.session.CandidateSentiment
	if text == "" || !m.startPending("Saving note") {
		return nil
	}
	svc, owner, session := m.deps.Editor, m.ownerID(), e.session
	form := session.Form
	return batchCmds([]tea.Cmd{func() tea.Msg {
		err := svc.AppendNote(context.Background(), owner, &form, text, sentiment)
		return notesMsg{session: session, notes: form.Notes, candidate: true, err: err}
	}, m.spinner.Tick})
}

func (m *model) handleNotes(msg notesMsg) {
	if msg.session != m.editor.session {
		return
	}
	e := &m.editor
	e.pending = ""
	if msg.err != nil {
		if errors.Is(msg.err, editor.ErrEmptyNote) {
			e.err = sentence(msg.err)
		} else {
			e.err = editor.NoteFailedMessage
		}
		return
	}
	appended := len(msg.notes) > len(m.form().Notes)
	m.form().Notes = msg.notes
	if msg.candidate {
		e.session.ClearNoteCandidate()
	} else {
		e.mode = modeFields
	}
	if appended {
		e.noteCursor = len(msg.notes) - 1
	}
	e.info = "Note saved"
}

// toggleDictation starts listening for target, or stops the session that
// is listening. Stopping hands the transcript to the AI helpers.
func (m *model) toggleDictation(target dictationTarget) tea.Cmd {
	e := &m.editor
	if m.deps.Speech == nil {
		e.err = "Dictation is not available"
		return nil
	}
	if !m.aiReady() {
		return nil
	}
	d := m.dictation(target)
	switch d.State() {
	case speech.Listening:
		if stop := e.stops[target]; stop != nil {
			stop()
		}
		return nil
	case speech.Processing:
		return nil
	}
	if err := d.Begin(); err != nil {
		e.err = sentence(err)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.stops[target] = cancel
	rec, session := m.deps.Speech, e.session
	return batchCmds([]tea.Cmd{func() tea.Msg {
		err := rec.Recognize(ctx, d.Feed)
		return dictationEndedMsg{session: session, target: target, err: err}
	}, m.spinner.Tick})
}

func (m *model) handleDictationEnded(msg dictationEndedMsg) tea.Cmd {
	e := &m.editor
	if msg.session != e.session {
		return nil
	}
	if stop := e.stops[msg.target]; stop != nil {
		stop()
		e.stops[msg.target] = nil
	}
	d := m.dictation(msg.target)
	if msg.err != nil {
		m.log.Error().Err(msg.err).Stringer("target", msg.target).Msg("dictation failed")
		d.Fail()
		return nil
	}
	transcript, proceed := d.End()
	if !proceed {
		return nil
	}
	svc, session := m.deps.Editor, e.session
	if msg.target == targetFields {
		return func() tea.Msg {
			x, err := svc.ExtractAccount(context.Background(), transcript)
			return extractionMsg{session: session, extraction: x, err: err}
		}
	}
	return func() tea.Msg {
		text, sentiment, err := svc.StructureNote(context.Background(), transcript)
		return noteCandidateMsg{session: session, text: text, sentiment: sentiment, err: err}
	}
}

func (m *model) handleExtraction(msg extractionMsg) {
	if msg.session != m.editor.session {
		return
	}
	m.editor.session.FieldDictation.Done()
	if msg.err != nil {
		m.log.Error().Err(msg.err).Msg("dictated account details unavailable")
		return
	}
	m.commitField()
	m.form().MergeExtraction(msg.extraction)
	m.loadField()
	m.editor.info = "Dictated details added"
}

func (m *model) handleNoteCandidate(msg noteCandidateMsg) {
	if msg.session != m.editor.session {
		return
	}
	m.editor.session.NoteDictation.Done()
	if msg.err != nil {
		m.log.Error().Err(msg.err).Msg("dictated note unavailable")
		return
	}
	m.editor.session.SetNoteCandidate(msg.text, msg.sentiment)
}

func (m *model) viewEditor() string {
	e := &m.editor
	if e.session == nil {
		return ""
	}
	form := m.form()
	title := "New account"
	if !form.IsNew() {
		title = "Edit " + form.CompanyName
	}
	lines := []string{m.theme.Title.Render(title), ""}

	for i, f := range formFields {
		label := fmt.Sprintf("%-16s", f.label)
		var value string
		switch {
		case i == e.focus && e.mode == modeFields && f.kind == stageField:
			label = m.theme.Accent.Render(label)
			value = m.theme.Highlight.Render("◂ "+string(form.Stage)+" ▸") + m.theme.Faint.Render("  ←/→ to change")
		case i == e.focus && e.mode == modeFields:
			label = m.theme.Accent.Render(label)
			value = e.input.View()
		case f.kind == stageField:
			label = m.theme.Secondary.Render(label)
			value = m.theme.Stage(form.Stage).Render(string(form.Stage))
		default:
			label = m.theme.Secondary.Render(label)
			value = m.theme.Primary.Render(*f.ref(form))
		}
		lines = append(lines, label+" "+value)
	}
	lines = append(lines, m.theme.Secondary.Render(fmt.Sprintf("%-16s", "Deal score"))+" "+m.theme.Primary.Render(fmt.Sprint(form.DealScore)))

	lines = append(lines, "", m.theme.Subtitle.Render(fmt.Sprintf("Notes (%d)", len(form.Notes))))
	if len(form.Notes) == 0 {
		lines = append(lines, m.theme.Faint.Render("No notes yet."))
	}
	loc := m.location()
	for i, n := range form.Notes {
		marker := "  "
		if i == e.noteCursor {
			marker = m.theme.Highlight.Render("▸ ")
		}
		stamp := n.Timestamp.In(loc).Format("Jan 02 15:04")
		if n.Sentiment != "" {
			stamp += " · " + n.Sentiment
		}
		lines = append(lines, marker+m.theme.Faint.Render(stamp))
		for _, l := range strings.Split(markdown.Render(n.Text, m.theme.Markdown()), "\n") {
			lines = append(lines, "    "+l)
		}
	}

	lines = append(lines, m.viewDictation()...)

	if e.session.NoteCandidate != "" {
		lines = append(lines, "", m.theme.Subtitle.Render("Dictated note ("+e.session.CandidateSentiment+")"))
		lines = append(lines, m.theme.Card.Render(markdown.Render(e.session.NoteCandidate, m.theme.Markdown())))
		lines = append(lines, helpLine(m.theme, "ctrl+y", "append", "esc", "discard"))
	}
	if e.output != "" {
		lines = append(lines, "", m.theme.Subtitle.Render(e.outputTitle))
		lines = append(lines, m.theme.Card.Render(e.output))
		if e.draft != "" {
			lines = append(lines, helpLine(m.theme, "ctrl+x", "send to "+form.ContactEmail, "esc", "close"))
		}
	}

	switch e.mode {
	case modeNote:
		label := "New note:"
		if e.editIndex >= 0 {
			label = fmt.Sprintf("Edit note %d:", e.editIndex+1)
		}
		lines = append(lines, "", m.theme.Accent.Render(label), e.aux.View(), helpLine(m.theme, "enter", "save", "esc", "cancel"))
	case modeCard:
		lines = append(lines, "", m.theme.Accent.Render("Business card image:"), e.aux.View(), helpLine(m.theme, "enter", "scan", "esc", "cancel"))
	}

	lines = append(lines, "")
	if e.session.DeleteArmed() {
		lines = append(lines, m.theme.Danger.Render(fmt.Sprintf("Delete %s? This cannot be undone. (y/n)", form.CompanyName)))
	}
	if e.pending != "" {
		lines = append(lines, m.spinner.View()+" "+m.theme.Secondary.Render(e.pending+"..."))
	}
	if !m.deps.AIEnabled {
		lines = append(lines, m.theme.Warning.Render(aiDisabledMessage))
	}
	if e.info != "" {
		lines = append(lines, m.theme.Success.Render(e.info))
	}
	if e.err != "" {
		lines = append(lines, m.theme.Danger.Render(e.err))
	}
	lines = append(lines,
		helpLine(m.theme, "tab/↑↓", "field", "ctrl+s", "save", "ctrl+d", "delete", "esc", "back"),
		helpLine(m.theme, "ctrl+t", "add note", "pgup/pgdn", "pick note", "ctrl+l", "edit note"),
		helpLine(m.theme, "ctrl+e", "email", "ctrl+g", "agenda", "ctrl+o", "scan card", "ctrl+r", "dictate details", "ctrl+n", "dictate note"),
	)
	return strings.Join(lines, "\n") + "\n"
}

func (m *model) viewDictation() []string {
	var lines []string
	for _, target := range []dictationTarget{targetFields, targetNote} {
		d := m.dictation(target)
		key := "ctrl+r"
		if target == targetNote {
			key = "ctrl+n"
		}
		switch d.State() {
		case speech.Listening:
			line := m.theme.Danger.Render("● Listening ("+target.String()+")") + m.theme.Faint.Render("  "+key+" to stop")
			if interim := d.Interim(); interim != "" {
				line += "  " + m.theme.Faint.Render(interim)
			}
			lines = append(lines, line)
		case speech.Processing:
			lines = append(lines, m.spinner.View()+" "+m.theme.Secondary.Render("Processing "+target.String()+" dictation..."))
		}
	}
	if len(lines) > 0 {
		lines = append([]string{""}, lines...)
	}
	return lines
}
