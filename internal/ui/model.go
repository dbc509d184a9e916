package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"leadboard/internal/auth"
	"leadboard/internal/config"
	"leadboard/internal/editor"
	"leadboard/internal/mail"
	"leadboard/internal/pipeline"
	"leadboard/internal/speech"
	"leadboard/internal/storage"
	"leadboard/internal/theme"
)

const aiDisabledMessage = "AI features disabled: set CRM_GEMINI_API_KEY"

// Deps are the services the terminal program drives.
type Deps struct {
	// Auth is nil when AuthErr is set.
	Auth    *auth.Provider
	AuthErr error

	Store     *storage.Store
	Prefs     *config.Store
	Editor    *editor.Service
	Speech    speech.Recognizer
	Mail      *mail.Sender
	AIEnabled bool
	Logger    zerolog.Logger
}

// Program wraps the Bubble Tea program lifecycle.
type Program struct {
	program *tea.Program
	model   *model
}

// NewProgram constructs a new interactive session.
func NewProgram(deps Deps) *Program {
	m := newModel(deps)
	return &Program{program: tea.NewProgram(m, tea.WithAltScreen()), model: m}
}

// Start runs the program until the user quits, then releases the auth and
// board subscriptions.
func (p *Program) Start() error {
	if p == nil || p.program == nil {
		return fmt.Errorf("nil program")
	}
	_, err := p.program.Run()
	p.model.teardown()
	return err
}

type viewState int

const (
	stateConfigError viewState = iota
	stateLoading
	stateGate
	stateBoard
	stateImport
	stateEditor
	stateSettings
)

type model struct {
	state       viewState
	prevStates  []viewState
	deps        Deps
	theme       theme.Theme
	log         zerolog.Logger
	width       int
	height      int
	infoMessage string
	errMessage  string
	spinner     spinner.Model
	now         func() time.Time

	authEvents  chan *auth.User
	unsubscribe func()
	user        *auth.User

	gate gateModel

	board       *pipeline.Board
	snapshots   <-chan []storage.Account
	stopBoard   func()
	importInput textinput.Model

	editor editorModel

	menuInput textinput.Model
	settings  settingsModel
}

func newModel(deps Deps) *model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &model{
		state:   stateLoading,
		deps:    deps,
		theme:   theme.Default(),
		log:     deps.Logger,
		spinner: sp,
		now:     time.Now,
		board:   pipeline.NewBoard(),
	}
	m.spinner.Style = m.theme.Accent
	m.settings = settingsModel{mode: settingsViewing, input: textinput.New()}

	if deps.Auth == nil {
		if m.deps.AuthErr == nil {
			m.deps.AuthErr = auth.ErrMissingSecret
		}
		m.state = stateConfigError
		return m
	}

	m.authEvents = make(chan *auth.User, 1)
	events := m.authEvents
	m.unsubscribe = deps.Auth.OnAuthStateChanged(func(u *auth.User) {
		offerUser(events, u)
	})
	return m
}

// offerUser hands the newest auth state to the UI without blocking the
// provider; an unread older state is replaced.
func offerUser(ch chan *auth.User, u *auth.User) {
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (m *model) Init() tea.Cmd {
	if m.state == stateConfigError {
		return nil
	}
	return batchCmds([]tea.Cmd{waitForAuth(m.authEvents), m.restoreSession(), m.spinner.Tick})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.teardown()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case authStateMsg:
		return m, m.handleAuthState(msg.user)
	case snapshotMsg:
		return m, m.handleSnapshot(msg)
	case boardClosedMsg:
		return m, nil
	}

	if cmd, handled := m.handleResult(msg); handled {
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.state {
	case stateConfigError:
		cmd = m.updateConfigError(msg)
	case stateLoading:
	case stateGate:
		cmd = m.updateGate(msg)
	case stateBoard:
		cmd = m.updateBoard(msg)
	case stateImport:
		cmd = m.updateImport(msg)
	case stateEditor:
		cmd = m.updateEditor(msg)
	case stateSettings:
		cmd = m.updateSettings(msg)
	}
	return m, cmd
}

// handleResult applies messages produced by background commands, whatever
// screen is showing.
func (m *model) handleResult(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case authResultMsg:
		return m.handleAuthResult(msg), true
	case moveResultMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("stage move failed")
			m.errMessage = pipeline.MoveFailedMessage
		}
		return nil, true
	case savedMsg:
		return m.handleSaved(msg), true
	case deletedMsg:
		return m.handleDeleted(msg), true
	case aiTextMsg:
		m.handleAIText(msg)
		return nil, true
	case cardMsg:
		m.handleCard(msg)
		return nil, true
	case notesMsg:
		m.handleNotes(msg)
		return nil, true
	case mailSentMsg:
		m.handleMailSent(msg)
		return nil, true
	case dictationEndedMsg:
		return m.handleDictationEnded(msg), true
	case extractionMsg:
		m.handleExtraction(msg)
		return nil, true
	case noteCandidateMsg:
		m.handleNoteCandidate(msg)
		return nil, true
	}
	return nil, false
}

func (m *model) View() string {
	switch m.state {
	case stateConfigError:
		return m.viewConfigError()
	case stateLoading:
		return m.viewLoading()
	case stateGate:
		return m.viewGate()
	case stateBoard:
		return m.viewBoard()
	case stateImport:
		return m.viewImport()
	case stateEditor:
		return m.viewEditor()
	case stateSettings:
		return m.viewSettings()
	default:
		return ""
	}
}

// Navigation helpers
func (m *model) pushState(next viewState) {
	m.prevStates = append(m.prevStates, m.state)
	m.state = next
}

func (m *model) popState() {
	if len(m.prevStates) == 0 {
		m.state = m.homeState()
		return
	}
	idx := len(m.prevStates) - 1
	m.state = m.prevStates[idx]
	m.prevStates = m.prevStates[:idx]
}

func (m *model) homeState() viewState {
	if m.user == nil {
		return stateGate
	}
	return stateBoard
}

func (m *model) resetMessages() {
	m.errMessage = ""
	m.infoMessage = ""
}

func (m *model) busy() bool {
	if m.state == stateLoading || m.gate.submitting || m.editor.pending != "" {
		return true
	}
	if s := m.editor.session; s != nil {
		return s.FieldDictation.State() != speech.Idle || s.NoteDictation.State() != speech.Idle
	}
	return false
}

func (m *model) location() *time.Location {
	if m.deps.Prefs == nil {
		return time.Local
	}
	return m.deps.Prefs.Location()
}

func (m *model) ownerID() string {
	if m.user == nil {
		return ""
	}
	return m.user.ID
}

func (m *model) teardown() {
	m.closeEditor()
	if m.stopBoard != nil {
		m.stopBoard()
		m.stopBoard = nil
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// CONFIG ERROR
func (m *model) updateConfigError(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		if key.Type == tea.KeyEsc || (key.Type == tea.KeyRunes && string(key.Runes) == "q") {
			return tea.Quit
		}
	}
	return nil
}

func (m *model) viewConfigError() string {
	lines := []string{
		m.theme.Title.Render("Configuration error"),
		"",
		m.theme.Danger.Render(sentence(m.deps.AuthErr)),
		"",
		m.theme.Secondary.Render("Set CRM_AUTH_SECRET in the environment or in .env, then restart."),
		m.theme.Faint.Render("Press q or Ctrl+C to quit."),
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *model) viewLoading() string {
	return m.spinner.View() + " " + m.theme.Secondary.Render("Loading session...") + "\n"
}

func (m *model) statusLines() []string {
	var lines []string
	if !m.deps.AIEnabled {
		lines = append(lines, m.theme.Warning.Render(aiDisabledMessage))
	}
	if m.infoMessage != "" {
		lines = append(lines, m.theme.Success.Render(m.infoMessage))
	}
	if m.errMessage != "" {
		lines = append(lines, m.theme.Danger.Render(m.errMessage))
	}
	return lines
}

func helpLine(t theme.Theme, pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, t.HelpKey.Render(pairs[i])+" "+t.HelpValue.Render(pairs[i+1]))
	}
	return strings.Join(parts, t.Faint.Render("  ·  "))
}

func expandPath(p string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(p), `"'`)
	if trimmed == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			switch {
			case len(trimmed) == 1:
				trimmed = home
			case trimmed[1] == '/', trimmed[1] == '\\':
				trimmed = filepath.Join(home, trimmed[2:])
			}
		}
	}
	return filepath.Abs(trimmed)
}

func batchCmds(cmds []tea.Cmd) tea.Cmd {
	filtered := cmds[:0]
	for _, c := range cmds {
		if c != nil {
			filtered = append(filtered, c)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return tea.Batch(filtered...)
	}
}

// sentence capitalises an error message for display.
func sentence(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func formatMoney(d decimal.Decimal) string {
	whole := d.Round(0)
	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Neg()
	}
	digits := whole.String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}

func formatDay(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format("Jan 02")
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
