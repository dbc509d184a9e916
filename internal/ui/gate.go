package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"leadboard/internal/auth"
)

const passwordMismatchMessage = "Passwords do not match"

type gateMode int

const (
	gateSignIn gateMode = iota
	gateSignUp
)

type gateField struct {
	label    string
	password bool
}

var signInFields = []gateField{
	{label: "Email"},
	{label: "Password", password: true},
}

var signUpFields = []gateField{
	{label: "First name"},
	{label: "Last name"},
	{label: "Email"},
	{label: "Password", password: true},
	{label: "Confirm password", password: true},
}

type gateModel struct {
	mode       gateMode
	inputs     []textinput.Model
	focus      int
	err        string
	submitting bool
}

type authStateMsg struct {
	user *auth.User
}

type authResultMsg struct {
	email string
	err   error
}

func waitForAuth(ch <-chan *auth.User) tea.Cmd {
	return func() tea.Msg {
		return authStateMsg{user: <-ch}
	}
}

func (m *model) restoreSession() tea.Cmd {
	provider := m.deps.Auth
	log := m.log
	return func() tea.Msg {
		if err := provider.Restore(context.Background()); err != nil {
			log.Error().Err(err).Msg("restore session failed")
		}
		return nil
	}
}

func (m *model) fields() []gateField {
	if m.gate.mode == gateSignUp {
		return signUpFields
	}
	return signInFields
}

func (m *model) resetGate(mode gateMode) tea.Cmd {
	m.gate = gateModel{mode: mode}
	fields := m.fields()
	m.gate.inputs = make([]textinput.Model, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = f.label
		ti.CharLimit = 128
		if f.password {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.gate.inputs[i] = ti
	}
	if m.deps.Prefs != nil && m.deps.Prefs.Config.LastEmail != "" {
		idx := m.gateIndex("Email")
		m.gate.inputs[idx].SetValue(m.deps.Prefs.Config.LastEmail)
		if mode == gateSignIn {
			m.gate.focus = idx + 1
		}
	}
	return m.gate.inputs[m.gate.focus].Focus()
}

func (m *model) gateIndex(label string) int {
	for i, f := range m.fields() {
		if f.label == label {
			return i
		}
	}
	return 0
}

func (m *model) gateValue(label string) string {
	return m.gate.inputs[m.gateIndex(label)].Value()
}

func (m *model) focusGate(next int) tea.Cmd {
	if next < 0 || next >= len(m.gate.inputs) {
		return nil
	}
	m.gate.inputs[m.gate.focus].Blur()
	m.gate.focus = next
	return m.gate.inputs[next].Focus()
}

// handleAuthState follows the provider: signed out shows the gate, signed
// in opens the board subscription for that user.
func (m *model) handleAuthState(user *auth.User) tea.Cmd {
	cmds := []tea.Cmd{waitForAuth(m.authEvents)}
	previous := m.user
	m.user = user

	if user == nil {
		m.closeEditor()
		m.stopBoardSubscription()
		m.prevStates = nil
		m.state = stateGate
		cmds = append(cmds, m.resetGate(gateSignIn))
		return batchCmds(cmds)
	}

	if previous != nil && previous.ID == user.ID && m.snapshots != nil {
		return batchCmds(cmds)
	}
	m.resetMessages()
	m.prevStates = nil
	m.state = stateBoard
	if err := m.subscribeBoard(user.ID); err != nil {
		m.log.Error().Err(err).Str("user", user.ID).Msg("board subscription failed")
		m.errMessage = "Failed to load accounts. Please try again."
		return batchCmds(cmds)
	}
	cmds = append(cmds, waitForSnapshot(m.snapshots))
	return batchCmds(cmds)
}

func (m *model) handleAuthResult(msg authResultMsg) tea.Cmd {
	m.gate.submitting = false
	if msg.err != nil {
		m.gate.err = msg.err.Error()
		return nil
	}
	if err := m.deps.Prefs.RememberEmail(msg.email); err != nil {
		m.log.Warn().Err(err).Msg("remember email failed")
	}
	return nil
}

// submitGate checks the form locally and hands it to the provider.
func (m *model) submitGate() tea.Cmd {
	if m.gate.submitting {
		return nil
	}
	provider := m.deps.Auth
	email := strings.TrimSpace(m.gateValue("Email"))
	password := m.gateValue("Password")

	if m.gate.mode == gateSignUp {
		if password != m.gateValue("Confirm password") {
			m.gate.err = passwordMismatchMessage
			return nil
		}
		displayName := strings.TrimSpace(strings.TrimSpace(m.gateValue("First name")) + " " + strings.TrimSpace(m.gateValue("Last name")))
		m.gate.err = ""
		m.gate.submitting = true
		return batchCmds([]tea.Cmd{func() tea.Msg {
			_, err := provider.SignUp(context.Background(), email, password, displayName)
			return authResultMsg{email: email, err: err}
		}, m.spinner.Tick})
	}

	m.gate.err = ""
	m.gate.submitting = true
	return batchCmds([]tea.Cmd{func() tea.Msg {
		_, err := provider.SignIn(context.Background(), email, password)
		return authResultMsg{email: email, err: err}
	}, m.spinner.Tick})
}

func (m *model) updateGate(msg tea.Msg) tea.Cmd {
	if len(m.gate.inputs) == 0 {
		return m.resetGate(gateSignIn)
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlT:
			if m.gate.mode == gateSignIn {
				return m.resetGate(gateSignUp)
			}
			return m.resetGate(gateSignIn)
		case tea.KeyTab, tea.KeyDown:
			return m.focusGate((m.gate.focus + 1) % len(m.gate.inputs))
		case tea.KeyShiftTab, tea.KeyUp:
			return m.focusGate((m.gate.focus + len(m.gate.inputs) - 1) % len(m.gate.inputs))
		case tea.KeyEnter:
			if m.gate.focus < len(m.gate.inputs)-1 {
				return m.focusGate(m.gate.focus + 1)
			}
			return m.submitGate()
		}
	}
	var cmd tea.Cmd
	m.gate.inputs[m.gate.focus], cmd = m.gate.inputs[m.gate.focus].Update(msg)
	return cmd
}

func (m *model) viewGate() string {
	title := "Sign in"
	other := "create an account"
	if m.gate.mode == gateSignUp {
		title = "Create account"
		other = "sign in instead"
	}
	lines := []string{
		m.theme.Title.Render("leadboard"),
		m.theme.Subtitle.Render(title),
		"",
	}
	fields := m.fields()
	for i, input := range m.gate.inputs {
		label := m.theme.Secondary.Render(fields[i].label + ":")
		if i == m.gate.focus {
			label = m.theme.Accent.Render(fields[i].label + ":")
		}
		lines = append(lines, label, input.View())
	}
	lines = append(lines, "")
	if m.gate.submitting {
		lines = append(lines, m.spinner.View()+" "+m.theme.Faint.Render("Contacting identity store..."))
	}
	if m.gate.err != "" {
		lines = append(lines, m.theme.Danger.Render(m.gate.err))
	}
	lines = append(lines, helpLine(m.theme, "enter", "next / submit", "tab", "switch field", "ctrl+t", other, "ctrl+c", "quit"))
	return strings.Join(lines, "\n") + "\n"
}
