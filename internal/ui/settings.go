package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"leadboard/internal/config"
)

const settingsMenuPrompt = "1=Name  2=Timezone  3=Back"

type settingsMode int

const (
	settingsViewing settingsMode = iota
	settingsEditingName
	settingsEditingTimezone
)

type settingsModel struct {
	mode  settingsMode
	input textinput.Model
	err   string
}

func (m *model) setMenuInput(placeholder string, limit int) tea.Cmd {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = placeholder
	if limit > 0 {
		input.CharLimit = limit
	}
	cmd := input.Focus()
	m.menuInput = input
	return cmd
}

func (m *model) ensureMenuInput(placeholder string, limit int) tea.Cmd {
	if strings.TrimSpace(m.menuInput.Placeholder) == placeholder {
		if limit <= 0 || m.menuInput.CharLimit == limit {
			if !m.menuInput.Focused() {
				return m.menuInput.Focus()
			}
			return nil
		}
	}
	return m.setMenuInput(placeholder, limit)
}

func (m *model) openSettings() tea.Cmd {
	m.settings = settingsModel{mode: settingsViewing}
	m.pushState(stateSettings)
	return m.setMenuInput(settingsMenuPrompt, 40)
}

func (m *model) editSetting(mode settingsMode, value string) tea.Cmd {
	m.settings.mode = mode
	m.settings.err = ""
	m.settings.input = textinput.New()
	m.settings.input.Prompt = ""
	m.settings.input.CharLimit = 64
	m.settings.input.SetValue(value)
	return m.settings.input.Focus()
}

func (m *model) leaveSettings() tea.Cmd {
	m.settings = settingsModel{mode: settingsViewing}
	m.popState()
	return nil
}

// SETTINGS
func (m *model) updateSettings(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	switch m.settings.mode {
	case settingsViewing:
		if focus := m.ensureMenuInput(settingsMenuPrompt, 40); focus != nil {
			cmds = append(cmds, focus)
		}
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
			return m.leaveSettings()
		}
		var cmd tea.Cmd
		m.menuInput, cmd = m.menuInput.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
			value := strings.TrimSpace(strings.ToLower(m.menuInput.Value()))
			m.menuInput.SetValue("")
			switch value {
			case "1", "name":
				name := ""
				if m.user != nil {
					name = m.user.DisplayName
				}
				cmds = append(cmds, m.editSetting(settingsEditingName, name))
			case "2", "timezone":
				cmds = append(cmds, m.editSetting(settingsEditingTimezone, m.deps.Prefs.Config.Timezone))
			case "3", "back", "/":
				return m.leaveSettings()
			default:
				m.settings.err = "Choose 1 or 2 to edit settings"
			}
		}
	case settingsEditingName, settingsEditingTimezone:
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
			m.settings.mode = settingsViewing
			return nil
		}
		var cmd tea.Cmd
		m.settings.input, cmd = m.settings.input.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
			value := strings.TrimSpace(m.settings.input.Value())
			switch {
			case isBackCommand(value):
				m.settings.mode = settingsViewing
			case m.settings.mode == settingsEditingName:
				m.saveDisplayName(value)
			default:
				m.saveTimezone(value)
			}
		}
	}
	return batchCmds(cmds)
}

func (m *model) saveDisplayName(value string) {
	if value == "" {
		m.settings.err = "Name cannot be empty"
		return
	}
	if err := m.deps.Auth.UpdateDisplayName(context.Background(), value); err != nil {
		m.log.Error().Err(err).Msg("update display name failed")
		m.settings.err = sentence(err)
		return
	}
	if m.user != nil {
		m.user.DisplayName = value
	}
	m.settings.err = ""
	m.infoMessage = "Name updated"
	m.settings.mode = settingsViewing
}

func (m *model) saveTimezone(value string) {
	if value == "" {
		m.settings.err = "Timezone cannot be empty"
		return
	}
	previous := m.deps.Prefs.Config.Timezone
	if err := m.deps.Prefs.SetTimezone(value); err != nil {
		if errors.Is(err, config.ErrUnknownTimezone) {
			m.settings.err = "Invalid timezone"
		} else {
			m.settings.err = sentence(err)
		}
		return
	}
	if err := m.deps.Prefs.Save(); err != nil {
		m.deps.Prefs.Config.Timezone = previous
		m.settings.err = sentence(err)
		return
	}
	loc := m.deps.Prefs.Location()
	m.deps.Editor.SetLocation(loc)
	if m.snapshots != nil {
		m.board.Apply(m.boardAccounts(), m.now().In(loc))
	}
	m.settings.err = ""
	m.infoMessage = "Timezone updated"
	m.settings.mode = settingsViewing
}

func (m *model) viewSettings() string {
	name, email := "", ""
	if m.user != nil {
		name, email = m.user.DisplayName, m.user.Email
	}
	lines := []string{m.theme.Title.Render("Settings & Help")}
	lines = append(lines, m.theme.Faint.Render("'/' or esc goes back."))
	lines = append(lines, "")
	lines = append(lines, m.theme.Secondary.Render("Name: "+name))
	lines = append(lines, m.theme.Secondary.Render("Email: "+email))
	lines = append(lines, m.theme.Secondary.Render("Timezone: "+m.deps.Prefs.Config.Timezone))
	lines = append(lines, "")
	lines = append(lines, m.theme.Highlight.Render("Integrations"))
	lines = append(lines, m.theme.Secondary.Render("AI helpers: "+enabledLabel(m.deps.AIEnabled)))
	lines = append(lines, m.theme.Secondary.Render("Email sending: "+enabledLabel(m.deps.Mail.Enabled())))
	lines = append(lines, "")
	lines = append(lines, m.theme.Highlight.Render("Shortcuts"))
	lines = append(lines, m.theme.HelpKey.Render("space")+" → "+m.theme.HelpValue.Render("Pick up / drop a card on the board"))
	lines = append(lines, m.theme.HelpKey.Render("ctrl+s")+" → "+m.theme.HelpValue.Render("Save in the editor"))
	lines = append(lines, m.theme.HelpKey.Render("ctrl+r")+" → "+m.theme.HelpValue.Render("Dictate account details"))
	lines = append(lines, m.theme.HelpKey.Render("Ctrl+C")+" → "+m.theme.HelpValue.Render("Quit"))
	lines = append(lines, "")

	switch m.settings.mode {
	case settingsViewing:
		lines = append(lines, m.theme.Secondary.Render("1. Update name"))
		lines = append(lines, m.theme.Secondary.Render("2. Update timezone"))
		lines = append(lines, m.theme.Faint.Render("3. Back"))
		lines = append(lines, "")
		lines = append(lines, m.theme.Accent.Render("> ")+m.menuInput.View())
	case settingsEditingName:
		lines = append(lines, m.theme.Secondary.Render("Enter new name:"))
		lines = append(lines, m.settings.input.View())
	case settingsEditingTimezone:
		lines = append(lines, m.theme.Secondary.Render("Enter timezone (e.g. America/New_York):"))
		lines = append(lines, m.settings.input.View())
	}
	if m.settings.err != "" {
		lines = append(lines, "", m.theme.Danger.Render(m.settings.err))
	}
	if m.infoMessage != "" {
		lines = append(lines, "", m.theme.Success.Render(m.infoMessage))
	}
	return strings.Join(lines, "\n") + "\n"
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
