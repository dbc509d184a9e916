package ui

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"leadboard/internal/pipeline"
	"leadboard/internal/storage"
)

const (
	columnWidth     = 25
	visibleCards    = 5
	chartWidth      = 30
	upcomingPreview = 5
	overduePreview  = 3
)

type snapshotMsg struct {
	ch       <-chan []storage.Account
	accounts []storage.Account
}

type boardClosedMsg struct{}

type moveResultMsg struct {
	err error
}

func waitForSnapshot(ch <-chan []storage.Account) tea.Cmd {
	return func() tea.Msg {
		accounts, ok := <-ch
		if !ok {
			return boardClosedMsg{}
		}
		return snapshotMsg{ch: ch, accounts: accounts}
	}
}

func (m *model) subscribeBoard(ownerID string) error {
	m.stopBoardSubscription()
	ch, cancel, err := m.deps.Store.Subscribe(context.Background(), ownerID)
	if err != nil {
		return err
	}
	m.snapshots = ch
	m.stopBoard = cancel
	return nil
}

func (m *model) stopBoardSubscription() {
	if m.stopBoard != nil {
		m.stopBoard()
	}
	m.stopBoard = nil
	m.snapshots = nil
	m.board.Reset()
}

func (m *model) handleSnapshot(msg snapshotMsg) tea.Cmd {
	if msg.ch != m.snapshots {
		return nil
	}
	m.board.Apply(msg.accounts, m.now().In(m.location()))
	return waitForSnapshot(m.snapshots)
}

// BOARD
func (m *model) updateBoard(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch key.Type {
	case tea.KeyLeft:
		m.board.MoveCursor(-1, 0)
	case tea.KeyRight:
		m.board.MoveCursor(1, 0)
	case tea.KeyUp:
		m.board.MoveCursor(0, -1)
	case tea.KeyDown:
		m.board.MoveCursor(0, 1)
	case tea.KeySpace:
		return m.toggleDrag()
	case tea.KeyEsc:
		m.board.CancelDrag()
	case tea.KeyEnter:
		if a := m.board.Selected(); a != nil {
			m.resetMessages()
			return m.openEditor(a)
		}
	case tea.KeyRunes:
		switch string(key.Runes) {
		case "h":
			m.board.MoveCursor(-1, 0)
		case "l":
			m.board.MoveCursor(1, 0)
		case "k":
			m.board.MoveCursor(0, -1)
		case "j":
			m.board.MoveCursor(0, 1)
		case "n":
			m.resetMessages()
			return m.openEditor(nil)
		case "i":
			m.resetMessages()
			return m.openImport()
		case "s":
			m.resetMessages()
			return m.openSettings()
		case "o":
			m.resetMessages()
			if err := m.deps.Auth.SignOut(); err != nil {
				m.log.Error().Err(err).Msg("sign out failed")
				m.errMessage = sentence(err)
			}
		case "q":
			m.teardown()
			return tea.Quit
		}
	}
	return nil
}

// toggleDrag picks up the selected card, or drops the dragged one on the
// focused column. The drop is written in the background and the board only
// changes when the store publishes the next snapshot.
func (m *model) toggleDrag() tea.Cmd {
	if _, dragging := m.board.Dragging(); !dragging {
		m.board.PickUp()
		return nil
	}
	move, ok := m.board.Drop()
	if !ok {
		return nil
	}
	m.errMessage = ""
	store := m.deps.Store
	owner := m.ownerID()
	return func() tea.Msg {
		return moveResultMsg{err: move.Apply(context.Background(), store, owner)}
	}
}

func (m *model) viewBoard() string {
	name := ""
	if m.user != nil {
		name = m.user.DisplayName
		if name == "" {
			name = m.user.Email
		}
	}
	lines := []string{
		m.theme.Title.Render("leadboard") + "  " + m.theme.Faint.Render(name),
	}
	if !m.board.Loaded() {
		lines = append(lines, "", m.theme.Faint.Render("Loading pipeline..."))
		lines = append(lines, m.statusLines()...)
		return strings.Join(lines, "\n") + "\n"
	}

	lines = append(lines, m.viewMetrics()...)
	lines = append(lines, "", m.viewColumns(), "")
	lines = append(lines, m.viewFollowUps()...)
	lines = append(lines, "")
	lines = append(lines, m.statusLines()...)
	lines = append(lines, helpLine(m.theme,
		"←→↑↓", "move", "space", "pick up / drop", "enter", "edit", "n", "new",
		"i", "import", "s", "settings", "o", "sign out", "q", "quit"))
	return strings.Join(lines, "\n") + "\n"
}

func (m *model) viewMetrics() []string {
	metrics := m.board.Metrics()
	summary := fmt.Sprintf("Pipeline %s  ·  %d active  ·  %d due this week",
		formatMoney(metrics.TotalValue), metrics.ActiveCount, metrics.DueThisWeek)
	lines := []string{m.theme.Subtitle.Render(summary)}
	for _, sv := range metrics.StageValues {
		width := int(math.Round(sv.Ratio * chartWidth))
		bar := m.theme.Bar.Render(strings.Repeat("█", width)) + m.theme.Faint.Render(strings.Repeat("·", chartWidth-width))
		label := m.theme.Stage(sv.Stage).Render(fmt.Sprintf("%-24s", sv.Stage))
		lines = append(lines, label+" "+bar+" "+m.theme.Secondary.Render(formatMoney(sv.Value)))
	}
	return lines
}

// visibleColumns returns the range of columns that fits the terminal,
// keeping the focused column in view.
func (m *model) visibleColumns(total, focus int) (int, int) {
	fit := 4
	if m.width > 0 {
		fit = m.width / columnWidth
	}
	if fit < 1 {
		fit = 1
	}
	if fit >= total {
		return 0, total
	}
	start := focus - fit/2
	if start < 0 {
		start = 0
	}
	if start+fit > total {
		start = total - fit
	}
	return start, start + fit
}

func (m *model) viewColumns() string {
	columns := m.board.Columns()
	col, row := m.board.Cursor()
	dragged, dragging := m.board.Dragging()
	loc := m.location()

	start, end := m.visibleColumns(len(columns), col)
	rendered := make([]string, 0, end-start)
	for ci := start; ci < end; ci++ {
		column := columns[ci]
		header := m.theme.Stage(column.Stage).Render(truncate(string(column.Stage), columnWidth-6)) +
			m.theme.Faint.Render(fmt.Sprintf(" (%d)", len(column.Accounts)))
		if ci == col {
			header = m.theme.Highlight.Render("▸ ") + header
		}
		parts := []string{header}

		first := 0
		if ci == col && row >= visibleCards {
			first = row - visibleCards + 1
		}
		if first > 0 {
			parts = append(parts, m.theme.Faint.Render(fmt.Sprintf("  ↑ %d more", first)))
		}
		for ri := first; ri < len(column.Accounts) && ri < first+visibleCards; ri++ {
			a := column.Accounts[ri]
			body := strings.Join([]string{
				m.theme.Primary.Render(truncate(a.CompanyName, columnWidth-6)),
				m.theme.Secondary.Render(formatMoney(a.Value)) + m.theme.Faint.Render(fmt.Sprintf("  score %d", a.DealScore)),
				m.theme.Faint.Render("follow-up " + formatDay(a.NextFollowUpDate, loc)),
			}, "\n")
			style := m.theme.Card
			switch {
			case dragging && a.ID == dragged.ID:
				style = m.theme.DraggedCard
			case ci == col && ri == row:
				style = m.theme.SelectedCard
			}
			parts = append(parts, style.Width(columnWidth-4).Render(body))
		}
		if rest := len(column.Accounts) - first - visibleCards; rest > 0 {
			parts = append(parts, m.theme.Faint.Render(fmt.Sprintf("  ↓ %d more", rest)))
		}
		if dragging && ci == col && dragged.Stage != column.Stage {
			parts = append(parts, m.theme.Warning.Render("  drop "+truncate(dragged.CompanyName, columnWidth-10)+" here"))
		}
		rendered = append(rendered, m.theme.Column.Render(strings.Join(parts, "\n")))
	}
	board := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	if start > 0 || end < len(columns) {
		board += "\n" + m.theme.Faint.Render(fmt.Sprintf("columns %d-%d of %d", start+1, end, len(columns)))
	}
	return board
}

func (m *model) boardAccounts() []storage.Account {
	var accounts []storage.Account
	for _, c := range m.board.Columns() {
		accounts = append(accounts, c.Accounts...)
	}
	return accounts
}

func (m *model) viewFollowUps() []string {
	loc := m.location()
	overdue, today, upcoming := pipeline.SplitFollowUps(m.boardAccounts(), m.now().In(loc))

	lines := []string{m.theme.Subtitle.Render("Follow-ups")}
	if len(overdue)+len(today)+len(upcoming) == 0 {
		return append(lines, m.theme.Faint.Render("Nothing scheduled."))
	}
	for i, a := range overdue {
		if i >= overduePreview {
			lines = append(lines, m.theme.Faint.Render(fmt.Sprintf("  and %d more overdue", len(overdue)-i)))
			break
		}
		lines = append(lines, m.theme.Danger.Render(followUpLine("overdue", a, loc)))
	}
	for _, a := range today {
		lines = append(lines, m.theme.Success.Render(followUpLine("today", a, loc)))
	}
	for i, a := range upcoming {
		if i >= upcomingPreview {
			break
		}
		lines = append(lines, m.theme.Warning.Render(followUpLine("upcoming", a, loc)))
	}
	return lines
}

func followUpLine(kind string, a storage.Account, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-9s %s  %s", kind, formatDay(a.NextFollowUpDate, loc), a.CompanyName))
	if a.ContactName != "" {
		b.WriteString(" (" + a.ContactName + ")")
	}
	b.WriteString(" • " + string(a.Stage))
	return b.String()
}

// IMPORT
func (m *model) openImport() tea.Cmd {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Path to CSV file"
	ti.CharLimit = 256
	m.importInput = ti
	m.pushState(stateImport)
	return m.importInput.Focus()
}

func (m *model) updateImport(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc:
			m.popState()
			return nil
		case tea.KeyEnter:
			value := strings.TrimSpace(m.importInput.Value())
			if isBackCommand(value) {
				m.popState()
				return nil
			}
			if m.handleAccountImport(value) {
				m.popState()
			}
			return nil
		}
	}
	var cmd tea.Cmd
	m.importInput, cmd = m.importInput.Update(msg)
	return cmd
}

// handleAccountImport reads a CSV into the signed-in user's accounts. It
// reports whether the import ran.
func (m *model) handleAccountImport(path string) bool {
	m.resetMessages()
	if path == "" {
		m.errMessage = "Provide a CSV path"
		return false
	}
	resolved, err := expandPath(path)
	if err != nil {
		m.errMessage = fmt.Sprintf("import path: %v", err)
		return false
	}
	file, err := os.Open(resolved)
	if err != nil {
		m.errMessage = fmt.Sprintf("open file: %v", err)
		return false
	}
	defer file.Close()
	result, err := m.deps.Store.ImportAccountsCSV(context.Background(), m.ownerID(), file, m.location())
	if err != nil {
		m.log.Error().Err(err).Str("path", resolved).Msg("csv import failed")
		m.errMessage = fmt.Sprintf("import csv: %v", err)
		return false
	}
	parts := []string{fmt.Sprintf("Imported %d account(s)", result.Created)}
	if result.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("skipped %d", result.Skipped))
	}
	m.infoMessage = strings.Join(parts, ", ")
	if len(result.Errors) > 0 {
		m.errMessage = strings.Join(result.Errors, "; ")
	}
	return true
}

func (m *model) viewImport() string {
	lines := []string{
		m.theme.Title.Render("Import accounts"),
		m.theme.Faint.Render("CSV with a company_name column. Optional: contact_name, contact_email, stage, value, next_follow_up_date, lost_reason (required for Closed Lost)."),
		"",
		m.theme.Secondary.Render("File:"),
		m.importInput.View(),
		"",
	}
	lines = append(lines, m.statusLines()...)
	lines = append(lines, helpLine(m.theme, "enter", "import", "esc", "back"))
	return strings.Join(lines, "\n") + "\n"
}

func isBackCommand(value string) bool {
	v := strings.TrimSpace(strings.ToLower(value))
	return v == "/" || v == "back"
}
