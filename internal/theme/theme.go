package theme

import (
	"github.com/charmbracelet/lipgloss"

	"leadboard/internal/markdown"
	"leadboard/internal/storage"
)

// Theme encapsulates the visual palette for the board UI.
type Theme struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Accent    lipgloss.Style
	Primary   lipgloss.Style
	Secondary lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Danger    lipgloss.Style
	Faint     lipgloss.Style
	Highlight lipgloss.Style
	Border    lipgloss.Style
	HelpKey   lipgloss.Style
	HelpValue lipgloss.Style

	Column       lipgloss.Style
	Card         lipgloss.Style
	SelectedCard lipgloss.Style
	DraggedCard  lipgloss.Style
	Bar          lipgloss.Style

	stageColors map[storage.Stage]lipgloss.Color
}

// Default returns a high-contrast palette that plays nicely with common terminals.
func Default() Theme {
	base := lipgloss.NewStyle().Foreground(lipgloss.Color("210"))
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	return Theme{
		Title:     lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true).Underline(true),
		Subtitle:  lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true),
		Accent:    lipgloss.NewStyle().Foreground(lipgloss.Color("219")).Bold(true),
		Primary:   base.Copy().Foreground(lipgloss.Color("81")),
		Secondary: lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("227")).Bold(true),
		Danger:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		Faint:     lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		Border:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		HelpKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("117")).Bold(true),
		HelpValue: lipgloss.NewStyle().Foreground(lipgloss.Color("249")),

		Column:       lipgloss.NewStyle().Width(24).MarginRight(1),
		Card:         card,
		SelectedCard: card.Copy().BorderForeground(lipgloss.Color("205")),
		DraggedCard:  card.Copy().BorderForeground(lipgloss.Color("227")).BorderStyle(lipgloss.DoubleBorder()),
		Bar:          lipgloss.NewStyle().Foreground(lipgloss.Color("81")),

		stageColors: map[storage.Stage]lipgloss.Color{
			storage.StageBusinessIntel: lipgloss.Color("245"),
			storage.StageNewLeads:      lipgloss.Color("117"),
			storage.StageContacted:     lipgloss.Color("81"),
			storage.StageQualified:     lipgloss.Color("111"),
			storage.StageProposal:      lipgloss.Color("141"),
			storage.StageNegotiation:   lipgloss.Color("213"),
			storage.StageContractSent:  lipgloss.Color("227"),
			storage.StageClosedWon:     lipgloss.Color("42"),
			storage.StageClosedLost:    lipgloss.Color("203"),
		},
	}
}

// Stage returns the header style for a pipeline column.
func (t Theme) Stage(s storage.Stage) lipgloss.Style {
	c, ok := t.stageColors[s]
	if !ok {
		c = lipgloss.Color("249")
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// Markdown maps the palette onto rendered agendas and notes.
func (t Theme) Markdown() markdown.Styles {
	return markdown.FromLipgloss(t.Subtitle, t.Accent, t.Secondary.Copy().Italic(true), t.Primary, t.Faint)
}
