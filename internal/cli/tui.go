package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// sourceChoice is one entry in the interactive source picker.
type sourceChoice struct {
	Name        string
	Description string
}

// sourceChoices lists the report sources in menu order.
var sourceChoices = []sourceChoice{
	{Name: "bugs", Description: "bug tracker trends and duplicate clusters"},
	{Name: "addons", Description: "add-on compatibility against a release"},
	{Name: "forum", Description: "support forum activity"},
	{Name: "issues", Description: "issue tracker trends and reactions"},
	{Name: "l10n", Description: "localization progress per locale"},
}

// SourceListModel is the bubbletea model for interactive source selection.
type SourceListModel struct {
	Choices  []sourceChoice
	Cursor   int
	Selected string
}

// NewSourceListModel creates a new source list model.
func NewSourceListModel(choices []sourceChoice) SourceListModel {
	return SourceListModel{Choices: choices}
}

func (m SourceListModel) Init() tea.Cmd {
	return nil
}

func (m SourceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Choices)-1 {
				m.Cursor++
			}
		case "enter":
			m.Selected = m.Choices[m.Cursor].Name
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SourceListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Report Source"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	for i, choice := range m.Choices {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		line := fmt.Sprintf("%s%-8s  %s", cursor, choice.Name, listDimStyle.Render(choice.Description))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Choices))))

	return b.String()
}

// pickSource runs the interactive picker and returns the chosen source
// name, or an empty string when the user quit without selecting.
func pickSource() (string, error) {
	program := tea.NewProgram(NewSourceListModel(sourceChoices))
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("source picker: %w", err)
	}
	model, ok := final.(SourceListModel)
	if !ok {
		return "", nil
	}
	return model.Selected, nil
}
