package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	taglineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	commandStyle = lipgloss.NewStyle().PaddingLeft(2)
	activeStyle  = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("12")).Bold(true)
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	detailStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

const logo = `
 _____            _____ _
|__  /___ _ __   |  ___| | _____      __
  / // _ \ '_ \  | |_  | |/ _ \ \ /\ / /
 / /|  __/ | | | |  _| | | (_) \ V  V /
/____\___|_| |_| |_|   |_|\___/ \_/\_/
`

// Choice is one subcommand the menu can launch.
type Choice struct {
	Command string
	Summary string
	Detail  string
}

// Choices lists the subcommands the menu offers, in display order. Only
// commands that need no arguments are offered.
var Choices = []Choice{
	{"board", "Kanban board with the AI assistant",
		"Four status columns for the selected project, notifications and a chat panel. Press a to ask, s for starter tasks."},
	{"web", "Serve the JSON API",
		"Starts the HTTP API on web.port (default 8000) until interrupted."},
	{"mcp", "Serve MCP tools on stdio",
		"Exposes projects, tasks, notifications and the assistant to an MCP client."},
	{"status", "Task counts by status and priority",
		"Prints the dashboard for every project in the session."},
	{"list-tasks", "Tasks of the selected project",
		"Prints title, status, priority and assignee of each task."},
}

type MenuModel struct {
	choices  []Choice
	cursor   int
	selected string
	quitting bool
}

func NewMenuModel() MenuModel {
	return MenuModel{
		choices: Choices,
	}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.cursor = (m.cursor - 1 + len(m.choices)) % len(m.choices)

	case "down", "j", "tab":
		m.cursor = (m.cursor + 1) % len(m.choices)

	case "home", "g":
		m.cursor = 0

	case "end", "G":
		m.cursor = len(m.choices) - 1

	case "enter":
		m.selected = m.choices[m.cursor].Command
		return m, tea.Quit

	default:
		// Number keys launch a command directly.
		if r := key.Runes; len(r) == 1 && r[0] >= '1' && int(r[0]-'1') < len(m.choices) {
			m.cursor = int(r[0] - '1')
			m.selected = m.choices[m.cursor].Command
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	width := 0
	for _, c := range m.choices {
		width = max(width, len(c.Command))
	}

	var s strings.Builder

	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n")
	s.WriteString(taglineStyle.Render("  projects, tasks and an AI assistant in your terminal"))
	s.WriteString("\n\n")

	for i, c := range m.choices {
		line := fmt.Sprintf("%d %-*s  ", i+1, width, c.Command)
		if m.cursor == i {
			s.WriteString(activeStyle.Render("> "+line) + summaryStyle.Render(c.Summary))
		} else {
			s.WriteString(commandStyle.Render("  "+line) + summaryStyle.Render(c.Summary))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(detailStyle.Width(60).Render(m.choices[m.cursor].Detail))
	s.WriteString("\n\n(j/k or arrows to move, 1-" + fmt.Sprint(len(m.choices)) + " or enter to launch, q to quit)\n")

	return s.String()
}

func (m MenuModel) Selected() string {
	return m.selected
}

// RunMenu shows the picker and returns the chosen subcommand, or "" when the
// user quits.
func RunMenu() (string, error) {
	p := tea.NewProgram(NewMenuModel())
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
