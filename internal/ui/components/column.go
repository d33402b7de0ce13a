package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/zenflow/pkg/models"
)

var (
	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("12"))

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	focusedColumnHeaderStyle = columnHeaderStyle.
					Foreground(lipgloss.Color("12"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)

	priorityColors = map[models.Priority]lipgloss.Color{
		models.PriorityLow:    lipgloss.Color("42"),
		models.PriorityMedium: lipgloss.Color("39"),
		models.PriorityHigh:   lipgloss.Color("214"),
		models.PriorityUrgent: lipgloss.Color("196"),
	}
)

// TaskColumn renders one status column of the board as a stack of cards.
type TaskColumn struct {
	Title   string
	Tasks   []models.Task
	Width   int
	Focused bool
	Cursor  int
}

func NewTaskColumn(title string, width int) *TaskColumn {
	return &TaskColumn{
		Title: title,
		Tasks: make([]models.Task, 0),
		Width: width,
	}
}

func (c *TaskColumn) View() string {
	header := columnHeaderStyle
	if c.Focused {
		header = focusedColumnHeaderStyle
	}
	title := header.Render(fmt.Sprintf("%s (%d)", c.Title, len(c.Tasks)))

	if len(c.Tasks) == 0 {
		return title + "\n" + placeholderStyle.Render("No tasks")
	}

	cards := make([]string, 0, len(c.Tasks))
	for i, t := range c.Tasks {
		cards = append(cards, c.renderCard(t, c.Focused && i == c.Cursor))
	}
	return title + "\n" + strings.Join(cards, "\n")
}

func (c *TaskColumn) renderCard(t models.Task, focused bool) string {
	style := cardStyle
	if focused {
		style = focusedCardStyle
	}

	// Border and padding take four cells.
	innerWidth := c.Width - 4
	if innerWidth < 0 {
		innerWidth = 0
	}

	badge := lipgloss.NewStyle().
		Foreground(priorityColors[t.Priority]).
		Bold(true).
		Render(strings.ToUpper(string(t.Priority)))

	lines := []string{
		lipgloss.NewStyle().Width(innerWidth).Render(t.Title),
		badge,
	}
	if len(t.Labels) > 0 {
		lines = append(lines, labelStyle.Width(innerWidth).Render("#"+strings.Join(t.Labels, " #")))
	}
	if n := len(t.Comments); n > 0 {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%d comment(s)", n)))
	}

	return style.Width(c.Width - 2).Render(strings.Join(lines, "\n"))
}
