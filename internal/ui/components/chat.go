package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/zenflow/internal/assistant"
)

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

const emptyChat = "Ask me anything about your board. I can suggest tasks, summarize progress, or help plan your next move."

// ChatLog renders the assistant conversation in a viewport.
type ChatLog struct {
	viewport viewport.Model
	messages []assistant.Message
	status   string
	ready    bool
}

func NewChatLog(width, height int) *ChatLog {
	return &ChatLog{
		viewport: viewport.New(width, height),
	}
}

func (c *ChatLog) SetSize(width, height int) {
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !c.ready {
		c.viewport = viewport.New(vpWidth, height)
		c.ready = true
	} else {
		c.viewport.Width = vpWidth
		c.viewport.Height = height
	}
	c.updateContent()
}

// SetMessages replaces the rendered log.
func (c *ChatLog) SetMessages(messages []assistant.Message) {
	c.messages = messages
	c.updateContent()
}

// SetStatus shows a trailing status line, such as a spinner. Empty clears it.
func (c *ChatLog) SetStatus(status string) {
	c.status = status
	c.updateContent()
}

func (c *ChatLog) updateContent() {
	var sb strings.Builder
	if len(c.messages) == 0 {
		sb.WriteString(statusStyle.Render(emptyChat))
	}
	for i, msg := range c.messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if msg.Role == assistant.RoleUser {
			sb.WriteString(userStyle.Render("You"))
		} else {
			sb.WriteString(botStyle.Render("ZenFlow AI"))
		}
		sb.WriteString("\n")
		sb.WriteString(msg.Text)
	}
	if c.status != "" {
		sb.WriteString("\n\n")
		sb.WriteString(statusStyle.Render(c.status))
	}

	content := sb.String()
	if width := c.viewport.Width; width > 0 {
		content = outputStyle.Width(width).Render(content)
	} else {
		content = outputStyle.Render(content)
	}
	c.viewport.SetContent(content)
	c.viewport.GotoBottom()
}

func (c *ChatLog) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.viewport, cmd = c.viewport.Update(msg)
	return cmd
}

func (c *ChatLog) View() string {
	if !c.ready {
		return ""
	}

	if c.viewport.TotalLineCount() <= c.viewport.Height {
		return c.viewport.View()
	}

	h := c.viewport.Height
	handlePos := int(float64(h-1) * c.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, c.viewport.View(), sb.String())
}
