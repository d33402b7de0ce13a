package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/zenflow/internal/assistant"
	"github.com/ldi/zenflow/internal/query"
	"github.com/ldi/zenflow/internal/store"
	"github.com/ldi/zenflow/internal/ui/components"
	"github.com/ldi/zenflow/pkg/models"
)

var (
	headerTextStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	notificationStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Italic(true).
				Padding(0, 1)

	notificationKindColors = map[models.NotificationKind]lipgloss.Color{
		models.NotificationInfo:    lipgloss.Color("39"),
		models.NotificationSuccess: lipgloss.Color("42"),
		models.NotificationWarning: lipgloss.Color("214"),
		models.NotificationError:   lipgloss.Color("196"),
	}

	chatPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			PaddingLeft(1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// AI is the part of the gateway the board talks to.
type AI interface {
	assistant.Asker
	SuggestTasks(ctx context.Context, name, description string) []models.Suggestion
}

type inputMode int

const (
	modeBoard inputMode = iota
	modeSearch
	modeNewTask
	modeComment
	modeAsk
)

var modePrompts = map[inputMode]string{
	modeSearch:  "Search: ",
	modeNewTask: "New task: ",
	modeComment: "Comment: ",
	modeAsk:     "Ask AI: ",
}

type answerMsg struct {
	id   uint64
	text string
}

type suggestionsMsg struct {
	projectID   string
	suggestions []models.Suggestion
}

// BoardModel is the interactive kanban board with its assistant panel.
type BoardModel struct {
	ctx     context.Context
	store   *store.Store
	ai      AI
	chat    *assistant.Conversation
	chatLog *components.ChatLog
	input   textinput.Model
	spinner spinner.Model

	mode   inputMode
	search string
	column int
	row    int

	suggesting  bool
	suggestions []models.Suggestion
	suggestFor  string

	status   string
	width    int
	height   int
	ready    bool
	quitting bool
}

func NewBoardModel(ctx context.Context, s *store.Store, ai AI, chat *assistant.Conversation) *BoardModel {
	if chat == nil {
		chat = assistant.NewConversation()
	}

	input := textinput.New()
	input.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &BoardModel{
		ctx:     ctx,
		store:   s,
		ai:      ai,
		chat:    chat,
		chatLog: components.NewChatLog(0, 0),
		input:   input,
		spinner: sp,
	}
	m.chatLog.SetMessages(chat.History())
	return m
}

func (m *BoardModel) Init() tea.Cmd {
	return nil
}

func (m *BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.recalculateLayout()
		return m, nil

	case tea.KeyMsg:
		if m.mode != modeBoard {
			return m, m.updateInput(msg)
		}
		return m, m.handleKey(msg)

	case answerMsg:
		if m.chat.Complete(msg.id, msg.text) {
			m.refreshChat()
		}
		return m, nil

	case suggestionsMsg:
		m.suggesting = false
		m.suggestions = msg.suggestions
		m.suggestFor = msg.projectID
		if len(msg.suggestions) == 0 {
			m.status = "No suggestions available"
		} else {
			m.status = ""
		}
		m.refreshChat()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshChat()
		return m, cmd
	}

	return m, m.chatLog.Update(msg)
}

func (m *BoardModel) busy() bool {
	return m.chat.Pending() || m.suggesting
}

func (m *BoardModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.status = ""

	if len(m.suggestions) > 0 {
		switch msg.String() {
		case "y":
			m.applySuggestions()
			return nil
		case "esc":
			m.suggestions = nil
			m.refreshChat()
			return nil
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.chat.Cancel()
		return tea.Quit
	case "h", "left":
		m.moveColumn(-1)
	case "l", "right":
		m.moveColumn(1)
	case "j", "down":
		m.moveRow(1)
	case "k", "up":
		m.moveRow(-1)
	case "[":
		m.shiftStatus(-1)
	case "]":
		m.shiftStatus(1)
	case "p":
		m.nextProject()
	case "x":
		m.store.ClearNotifications()
	case "/":
		return m.openInput(modeSearch, m.search)
	case "n":
		if _, ok := m.store.Snapshot().CurrentProject(); !ok {
			m.status = "Select a project first"
			return nil
		}
		return m.openInput(modeNewTask, "")
	case "c":
		if _, ok := m.selectedTask(); !ok {
			m.status = "No task selected"
			return nil
		}
		return m.openInput(modeComment, "")
	case "a":
		if m.chat.Pending() {
			m.status = assistant.ErrBusy.Error()
			return nil
		}
		return m.openInput(modeAsk, "")
	case "s":
		return m.requestSuggestions()
	}
	return nil
}

func (m *BoardModel) openInput(mode inputMode, value string) tea.Cmd {
	m.mode = mode
	m.input.Prompt = promptStyle.Render(modePrompts[mode])
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *BoardModel) closeInput() {
	m.mode = modeBoard
	m.input.Blur()
	m.input.SetValue("")
}

func (m *BoardModel) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == modeSearch {
			m.search = ""
			m.clampCursor()
		}
		m.closeInput()
		return nil
	case tea.KeyEnter:
		return m.submitInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeSearch {
		m.search = m.input.Value()
		m.clampCursor()
	}
	return cmd
}

func (m *BoardModel) submitInput() tea.Cmd {
	mode := m.mode
	value := m.input.Value()
	m.closeInput()

	switch mode {
	case modeSearch:
		m.search = value
		m.clampCursor()
	case modeNewTask:
		if _, ok := m.store.CreateTask(models.TaskFields{Title: value}); !ok {
			m.status = "Select a project first"
		}
	case modeComment:
		if t, ok := m.selectedTask(); ok {
			m.store.AddComment(t.ID, value)
		}
	case modeAsk:
		return m.ask(value)
	}
	return nil
}

func (m *BoardModel) ask(q string) tea.Cmd {
	req, err := m.chat.Begin(q)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	m.refreshChat()

	ctx := m.ctx
	ai := m.ai
	boardContext := assistant.BoardContext(m.store.Snapshot(), m.search)
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return answerMsg{id: req.ID, text: ai.Ask(ctx, req.Query, boardContext)}
	})
}

func (m *BoardModel) requestSuggestions() tea.Cmd {
	if m.suggesting {
		return nil
	}
	project, ok := m.store.Snapshot().CurrentProject()
	if !ok {
		m.status = "Select a project first"
		return nil
	}
	m.suggesting = true
	m.suggestions = nil
	m.refreshChat()

	ctx := m.ctx
	ai := m.ai
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return suggestionsMsg{
			projectID:   project.ID,
			suggestions: ai.SuggestTasks(ctx, project.Name, project.Description),
		}
	})
}

// applySuggestions creates the pending suggestions in the project they were
// generated for, if it is still selected.
func (m *BoardModel) applySuggestions() {
	if _, ok := m.store.CreateTasks(m.suggestFor, models.SuggestionFields(m.suggestions)); !ok {
		m.status = "Suggestions belong to another project"
	}
	m.suggestions = nil
	m.refreshChat()
}

func (m *BoardModel) board() query.Board {
	snap := m.store.Snapshot()
	return query.ProjectBoard(snap, snap.SelectedProjectID, m.search)
}

func (m *BoardModel) selectedTask() (models.Task, bool) {
	col := m.board().Columns[m.column]
	if m.row < 0 || m.row >= len(col.Tasks) {
		return models.Task{}, false
	}
	return col.Tasks[m.row], true
}

func (m *BoardModel) moveColumn(delta int) {
	m.column += delta
	if m.column < 0 {
		m.column = 0
	}
	if m.column >= len(models.AllStatuses) {
		m.column = len(models.AllStatuses) - 1
	}
	m.clampCursor()
}

func (m *BoardModel) moveRow(delta int) {
	m.row += delta
	m.clampCursor()
}

func (m *BoardModel) clampCursor() {
	n := len(m.board().Columns[m.column].Tasks)
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

// shiftStatus moves the selected task one column and keeps it selected.
func (m *BoardModel) shiftStatus(delta int) {
	t, ok := m.selectedTask()
	if !ok {
		return
	}
	target := m.column + delta
	if target < 0 || target >= len(models.AllStatuses) {
		return
	}
	if !m.store.SetTaskStatus(t.ID, models.AllStatuses[target]) {
		return
	}

	m.column = target
	for i, moved := range m.board().Columns[target].Tasks {
		if moved.ID == t.ID {
			m.row = i
			break
		}
	}
}

func (m *BoardModel) nextProject() {
	snap := m.store.Snapshot()
	if len(snap.Projects) == 0 {
		return
	}
	next := 0
	for i, p := range snap.Projects {
		if p.ID == snap.SelectedProjectID {
			next = (i + 1) % len(snap.Projects)
			break
		}
	}
	m.store.SelectProject(snap.Projects[next].ID)
	m.row = 0
	m.clampCursor()
}

func (m *BoardModel) refreshChat() {
	m.chatLog.SetMessages(m.chat.History())

	var lines []string
	if m.busy() {
		lines = append(lines, m.spinner.View()+" Thinking...")
	}
	if len(m.suggestions) > 0 {
		lines = append(lines, "Suggested tasks:")
		for _, sg := range m.suggestions {
			lines = append(lines, fmt.Sprintf("  [%s] %s", sg.Priority, sg.Title))
		}
		lines = append(lines, "y: add all • esc: dismiss")
	}
	m.chatLog.SetStatus(strings.Join(lines, "\n"))
}

func (m *BoardModel) chatWidth() int {
	w := m.width / 4
	if w < 24 {
		w = 24
	}
	return w
}

func (m *BoardModel) recalculateLayout() {
	if !m.ready {
		return
	}
	height := m.height - 4
	if height < 5 {
		height = 5
	}
	m.chatLog.SetSize(m.chatWidth()-2, height)
	m.input.Width = m.width - 20
}

func (m *BoardModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading board..."
	}

	header := m.renderHeader()
	notifications := m.renderNotifications()
	footer := m.renderFooter()

	available := m.height - lipgloss.Height(header) - lipgloss.Height(notifications) - lipgloss.Height(footer)
	if available < 0 {
		available = 0
	}

	boardWidth := m.width - m.chatWidth()
	colWidth := boardWidth / len(models.AllStatuses)

	b := m.board()
	cols := make([]string, 0, len(b.Columns))
	for i, c := range b.Columns {
		tc := components.NewTaskColumn(c.Title, colWidth)
		tc.Tasks = c.Tasks
		tc.Focused = i == m.column
		tc.Cursor = m.row
		cols = append(cols, lipgloss.NewStyle().Width(colWidth).MaxHeight(available).Render(tc.View()))
	}
	board := lipgloss.JoinHorizontal(lipgloss.Top, cols...)

	chat := chatPanelStyle.Height(available).Render(m.chatLog.View())
	main := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(boardWidth).Height(available).Render(board), chat)

	return header + "\n" + notifications + "\n" + main + "\n" + footer
}

func (m *BoardModel) renderHeader() string {
	snap := m.store.Snapshot()
	name := "No project selected"
	if p, ok := snap.CurrentProject(); ok {
		name = p.Name
	}
	text := fmt.Sprintf("ZenFlow | %s | %s", name, m.store.ActingUser().Name)
	if m.search != "" {
		text += fmt.Sprintf(" | search: %q", m.search)
	}
	return headerTextStyle.Render(text)
}

func (m *BoardModel) renderNotifications() string {
	list := m.store.Snapshot().Notifications
	if len(list) == 0 {
		return notificationStyle.Render("No notifications")
	}
	latest := list[0]
	dot := lipgloss.NewStyle().Foreground(notificationKindColors[latest.Kind]).Render("●")
	text := latest.Title
	if latest.Message != "" {
		text += ": " + latest.Message
	}
	return dot + notificationStyle.Render(fmt.Sprintf("%s (%d)", text, len(list)))
}

func (m *BoardModel) renderFooter() string {
	if m.mode != modeBoard {
		return m.input.View()
	}
	if m.status != "" {
		return errorStyle.Render(m.status)
	}
	return helpStyle.Render("h/l columns • j/k tasks • [/] move • p project • / search • n new • c comment • a ask • s suggest • x clear • q quit")
}

// RunBoard runs the board until the user quits.
func RunBoard(ctx context.Context, s *store.Store, ai AI, chat *assistant.Conversation) error {
	p := tea.NewProgram(NewBoardModel(ctx, s, ai, chat), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
