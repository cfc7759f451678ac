package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/diogo/promptin/internal/chat"
	"github.com/diogo/promptin/internal/conversation"
	"github.com/diogo/promptin/internal/export"
	"github.com/diogo/promptin/internal/models"
	"github.com/diogo/promptin/internal/render"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusPrompt
)

// Message types for the TUI
type (
	completionMsg struct {
		sub     *conversation.Submission
		content *string
		err     error
	}
	exportedMsg struct {
		where string
		err   error
	}
)

// Options configures the chat screen
type Options struct {
	ModelName    string
	SystemPrompt string
	Render       render.Options
	// FileSink receives Ctrl+E exports; nil disables the binding
	FileSink export.Sink
	// ClipboardSink receives Ctrl+Y copies; nil disables the binding
	ClipboardSink export.Sink
}

// Model represents the TUI state
type Model struct {
	ctrl *chat.Controller
	opts Options

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	prompt   textinput.Model
	spinner  spinner.Model

	// State
	focus   focusArea
	pending *conversation.Submission
	ready   bool
	err     error
	notice  string
	started time.Time

	// Dimensions
	width  int
	height int
}

// NewChatModel creates a new chat TUI model over ctrl
func NewChatModel(ctrl *chat.Controller, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 8000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	ti := textinput.New()
	ti.Placeholder = "System prompt (optional)"
	ti.Prompt = ""
	ti.CharLimit = 32 * 1024
	ti.SetValue(opts.SystemPrompt)

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	if opts.ModelName == "" {
		opts.ModelName = models.DefaultModel.Name
	}

	return Model{
		ctrl:     ctrl,
		opts:     opts,
		textarea: ta,
		prompt:   ti,
		spinner:  s,
		focus:    focusInput,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

func (m Model) loading() bool {
	return m.pending != nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.ctrl.Close()
			return m, tea.Quit

		case "tab":
			m.toggleFocus()
			return m, nil

		case "ctrl+l":
			m.ctrl.Reset()
			m.pending = nil
			m.err = nil
			m.notice = "Conversation cleared"
			m.refresh()
			return m, nil

		case "ctrl+e":
			if m.opts.FileSink != nil {
				return m, m.exportTo(m.opts.FileSink, export.FormatPlain)
			}
			return m, nil

		case "ctrl+y":
			if m.opts.ClipboardSink != nil {
				return m, m.exportTo(m.opts.ClipboardSink, export.FormatPlain)
			}
			return m, nil

		case "enter":
			if m.focus == focusPrompt {
				m.toggleFocus()
				return m, nil
			}
			if m.loading() {
				return m, nil
			}
			return m.submit()
		}

		if m.focus == focusPrompt {
			if !m.ctrl.Conversation().Frozen() {
				m.prompt, cmd = m.prompt.Update(msg)
				cmds = append(cmds, cmd)
			}
		} else if !m.loading() {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}

	case completionMsg:
		out := m.ctrl.Resolve(msg.sub, msg.content, msg.err)
		if out.Stale {
			// the conversation was cleared while this request was in flight
			return m, nil
		}
		m.pending = nil
		m.err = out.Err
		m.refresh()

	case exportedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.notice = "Exported to " + msg.where
		}

	case spinner.TickMsg:
		if m.loading() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 3
	promptHeight := 3
	inputHeight := 5
	statusHeight := 2

	vpHeight := m.height - headerHeight - promptHeight - inputHeight - statusHeight - 2
	if vpHeight < 5 {
		vpHeight = 5
	}
	contentWidth := m.width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
	m.prompt.Width = contentWidth - 4
	m.refresh()
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput && !m.ctrl.Conversation().Frozen() {
		m.focus = focusPrompt
		m.textarea.Blur()
		m.prompt.Focus()
		return
	}
	m.focus = focusInput
	m.prompt.Blur()
	m.textarea.Focus()
}

// submit applies the prompt field, appends the user turn and fires the request
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.textarea.Value()

	conv := m.ctrl.Conversation()
	if !conv.Frozen() {
		if current, _ := conv.SystemPrompt(); current != m.prompt.Value() {
			if err := m.ctrl.SetSystemPrompt(m.prompt.Value()); err != nil {
				m.err = err
				return m, nil
			}
		}
	}

	sub, err := m.ctrl.Begin(text)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.pending = sub
	m.err = nil
	m.notice = ""
	m.started = time.Now()
	m.textarea.Reset()
	m.refresh()

	return m, tea.Batch(m.request(sub), m.spinner.Tick)
}

func (m Model) request(sub *conversation.Submission) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		content, err := ctrl.Request(context.Background(), sub)
		return completionMsg{sub: sub, content: content, err: err}
	}
}

func (m Model) exportTo(sink export.Sink, format export.Format) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		where, err := ctrl.ExportTo(context.Background(), sink, format)
		return exportedMsg{where: where, err: err}
	}
}

// refresh rebuilds the viewport content from the conversation
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTurns())
	m.viewport.GotoBottom()
}

func (m Model) renderTurns() string {
	conv := m.ctrl.Conversation()
	turns := conv.Turns()
	if len(turns) == 0 {
		return ""
	}

	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}
	ropts := m.opts.Render.WithWidth(bubbleWidth - 4)

	var content strings.Builder
	for i, turn := range turns {
		if i > 0 {
			content.WriteString("\n")
		}
		if turn.IsUser() {
			content.WriteString(userLabelStyle.Render(models.SpeakerUser.String()))
			content.WriteString("\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(turn.Content))
		} else {
			body := render.Reply(turn.Content, ropts)
			if body == "" {
				body = hintStyle.Render("(empty reply)")
			}
			content.WriteString(assistantLabelStyle.Render(models.SpeakerAssistant.String()))
			content.WriteString("\n")
			content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(body))
		}
		content.WriteString("\n")
	}

	if conv.Dangling() {
		content.WriteString(noReplyStyle.Render("no reply"))
		content.WriteString("\n")
	}

	return content.String()
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	contentWidth := m.viewport.Width
	var sections []string

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("promptin"),
		hintStyle.Render("  |  "),
		subtitleStyle.Render(m.opts.ModelName),
	)
	sections = append(sections, headerStyle.Width(contentWidth).Render(header))

	sections = append(sections, m.renderPromptPanel(contentWidth))

	messages := m.viewport.View()
	if m.ctrl.Conversation().Len() == 0 {
		messages = m.renderWelcome()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messages))

	var input string
	if m.loading() {
		elapsed := time.Since(m.started).Truncate(time.Second)
		input = fmt.Sprintf("%s %s", m.spinner.View(), loadingStyle.Render(fmt.Sprintf("Waiting for reply %s", elapsed)))
	} else {
		input = lipgloss.JoinVertical(lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	panel := inputPanelStyle
	if m.focus == focusInput {
		panel = inputPanelFocusedStyle
	}
	sections = append(sections, panel.Width(contentWidth).Render(input))

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	} else if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}

	sections = append(sections, m.renderStatusBar(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderPromptPanel(width int) string {
	label := inputLabelStyle.Render("System")
	var body string
	if m.ctrl.Conversation().Frozen() {
		prompt, _ := m.ctrl.Conversation().SystemPrompt()
		if prompt == "" {
			prompt = "(none)"
		}
		prompt = strings.ReplaceAll(prompt, "\n", " ")
		if limit := width - 20; limit > 0 {
			prompt = runewidth.Truncate(prompt, limit, "…")
		}
		body = prompt + "  " + promptLockedStyle.Render("[locked]")
	} else {
		body = m.prompt.View()
	}

	style := promptPanelStyle
	if m.focus == focusPrompt {
		style = promptPanelFocusedStyle
	}
	return style.Width(width).Render(label + " " + body)
}

func (m Model) renderWelcome() string {
	lines := []string{
		"",
		titleStyle.Render("Start a conversation by typing a message below"),
		"",
		"Tab switches to the system prompt. It locks after the first reply.",
	}
	content := welcomeStyle.Width(m.viewport.Width - 4).Render(strings.Join(lines, "\n"))

	topPadding := (m.viewport.Height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Tab", "Prompt"},
		{"Ctrl+L", "Clear"},
	}
	if m.opts.FileSink != nil {
		shortcuts = append(shortcuts, struct{ key, desc string }{"Ctrl+E", "Export"})
	}
	if m.opts.ClipboardSink != nil {
		shortcuts = append(shortcuts, struct{ key, desc string }{"Ctrl+Y", "Copy"})
	}
	shortcuts = append(shortcuts, struct{ key, desc string }{"Esc", "Quit"})

	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  |  "))
}

// RunChat starts the chat TUI
func RunChat(ctrl *chat.Controller, opts Options) error {
	p := tea.NewProgram(
		NewChatModel(ctrl, opts),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
