package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/conversation"
	"github.com/nhle/disruption-desk/internal/keys"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/theme"
	"github.com/nhle/disruption-desk/internal/ui/markdown"
)

// CloseMsg signals the parent to leave the chat view.
type CloseMsg struct{}

// DisruptionsLoadedMsg carries the disruption list.
type DisruptionsLoadedMsg struct {
	Disruptions []model.Disruption
	Err         error
}

// QuestionLoadedMsg is sent when the opening question for a disruption
// has been fetched, or failed to be.
type QuestionLoadedMsg struct {
	DisruptionID string
	Err          error
}

// ReplyProcessedMsg is sent when a submitted reply has run through
// parse, ticket creation and summary. Outcome is nil on failure.
type ReplyProcessedMsg struct {
	Outcome *conversation.Outcome
	Err     error
}

// DisruptionLister loads the disruptions offered for selection.
type DisruptionLister interface {
	ListDisruptions(ctx context.Context) ([]model.Disruption, error)
}

type focus int

const (
	focusList focus = iota
	focusInput
)

// listWidth is the width of the disruption pane.
const listWidth = 38

// Model is the disruption chat view: a disruption list on the left and
// the conversation with the response assistant on the right.
type Model struct {
	flow        *conversation.Flow
	lister      DisruptionLister
	keys        *keys.KeyMap
	disruptions list.Model
	input       textarea.Model
	viewport    viewport.Model
	spinner     spinner.Model
	focus       focus
	loading     bool
	loadErr     string
	submitting  bool
	width       int
	height      int
}

// New creates a new chat model.
func New(flow *conversation.Flow, lister DisruptionLister, k *keys.KeyMap, width, height int) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(theme.ColorBlue).
		BorderForeground(theme.ColorBlue)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(theme.ColorGray).
		BorderForeground(theme.ColorBlue)

	l := list.New([]list.Item{}, delegate, listWidth, height-2)
	l.Title = "Disruptions"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("disruption", "disruptions")
	l.Styles.Title = theme.HeaderStyle

	ta := textarea.New()
	ta.Placeholder = "Select a disruption to answer its question..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(3)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorYellow)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle()

	m := Model{
		flow:        flow,
		lister:      lister,
		keys:        k,
		disruptions: l,
		input:       ta,
		viewport:    vp,
		spinner:     sp,
		loading:     true,
	}
	m.SetSize(width, height)
	return m
}

// Init loads the disruption list.
func (m Model) Init() tea.Cmd {
	return m.LoadDisruptions()
}

// LoadDisruptions returns a command that fetches the disruption list.
func (m Model) LoadDisruptions() tea.Cmd {
	lister := m.lister
	return func() tea.Msg {
		ds, err := lister.ListDisruptions(context.Background())
		return DisruptionsLoadedMsg{Disruptions: ds, Err: err}
	}
}

// InputFocused reports whether the reply box has keyboard focus.
func (m Model) InputFocused() bool {
	return m.focus == focusInput
}

// Busy reports whether a reply is being processed.
func (m Model) Busy() bool {
	return m.submitting || m.flow.State() == conversation.StateProcessing
}

// Update handles messages for the chat view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DisruptionsLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.loadErr = api.UserMessage(msg.Err)
			return m, nil
		}
		m.loadErr = ""
		items := make([]list.Item, len(msg.Disruptions))
		for i, d := range msg.Disruptions {
			items[i] = DisruptionItem{Disruption: d}
		}
		return m, m.disruptions.SetItems(items)

	case QuestionLoadedMsg:
		m.refreshViewport()
		if msg.Err == nil && msg.DisruptionID == m.flow.DisruptionID() {
			cmd := m.focusInput()
			return m, cmd
		}
		return m, nil

	case ReplyProcessedMsg:
		m.submitting = false
		m.refreshViewport()
		if m.flow.InputEnabled() {
			cmd := m.focusInput()
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if !m.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport()
		return m, cmd

	case tea.KeyMsg:
		if m.focus == focusInput {
			return m.handleInputKeys(msg)
		}
		return m.handleListKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleListKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case msg.String() == "tab":
		if m.flow.InputEnabled() {
			cmd := m.focusInput()
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		item, ok := m.disruptions.SelectedItem().(DisruptionItem)
		if !ok || m.Busy() {
			return m, nil
		}
		return m, m.selectDisruption(item.Disruption.ID)
	}

	var cmd tea.Cmd
	m.disruptions, cmd = m.disruptions.Update(msg)
	return m, cmd
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "tab":
		m.focus = focusList
		m.input.Blur()
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.Busy() || !m.flow.InputEnabled() {
			return m, nil
		}
		m.input.Reset()
		m.input.Blur()
		m.submitting = true
		return m, tea.Batch(m.submit(text), m.spinner.Tick)

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) focusInput() tea.Cmd {
	m.focus = focusInput
	return m.input.Focus()
}

func (m Model) selectDisruption(id string) tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		_, err := flow.Select(context.Background(), id)
		if errors.Is(err, conversation.ErrStale) {
			return nil
		}
		return QuestionLoadedMsg{DisruptionID: id, Err: err}
	}
}

func (m Model) submit(text string) tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		out, err := flow.Submit(context.Background(), text)
		return ReplyProcessedMsg{Outcome: out, Err: err}
	}
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	transcript := m.flow.Transcript()
	if len(transcript) == 0 {
		return lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Width(m.viewport.Width).
			Render("Pick a disruption on the left. The assistant will explain " +
				"its impact and ask how you want to respond.")
	}

	var sections []string
	for _, msg := range transcript {
		sections = append(sections, theme.RoleStyle(msg.Role).Render(roleLabel(msg.Role)+":"))

		switch msg.Role {
		case model.RoleAssistant:
			sections = append(sections, markdown.Render(msg.Content, m.viewport.Width))
		case model.RoleSystem:
			sections = append(sections, lipgloss.NewStyle().
				Foreground(theme.ColorRed).
				Width(m.viewport.Width).
				Render(msg.Content))
		default:
			sections = append(sections, lipgloss.NewStyle().
				Width(m.viewport.Width).
				Render(msg.Content))
		}
		sections = append(sections, "")
	}

	if m.Busy() {
		sections = append(sections, m.spinner.View()+" "+
			theme.DimmedStyle.Italic(true).Render("Processing your response..."))
	}

	return strings.Join(sections, "\n")
}

func roleLabel(role string) string {
	switch role {
	case model.RoleUser:
		return "You"
	case model.RoleAssistant:
		return "Assistant"
	case model.RoleSystem:
		return "System"
	default:
		return role
	}
}

func (m Model) renderImpact() string {
	impact := m.flow.Impact()
	if impact == nil {
		return theme.DimmedStyle.Render("No disruption selected")
	}
	return fmt.Sprintf("%s %s   %s %s   %s %s",
		theme.DimmedStyle.Render("Impacted:"),
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprint(impact.TotalShipmentsImpacted)),
		theme.DimmedStyle.Render("High priority:"),
		lipgloss.NewStyle().Bold(true).Foreground(theme.ColorOrange).Render(fmt.Sprint(impact.HighPriorityCount)),
		theme.DimmedStyle.Render("Severity:"),
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%.1f", impact.SeverityScore)),
	)
}

// View renders the chat view.
func (m Model) View() string {
	left := m.renderDisruptions()

	title := theme.TitleStyle.Render("Response Assistant")
	if id := m.flow.DisruptionID(); id != "" {
		title = theme.TitleStyle.Render("Response Assistant · " + id)
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(m.viewport.Width, 1)))

	inputView := m.input.View()
	if m.Busy() {
		inputView = theme.DimmedStyle.Render("Input disabled while the response is processed.")
	}

	right := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		m.renderImpact(),
		separator,
		m.viewport.View(),
		separator,
		inputView,
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

func (m Model) renderDisruptions() string {
	style := lipgloss.NewStyle().Width(listWidth).Height(m.height - 2)
	switch {
	case m.loading:
		return style.Foreground(theme.ColorGray).Render("Loading disruptions...")
	case m.loadErr != "":
		return style.Foreground(theme.ColorRed).Render("Could not load disruptions:\n" + m.loadErr)
	case len(m.disruptions.Items()) == 0:
		return style.Foreground(theme.ColorGray).Render("No active disruptions.")
	}
	return m.disruptions.View()
}

// SetSize updates the chat view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	rightWidth := width - listWidth - 4
	if rightWidth < 20 {
		rightWidth = 20
	}

	m.disruptions.SetSize(listWidth, height-2)
	m.input.SetWidth(rightWidth)

	vpHeight := height - 10 // title, impact, separators, input
	if vpHeight < 4 {
		vpHeight = 4
	}
	m.viewport.Width = rightWidth
	m.viewport.Height = vpHeight
	m.refreshViewport()
}

// Reset clears the conversation and returns focus to the list.
func (m *Model) Reset() {
	m.flow.Reset()
	m.submitting = false
	m.focus = focusList
	m.input.Reset()
	m.input.Blur()
	m.refreshViewport()
}
