package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disruption-desk/internal/keys"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/theme"
)

// CloseMsg signals the parent to close the notification panel.
type CloseMsg struct{}

// NavigateMsg asks the parent to show TicketID in the ticket list.
type NavigateMsg struct {
	TicketID string
}

// Source provides the notifications to list, newest first.
type Source interface {
	Items() []model.Notification
}

// Model is the notification panel.
type Model struct {
	source      Source
	keys        *keys.KeyMap
	selectedIdx int
	now         func() time.Time
	width       int
	height      int
}

// New creates a new notification panel model.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	return Model{
		source: src,
		keys:   k,
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	items := m.source.Items()
	switch {
	case key.Matches(keyMsg, m.keys.Back), key.Matches(keyMsg, m.keys.Notifications):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(keyMsg, m.keys.Down):
		if m.selectedIdx < len(items)-1 {
			m.selectedIdx++
		}

	case key.Matches(keyMsg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}

	case key.Matches(keyMsg, m.keys.Select):
		if m.selectedIdx >= len(items) {
			return m, nil
		}
		id := items[m.selectedIdx].TicketID
		if id == "" {
			return m, nil
		}
		return m, func() tea.Msg { return NavigateMsg{TicketID: id} }
	}

	return m, nil
}

// Reset moves the cursor back to the newest notification.
func (m *Model) Reset() {
	m.selectedIdx = 0
}

// View renders the panel.
func (m Model) View() string {
	items := m.source.Items()

	title := theme.TitleStyle.Render(fmt.Sprintf("Notifications (%d)", len(items)))

	var body string
	if len(items) == 0 {
		body = theme.DimmedStyle.Render("Nothing yet. Workflow milestones show up here.")
	} else {
		rows := make([]string, 0, len(items))
		for i, n := range m.visible(items) {
			rows = append(rows, m.renderRow(n, i+m.offset(len(items)) == m.selectedIdx))
		}
		body = strings.Join(rows, "\n")
	}

	hint := theme.HelpStyle.Render("enter: open ticket · esc: close")

	return theme.PanelStyle.
		Width(m.panelWidth()).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body, "", hint))
}

// rowsPerPage is how many two-line rows fit in the panel.
func (m Model) rowsPerPage() int {
	n := (m.height - 8) / 2
	if n < 1 {
		n = 1
	}
	return n
}

func (m Model) offset(total int) int {
	page := m.rowsPerPage()
	if m.selectedIdx < page || total <= page {
		return 0
	}
	return m.selectedIdx - page + 1
}

func (m Model) visible(items []model.Notification) []model.Notification {
	start := m.offset(len(items))
	end := start + m.rowsPerPage()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (m Model) renderRow(n model.Notification, selected bool) string {
	icon := theme.PriorityStyle(string(n.Priority)).Render(n.Icon)
	title := n.Title
	if !n.Read {
		title = lipgloss.NewStyle().Bold(true).Render(title) + theme.PriorityStyle(string(n.Priority)).Render(" •")
	}
	when := theme.DimmedStyle.Render(relativeTime(m.now().Sub(n.Timestamp)))

	head := fmt.Sprintf("%s %s  %s", icon, title, when)
	msg := "   " + n.Message
	if n.TicketID != "" {
		msg += theme.DimmedStyle.Render(" → " + n.TicketID)
	}

	row := lipgloss.JoinVertical(lipgloss.Left, head, theme.DimmedStyle.Render(msg))
	if selected {
		return theme.SelectedItemStyle.Render(row)
	}
	return theme.ListItemStyle.Render(row)
}

func (m Model) panelWidth() int {
	w := m.width / 2
	if w < 50 {
		w = m.width - 4
	}
	return w
}

func relativeTime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
