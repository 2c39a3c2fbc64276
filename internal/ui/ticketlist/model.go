package ticketlist

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disruption-desk/internal/keys"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/theme"
	"github.com/nhle/disruption-desk/internal/tickets"
)

// ExpandMsg asks the parent to make TicketID the expanded ticket. An
// empty TicketID collapses; the id of the already expanded ticket
// toggles it closed.
type ExpandMsg struct {
	TicketID string
}

// FilterMsg asks the parent to replace the view filter.
type FilterMsg struct {
	Filter tickets.Filter
}

// ActionMsg asks the parent to run an operator action on a ticket.
type ActionMsg struct {
	Action tickets.Action
	Ticket model.Ticket
}

// detailDivisor limits the expanded panel to 1/detailDivisor of the
// view height.
const detailDivisor = 2

// Model is the ticket list view component. It renders whatever the
// parent hands it through SetTickets and SetView and never fetches.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	all         []model.Ticket
	filter      tickets.Filter
	expanded    *string
	loaded      bool
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a new ticket list model.
func New(k *keys.KeyMap, width, height int) Model {
	expanded := new(string)
	l := list.New([]list.Item{}, TicketDelegate{expanded: expanded}, width, height-2)
	l.Title = "Tickets"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.SetStatusBarItemName("ticket", "tickets")

	si := textinput.New()
	si.Placeholder = "ticket or shipment id..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		filter:      tickets.DefaultFilter(),
		expanded:    expanded,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetTickets replaces the full ticket set. The cursor stays on the same
// ticket id when it is still visible.
func (m *Model) SetTickets(ts []model.Ticket) tea.Cmd {
	m.all = ts
	m.loaded = true
	return m.refresh()
}

// Reset drops every ticket and shows the loading state again.
func (m *Model) Reset() tea.Cmd {
	m.all = nil
	m.loaded = false
	m.searchMode = false
	m.searchInput.Blur()
	return m.refresh()
}

// SetView applies the parent's view-model.
func (m *Model) SetView(f tickets.Filter, expandedID string) tea.Cmd {
	m.filter = f
	*m.expanded = expandedID
	if !m.searchMode {
		m.searchInput.SetValue(f.Search)
	}
	return m.refresh()
}

// Tickets returns the full unfiltered ticket set.
func (m Model) Tickets() []model.Ticket {
	return m.all
}

// Visible returns the tickets that pass the current filter.
func (m Model) Visible() []model.Ticket {
	return m.filter.Apply(m.all)
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Selected returns the ticket under the cursor.
func (m Model) Selected() (model.Ticket, bool) {
	item, ok := m.list.SelectedItem().(TicketItem)
	if !ok {
		return model.Ticket{}, false
	}
	return item.Ticket, true
}

// SelectTicket moves the cursor onto id. It reports false when id is
// not among the visible tickets.
func (m *Model) SelectTicket(id string) bool {
	for i, item := range m.list.Items() {
		if ti, ok := item.(TicketItem); ok && ti.Ticket.ID == id {
			m.list.Select(i)
			return true
		}
	}
	return false
}

func (m *Model) refresh() tea.Cmd {
	current, hadSelection := m.Selected()

	visible := m.filter.Apply(m.all)
	items := make([]list.Item, len(visible))
	for i, t := range visible {
		items[i] = TicketItem{Ticket: t}
	}
	cmd := m.list.SetItems(items)

	if hadSelection {
		m.SelectTicket(current.ID)
	}
	m.list.Title = "Tickets"
	if s := m.filter.Summary(); s != "" {
		m.list.Title = "Tickets · " + s
	}
	m.resize()
	return cmd
}

// Update handles messages for the ticket list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		f := m.filter
		f.Search = strings.TrimSpace(m.searchInput.Value())
		return m, emitFilter(f)

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		f := m.filter
		f.Search = ""
		return m, emitFilter(f)
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		t, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return ExpandMsg{TicketID: t.ID} }

	case key.Matches(msg, m.keys.Back):
		if *m.expanded == "" {
			return m, nil
		}
		return m, func() tea.Msg { return ExpandMsg{} }

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.filter.Search)
		m.searchInput.CursorEnd()
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.CycleAction):
		return m, emitFilter(m.filter.NextAction())

	case key.Matches(msg, m.keys.CycleStatus):
		return m, emitFilter(m.filter.NextStatus())

	case key.Matches(msg, m.keys.ClearFilter):
		return m, emitFilter(tickets.DefaultFilter())
	}

	// Actions belong to the expanded card, not the cursor row.
	if action, ok := actionFor(m.keys, msg); ok {
		t, expanded := m.expandedTicket()
		if !expanded || !tickets.Allowed(t.Status, action) {
			return m, nil
		}
		return m, func() tea.Msg { return ActionMsg{Action: action, Ticket: t} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func emitFilter(f tickets.Filter) tea.Cmd {
	return func() tea.Msg { return FilterMsg{Filter: f} }
}

var actionOrder = []tickets.Action{
	tickets.ActionApprove,
	tickets.ActionReject,
	tickets.ActionStart,
	tickets.ActionComplete,
	tickets.ActionNote,
}

func actionFor(km *keys.KeyMap, msg tea.KeyMsg) (tickets.Action, bool) {
	for _, a := range actionOrder {
		if key.Matches(msg, bindingFor(km, a)) {
			return a, true
		}
	}
	return "", false
}

func bindingFor(km *keys.KeyMap, a tickets.Action) key.Binding {
	switch a {
	case tickets.ActionApprove:
		return km.Approve
	case tickets.ActionReject:
		return km.Reject
	case tickets.ActionStart:
		return km.Start
	case tickets.ActionComplete:
		return km.Complete
	default:
		return km.Note
	}
}

// expandedTicket returns the expanded ticket when it is visible.
func (m Model) expandedTicket() (model.Ticket, bool) {
	if *m.expanded == "" {
		return model.Ticket{}, false
	}
	for _, t := range m.filter.Apply(m.all) {
		if t.ID == *m.expanded {
			return t, true
		}
	}
	return model.Ticket{}, false
}

func (m Model) detailView() string {
	t, ok := m.expandedTicket()
	if !ok {
		return ""
	}
	body := RenderDetail(t, m.keys, m.width-8)
	return theme.PanelStyle.
		Width(m.width - 2).
		MaxHeight(m.height / detailDivisor).
		Render(body)
}

func (m *Model) resize() {
	listHeight := m.height - 2
	if detail := m.detailView(); detail != "" {
		listHeight -= lipgloss.Height(detail)
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(m.width, listHeight)
}

// View renders the ticket list view.
func (m Model) View() string {
	var sections []string

	if m.searchMode {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}

	if len(m.list.Items()) == 0 {
		sections = append(sections, m.renderEmptyState())
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections = append(sections, m.list.View())
	if detail := m.detailView(); detail != "" {
		sections = append(sections, detail)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case !m.loaded:
		return style.Render("Loading tickets...")
	case len(m.all) > 0:
		return style.Render("No tickets match the current filters.\nPress 3 to clear them.")
	default:
		return style.Render(
			"No tickets yet.\n\n" +
				"Press c to open a disruption and respond to it.",
		)
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.searchInput.Width = width - 4
	m.resize()
}
