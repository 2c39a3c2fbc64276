// Package prompt hosts the small modal forms used by ticket actions and
// export.
package prompt

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/theme"
	"github.com/nhle/disruption-desk/internal/tickets"
)

// Kind selects which form is shown.
type Kind int

const (
	KindReject Kind = iota
	KindComplete
	KindNote
	KindExport
)

// SubmitMsg carries the text entered for a ticket action.
type SubmitMsg struct {
	Kind   Kind
	Ticket model.Ticket
	Text   string
}

// ExportMsg carries the chosen export format.
type ExportMsg struct {
	Format tickets.Format
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	text   string
	format tickets.Format
}

// Model is a modal prompt.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	kind   Kind
	ticket model.Ticket
	width  int
	height int
}

// New creates an idle prompt.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{format: tickets.FormatCSV},
		width:  width,
		height: height,
	}
}

// Start opens the form of the given kind. ticket is ignored for
// KindExport.
func (m *Model) Start(kind Kind, ticket model.Ticket) tea.Cmd {
	m.kind = kind
	m.ticket = ticket
	m.fb.text = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Active reports whether a form is open.
func (m Model) Active() bool {
	return m.form != nil
}

// Close discards the open form.
func (m *Model) Close() {
	m.form = nil
}

// Update handles messages for the prompt.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m, m.handleSubmit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

func (m Model) handleSubmit() tea.Cmd {
	if m.kind == KindExport {
		f := m.fb.format
		return func() tea.Msg { return ExportMsg{Format: f} }
	}
	msg := SubmitMsg{Kind: m.kind, Ticket: m.ticket, Text: strings.TrimSpace(m.fb.text)}
	return func() tea.Msg { return msg }
}

func (m *Model) buildForm() *huh.Form {
	var field huh.Field
	switch m.kind {
	case KindReject:
		field = huh.NewText().
			Title("Reason for rejecting " + m.ticket.ID).
			Placeholder("Required").
			Value(&m.fb.text).
			Validate(validateRequired("A rejection reason"))
	case KindComplete:
		field = huh.NewText().
			Title("Completion notes for " + m.ticket.ID).
			Placeholder("Optional").
			Value(&m.fb.text)
	case KindNote:
		field = huh.NewText().
			Title("Note on " + m.ticket.ID).
			Value(&m.fb.text).
			Validate(validateRequired("Note"))
	default:
		opts := make([]huh.Option[tickets.Format], 0, len(tickets.Formats))
		for _, f := range tickets.Formats {
			opts = append(opts, huh.NewOption(strings.ToUpper(string(f)), f))
		}
		field = huh.NewSelect[tickets.Format]().
			Title("Export all tickets as").
			Options(opts...).
			Value(&m.fb.format)
	}

	return huh.NewForm(huh.NewGroup(field)).
		WithWidth(m.formWidth()).
		WithShowHelp(false)
}

// View renders the prompt box, or "" when idle.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	hint := theme.HelpStyle.Render("enter: confirm · esc: cancel")
	return theme.PanelStyle.
		Width(m.formWidth() + 6).
		Render(lipgloss.JoinVertical(lipgloss.Left, m.form.View(), hint))
}

// SetSize updates the prompt dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	w := m.width - 20
	if w < 40 {
		w = 40
	}
	if w > 70 {
		w = 70
	}
	return w
}

func validateRequired(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}
