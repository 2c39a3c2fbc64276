package ticketlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disruption-desk/internal/keys"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/theme"
	"github.com/nhle/disruption-desk/internal/tickets"
)

// TicketItem wraps a model.Ticket so it can be used in a bubbles/list.
type TicketItem struct {
	Ticket model.Ticket
}

// FilterValue returns the string used for list filtering.
func (i TicketItem) FilterValue() string { return i.Ticket.ID + " " + i.Ticket.ShipmentID }

// Title returns the ticket id.
func (i TicketItem) Title() string { return i.Ticket.ID }

// Description returns a short summary line for the list.
func (i TicketItem) Description() string {
	return strings.Join([]string{
		string(i.Ticket.Action),
		string(i.Ticket.Status),
		i.Ticket.ShipmentID,
	}, " | ")
}

// TicketDelegate implements list.ItemDelegate with one line per ticket.
type TicketDelegate struct {
	// expanded points at the owning model's expanded ticket id.
	expanded *string
}

// Height returns the number of lines each item takes.
func (d TicketDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d TicketDelegate) Spacing() int { return 0 }

// Update handles per-item messages.
func (d TicketDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single ticket line.
func (d TicketDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TicketItem)
	if !ok {
		return
	}

	expanded := d.expanded != nil && *d.expanded == ti.Ticket.ID
	fmt.Fprint(w, renderLine(ti.Ticket, index == m.Index(), expanded))
}

func renderLine(t model.Ticket, selected, expanded bool) string {
	marker := "▸"
	if expanded {
		marker = "▾"
	}

	action := theme.ActionStyle(string(t.Action)).Render(fmt.Sprintf("%-8s", t.Action))
	status := theme.StatusStyle(string(t.Status)).Render(fmt.Sprintf("%-11s", t.Status))
	dest := ""
	if t.Destination != "" {
		dest = theme.DimmedStyle.Render(" → " + t.Destination)
	}

	line := fmt.Sprintf("%s %-12s %s %s %s%s", marker, t.ID, action, status, t.ShipmentID, dest)

	if t.Status == model.StatusCompleted || t.Status == model.StatusRejected {
		line = theme.DimmedStyle.Render(line)
	}
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// RenderDetail renders the expanded body of a ticket: the decision
// reasoning and figures, the explanation, notes, and the keys for the
// actions legal in its current status.
func RenderDetail(t model.Ticket, km *keys.KeyMap, width int) string {
	var b strings.Builder

	field := func(label, value string) {
		b.WriteString(theme.LabelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	field("Ticket", t.ID+"  "+theme.StatusStyle(string(t.Status)).Render(string(t.Status)))
	field("Disruption", t.DisruptionID)
	if a := t.AssignedToOrEmpty(); a != "" {
		field("Assigned to", a)
	}

	if d := t.Decision; d != nil {
		if d.EstimatedCostImpact != nil {
			field("Cost impact", fmt.Sprintf("+%.1f%%", *d.EstimatedCostImpact))
		}
		if d.EstimatedDelayHours != nil {
			field("Delay", fmt.Sprintf("%dh", *d.EstimatedDelayHours))
		}
		if d.AlternativeRouteID != nil && *d.AlternativeRouteID != "" {
			field("Alt route", *d.AlternativeRouteID)
		}
		field("Confidence", fmt.Sprintf("%.0f%%", d.ConfidenceScore*100))
		if d.Reasoning != "" {
			field("Reasoning", "")
			b.WriteString(wrap(d.Reasoning, width))
			b.WriteString("\n")
		}
	}

	if t.Explanation != "" {
		field("Explanation", "")
		b.WriteString(wrap(t.Explanation, width))
		b.WriteString("\n")
	}

	if len(t.Notes) > 0 {
		field("Notes", "")
		for _, n := range t.Notes {
			meta := theme.DimmedStyle.Render(fmt.Sprintf("%s · %s", n.Author, formatTime(n.Timestamp.Time)))
			b.WriteString("  " + meta + "\n")
			b.WriteString(wrap(n.Content, width-2))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render(actionHints(t.Status, km)))

	return b.String()
}

// actionHints lists the key for every action offered in status.
func actionHints(status model.TicketStatus, km *keys.KeyMap) string {
	var parts []string
	for _, a := range tickets.AvailableActions(status) {
		binding := bindingFor(km, a)
		parts = append(parts, fmt.Sprintf("[%s] %s", binding.Help().Key, binding.Help().Desc))
	}
	return strings.Join(parts, "  ")
}

func wrap(s string, width int) string {
	if width < 20 {
		width = 20
	}
	out := lipgloss.NewStyle().Width(width).PaddingLeft(2).Render(s)
	lines := strings.Split(out, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 02 15:04")
}
