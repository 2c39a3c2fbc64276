package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/notify"
	appsync "github.com/nhle/disruption-desk/internal/sync"
	"github.com/nhle/disruption-desk/internal/store"
	"github.com/nhle/disruption-desk/internal/theme"
	"github.com/nhle/disruption-desk/internal/tickets"
	"github.com/nhle/disruption-desk/internal/ui/chat"
	"github.com/nhle/disruption-desk/internal/ui/prompt"
	"github.com/nhle/disruption-desk/internal/ui/ticketlist"
)

// historyLimit is how many exports the history overlay lists.
const historyLimit = 10

// loadTickets fetches the full ticket set, or only the current
// disruption's tickets while a scope is set.
func (m Model) loadTickets() tea.Cmd {
	backend := m.backend
	scope := m.view.CurrentDisruptionID
	return func() tea.Msg {
		ctx := context.Background()
		var (
			ts  []model.Ticket
			err error
		)
		if scope != "" {
			ts, err = backend.ListTicketsForDisruption(ctx, scope)
		} else {
			ts, err = backend.ListTickets(ctx)
		}
		return ticketsLoadedMsg{tickets: ts, scope: scope, err: err}
	}
}

func (m Model) handleTicketsLoaded(msg ticketsLoadedMsg) (tea.Model, tea.Cmd) {
	if m.session == nil || msg.scope != m.view.CurrentDisruptionID {
		return m, nil
	}
	if msg.err != nil {
		if api.IsAuthError(msg.err) {
			cmd := m.endSession(sessionExpiredText)
			return m, cmd
		}
		m.showError("Loading tickets failed", msg.err)
		return m, nil
	}

	cmds := []tea.Cmd{m.ticketList.SetTickets(msg.tickets), m.syncTicketView()}
	if id := m.pendingScroll; id != "" {
		cmds = append(cmds, tea.Tick(notify.ScrollDelay, func(time.Time) tea.Msg {
			return scrollToTicketMsg{ticketID: id}
		}))
	}
	return m, tea.Batch(cmds...)
}

// handlePoll applies a background poll result. Failures only change the
// header; the poller tries again on its next tick.
func (m Model) handlePoll(msg appsync.PollResultMsg) (tea.Model, tea.Cmd) {
	if m.session == nil || m.poller == nil || msg.Source != m.poller {
		return m, nil
	}

	m.lastPollAt = msg.FetchedAt
	m.lastPollErr = msg.Error
	if msg.AuthError {
		cmd := m.endSession(sessionExpiredText)
		return m, cmd
	}

	next := m.poller.WaitForNextResult()
	if msg.Error != nil {
		return m, next
	}
	if m.view.CurrentDisruptionID != "" {
		return m, tea.Batch(m.loadTickets(), next)
	}
	cmd := tea.Batch(m.ticketList.SetTickets(msg.Tickets), next)
	return m, cmd
}

// handleActionRequest runs approve and start at once; the other actions
// collect text first.
func (m Model) handleActionRequest(msg ticketlist.ActionMsg) (tea.Model, tea.Cmd) {
	var kind prompt.Kind
	switch msg.Action {
	case tickets.ActionApprove, tickets.ActionStart:
		return m, m.runAction(msg.Action, msg.Ticket, "")
	case tickets.ActionReject:
		kind = prompt.KindReject
	case tickets.ActionComplete:
		kind = prompt.KindComplete
	case tickets.ActionNote:
		kind = prompt.KindNote
	default:
		return m, nil
	}

	m.open(ViewPrompt)
	cmd := m.promptView.Start(kind, msg.Ticket)
	return m, cmd
}

func (m Model) runPromptAction(msg prompt.SubmitMsg) tea.Cmd {
	switch msg.Kind {
	case prompt.KindReject:
		return m.runAction(tickets.ActionReject, msg.Ticket, msg.Text)
	case prompt.KindComplete:
		return m.runAction(tickets.ActionComplete, msg.Ticket, msg.Text)
	case prompt.KindNote:
		return m.runAction(tickets.ActionNote, msg.Ticket, msg.Text)
	}
	return nil
}

// runAction sends one ticket action. text is the rejection reason,
// completion notes or note content depending on action.
func (m Model) runAction(action tickets.Action, t model.Ticket, text string) tea.Cmd {
	svc := m.ticketSvc
	if svc == nil {
		return nil
	}
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		switch action {
		case tickets.ActionApprove:
			err = svc.Approve(ctx, t)
		case tickets.ActionReject:
			err = svc.Reject(ctx, t, text)
		case tickets.ActionStart:
			err = svc.Start(ctx, t)
		case tickets.ActionComplete:
			err = svc.Complete(ctx, t, text)
		case tickets.ActionNote:
			err = svc.AddNote(ctx, t, text)
		default:
			err = fmt.Errorf("unknown action %q", action)
		}
		return ticketActionDoneMsg{action: action, ticket: t, err: err}
	}
}

func (m Model) handleActionDone(msg ticketActionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if api.IsAuthError(msg.err) {
			cmd := m.endSession(sessionExpiredText)
			return m, cmd
		}
		m.showError(fmt.Sprintf("Could not %s %s", msg.action, msg.ticket.ID), msg.err)
		return m, nil
	}

	n := m.center.Notify(actionRecord(string(msg.action), msg.ticket))
	cmd := tea.Batch(
		m.showToast(n.Title+": "+msg.ticket.ID),
		m.loadTickets(),
	)
	return m, cmd
}

// handleReplyProcessed scopes the ticket list to the disruption whose
// conversation just produced tickets.
func (m *Model) handleReplyProcessed(msg chat.ReplyProcessedMsg) tea.Cmd {
	if msg.Err != nil || msg.Outcome == nil {
		return nil
	}
	m.view.CurrentDisruptionID = msg.Outcome.DisruptionID
	m.view.ExpandedTicketID = ""
	return tea.Batch(
		m.ticketList.SetTickets(msg.Outcome.Tickets),
		m.syncTicketView(),
		m.showToast(fmt.Sprintf("%d tickets created for %s", len(msg.Outcome.Tickets), msg.Outcome.DisruptionID)),
	)
}

func (m Model) runExport(f tickets.Format) tea.Cmd {
	exporter := m.exporter
	operatorID := ""
	if m.session != nil {
		operatorID = m.session.Operator.ID
	}
	return func() tea.Msg {
		res, err := exporter.Export(context.Background(), f, operatorID)
		return exportDoneMsg{result: res, err: err}
	}
}

func (m Model) loadHistory() tea.Cmd {
	history := m.history
	return func() tea.Msg {
		if history == nil {
			return historyLoadedMsg{}
		}
		recs, err := history.ListExports(context.Background(), historyLimit)
		return historyLoadedMsg{records: recs, err: err}
	}
}

func renderHistory(recs []store.ExportRecord) string {
	if len(recs) == 0 {
		return "No exports yet."
	}
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		lines = append(lines, fmt.Sprintf("%s  %-4s  %3d tickets  %s",
			r.CreatedAt.Time.Local().Format("2006-01-02 15:04"),
			strings.ToUpper(r.Format), r.TicketCount, r.Path))
	}
	return strings.Join(lines, "\n")
}

func renderOverlay(o overlay, width int) string {
	title := theme.TitleStyle.Render(o.title)
	if o.isError {
		title = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed).Render("✖ " + o.title)
	}
	w := width / 2
	if w < 40 {
		w = width - 4
	}
	hint := theme.HelpStyle.Render("enter: dismiss")
	return theme.PanelStyle.
		Width(w).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", o.body, "", hint))
}

// errorText is what an operator sees for err: the server's detail for
// backend failures, the local message for everything else.
func errorText(err error) string {
	var apiErr *api.Error
	var urlErr *url.Error
	if errors.As(err, &apiErr) || errors.As(err, &urlErr) {
		return api.UserMessage(err)
	}
	return err.Error()
}
