package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/notify"
)

// milestoneNotifier records conversation milestones in the notification
// center and forwards them to the UI so the newest one can be toasted.
type milestoneNotifier struct {
	center *notify.Center
	out    chan<- model.Notification
}

func (n *milestoneNotifier) NotifyStatus(phase string) (model.Notification, bool) {
	if n.center == nil {
		return model.Notification{}, false
	}
	note, ok := n.center.NotifyStatus(phase)
	if !ok {
		return note, false
	}
	select {
	case n.out <- note:
	default:
		// The toast is skipped; the notification is still listed.
	}
	return note, true
}

// waitForNotice blocks until the next milestone notification.
func waitForNotice(ch <-chan model.Notification) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{n: n}
	}
}

// actionRecord is the notification raised after a ticket action
// succeeds. It carries the ticket id so the panel can navigate to it.
func actionRecord(action string, t model.Ticket) notify.Record {
	titles := map[string]string{
		"approve":  "Ticket approved",
		"reject":   "Ticket rejected",
		"start":    "Work started",
		"complete": "Ticket completed",
		"note":     "Note added",
	}
	title, ok := titles[action]
	if !ok {
		title = "Ticket updated"
	}
	return notify.Record{
		Title:    title,
		Message:  t.ID + " · shipment " + t.ShipmentID,
		Priority: model.PriorityMedium,
		Icon:     "✔",
		TicketID: t.ID,
	}
}
