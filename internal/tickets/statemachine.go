package tickets

import "github.com/nhle/disruption-desk/internal/model"

// Action is an operator action offered on a ticket.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionNote     Action = "note"
)

// transitions lists the status-changing actions legal in each status.
// Adding a note is legal everywhere and is appended by AvailableActions.
var transitions = map[model.TicketStatus][]Action{
	model.StatusPending:    {ActionApprove, ActionReject},
	model.StatusApproved:   {ActionStart},
	model.StatusInProgress: {ActionComplete},
}

// AvailableActions returns the actions the client offers for a ticket in
// the given status. The backend stays authoritative.
func AvailableActions(status model.TicketStatus) []Action {
	next := transitions[status]
	out := make([]Action, 0, len(next)+1)
	out = append(out, next...)
	return append(out, ActionNote)
}

// Allowed reports whether action is offered for status.
func Allowed(status model.TicketStatus, action Action) bool {
	for _, a := range AvailableActions(status) {
		if a == action {
			return true
		}
	}
	return false
}
