package app

import (
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/session"
	"github.com/nhle/disruption-desk/internal/store"
	"github.com/nhle/disruption-desk/internal/tickets"
)

type sessionLoadedMsg struct {
	session *session.Session
	err     error
}

type loginDoneMsg struct {
	session *session.Session
	err     error
}

type signupDoneMsg struct {
	operator *model.Operator
	err      error
}

type logoutDoneMsg struct {
	err error
}

type verifyDoneMsg struct {
	operator *model.Operator
	err      error
}

// ticketsLoadedMsg carries a full ticket reload. scope is the disruption
// the reload was limited to, or "" for all tickets.
type ticketsLoadedMsg struct {
	tickets []model.Ticket
	scope   string
	err     error
}

type ticketActionDoneMsg struct {
	action tickets.Action
	ticket model.Ticket
	err    error
}

type exportDoneMsg struct {
	result tickets.ExportResult
	err    error
}

type historyLoadedMsg struct {
	records []store.ExportRecord
	err     error
}

type noticeMsg struct {
	n model.Notification
}

type toastExpiredMsg struct {
	seq int
}

type scrollToTicketMsg struct {
	ticketID string
}
