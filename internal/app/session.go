package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/session"
	appsync "github.com/nhle/disruption-desk/internal/sync"
	"github.com/nhle/disruption-desk/internal/tickets"
	"github.com/nhle/disruption-desk/internal/ui/login"
)

// sessionExpiredText is shown on the login screen after a 401.
const sessionExpiredText = "Your session has expired. Sign in again."

func (m Model) loadSession() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		if sessions == nil {
			return sessionLoadedMsg{err: session.ErrNoSession}
		}
		sess, err := sessions.Load(context.Background())
		return sessionLoadedMsg{session: sess, err: err}
	}
}

// handleSessionMsg covers the login screen and the session lifecycle.
func (m Model) handleSessionMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionLoadedMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, session.ErrNoSession) {
				m.logger.Warn("restoring session failed", "error", msg.err)
			}
			m.currentView = ViewLogin
			return m, nil
		}
		cmd := m.startSession(msg.session)
		return m, cmd

	case login.SubmitMsg:
		sessions := m.sessions
		return m, func() tea.Msg {
			sess, err := sessions.Login(context.Background(), msg.OperatorID, msg.Password, msg.Role)
			return loginDoneMsg{session: sess, err: err}
		}

	case loginDoneMsg:
		if msg.err != nil {
			cmd := m.loginView.Fail(errorText(msg.err))
			return m, cmd
		}
		cmd := m.startSession(msg.session)
		return m, cmd

	case login.SignupMsg:
		sessions := m.sessions
		return m, func() tea.Msg {
			op, err := sessions.Register(context.Background(), msg.Input)
			return signupDoneMsg{operator: op, err: err}
		}

	case signupDoneMsg:
		if msg.err != nil {
			cmd := m.loginView.Fail(errorText(msg.err))
			return m, cmd
		}
		cmd := m.loginView.SignedUp(*msg.operator)
		return m, cmd

	case login.CancelMsg:
		m.shutdown()
		return m, tea.Quit

	case logoutDoneMsg:
		if msg.err != nil {
			m.logger.Warn("logout left local state behind", "error", msg.err)
		}
		cmd := m.endSession("")
		return m, cmd

	case verifyDoneMsg:
		if msg.err != nil {
			if api.IsAuthError(msg.err) {
				cmd := m.endSession(sessionExpiredText)
				return m, cmd
			}
			m.showError("Session check failed", msg.err)
			return m, nil
		}
		cmd := m.showToast("Session valid for " + msg.operator.ID + " (" + msg.operator.Role + ")")
		return m, cmd
	}

	return m, nil
}

// startSession wires the per-operator services and opens the ticket list.
func (m *Model) startSession(sess *session.Session) tea.Cmd {
	m.session = sess
	m.ticketSvc = tickets.NewService(m.backend, sess.Operator.ID, m.logger)

	if m.poller != nil {
		m.poller.Stop()
	}
	m.poller = appsync.New(m.backend, time.Duration(m.config.API.PollIntervalSec)*time.Second, m.logger)

	m.currentView = ViewTickets
	m.logger.Info("session started", "operator_id", sess.Operator.ID, "role", sess.Operator.Role)

	return tea.Batch(
		m.loadTickets(),
		m.poller.Start(),
		m.chatView.LoadDisruptions(),
	)
}

// endSession drops every piece of operator state and returns to the
// login screen. notice, when set, is shown above the form.
func (m *Model) endSession(notice string) tea.Cmd {
	m.shutdown()
	m.poller = nil
	m.session = nil
	m.ticketSvc = nil
	m.view = ViewState{Filter: tickets.DefaultFilter()}
	m.pendingScroll = ""
	m.overlay = nil
	m.center.ClosePanel()
	m.flow.Reset()
	m.chatView.Reset()

	clearCmd := m.ticketList.Reset()
	m.syncTicketView()

	m.currentView = ViewLogin
	var cmd tea.Cmd
	if notice != "" {
		cmd = m.loginView.Fail(notice)
	} else {
		cmd = m.loginView.StartLogin()
	}
	return tea.Batch(clearCmd, cmd)
}

func (m Model) logout() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		return logoutDoneMsg{err: sessions.Logout(context.Background())}
	}
}

func (m Model) verify() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		op, err := sessions.Verify(context.Background())
		return verifyDoneMsg{operator: op, err: err}
	}
}
