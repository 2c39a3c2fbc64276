package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/disruption-desk/internal/conversation"
	"github.com/nhle/disruption-desk/internal/keys"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/notify"
	"github.com/nhle/disruption-desk/internal/session"
	"github.com/nhle/disruption-desk/internal/store"
	appsync "github.com/nhle/disruption-desk/internal/sync"
	"github.com/nhle/disruption-desk/internal/tickets"
	"github.com/nhle/disruption-desk/internal/ui"
	"github.com/nhle/disruption-desk/internal/ui/chat"
	"github.com/nhle/disruption-desk/internal/ui/command"
	helpview "github.com/nhle/disruption-desk/internal/ui/help"
	"github.com/nhle/disruption-desk/internal/ui/login"
	"github.com/nhle/disruption-desk/internal/ui/notifications"
	"github.com/nhle/disruption-desk/internal/ui/prompt"
	"github.com/nhle/disruption-desk/internal/ui/ticketlist"
)

// ToastDuration is how long a toast stays in the status bar.
const ToastDuration = 4 * time.Second

// View identifies the active screen.
type View int

const (
	ViewLogin View = iota
	ViewTickets
	ViewChat
	ViewNotifications
	ViewHelp
	ViewCommand
	ViewPrompt
)

// ViewState is the client-side view-model shared by the ticket list and
// the chat. It is owned by the root model and handed to renderers.
type ViewState struct {
	ExpandedTicketID    string
	CurrentDisruptionID string
	Filter              tickets.Filter
}

// Backend is everything the dashboard needs from the REST API.
type Backend interface {
	tickets.Backend
	conversation.Backend
	chat.DisruptionLister
	ListTicketsForDisruption(ctx context.Context, disruptionID string) ([]model.Ticket, error)
}

// Deps are the collaborators wired by main.
type Deps struct {
	Backend  Backend
	Sessions *session.Manager
	Center   *notify.Center
	History  store.Store
	Config   *model.AppConfig
	Logger   *slog.Logger

	// ConfigPath is where setting changes are saved. Empty disables
	// saving.
	ConfigPath string
}

// overlay is a blocking message box. Errors and the export history are
// shown this way; any confirming key dismisses it.
type overlay struct {
	title   string
	body    string
	isError bool
}

// Model is the root Bubble Tea model that manages view routing, the
// view-model, and the operator session.
type Model struct {
	currentView  View
	previousView View
	layout       ui.Layout
	keys         *keys.KeyMap
	view         ViewState

	backend    Backend
	sessions   *session.Manager
	center     *notify.Center
	history    store.Store
	config     *model.AppConfig
	configPath string
	logger     *slog.Logger

	session   *session.Session
	ticketSvc *tickets.Service
	exporter  *tickets.Exporter
	flow      *conversation.Flow
	poller    *appsync.Poller
	notices   chan model.Notification

	loginView         login.Model
	ticketList        ticketlist.Model
	chatView          chat.Model
	notificationsView notifications.Model
	helpView          helpview.Model
	commandView       command.Model
	promptView        prompt.Model

	pendingScroll string
	toast         string
	toastSeq      int
	overlay       *overlay
	lastPollErr   error
	lastPollAt    time.Time
	ready         bool
}

// New creates the root application model.
func New(d Deps) Model {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Config == nil {
		d.Config = &model.AppConfig{}
	}
	if d.Center == nil {
		d.Center = notify.NewCenter(d.Logger)
	}

	k := keys.DefaultKeyMap()
	notices := make(chan model.Notification, 16)
	flow := conversation.NewFlow(d.Backend, &milestoneNotifier{center: d.Center, out: notices}, d.Logger)

	return Model{
		currentView:       ViewLogin,
		keys:              k,
		view:              ViewState{Filter: tickets.DefaultFilter()},
		backend:           d.Backend,
		sessions:          d.Sessions,
		center:            d.Center,
		history:           d.History,
		config:            d.Config,
		configPath:        d.ConfigPath,
		logger:            d.Logger,
		flow:              flow,
		notices:           notices,
		exporter:          tickets.NewExporter(d.Backend, d.History, d.Config.Export.Dir, d.Logger),
		loginView:         login.New(80, 24),
		ticketList:        ticketlist.New(k, 80, 24),
		chatView:          chat.New(flow, d.Backend, k, 80, 24),
		notificationsView: notifications.New(d.Center, k, 80, 24),
		helpView:          helpview.New(k, 80, 24),
		commandView:       command.New(80, 24),
		promptView:        prompt.New(80, 24),
	}
}

// Init restores a stored session and starts listening for workflow
// notifications.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadSession(),
		m.loginView.Init(),
		waitForNotice(m.notices),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.loginView.SetSize(w, h)
		m.ticketList.SetSize(w, h)
		m.chatView.SetSize(w, h)
		m.notificationsView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.promptView.SetSize(w, h)
		return m.updateActiveView(msg)

	// Session
	case sessionLoadedMsg, loginDoneMsg, signupDoneMsg, logoutDoneMsg, verifyDoneMsg,
		login.SubmitMsg, login.SignupMsg, login.CancelMsg:
		return m.handleSessionMsg(msg)

	// Tickets
	case ticketsLoadedMsg:
		return m.handleTicketsLoaded(msg)

	case appsync.PollResultMsg:
		return m.handlePoll(msg)

	case ticketlist.ExpandMsg:
		if msg.TicketID == m.view.ExpandedTicketID {
			m.view.ExpandedTicketID = ""
		} else {
			m.view.ExpandedTicketID = msg.TicketID
		}
		cmd := m.syncTicketView()
		return m, cmd

	case ticketlist.FilterMsg:
		m.view.Filter = msg.Filter
		cmd := m.syncTicketView()
		return m, cmd

	case ticketlist.ActionMsg:
		return m.handleActionRequest(msg)

	case ticketActionDoneMsg:
		return m.handleActionDone(msg)

	case scrollToTicketMsg:
		if msg.ticketID != m.pendingScroll {
			return m, nil
		}
		m.pendingScroll = ""
		if !m.ticketList.SelectTicket(msg.ticketID) {
			cmd := m.showToast(fmt.Sprintf("%s is hidden by the current filter", msg.ticketID))
			return m, cmd
		}
		return m, nil

	// Prompts
	case prompt.SubmitMsg:
		m.closeView(ViewPrompt)
		return m, m.runPromptAction(msg)

	case prompt.ExportMsg:
		m.closeView(ViewPrompt)
		return m, m.runExport(msg.Format)

	case prompt.CancelMsg:
		m.closeView(ViewPrompt)
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.showError("Export failed", msg.err)
			return m, nil
		}
		cmd := m.showToast(fmt.Sprintf("Exported %d tickets to %s", msg.result.Count, msg.result.Path))
		return m, cmd

	case historyLoadedMsg:
		if msg.err != nil {
			m.showError("Export history", msg.err)
			return m, nil
		}
		m.overlay = &overlay{title: "Recent exports", body: renderHistory(msg.records)}
		return m, nil

	// Chat
	case chat.CloseMsg:
		m.currentView = ViewTickets
		return m, nil

	case chat.DisruptionsLoadedMsg, chat.QuestionLoadedMsg, spinner.TickMsg:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd

	case chat.ReplyProcessedMsg:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		replyCmd := m.handleReplyProcessed(msg)
		return m, tea.Batch(cmd, replyCmd)

	// Notifications
	case noticeMsg:
		cmd := tea.Batch(
			m.showToast(msg.n.Icon+" "+msg.n.Title+": "+msg.n.Message),
			waitForNotice(m.notices),
		)
		return m, cmd

	case notifications.CloseMsg:
		m.center.ClosePanel()
		m.closeView(ViewNotifications)
		return m, nil

	case notifications.NavigateMsg:
		m.center.ClosePanel()
		m.currentView = ViewTickets
		m.view.ExpandedTicketID = msg.TicketID
		m.pendingScroll = msg.TicketID
		cmd := tea.Batch(m.syncTicketView(), m.loadTickets())
		return m, cmd

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case command.CommandMsg:
		m.closeView(ViewCommand)
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that act regardless of the focused
// component. It reports false when the key should go to the active view.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit, true
	}

	if m.overlay != nil {
		switch msg.String() {
		case "enter", "esc", " ":
			m.overlay = nil
		}
		return m, nil, true
	}

	switch m.currentView {
	case ViewLogin, ViewPrompt, ViewNotifications:
		return m, nil, false

	case ViewCommand:
		if key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil, true
		}
		return m, nil, false

	case ViewHelp:
		if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Help) {
			m.currentView = m.previousView
		}
		return m, nil, true

	case ViewChat:
		if m.chatView.InputFocused() {
			return m, nil, false
		}
	case ViewTickets:
		if m.ticketList.Searching() {
			return m, nil, false
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		m.open(ViewHelp)
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.open(ViewCommand)
		cmd := m.commandView.Focus()
		return m, cmd, true

	case key.Matches(msg, m.keys.Notifications):
		m.center.TogglePanel()
		m.notificationsView.Reset()
		m.open(ViewNotifications)
		return m, nil, true

	case key.Matches(msg, m.keys.Tickets):
		m.currentView = ViewTickets
		return m, nil, true

	case key.Matches(msg, m.keys.Chat):
		if m.currentView == ViewChat {
			return m, nil, false
		}
		m.currentView = ViewChat
		return m, m.chatView.LoadDisruptions(), true

	case key.Matches(msg, m.keys.Refresh):
		if m.currentView == ViewChat {
			return m, m.chatView.LoadDisruptions(), true
		}
		return m, m.loadTickets(), true

	case key.Matches(msg, m.keys.Export):
		if m.currentView != ViewTickets {
			return m, nil, false
		}
		m.open(ViewPrompt)
		cmd := m.promptView.Start(prompt.KindExport, model.Ticket{})
		return m, cmd, true
	}

	return m, nil, false
}

// open switches to v, remembering the current view for Back.
func (m *Model) open(v View) {
	if m.currentView == v {
		return
	}
	m.previousView = m.currentView
	m.currentView = v
}

// closeView returns to the previous view when v is the active one.
func (m *Model) closeView(v View) {
	if m.currentView == v {
		m.currentView = m.previousView
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewTickets:
		m.ticketList, cmd = m.ticketList.Update(msg)
	case ViewChat:
		m.chatView, cmd = m.chatView.Update(msg)
	case ViewNotifications:
		m.notificationsView, cmd = m.notificationsView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewPrompt:
		m.promptView, cmd = m.promptView.Update(msg)
	}

	return m, cmd
}

// syncTicketView pushes the view-model into the ticket list.
func (m *Model) syncTicketView() tea.Cmd {
	return m.ticketList.SetView(m.view.Filter, m.view.ExpandedTicketID)
}

func (m *Model) showToast(text string) tea.Cmd {
	m.toastSeq++
	seq := m.toastSeq
	m.toast = text
	return tea.Tick(ToastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

func (m *Model) showError(title string, err error) {
	m.logger.Error(title, "error", err)
	m.overlay = &overlay{title: title, body: errorText(err), isError: true}
}

func (m *Model) shutdown() {
	if m.poller != nil {
		m.poller.Stop()
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.headerStatus())
	content := m.renderContent()
	if m.overlay != nil {
		content = m.layout.Overlay(renderOverlay(*m.overlay, m.layout.ContentWidth()))
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.toast)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewTickets:
		return m.ticketList.View()
	case ViewChat:
		return m.chatView.View()
	case ViewNotifications:
		return m.layout.Overlay(m.notificationsView.View())
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewPrompt:
		return m.layout.Overlay(m.promptView.View())
	default:
		return ""
	}
}

func (m Model) headerTitle() string {
	title := "Disruption Desk"
	if n := m.center.UnreadCount(); n > 0 {
		title = fmt.Sprintf("Disruption Desk [%d new]", n)
	}
	return title
}

// headerStatus shows the operator, the ticket scope and the poll state.
func (m Model) headerStatus() string {
	if m.session == nil {
		return "signed out"
	}

	status := fmt.Sprintf("%s (%s)", m.session.Operator.ID, m.session.Operator.Role)
	if m.view.CurrentDisruptionID != "" {
		status += " · scope " + m.view.CurrentDisruptionID
	}
	switch {
	case m.lastPollErr != nil:
		status += " · ⚠ backend unreachable"
	case !m.lastPollAt.IsZero():
		status += " · synced " + m.lastPollAt.Format("15:04:05")
	}
	return status
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.overlay != nil {
		return "enter/esc dismiss"
	}

	switch m.currentView {
	case ViewLogin:
		return "tab next field | enter submit | ctrl+n sign in/sign up | esc quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewNotifications:
		return "j/k move | enter open ticket | esc close"
	case ViewPrompt:
		return "enter confirm | esc cancel"
	case ViewChat:
		if m.chatView.InputFocused() {
			return "enter send | tab/esc disruption list"
		}
		return "enter select | tab reply | r reload | t tickets | b notifications | esc back"
	default:
		if s := m.view.Filter.Summary(); s != "" {
			return s + " | 3 clear"
		}
		return "q quit | ? help | enter expand | / search | 1 action | 2 status | c chat | b notifications | e export"
	}
}
