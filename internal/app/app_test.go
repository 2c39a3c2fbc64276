package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/conversation"
	"github.com/nhle/disruption-desk/internal/credential"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/notify"
	"github.com/nhle/disruption-desk/internal/session"
	appsync "github.com/nhle/disruption-desk/internal/sync"
	"github.com/nhle/disruption-desk/internal/tickets"
	"github.com/nhle/disruption-desk/internal/ui/chat"
	"github.com/nhle/disruption-desk/internal/ui/command"
	"github.com/nhle/disruption-desk/internal/ui/login"
	"github.com/nhle/disruption-desk/internal/ui/notifications"
	"github.com/nhle/disruption-desk/internal/ui/prompt"
	"github.com/nhle/disruption-desk/internal/ui/ticketlist"
	"github.com/nhle/disruption-desk/tests/testutil"
)

// fakeBackend serves the handful of endpoints the dashboard uses.
type fakeBackend struct {
	mu          sync.Mutex
	tickets     []map[string]any
	transitions []string
	paths       []string
	rejectErr   string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{tickets: []map[string]any{
		{"id": "TICKET-001", "disruption_id": "DIS-1", "shipment_id": "SHIP-001", "destination": "Singapore",
			"action": "reroute", "status": "pending", "explanation": "", "notes": []any{}, "created_at": "2026-01-08T12:00:00"},
		{"id": "TICKET-002", "disruption_id": "DIS-1", "shipment_id": "SHIP-002", "destination": "Hamburg",
			"action": "delay", "status": "completed", "explanation": "", "notes": []any{}, "created_at": "2026-01-08T12:05:00"},
	}}
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"operator":{"id":"OP-002","name":"Sam","role":"operator"},"session_token":"tok","expires_at":"2026-01-09T12:00:00"}`))
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /tickets", func(w http.ResponseWriter, r *http.Request) {
		f.record(r.URL.Path)
		f.writeTickets(t, w, "")
	})
	mux.HandleFunc("GET /tickets/disruption/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r.URL.Path)
		f.writeTickets(t, w, r.PathValue("id"))
	})
	mux.HandleFunc("POST /tickets/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r.URL.Path)
		if r.PathValue("action") == "reject" && f.rejectErr != "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"detail":%q}`, f.rejectErr)
			return
		}
		f.mu.Lock()
		f.transitions = append(f.transitions, r.PathValue("id")+":"+r.PathValue("action"))
		f.mu.Unlock()
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /disruptions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	return mux
}

func (f *fakeBackend) record(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

func (f *fakeBackend) writeTickets(t *testing.T, w http.ResponseWriter, disruptionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.tickets))
	for _, tk := range f.tickets {
		if disruptionID == "" || tk["disruption_id"] == disruptionID {
			out = append(out, tk)
		}
	}
	require.NoError(t, json.NewEncoder(w).Encode(out))
}

type harness struct {
	m       Model
	backend *fakeBackend
	center  *notify.Center
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fb := newFakeBackend()
	srv := httptest.NewServer(fb.handler(t))
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, 5*time.Second, nil)
	st := testutil.NewTestStore(t)
	tokens := credential.NewStore(keyring.NewArrayKeyring(nil))
	center := notify.NewCenter(nil, notify.WithDispatcher(func(f func()) { f() }))

	m := New(Deps{
		Backend:  client,
		Sessions: session.NewManager(client, tokens, st, nil),
		Center:   center,
		History:  st,
		Config:   &model.AppConfig{Export: model.ExportConfig{Dir: t.TempDir()}},
	})

	h := &harness{m: m, backend: fb, center: center}
	h.send(t, tea.WindowSizeMsg{Width: 140, Height: 40})
	t.Cleanup(func() { h.m.shutdown() })
	return h
}

// send delivers msg and returns the resulting command without running it.
func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := h.m.Update(msg)
	m, ok := next.(Model)
	require.True(t, ok)
	h.m = m
	return cmd
}

// run delivers msg, runs the single command it returns, and delivers
// that command's message too.
func (h *harness) run(t *testing.T, msg tea.Msg) tea.Msg {
	t.Helper()
	cmd := h.send(t, msg)
	require.NotNil(t, cmd)
	out := cmd()
	h.send(t, out)
	return out
}

// signIn logs in and loads the ticket list.
func (h *harness) signIn(t *testing.T) {
	t.Helper()
	out := h.run(t, login.SubmitMsg{OperatorID: "OP-002", Password: "operator123"})
	done, ok := out.(loginDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	require.Equal(t, ViewTickets, h.m.currentView)

	h.send(t, h.m.loadTickets()())
	require.Len(t, h.m.ticketList.Tickets(), 2)
}

func ticketByID(t *testing.T, h *harness, id string) model.Ticket {
	t.Helper()
	for _, tk := range h.m.ticketList.Tickets() {
		if tk.ID == id {
			return tk
		}
	}
	t.Fatalf("ticket %s not loaded", id)
	return model.Ticket{}
}

func TestStartsOnLoginWithoutSession(t *testing.T) {
	h := newHarness(t)

	h.send(t, h.m.loadSession()())
	assert.Equal(t, ViewLogin, h.m.currentView)
	assert.Contains(t, h.m.View(), "signed out")
}

func TestLoginOpensTicketList(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	view := h.m.View()
	assert.Contains(t, view, "OP-002 (operator)")
	assert.Contains(t, view, "TICKET-001")
}

func TestApproveNotifiesWithTicketID(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	out := h.run(t, ticketlist.ActionMsg{Action: tickets.ActionApprove, Ticket: ticketByID(t, h, "TICKET-001")})
	done, ok := out.(ticketActionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	assert.Equal(t, []string{"TICKET-001:approve"}, h.backend.transitions)
	require.NotEmpty(t, h.center.Items())
	assert.Equal(t, "TICKET-001", h.center.Items()[0].TicketID)
	assert.Contains(t, h.m.toast, "Ticket approved")
	assert.Nil(t, h.m.overlay)
}

func TestRejectPromptsAndShowsServerDetail(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.backend.rejectErr = "Ticket TICKET-001 is not pending"

	tk := ticketByID(t, h, "TICKET-001")
	h.send(t, ticketlist.ActionMsg{Action: tickets.ActionReject, Ticket: tk})
	assert.Equal(t, ViewPrompt, h.m.currentView)

	h.run(t, prompt.SubmitMsg{Kind: prompt.KindReject, Ticket: tk, Text: "weather"})
	assert.Equal(t, ViewTickets, h.m.currentView)
	require.NotNil(t, h.m.overlay)
	assert.True(t, h.m.overlay.isError)
	assert.Equal(t, "Ticket TICKET-001 is not pending", h.m.overlay.body)

	h.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, h.m.overlay)
}

func TestActionOnWrongStatusNeverReachesBackend(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.run(t, ticketlist.ActionMsg{Action: tickets.ActionApprove, Ticket: ticketByID(t, h, "TICKET-002")})
	require.NotNil(t, h.m.overlay)
	assert.Contains(t, h.m.overlay.body, tickets.ErrActionNotAllowed.Error())
	assert.Empty(t, h.backend.transitions)
}

func TestOverlaySwallowsKeys(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.m.overlay = &overlay{title: "x", body: "y"}

	cmd := h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
	assert.NotNil(t, h.m.overlay)
}

func TestNavigateExpandsAndSelectsTicket(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.m.currentView = ViewNotifications

	h.send(t, notifications.NavigateMsg{TicketID: "TICKET-002"})
	assert.Equal(t, ViewTickets, h.m.currentView)
	assert.Equal(t, "TICKET-002", h.m.view.ExpandedTicketID)

	h.send(t, h.m.loadTickets()())
	h.send(t, scrollToTicketMsg{ticketID: "TICKET-002"})

	selected, ok := h.m.ticketList.Selected()
	require.True(t, ok)
	assert.Equal(t, "TICKET-002", selected.ID)
	assert.Empty(t, h.m.pendingScroll)
}

func TestFilterAndClearCommands(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.send(t, command.CommandMsg("filter status pending"))
	visible := h.m.ticketList.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "TICKET-001", visible[0].ID)

	h.send(t, command.CommandMsg("clear"))
	assert.True(t, h.m.view.Filter.IsDefault())
	assert.Len(t, h.m.ticketList.Visible(), 2)

	h.send(t, command.CommandMsg("filter status nope"))
	assert.Contains(t, h.m.toast, "unknown status")
}

func TestConversationOutcomeScopesTickets(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.send(t, chat.ReplyProcessedMsg{Outcome: &conversation.Outcome{
		DisruptionID: "DIS-1",
		Tickets:      []model.Ticket{{ID: "TICKET-001", DisruptionID: "DIS-1"}},
	}})
	assert.Equal(t, "DIS-1", h.m.view.CurrentDisruptionID)
	assert.Len(t, h.m.ticketList.Tickets(), 1)

	h.send(t, h.m.loadTickets()())
	assert.Contains(t, h.backend.paths, "/tickets/disruption/DIS-1")

	// A load started before the scope changed is dropped.
	h.send(t, ticketsLoadedMsg{tickets: nil, scope: ""})
	assert.Len(t, h.m.ticketList.Tickets(), 2)

	h.send(t, command.CommandMsg("scope all"))
	assert.Empty(t, h.m.view.CurrentDisruptionID)
}

func TestPollAuthErrorEndsSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.send(t, appsync.PollResultMsg{Source: h.m.poller, AuthError: true, FetchedAt: time.Now()})
	assert.Equal(t, ViewLogin, h.m.currentView)
	assert.Nil(t, h.m.session)
	assert.Contains(t, h.m.View(), "session has expired")
}

func TestPollReplacesTickets(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	cmd := h.send(t, appsync.PollResultMsg{
		Source:    h.m.poller,
		Tickets:   []model.Ticket{{ID: "TICKET-009", Status: model.StatusPending}},
		FetchedAt: time.Date(2026, 1, 8, 9, 30, 0, 0, time.Local),
	})
	assert.NotNil(t, cmd)
	assert.Len(t, h.m.ticketList.Tickets(), 1)
	assert.Contains(t, h.m.headerStatus(), "synced 09:30:00")
}

func TestPollFromEarlierSessionIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	stale := h.m.poller

	h.run(t, command.CommandMsg("logout"))
	h.signIn(t)
	require.NotNil(t, h.m.poller)
	require.NotSame(t, stale, h.m.poller)

	cmd := h.send(t, appsync.PollResultMsg{
		Source:    stale,
		Tickets:   []model.Ticket{{ID: "TICKET-009"}},
		FetchedAt: time.Now(),
	})
	assert.Nil(t, cmd)
	assert.Len(t, h.m.ticketList.Tickets(), 2)
	assert.NotNil(t, h.m.session)
}

func TestExportAndHistory(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	out := h.run(t, command.CommandMsg("export csv"))
	done, ok := out.(exportDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, 2, done.result.Count)
	assert.Contains(t, h.m.toast, "Exported 2 tickets")

	h.run(t, command.CommandMsg("history"))
	require.NotNil(t, h.m.overlay)
	assert.Equal(t, "Recent exports", h.m.overlay.title)
	assert.Contains(t, h.m.overlay.body, "CSV")
}

func TestLogoutReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.run(t, command.CommandMsg("logout"))
	assert.Equal(t, ViewLogin, h.m.currentView)
	assert.Nil(t, h.m.session)
	assert.Empty(t, h.m.ticketList.Tickets())

	_, err := h.m.sessions.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestToastExpiresOnlyForLatest(t *testing.T) {
	h := newHarness(t)

	h.m.showToast("first")
	h.m.showToast("second")

	h.send(t, toastExpiredMsg{seq: 1})
	assert.Equal(t, "second", h.m.toast)

	h.send(t, toastExpiredMsg{seq: 2})
	assert.Empty(t, h.m.toast)
}

func TestHelpAndCommandKeys(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Equal(t, ViewHelp, h.m.currentView)
	h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Equal(t, ViewTickets, h.m.currentView)

	h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	assert.Equal(t, ViewCommand, h.m.currentView)
	h.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewTickets, h.m.currentView)
}

func TestMilestoneNotifierForwardsKnownPhases(t *testing.T) {
	center := notify.NewCenter(nil, notify.WithDispatcher(func(f func()) { f() }))
	out := make(chan model.Notification, 1)
	n := &milestoneNotifier{center: center, out: out}

	_, ok := n.NotifyStatus("nonsense")
	assert.False(t, ok)
	assert.Empty(t, center.Items())

	note, ok := n.NotifyStatus(notify.PhaseStarted)
	require.True(t, ok)
	assert.Equal(t, note, <-out)
	assert.Equal(t, 1, center.UnreadCount())
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Invalid operator ID", errorText(&api.Error{StatusCode: 401, Detail: "Invalid operator ID"}))
	assert.Equal(t, "request failed, please try again", errorText(&api.Error{StatusCode: 500}))
	assert.Equal(t, tickets.ErrEmptyReason.Error(), errorText(tickets.ErrEmptyReason))
}
