package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/notify"
)

type fakeServer struct {
	t        *testing.T
	failPath string
	onParse  func()

	mu       sync.Mutex
	order    []string
	ticketIn model.OperatorResponse
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.order = append(s.order, r.URL.Path)
	s.mu.Unlock()

	if r.URL.Path == s.failPath {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"decision engine unavailable"}`))
		return
	}

	switch r.URL.Path {
	case "/conversation/question/DIS-001":
		w.Write([]byte(`{"message":{"role":"assistant","content":"Allow reroutes?"},
			"impact":{"disruption_id":"DIS-001","total_shipments_impacted":3,"high_priority_count":1,"severity_score":8}}`))
	case "/conversation/question/DIS-002":
		w.Write([]byte(`{"message":{"content":"Second?"},"impact":{"disruption_id":"DIS-002"}}`))
	case "/conversation/parse":
		if s.onParse != nil {
			s.onParse()
		}
		w.Write([]byte(`{"allow_reroute":true,"max_cost_increase_percent":15,"prioritize_high_priority":true}`))
	case "/tickets/DIS-001":
		var in model.OperatorResponse
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&in))
		s.mu.Lock()
		s.ticketIn = in
		s.mu.Unlock()
		w.Write([]byte(`[{"id":"TICKET-001","disruption_id":"DIS-001","status":"pending","action":"reroute"},
			{"id":"TICKET-002","disruption_id":"DIS-001","status":"pending","action":"delay"}]`))
	case "/summary/DIS-001":
		w.Write([]byte(`{"message":{"role":"assistant","content":"**2 tickets** created."}}`))
	default:
		s.t.Errorf("unexpected path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	phases []string
}

func (n *recordingNotifier) NotifyStatus(phase string) (model.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.phases = append(n.phases, phase)
	return model.Notification{}, true
}

func newFlow(t *testing.T, srv *fakeServer) (*Flow, *recordingNotifier) {
	t.Helper()
	srv.t = t
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	n := &recordingNotifier{}
	return NewFlow(api.NewClient(ts.URL, time.Second, nil), n, nil), n
}

func TestSelectOpensQuestion(t *testing.T) {
	f, _ := newFlow(t, &fakeServer{})

	q, err := f.Select(context.Background(), "DIS-001")
	require.NoError(t, err)

	assert.Equal(t, "Allow reroutes?", q.Message.Content)
	assert.Equal(t, StateWaiting, f.State())
	assert.True(t, f.InputEnabled())
	require.NotNil(t, f.Impact())
	assert.Equal(t, 3, f.Impact().TotalShipmentsImpacted)

	transcript := f.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, model.RoleAssistant, transcript[0].Role)
}

func TestSubmitSuccess(t *testing.T) {
	srv := &fakeServer{}
	f, notifier := newFlow(t, srv)
	ctx := context.Background()

	var stateDuringParse State
	srv.onParse = func() { stateDuringParse = f.State() }

	_, err := f.Select(ctx, "DIS-001")
	require.NoError(t, err)

	out, err := f.Submit(ctx, "  yes, up to 15%  ")
	require.NoError(t, err)

	assert.Equal(t, StateProcessing, stateDuringParse)
	assert.Equal(t, StateIdle, f.State())
	assert.False(t, f.InputEnabled())
	assert.Len(t, out.Tickets, 2)
	assert.Equal(t, "**2 tickets** created.", out.Summary.Content)

	assert.Equal(t, []string{
		"/conversation/question/DIS-001",
		"/conversation/parse",
		"/tickets/DIS-001",
		"/summary/DIS-001",
	}, srv.order)
	assert.Equal(t, "DIS-001", srv.ticketIn.DisruptionID)
	assert.True(t, srv.ticketIn.AllowReroute)

	transcript := f.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, model.RoleUser, transcript[1].Role)
	assert.Equal(t, "yes, up to 15%", transcript[1].Content)
	assert.Equal(t, out.Summary.Content, transcript[2].Content)

	assert.Equal(t, []string{notify.PhaseStarted, notify.PhaseInProgress, notify.PhaseCompleted}, notifier.phases)
}

func TestSubmitFailureAtEachStep(t *testing.T) {
	steps := []struct {
		path      string
		wantCalls int
	}{
		{"/conversation/parse", 2},
		{"/tickets/DIS-001", 3},
		{"/summary/DIS-001", 4},
	}

	for _, step := range steps {
		t.Run(step.path, func(t *testing.T) {
			srv := &fakeServer{failPath: step.path}
			f, _ := newFlow(t, srv)
			ctx := context.Background()

			_, err := f.Select(ctx, "DIS-001")
			require.NoError(t, err)

			out, err := f.Submit(ctx, "approve everything")
			require.Error(t, err)
			assert.Nil(t, out)

			assert.Equal(t, StateWaiting, f.State())
			assert.True(t, f.InputEnabled())
			assert.Len(t, srv.order, step.wantCalls)

			transcript := f.Transcript()
			last := transcript[len(transcript)-1]
			assert.Equal(t, model.RoleSystem, last.Role)
			assert.Equal(t, "Error: decision engine unavailable", last.Content)
		})
	}
}

func TestSubmitGuards(t *testing.T) {
	f, _ := newFlow(t, &fakeServer{})
	ctx := context.Background()

	_, err := f.Submit(ctx, "hello")
	assert.ErrorIs(t, err, ErrNotWaiting)

	_, err = f.Select(ctx, "DIS-001")
	require.NoError(t, err)

	_, err = f.Submit(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyReply)
	assert.Equal(t, StateWaiting, f.State())
}

func TestSubmitWhileProcessingIsBusy(t *testing.T) {
	srv := &fakeServer{}
	f, _ := newFlow(t, srv)
	ctx := context.Background()

	var busyErr, selectErr error
	srv.onParse = func() {
		_, busyErr = f.Submit(ctx, "again")
		_, selectErr = f.Select(ctx, "DIS-002")
	}

	_, err := f.Select(ctx, "DIS-001")
	require.NoError(t, err)
	_, err = f.Submit(ctx, "go")
	require.NoError(t, err)

	assert.ErrorIs(t, busyErr, ErrBusy)
	assert.ErrorIs(t, selectErr, ErrBusy)
}

func TestResetDiscardsInFlightResult(t *testing.T) {
	srv := &fakeServer{}
	f, _ := newFlow(t, srv)
	ctx := context.Background()

	srv.onParse = func() { f.Reset() }

	_, err := f.Select(ctx, "DIS-001")
	require.NoError(t, err)

	_, err = f.Submit(ctx, "go")
	assert.True(t, errors.Is(err, ErrStale))
	assert.Equal(t, StateIdle, f.State())
	assert.Empty(t, f.Transcript())
	assert.Empty(t, f.DisruptionID())
}

func TestSelectFailureShowsError(t *testing.T) {
	srv := &fakeServer{failPath: "/conversation/question/DIS-001"}
	f, _ := newFlow(t, srv)

	_, err := f.Select(context.Background(), "DIS-001")
	require.Error(t, err)

	assert.Equal(t, StateIdle, f.State())
	transcript := f.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, "Error: decision engine unavailable", transcript[0].Content)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "waiting_for_response", StateWaiting.String())
	assert.Equal(t, "processing", StateProcessing.String())
}
