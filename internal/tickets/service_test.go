package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/model"
)

type recordedCall struct {
	Path string
	Body map[string]string
}

func newBackend(t *testing.T, status int) (*api.Client, *int32, *[]recordedCall) {
	t.Helper()
	var count int32
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		body := map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, recordedCall{Path: r.URL.Path, Body: body})
		w.WriteHeader(status)
		if status >= 400 {
			w.Write([]byte(`{"detail":"Ticket is not pending"}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL, time.Second, nil), &count, &calls
}

func TestRejectWithEmptyReasonSendsNothing(t *testing.T) {
	client, count, _ := newBackend(t, http.StatusOK)
	svc := NewService(client, "OP-1", nil)
	ticket := model.Ticket{ID: "TICKET-1", Status: model.StatusPending}

	for _, reason := range []string{"", "   ", "\n\t"} {
		err := svc.Reject(context.Background(), ticket, reason)
		assert.ErrorIs(t, err, ErrEmptyReason)
	}

	assert.Zero(t, atomic.LoadInt32(count))
	assert.Equal(t, model.StatusPending, ticket.Status)
}

func TestRejectSendsReasonAndOperator(t *testing.T) {
	client, _, calls := newBackend(t, http.StatusOK)
	svc := NewService(client, "OP-1", nil)

	err := svc.Reject(context.Background(), model.Ticket{ID: "TICKET-1", Status: model.StatusPending}, " cost too high ")
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/tickets/TICKET-1/reject", call.Path)
	assert.Equal(t, "OP-1", call.Body["operator_id"])
	assert.Equal(t, "cost too high", call.Body["reason"])
}

func TestTransitionsFollowStatus(t *testing.T) {
	client, count, calls := newBackend(t, http.StatusOK)
	svc := NewService(client, "OP-1", nil)
	ctx := context.Background()

	err := svc.Start(ctx, model.Ticket{ID: "TICKET-2", Status: model.StatusPending})
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	err = svc.Complete(ctx, model.Ticket{ID: "TICKET-2", Status: model.StatusPending}, "")
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	assert.Zero(t, atomic.LoadInt32(count))

	require.NoError(t, svc.Approve(ctx, model.Ticket{ID: "TICKET-2", Status: model.StatusPending}))
	require.NoError(t, svc.Start(ctx, model.Ticket{ID: "TICKET-2", Status: model.StatusApproved}))
	require.NoError(t, svc.Complete(ctx, model.Ticket{ID: "TICKET-2", Status: model.StatusInProgress}, "delivered"))

	require.Len(t, *calls, 3)
	assert.Equal(t, "/tickets/TICKET-2/approve", (*calls)[0].Path)
	assert.Equal(t, "/tickets/TICKET-2/start", (*calls)[1].Path)
	assert.Equal(t, "/tickets/TICKET-2/complete", (*calls)[2].Path)
	assert.Equal(t, "delivered", (*calls)[2].Body["notes"])
}

func TestAddNote(t *testing.T) {
	client, _, calls := newBackend(t, http.StatusOK)
	svc := NewService(client, "OP-9", nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddNote(ctx, model.Ticket{ID: "TICKET-3"}, "  "), ErrEmptyNote)

	require.NoError(t, svc.AddNote(ctx, model.Ticket{ID: "TICKET-3", Status: model.StatusCompleted}, "called carrier"))
	require.Len(t, *calls, 1)
	assert.Equal(t, "/tickets/TICKET-3/notes", (*calls)[0].Path)
	assert.Equal(t, "OP-9", (*calls)[0].Body["author"])
	assert.Equal(t, "called carrier", (*calls)[0].Body["content"])
}

func TestBackendFailureCarriesDetail(t *testing.T) {
	client, _, _ := newBackend(t, http.StatusBadRequest)
	svc := NewService(client, "OP-1", nil)

	err := svc.Approve(context.Background(), model.Ticket{ID: "TICKET-4", Status: model.StatusPending})
	require.Error(t, err)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Ticket is not pending", api.UserMessage(err))
}
