package sync

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/model"
)

type countingFetcher struct {
	calls int32
	err   error
}

func (f *countingFetcher) ListTickets(context.Context) ([]model.Ticket, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []model.Ticket{{ID: "TICKET-001"}}, nil
}

func TestPollerPublishesOnInterval(t *testing.T) {
	f := &countingFetcher{}
	p := New(f, 10*time.Millisecond, nil)
	cmd := p.Start()
	require.NotNil(t, cmd)
	defer p.Stop()

	msg, ok := cmd().(PollResultMsg)
	require.True(t, ok)
	assert.NoError(t, msg.Error)
	assert.Len(t, msg.Tickets, 1)

	_, ok = p.WaitForNextResult()().(PollResultMsg)
	require.True(t, ok)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&f.calls), int32(2))
	assert.False(t, p.Status().LastSync.IsZero())
}

func TestPollerFailureIsReportedNotRetried(t *testing.T) {
	f := &countingFetcher{err: &api.Error{StatusCode: http.StatusUnauthorized}}
	p := New(f, time.Hour, nil)
	p.Start()
	defer p.Stop()

	p.Refresh()
	msg, ok := p.WaitForNextResult()().(PollResultMsg)
	require.True(t, ok)
	assert.Error(t, msg.Error)
	assert.True(t, msg.AuthError)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
	assert.Equal(t, SyncError, p.Status().State)
}

func TestPollerStartTwiceIsNoop(t *testing.T) {
	p := New(&countingFetcher{err: errors.New("down")}, time.Hour, nil)
	require.NotNil(t, p.Start())
	assert.Nil(t, p.Start())
	p.Stop()
	p.Stop()
}

func TestPollerStopReleasesWaiter(t *testing.T) {
	p := New(&countingFetcher{}, time.Hour, nil)
	wait := p.Start()
	require.NotNil(t, wait)

	done := make(chan any, 1)
	go func() { done <- wait() }()

	p.Stop()
	select {
	case msg := <-done:
		assert.Nil(t, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter still blocked after Stop")
	}
}

func TestPollerResultsNameTheirSource(t *testing.T) {
	p := New(&countingFetcher{}, time.Hour, nil)
	p.Start()
	defer p.Stop()

	p.Refresh()
	msg, ok := p.WaitForNextResult()().(PollResultMsg)
	require.True(t, ok)
	assert.Same(t, p, msg.Source)
}
