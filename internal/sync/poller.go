package sync

import (
	"context"
	"io"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/model"
)

// SyncState represents the current state of the background poll.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the poll state.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// PollResultMsg is a tea.Msg sent when a poll completes. Source is the
// poller that produced it.
type PollResultMsg struct {
	Source    *Poller
	Tickets   []model.Ticket
	Error     error
	AuthError bool
	FetchedAt time.Time
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// defaultInterval is used when no positive interval is configured.
const defaultInterval = 30 * time.Second

// Fetcher lists tickets from the backend.
type Fetcher interface {
	ListTickets(ctx context.Context) ([]model.Ticket, error)
}

// Poller fetches GET /tickets on a fixed interval as a liveness and
// refresh signal. Failures are logged and otherwise ignored until the
// next tick; there is no backoff.
type Poller struct {
	fetcher   Fetcher
	interval  time.Duration
	logger    *slog.Logger
	status    SyncStatus
	resultCh  chan PollResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a new Poller.
func New(f Fetcher, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poller{
		fetcher:   f,
		interval:  interval,
		logger:    logger,
		resultCh:  make(chan PollResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results. Calling Start twice is a no-op.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine. Pending WaitForNextResult commands
// return nil once it is stopped.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate poll.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A poll is already queued.
	}
}

// Status returns the current poll status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll()
		case <-p.triggerCh:
			p.poll()
		}
	}
}

// poll performs a single fetch and publishes the result.
func (p *Poller) poll() {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	tickets, err := p.fetcher.ListTickets(ctx)
	if err != nil {
		p.logger.Warn("ticket poll failed", "error", err)
		p.setStatus(SyncError, err)
		p.sendResult(PollResultMsg{
			Source:    p,
			Error:     err,
			AuthError: api.IsAuthError(err),
			FetchedAt: time.Now(),
		})
		return
	}

	p.logger.Debug("ticket poll", "count", len(tickets))
	p.setStatus(SyncIdle, nil)
	p.sendResult(PollResultMsg{Source: p, Tickets: tickets, FetchedAt: time.Now()})
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a result without blocking.
func (p *Poller) sendResult(msg PollResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-p.stopCh:
			return nil
		case result := <-p.resultCh:
			return result
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll
// result. Call it after handling each PollResultMsg.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
