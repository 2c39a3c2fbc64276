package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/notify"
)

// State is where the flow is in the single-exchange sequence.
type State int

const (
	StateIdle State = iota
	StateWaiting
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting_for_response"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrBusy is returned while an exchange is already in flight.
	ErrBusy = errors.New("a response is already being processed")

	// ErrNotWaiting is returned when a reply is submitted without an open
	// question.
	ErrNotWaiting = errors.New("select a disruption first")

	// ErrEmptyReply is returned for a blank reply.
	ErrEmptyReply = errors.New("reply is empty")

	// ErrStale is returned when the selection changed while a request was
	// in flight. The result has been discarded.
	ErrStale = errors.New("selection changed; result discarded")
)

// Backend is the subset of the API client used by the flow.
type Backend interface {
	Question(ctx context.Context, disruptionID string) (*api.QuestionResponse, error)
	ParseReply(ctx context.Context, content string) (*model.OperatorResponse, error)
	CreateTickets(ctx context.Context, disruptionID string, resp model.OperatorResponse) ([]model.Ticket, error)
	Summary(ctx context.Context, disruptionID string, resp model.OperatorResponse) (*api.SummaryResponse, error)
}

// Notifier receives workflow milestones.
type Notifier interface {
	NotifyStatus(phase string) (model.Notification, bool)
}

// Outcome is the result of a successful exchange.
type Outcome struct {
	DisruptionID string
	Tickets      []model.Ticket
	Summary      model.ConversationMessage
}

// Flow drives disruption → question → reply → tickets → summary. Methods
// block on the network and are safe to call from tea.Cmd goroutines;
// readers see a consistent snapshot.
type Flow struct {
	backend  Backend
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu           sync.Mutex
	state        State
	disruptionID string
	generation   uint64
	impact       *model.ImpactAnalysis
	transcript   []model.ConversationMessage
}

// NewFlow creates an idle flow. notifier may be nil.
func NewFlow(backend Backend, notifier Notifier, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Flow{
		backend:  backend,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// DisruptionID returns the selected disruption, if any.
func (f *Flow) DisruptionID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disruptionID
}

// Impact returns the impact analysis of the selected disruption.
func (f *Flow) Impact() *model.ImpactAnalysis {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.impact == nil {
		return nil
	}
	impact := *f.impact
	return &impact
}

// Transcript returns a copy of the chat messages, oldest first.
func (f *Flow) Transcript() []model.ConversationMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ConversationMessage, len(f.transcript))
	copy(out, f.transcript)
	return out
}

// InputEnabled reports whether the reply box accepts input.
func (f *Flow) InputEnabled() bool {
	return f.State() == StateWaiting
}

// Select starts a new exchange for a disruption and fetches its opening
// question. Any result from an earlier selection still in flight is
// discarded when it lands.
func (f *Flow) Select(ctx context.Context, disruptionID string) (*api.QuestionResponse, error) {
	f.mu.Lock()
	if f.state == StateProcessing {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	f.generation++
	gen := f.generation
	f.disruptionID = disruptionID
	f.impact = nil
	f.transcript = nil
	f.state = StateIdle
	f.mu.Unlock()

	q, err := f.backend.Question(ctx, disruptionID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		return nil, ErrStale
	}
	if err != nil {
		f.logger.Error("fetching question failed", "disruption_id", disruptionID, "error", err)
		f.appendLocked(model.RoleSystem, "Error: "+api.UserMessage(err))
		return nil, fmt.Errorf("fetching question for %s: %w", disruptionID, err)
	}

	msg := q.Message
	if msg.Role == "" {
		msg.Role = model.RoleAssistant
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = model.NewTimestamp(f.now())
	}
	f.transcript = append(f.transcript, msg)
	impact := q.Impact
	f.impact = &impact
	f.state = StateWaiting
	return q, nil
}

// Submit sends the operator's reply. It runs parse, create tickets and
// summary strictly in order, each feeding the next. On success the flow
// returns to idle; on any failure it goes back to waiting with the error
// in the transcript.
func (f *Flow) Submit(ctx context.Context, text string) (*Outcome, error) {
	text = strings.TrimSpace(text)

	f.mu.Lock()
	switch {
	case f.state == StateProcessing:
		f.mu.Unlock()
		return nil, ErrBusy
	case f.state != StateWaiting:
		f.mu.Unlock()
		return nil, ErrNotWaiting
	case text == "":
		f.mu.Unlock()
		return nil, ErrEmptyReply
	}
	f.state = StateProcessing
	gen := f.generation
	disruptionID := f.disruptionID
	f.appendLocked(model.RoleUser, text)
	f.mu.Unlock()

	f.milestone(notify.PhaseStarted)
	f.logger.Info("processing reply", "disruption_id", disruptionID)

	parsed, err := f.backend.ParseReply(ctx, text)
	if err != nil {
		return nil, f.fail(gen, "parsing reply", err)
	}
	parsed.DisruptionID = disruptionID

	tickets, err := f.backend.CreateTickets(ctx, disruptionID, *parsed)
	if err != nil {
		return nil, f.fail(gen, "creating tickets", err)
	}
	f.milestone(notify.PhaseInProgress)

	summary, err := f.backend.Summary(ctx, disruptionID, *parsed)
	if err != nil {
		return nil, f.fail(gen, "requesting summary", err)
	}

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		return nil, ErrStale
	}
	msg := summary.Message
	if msg.Role == "" {
		msg.Role = model.RoleAssistant
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = model.NewTimestamp(f.now())
	}
	f.transcript = append(f.transcript, msg)
	f.state = StateIdle
	f.mu.Unlock()

	f.logger.Info("reply processed", "disruption_id", disruptionID, "tickets", len(tickets))
	f.milestone(notify.PhaseCompleted)

	return &Outcome{DisruptionID: disruptionID, Tickets: tickets, Summary: msg}, nil
}

// Reset drops the selection and transcript.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.state = StateIdle
	f.disruptionID = ""
	f.impact = nil
	f.transcript = nil
}

func (f *Flow) fail(gen uint64, step string, err error) error {
	f.logger.Error("reply processing failed", "step", step, "error", err)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		return ErrStale
	}
	f.state = StateWaiting
	f.appendLocked(model.RoleSystem, "Error: "+api.UserMessage(err))
	return fmt.Errorf("%s: %w", step, err)
}

func (f *Flow) appendLocked(role, content string) {
	f.transcript = append(f.transcript, model.ConversationMessage{
		Role:      role,
		Content:   content,
		Timestamp: model.NewTimestamp(f.now()),
	})
}

func (f *Flow) milestone(phase string) {
	if f.notifier == nil {
		return
	}
	f.notifier.NotifyStatus(phase)
}
