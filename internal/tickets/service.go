package tickets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/model"
)

var (
	// ErrEmptyReason is returned when a rejection has no reason. No
	// request is sent.
	ErrEmptyReason = errors.New("a rejection reason is required")

	// ErrEmptyNote is returned when a note has no content.
	ErrEmptyNote = errors.New("note content is required")

	// ErrActionNotAllowed is returned when an action is not offered for
	// the ticket's current status.
	ErrActionNotAllowed = errors.New("action not allowed for ticket status")
)

// Backend is the subset of the API client used for tickets.
type Backend interface {
	ListTickets(ctx context.Context) ([]model.Ticket, error)
	TransitionTicket(ctx context.Context, id string, action api.TicketAction, req api.TransitionRequest) error
	AddTicketNote(ctx context.Context, id string, req api.NoteRequest) error
}

// Service sends ticket actions on behalf of one operator. It never
// patches local state: callers reload the list after a success.
type Service struct {
	backend    Backend
	operatorID string
	logger     *slog.Logger
}

// NewService creates a ticket service acting as operatorID.
func NewService(backend Backend, operatorID string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{backend: backend, operatorID: operatorID, logger: logger}
}

// OperatorID returns the acting operator.
func (s *Service) OperatorID() string {
	return s.operatorID
}

// List fetches every ticket.
func (s *Service) List(ctx context.Context) ([]model.Ticket, error) {
	tickets, err := s.backend.ListTickets(ctx)
	if err != nil {
		s.logger.Error("loading tickets failed", "error", err)
		return nil, fmt.Errorf("loading tickets: %w", err)
	}
	return tickets, nil
}

// Approve approves a pending ticket.
func (s *Service) Approve(ctx context.Context, t model.Ticket) error {
	return s.transition(ctx, t, ActionApprove, api.TransitionRequest{})
}

// Reject rejects a pending ticket. A blank reason returns ErrEmptyReason
// without contacting the backend.
func (s *Service) Reject(ctx context.Context, t model.Ticket, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}
	return s.transition(ctx, t, ActionReject, api.TransitionRequest{Reason: reason})
}

// Start moves an approved ticket into progress.
func (s *Service) Start(ctx context.Context, t model.Ticket) error {
	return s.transition(ctx, t, ActionStart, api.TransitionRequest{})
}

// Complete finishes an in-progress ticket. notes is optional.
func (s *Service) Complete(ctx context.Context, t model.Ticket, notes string) error {
	return s.transition(ctx, t, ActionComplete, api.TransitionRequest{
		Notes: strings.TrimSpace(notes),
	})
}

// AddNote appends a note authored by the acting operator.
func (s *Service) AddNote(ctx context.Context, t model.Ticket, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyNote
	}

	err := s.backend.AddTicketNote(ctx, t.ID, api.NoteRequest{
		Author:  s.operatorID,
		Content: content,
	})
	if err != nil {
		s.logger.Error("adding note failed", "ticket_id", t.ID, "error", err)
		return fmt.Errorf("adding note to %s: %w", t.ID, err)
	}
	s.logger.Info("note added", "ticket_id", t.ID, "operator_id", s.operatorID)
	return nil
}

func (s *Service) transition(
	ctx context.Context,
	t model.Ticket,
	action Action,
	req api.TransitionRequest,
) error {
	if !Allowed(t.Status, action) {
		return fmt.Errorf("%s on %s ticket %s: %w", action, t.Status, t.ID, ErrActionNotAllowed)
	}

	req.OperatorID = s.operatorID
	if err := s.backend.TransitionTicket(ctx, t.ID, api.TicketAction(action), req); err != nil {
		s.logger.Error("ticket action failed",
			"ticket_id", t.ID, "action", action, "error", err)
		return fmt.Errorf("%s ticket %s: %w", action, t.ID, err)
	}

	s.logger.Info("ticket action sent",
		"ticket_id", t.ID, "action", action, "operator_id", s.operatorID)
	return nil
}
