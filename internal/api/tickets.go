package api

import (
	"context"
	"net/url"

	"github.com/nhle/disruption-desk/internal/model"
)

// TicketAction names a status-changing ticket endpoint.
type TicketAction string

const (
	ActionApprove  TicketAction = "approve"
	ActionReject   TicketAction = "reject"
	ActionStart    TicketAction = "start"
	ActionComplete TicketAction = "complete"
)

// TransitionRequest is the body of every status-changing ticket call.
type TransitionRequest struct {
	OperatorID string `json:"operator_id"`
	Reason     string `json:"reason,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// NoteRequest is the body of POST /tickets/{id}/notes.
type NoteRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// ListTickets fetches every ticket visible to the operator.
func (c *Client) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	var tickets []model.Ticket
	if err := c.Get(ctx, "/tickets", &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetTicket fetches a single ticket.
func (c *Client) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := c.Get(ctx, "/tickets/"+url.PathEscape(id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListTicketsForDisruption fetches the tickets generated for one disruption.
func (c *Client) ListTicketsForDisruption(
	ctx context.Context,
	disruptionID string,
) ([]model.Ticket, error) {
	var tickets []model.Ticket
	path := "/tickets/disruption/" + url.PathEscape(disruptionID)
	if err := c.Get(ctx, path, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// TransitionTicket posts a status-changing action for a ticket. The
// response body is ignored; callers reload the list on success.
func (c *Client) TransitionTicket(
	ctx context.Context,
	id string,
	action TicketAction,
	req TransitionRequest,
) error {
	path := "/tickets/" + url.PathEscape(id) + "/" + string(action)
	return c.Post(ctx, path, req, nil)
}

// AddTicketNote appends a note to a ticket.
func (c *Client) AddTicketNote(ctx context.Context, id string, req NoteRequest) error {
	return c.Post(ctx, "/tickets/"+url.PathEscape(id)+"/notes", req, nil)
}

// CreateTickets runs the decision engine for a disruption with the parsed
// operator response and returns the resulting tickets.
func (c *Client) CreateTickets(
	ctx context.Context,
	disruptionID string,
	resp model.OperatorResponse,
) ([]model.Ticket, error) {
	var tickets []model.Ticket
	if err := c.Post(ctx, "/tickets/"+url.PathEscape(disruptionID), resp, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}
