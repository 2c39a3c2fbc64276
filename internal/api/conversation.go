package api

import (
	"context"
	"net/url"

	"github.com/nhle/disruption-desk/internal/model"
)

// QuestionResponse is returned by GET /conversation/question/{id}.
type QuestionResponse struct {
	Message model.ConversationMessage `json:"message"`
	Impact  model.ImpactAnalysis      `json:"impact"`
}

// SummaryResponse is returned by POST /summary/{id}.
type SummaryResponse struct {
	Message model.ConversationMessage `json:"message"`
}

type parseRequest struct {
	Content string `json:"content"`
}

// ListDisruptions fetches all tracked disruptions.
func (c *Client) ListDisruptions(ctx context.Context) ([]model.Disruption, error) {
	var disruptions []model.Disruption
	if err := c.Get(ctx, "/disruptions", &disruptions); err != nil {
		return nil, err
	}
	return disruptions, nil
}

// Question fetches the assistant's opening question for a disruption.
func (c *Client) Question(ctx context.Context, disruptionID string) (*QuestionResponse, error) {
	var resp QuestionResponse
	path := "/conversation/question/" + url.PathEscape(disruptionID)
	if err := c.Get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ParseReply converts the operator's free-text reply into a structured
// response. The backend does not know the disruption, so DisruptionID is
// left empty.
func (c *Client) ParseReply(ctx context.Context, content string) (*model.OperatorResponse, error) {
	var resp model.OperatorResponse
	if err := c.Post(ctx, "/conversation/parse", parseRequest{Content: content}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Summary asks the backend to summarize the decisions for a disruption.
func (c *Client) Summary(
	ctx context.Context,
	disruptionID string,
	resp model.OperatorResponse,
) (*SummaryResponse, error) {
	var summary SummaryResponse
	if err := c.Post(ctx, "/summary/"+url.PathEscape(disruptionID), resp, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
