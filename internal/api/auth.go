package api

import (
	"context"

	"github.com/nhle/disruption-desk/internal/model"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	OperatorID string `json:"operator_id" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Role       string `json:"role,omitempty" validate:"omitempty,oneof=manager operator analyst"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Operator     model.Operator  `json:"operator"`
	SessionToken string          `json:"session_token"`
	ExpiresAt    model.Timestamp `json:"expires_at"`
}

// RegisterRequest is the body of POST /auth/register. Field rules live on
// session.SignupInput.
type RegisterRequest struct {
	OperatorID string `json:"operator_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
	Password   string `json:"password"`
}

// RegisterResponse is returned on successful registration.
type RegisterResponse struct {
	Message  string         `json:"message"`
	Operator model.Operator `json:"operator"`
}

type verifyResponse struct {
	Operator model.Operator `json:"operator"`
}

// Login authenticates an operator and opens a session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.Post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a new operator account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.Post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the current session token on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.Post(ctx, "/auth/logout", struct{}{}, nil)
}

// Verify checks the current session token and returns its operator.
func (c *Client) Verify(ctx context.Context) (*model.Operator, error) {
	var resp verifyResponse
	if err := c.Get(ctx, "/auth/verify", &resp); err != nil {
		return nil, err
	}
	return &resp.Operator, nil
}
