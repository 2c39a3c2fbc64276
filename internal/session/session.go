package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/credential"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/store"
)

const (
	tokenKey     = "session-token"
	operatorKey  = "operator"
	expiresAtKey = "expires_at"
)

// ErrNoSession is returned by Load when either the operator record or the
// token is missing.
var ErrNoSession = errors.New("no active session")

// Session is the locally held login.
type Session struct {
	Operator  model.Operator
	Token     string
	ExpiresAt time.Time
}

// Backend is the subset of the API client used for the session lifecycle.
type Backend interface {
	SetToken(token string)
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	Logout(ctx context.Context) error
	Verify(ctx context.Context) (*model.Operator, error)
}

// TokenStore keeps the session token out of the sqlite file.
type TokenStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// SignupInput is the signup form. ConfirmPassword never leaves the client.
type SignupInput struct {
	OperatorID      string `validate:"required,max=32"`
	Name            string `validate:"required"`
	Email           string `validate:"required,email"`
	Department      string `validate:"required"`
	Role            string `validate:"required,oneof=manager operator analyst"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

// Manager loads, opens and closes the operator session.
type Manager struct {
	backend  Backend
	tokens   TokenStore
	store    store.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewManager creates a session manager.
func NewManager(backend Backend, tokens TokenStore, s store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		backend:  backend,
		tokens:   tokens,
		store:    s,
		validate: validator.New(),
		logger:   logger,
	}
}

// Load restores the session from local storage. Both the operator record
// and the token must be present. The token is not checked with the
// backend; use Verify for that.
func (m *Manager) Load(ctx context.Context) (*Session, error) {
	raw, err := m.store.GetSessionValue(ctx, operatorKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading operator: %w", err)
	}

	token, err := m.tokens.Get(tokenKey)
	if errors.Is(err, credential.ErrNotFound) || (err == nil && token == "") {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading session token: %w", err)
	}

	var op model.Operator
	if err := json.Unmarshal([]byte(raw), &op); err != nil {
		m.logger.Warn("discarding unreadable operator record", "error", err)
		return nil, ErrNoSession
	}

	sess := &Session{Operator: op, Token: token}
	if v, err := m.store.GetSessionValue(ctx, expiresAtKey); err == nil {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			sess.ExpiresAt = t
		}
	}

	m.backend.SetToken(token)
	m.logger.Info("session restored", "operator_id", op.ID)
	return sess, nil
}

// Login authenticates with the backend and persists the new session.
// role is optional.
func (m *Manager) Login(ctx context.Context, operatorID, password, role string) (*Session, error) {
	req := api.LoginRequest{
		OperatorID: strings.TrimSpace(operatorID),
		Password:   password,
		Role:       strings.TrimSpace(role),
	}
	if err := m.validate.Struct(req); err != nil {
		return nil, ValidationMessage(err)
	}

	resp, err := m.backend.Login(ctx, req)
	if err != nil {
		m.logger.Warn("login failed", "operator_id", req.OperatorID, "error", err)
		return nil, fmt.Errorf("logging in: %w", err)
	}

	sess := &Session{
		Operator:  resp.Operator,
		Token:     resp.SessionToken,
		ExpiresAt: resp.ExpiresAt.Time,
	}
	if err := m.save(ctx, sess); err != nil {
		return nil, err
	}

	m.backend.SetToken(sess.Token)
	m.logger.Info("logged in", "operator_id", sess.Operator.ID, "role", sess.Operator.Role)
	return sess, nil
}

// Register validates the signup form locally and creates the account.
// It does not log in.
func (m *Manager) Register(ctx context.Context, in SignupInput) (*model.Operator, error) {
	in.OperatorID = strings.TrimSpace(in.OperatorID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Department = strings.TrimSpace(in.Department)

	if err := m.validate.Struct(in); err != nil {
		return nil, ValidationMessage(err)
	}

	resp, err := m.backend.Register(ctx, api.RegisterRequest{
		OperatorID: in.OperatorID,
		Name:       in.Name,
		Email:      in.Email,
		Department: in.Department,
		Role:       in.Role,
		Password:   in.Password,
	})
	if err != nil {
		m.logger.Warn("registration failed", "operator_id", in.OperatorID, "error", err)
		return nil, fmt.Errorf("registering: %w", err)
	}

	m.logger.Info("operator registered", "operator_id", resp.Operator.ID)
	return &resp.Operator, nil
}

// Logout tells the backend to drop the session, then clears local state
// whether or not that call succeeded.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.backend.Logout(ctx); err != nil {
		m.logger.Warn("backend logout failed", "error", err)
	}
	m.backend.SetToken("")

	var errs []error
	if err := m.tokens.Delete(tokenKey); err != nil {
		errs = append(errs, err)
	}
	for _, key := range []string{operatorKey, expiresAtKey} {
		if err := m.store.DeleteSessionValue(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	m.logger.Info("logged out")
	return nil
}

// Verify asks the backend whether the current token is still valid.
func (m *Manager) Verify(ctx context.Context) (*model.Operator, error) {
	op, err := m.backend.Verify(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifying session: %w", err)
	}
	return op, nil
}

func (m *Manager) save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess.Operator)
	if err != nil {
		return fmt.Errorf("encoding operator: %w", err)
	}
	if err := m.tokens.Set(tokenKey, sess.Token); err != nil {
		return fmt.Errorf("saving session token: %w", err)
	}
	if err := m.store.SetSessionValue(ctx, operatorKey, string(raw)); err != nil {
		return fmt.Errorf("saving operator: %w", err)
	}
	if !sess.ExpiresAt.IsZero() {
		if err := m.store.SetSessionValue(ctx, expiresAtKey, sess.ExpiresAt.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("saving session expiry: %w", err)
		}
	}
	return nil
}

// ValidationMessage turns validator errors into one readable error.
// Other errors pass through unchanged.
func ValidationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &ValidationError{Messages: msgs}
}

// ValidationError lists every failed form field.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fieldLabels[fe.Field()]
	if field == "" {
		field = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "eqfield":
		return "passwords do not match"
	default:
		return field + " is invalid"
	}
}

var fieldLabels = map[string]string{
	"OperatorID":      "operator ID",
	"Name":            "name",
	"Email":           "email",
	"Department":      "department",
	"Role":            "role",
	"Password":        "password",
	"ConfirmPassword": "password confirmation",
}
