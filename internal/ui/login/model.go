package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/session"
	"github.com/nhle/disruption-desk/internal/theme"
)

// SubmitMsg is dispatched when the login form is completed.
type SubmitMsg struct {
	OperatorID string
	Password   string
	Role       string
}

// SignupMsg is dispatched when the signup form is completed.
type SignupMsg struct {
	Input session.SignupInput
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

type mode int

const (
	modeLogin mode = iota
	modeSignup
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	operatorID      string
	name            string
	email           string
	department      string
	role            string
	password        string
	confirmPassword string
}

// Model is the login and signup screen.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	mode   mode
	errMsg string
	info   string
	busy   bool
	width  int
	height int
}

// New creates a login screen showing the login form.
func New(width, height int) Model {
	m := Model{
		fb:     &formBindings{role: model.RoleOperator},
		width:  width,
		height: height,
	}
	m.form = m.buildLoginForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// StartLogin shows the login form, keeping the operator id and role.
func (m *Model) StartLogin() tea.Cmd {
	m.mode = modeLogin
	m.busy = false
	m.fb.password = ""
	m.fb.confirmPassword = ""
	m.form = m.buildLoginForm()
	return m.form.Init()
}

// StartSignup shows the signup form.
func (m *Model) StartSignup() tea.Cmd {
	m.mode = modeSignup
	m.busy = false
	m.errMsg = ""
	m.info = ""
	m.fb.password = ""
	m.fb.confirmPassword = ""
	m.form = m.buildSignupForm()
	return m.form.Init()
}

// Fail shows msg and reopens the current form.
func (m *Model) Fail(msg string) tea.Cmd {
	m.errMsg = msg
	m.info = ""
	if m.mode == modeSignup {
		m.busy = false
		m.fb.password = ""
		m.fb.confirmPassword = ""
		m.form = m.buildSignupForm()
		return m.form.Init()
	}
	return m.StartLogin()
}

// SignedUp returns to the login form after a successful registration.
func (m *Model) SignedUp(op model.Operator) tea.Cmd {
	m.fb.operatorID = op.ID
	if op.Role != "" {
		m.fb.role = op.Role
	}
	cmd := m.StartLogin()
	m.errMsg = ""
	m.info = "Account created. Sign in to continue."
	return cmd
}

// Update handles messages for the login screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "ctrl+n" {
		if m.mode == modeLogin {
			cmd := m.StartSignup()
			return m, cmd
		}
		m.errMsg = ""
		cmd := m.StartLogin()
		return m, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		if m.mode == modeSignup {
			m.errMsg = ""
			cmd := m.StartLogin()
			return m, cmd
		}
		return m, func() tea.Msg { return CancelMsg{} }
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.busy = true
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

func (m Model) handleSubmit() tea.Cmd {
	fb := *m.fb
	if m.mode == modeSignup {
		in := session.SignupInput{
			OperatorID:      strings.TrimSpace(fb.operatorID),
			Name:            strings.TrimSpace(fb.name),
			Email:           strings.TrimSpace(fb.email),
			Department:      strings.TrimSpace(fb.department),
			Role:            fb.role,
			Password:        fb.password,
			ConfirmPassword: fb.confirmPassword,
		}
		return func() tea.Msg { return SignupMsg{Input: in} }
	}
	return func() tea.Msg {
		return SubmitMsg{
			OperatorID: strings.TrimSpace(fb.operatorID),
			Password:   fb.password,
			Role:       fb.role,
		}
	}
}

// View renders the login screen.
func (m Model) View() string {
	title := "Sign in"
	toggle := "ctrl+n: create an account · esc: quit"
	if m.mode == modeSignup {
		title = "Create operator account"
		toggle = "ctrl+n/esc: back to sign in"
	}

	sections := []string{
		theme.TitleStyle.Render("Disruption Desk · " + title),
	}
	if m.info != "" {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorGreen).Render(m.info))
	}
	if m.errMsg != "" {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.errMsg))
	}
	if m.busy {
		sections = append(sections, theme.DimmedStyle.Render("Contacting server..."))
	} else {
		sections = append(sections, m.form.View())
	}
	sections = append(sections, theme.HelpStyle.Render(toggle))

	box := theme.PanelStyle.
		Width(m.formWidth() + 6).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// SetSize updates the screen dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func roleField(value *string) huh.Field {
	return huh.NewSelect[string]().
		Title("Role").
		Options(
			huh.NewOption("Operator", model.RoleOperator),
			huh.NewOption("Manager", model.RoleManager),
			huh.NewOption("Analyst", model.RoleAnalyst),
		).
		Value(value)
}

func (m *Model) buildLoginForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Operator ID").
				Placeholder("e.g. OP-042").
				Value(&m.fb.operatorID).
				Validate(validateRequired("Operator ID")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Password")),
			roleField(&m.fb.role),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

func (m *Model) buildSignupForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Operator ID").
				Value(&m.fb.operatorID).
				Validate(validateRequired("Operator ID")),
			huh.NewInput().
				Title("Name").
				Value(&m.fb.name).
				Validate(validateRequired("Name")),
			huh.NewInput().
				Title("Email").
				Value(&m.fb.email).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("Department").
				Value(&m.fb.department).
				Validate(validateRequired("Department")),
			roleField(&m.fb.role),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirmPassword),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

func (m Model) formWidth() int {
	w := m.width - 10
	if w < 40 {
		w = 40
	}
	if w > 60 {
		w = 60
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
