package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disruption-desk/internal/keys"
	"github.com/nhle/disruption-desk/internal/theme"
)

// commandsHelp lists the command palette verbs under the key bindings.
const commandsHelp = "Commands:  refresh · export csv|json|xlsx · filter action|status <value> · " +
	"clear · scope all · verify · history · sound on|off · logout · quit"

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	h.ShowAll = true
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Keyboard Shortcuts")

	m.help.Width = m.width - 8
	helpText := m.help.View(m.keys)

	commands := theme.HelpStyle.
		Width(m.width - 8).
		MarginTop(1).
		Render(commandsHelp)

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, commands)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 8
}
