package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/tickets"
)

// executeCommand runs a command palette line.
func (m *Model) executeCommand(line string) tea.Cmd {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil
	}

	if m.session == nil {
		if fields[0] == "quit" || fields[0] == "q" {
			m.shutdown()
			return tea.Quit
		}
		return m.showToast("Sign in first")
	}

	switch fields[0] {
	case "refresh", "reload":
		return m.loadTickets()

	case "export":
		if len(fields) < 2 {
			return m.showToast("usage: export csv|json|xlsx")
		}
		f, err := tickets.ParseFormat(fields[1])
		if err != nil {
			return m.showToast(err.Error())
		}
		return m.runExport(f)

	case "filter":
		if len(fields) < 3 {
			return m.showToast("usage: filter action|status <value>")
		}
		return m.applyFilterCommand(fields[1], fields[2])

	case "clear":
		m.view.Filter = tickets.DefaultFilter()
		return m.syncTicketView()

	case "scope":
		if len(fields) < 2 || fields[1] != "all" {
			return m.showToast("usage: scope all")
		}
		m.view.CurrentDisruptionID = ""
		m.currentView = ViewTickets
		return m.loadTickets()

	case "verify":
		return m.verify()

	case "history":
		return m.loadHistory()

	case "sound":
		if len(fields) < 2 || (fields[1] != "on" && fields[1] != "off") {
			return m.showToast("usage: sound on|off")
		}
		enabled := fields[1] == "on"
		m.center.SetSoundEnabled(enabled)
		m.config.Notifications.Sound = enabled
		return tea.Batch(m.showToast("Sound "+fields[1]), m.saveConfig())

	case "logout":
		return m.logout()

	case "quit", "q":
		m.shutdown()
		return tea.Quit

	default:
		return m.showToast(fmt.Sprintf("Unknown command: %s", fields[0]))
	}
}

func (m *Model) applyFilterCommand(kind, value string) tea.Cmd {
	f := m.view.Filter
	switch kind {
	case "action":
		v, err := tickets.ParseActionFilter(value)
		if err != nil {
			return m.showToast(err.Error())
		}
		f.Action = v
	case "status":
		v, err := tickets.ParseStatusFilter(value)
		if err != nil {
			return m.showToast(err.Error())
		}
		f.Status = v
	default:
		return m.showToast("usage: filter action|status <value>")
	}

	m.view.Filter = f
	m.currentView = ViewTickets
	return m.syncTicketView()
}

// saveConfig writes a snapshot of the current settings.
func (m Model) saveConfig() tea.Cmd {
	if m.configPath == "" {
		return nil
	}
	cfg := *m.config
	path, logger := m.configPath, m.logger
	return func() tea.Msg {
		if err := model.SaveConfig(path, &cfg); err != nil {
			logger.Warn("saving config failed", "path", path, "error", err)
		}
		return nil
	}
}
