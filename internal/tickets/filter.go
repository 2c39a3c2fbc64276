package tickets

import (
	"fmt"
	"strings"

	"github.com/nhle/disruption-desk/internal/model"
)

// All disables an action or status filter.
const All = "all"

// Filter is the process-wide ticket filter. It is never persisted.
type Filter struct {
	Action string
	Status string
	Search string
}

// DefaultFilter returns a filter that passes every ticket.
func DefaultFilter() Filter {
	return Filter{Action: All, Status: All}
}

// Matches reports whether t passes the filter. Action and status must
// both match; a non-empty search additionally requires a case-insensitive
// substring match on the ticket id or shipment id.
func (f Filter) Matches(t model.Ticket) bool {
	if f.Action != "" && f.Action != All && string(t.Action) != f.Action {
		return false
	}
	if f.Status != "" && f.Status != All && string(t.Status) != f.Status {
		return false
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.ID), search) ||
		strings.Contains(strings.ToLower(t.ShipmentID), search)
}

// Apply returns the tickets that pass the filter, preserving order.
func (f Filter) Apply(tickets []model.Ticket) []model.Ticket {
	out := make([]model.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// IsDefault reports whether the filter passes everything.
func (f Filter) IsDefault() bool {
	return (f.Action == "" || f.Action == All) &&
		(f.Status == "" || f.Status == All) &&
		strings.TrimSpace(f.Search) == ""
}

// Summary is a short description of the active filters, or "" when
// none are set.
func (f Filter) Summary() string {
	if f.IsDefault() {
		return ""
	}
	var parts []string
	if f.Action != "" && f.Action != All {
		parts = append(parts, "action="+f.Action)
	}
	if f.Status != "" && f.Status != All {
		parts = append(parts, "status="+f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		parts = append(parts, fmt.Sprintf("search=%q", s))
	}
	return strings.Join(parts, " ")
}

// ParseActionFilter validates an action filter value.
func ParseActionFilter(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == All {
		return v, nil
	}
	for _, a := range model.AllActions {
		if string(a) == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", v)
}

// ParseStatusFilter validates a status filter value.
func ParseStatusFilter(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == All {
		return v, nil
	}
	for _, s := range model.AllStatuses {
		if string(s) == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", v)
}

// NextAction returns f with the action filter advanced one step through
// all, then each known action in order, wrapping back to all.
func (f Filter) NextAction() Filter {
	values := make([]string, 0, len(model.AllActions)+1)
	values = append(values, All)
	for _, a := range model.AllActions {
		values = append(values, string(a))
	}
	f.Action = cycle(values, f.Action)
	return f
}

// NextStatus is NextAction for the status filter.
func (f Filter) NextStatus() Filter {
	values := make([]string, 0, len(model.AllStatuses)+1)
	values = append(values, All)
	for _, s := range model.AllStatuses {
		values = append(values, string(s))
	}
	f.Status = cycle(values, f.Status)
	return f
}

func cycle(values []string, current string) string {
	if current == "" {
		current = All
	}
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return All
}
