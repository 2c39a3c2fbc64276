package chat

import (
	"fmt"
	"strings"

	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/theme"
)

// DisruptionItem wraps a model.Disruption so it can be used in a
// bubbles/list.
type DisruptionItem struct {
	Disruption model.Disruption
}

// FilterValue returns the string used for list filtering.
func (i DisruptionItem) FilterValue() string {
	return i.Disruption.ID + " " + i.Disruption.Location
}

// Title shows severity, type and location.
func (i DisruptionItem) Title() string {
	d := i.Disruption
	sev := theme.SeverityStyle(d.Severity).Render(strings.ToUpper(d.Severity))
	return fmt.Sprintf("%s %s @ %s", sev, d.Type, d.Location)
}

// Description shows the estimated duration and affected routes.
func (i DisruptionItem) Description() string {
	d := i.Disruption
	var parts []string
	if d.EstimatedDurationHours != nil {
		parts = append(parts, fmt.Sprintf("~%dh", *d.EstimatedDurationHours))
	}
	if len(d.AffectedRoutes) > 0 {
		parts = append(parts, "routes: "+strings.Join(d.AffectedRoutes, ", "))
	}
	if len(parts) == 0 {
		return d.ID
	}
	return strings.Join(parts, " · ")
}
