package tickets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/disruption-desk/internal/model"
)

func ids(tickets []model.Ticket) []string {
	out := make([]string, len(tickets))
	for i, t := range tickets {
		out[i] = t.ID
	}
	return out
}

func sampleTickets() []model.Ticket {
	return []model.Ticket{
		{ID: "T1", ShipmentID: "SHIP-100", Action: model.ActionReroute, Status: model.StatusPending},
		{ID: "T2", ShipmentID: "SHIP-200", Action: model.ActionDelay, Status: model.StatusPending},
	}
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"default passes all", DefaultFilter(), []string{"T1", "T2"}},
		{"zero value passes all", Filter{}, []string{"T1", "T2"}},
		{"action only", Filter{Action: "reroute", Status: All}, []string{"T1"}},
		{"search by id is case-insensitive", Filter{Action: All, Status: All, Search: "t2"}, []string{"T2"}},
		{"search by shipment", Filter{Action: All, Status: All, Search: "ship-1"}, []string{"T1"}},
		{"status mismatch", Filter{Action: All, Status: "approved"}, []string{}},
		{"search narrows within action", Filter{Action: "reroute", Status: All, Search: "t2"}, []string{}},
		{"search whitespace ignored", Filter{Action: All, Status: All, Search: "   "}, []string{"T1", "T2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(sampleTickets())))
		})
	}
}

func TestFilterSummary(t *testing.T) {
	assert.Empty(t, DefaultFilter().Summary())
	f := Filter{Action: "delay", Status: All, Search: "ship"}
	assert.Equal(t, `action=delay search="ship"`, f.Summary())
}

func TestParseFilters(t *testing.T) {
	v, err := ParseActionFilter(" Escalate ")
	assert.NoError(t, err)
	assert.Equal(t, "escalate", v)

	_, err = ParseActionFilter("teleport")
	assert.Error(t, err)

	v, err = ParseStatusFilter("in_progress")
	assert.NoError(t, err)
	assert.Equal(t, "in_progress", v)

	v, err = ParseStatusFilter("ALL")
	assert.NoError(t, err)
	assert.Equal(t, All, v)
}

func TestAvailableActions(t *testing.T) {
	assert.Equal(t, []Action{ActionApprove, ActionReject, ActionNote}, AvailableActions(model.StatusPending))
	assert.Equal(t, []Action{ActionStart, ActionNote}, AvailableActions(model.StatusApproved))
	assert.Equal(t, []Action{ActionComplete, ActionNote}, AvailableActions(model.StatusInProgress))
	assert.Equal(t, []Action{ActionNote}, AvailableActions(model.StatusCompleted))
	assert.Equal(t, []Action{ActionNote}, AvailableActions(model.StatusRejected))
}

func TestPendingNeverOffersStartOrComplete(t *testing.T) {
	assert.False(t, Allowed(model.StatusPending, ActionStart))
	assert.False(t, Allowed(model.StatusPending, ActionComplete))
	assert.True(t, Allowed(model.StatusPending, ActionNote))
}

func TestFilterCycling(t *testing.T) {
	f := DefaultFilter()

	var seen []string
	for i := 0; i < 4; i++ {
		f = f.NextAction()
		seen = append(seen, f.Action)
	}
	assert.Equal(t, []string{"reroute", "delay", "escalate", All}, seen)

	f = Filter{}.NextStatus()
	assert.Equal(t, "pending", f.Status)

	f = Filter{Status: "rejected"}.NextStatus()
	assert.Equal(t, All, f.Status)
}
