package model

// TicketStatus is the backend-authoritative lifecycle state of a ticket.
type TicketStatus string

const (
	StatusPending    TicketStatus = "pending"
	StatusApproved   TicketStatus = "approved"
	StatusInProgress TicketStatus = "in_progress"
	StatusCompleted  TicketStatus = "completed"
	StatusRejected   TicketStatus = "rejected"
)

// AllStatuses lists ticket statuses in lifecycle order.
var AllStatuses = []TicketStatus{
	StatusPending,
	StatusApproved,
	StatusInProgress,
	StatusCompleted,
	StatusRejected,
}

// ActionType is the response category the decision engine chose for a shipment.
type ActionType string

const (
	ActionReroute  ActionType = "reroute"
	ActionDelay    ActionType = "delay"
	ActionEscalate ActionType = "escalate"
)

// AllActions lists the known action types.
var AllActions = []ActionType{ActionReroute, ActionDelay, ActionEscalate}

// Decision is the decision engine's reasoning for a single shipment.
type Decision struct {
	ShipmentID string     `json:"shipment_id"`
	Action     ActionType `json:"action"`
	Reasoning  string     `json:"reasoning"`

	// EstimatedCostImpact is a percentage increase over the planned cost.
	EstimatedCostImpact *float64 `json:"estimated_cost_impact,omitempty"`

	EstimatedDelayHours *int    `json:"estimated_delay_hours,omitempty"`
	AlternativeRouteID  *string `json:"alternative_route_id,omitempty"`

	// ConfidenceScore is in the range [0, 1].
	ConfidenceScore float64 `json:"confidence_score"`
}

// TicketNote is a single entry in a ticket's append-only note list.
type TicketNote struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// Ticket is a backend-owned action record generated from a disruption
// response decision. The client only ever holds a transient copy.
type Ticket struct {
	// ID is the backend ticket identifier (e.g., TICKET-001).
	ID string `json:"id"`

	DisruptionID string `json:"disruption_id"`
	ShipmentID   string `json:"shipment_id"`
	Destination  string `json:"destination"`

	Action ActionType   `json:"action"`
	Status TicketStatus `json:"status"`

	// Decision may be absent for tickets loaded from storage on the backend.
	Decision *Decision `json:"decision,omitempty"`

	// Explanation is the human-readable rationale generated by the backend.
	Explanation string `json:"explanation"`

	AssignedTo *string      `json:"assigned_to,omitempty"`
	Notes      []TicketNote `json:"notes"`

	CreatedAt Timestamp  `json:"created_at"`
	UpdatedAt *Timestamp `json:"updated_at,omitempty"`
}

// AssignedToOrEmpty returns the assignee or an empty string.
func (t Ticket) AssignedToOrEmpty() string {
	if t.AssignedTo == nil {
		return ""
	}
	return *t.AssignedTo
}
