package model

// Disruption is a backend-tracked supply-chain event.
type Disruption struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Timestamp   Timestamp `json:"timestamp"`

	EstimatedDurationHours *int     `json:"estimated_duration_hours,omitempty"`
	AffectedRoutes         []string `json:"affected_routes"`
}

// ImpactAnalysis summarizes how a disruption affects in-flight shipments.
// Only the aggregate figures are rendered by the client.
type ImpactAnalysis struct {
	DisruptionID           string  `json:"disruption_id"`
	TotalShipmentsImpacted int     `json:"total_shipments_impacted"`
	HighPriorityCount      int     `json:"high_priority_count"`
	SeverityScore          float64 `json:"severity_score"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationMessage is one entry in the chat transcript.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// OperatorResponse is the structured form of the operator's free-text
// reply, as produced by the backend parser.
type OperatorResponse struct {
	DisruptionID           string  `json:"disruption_id"`
	AllowReroute           bool    `json:"allow_reroute"`
	MaxCostIncreasePercent float64 `json:"max_cost_increase_percent"`
	PrioritizeHighPriority bool    `json:"prioritize_high_priority"`
	AdditionalNotes        *string `json:"additional_notes,omitempty"`
}
