package model

import "time"

// Priority drives the icon, sound pitch, and styling of a notification.
// It never affects list order.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Notification is a client-only alert raised by workflow milestones.
// It is never sent to the backend.
type Notification struct {
	// ID is derived from the creation timestamp and is not guaranteed unique.
	ID string `json:"id"`

	// Read indicates whether the user has opened the panel since it arrived.
	Read bool `json:"read"`

	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Priority  Priority  `json:"priority"`
	Icon      string    `json:"icon,omitempty"`

	// TicketID is a navigation hint only.
	TicketID string `json:"ticket_id,omitempty"`
}
