package notify

import "github.com/nhle/disruption-desk/internal/model"

// Workflow phases understood by NotifyStatus.
const (
	PhaseStarted    = "started"
	PhaseInProgress = "in_progress"
	PhaseCompleted  = "completed"
)

var statusRecords = map[string]Record{
	PhaseStarted: {
		Title:    "Analysis started",
		Message:  "Parsing your response and evaluating affected shipments.",
		Priority: model.PriorityHigh,
		Icon:     "⏳",
	},
	PhaseInProgress: {
		Title:    "Tickets created",
		Message:  "Action tickets were generated. Preparing the summary.",
		Priority: model.PriorityMedium,
		Icon:     "⚙",
	},
	PhaseCompleted: {
		Title:    "Response complete",
		Message:  "Summary is ready and tickets are awaiting review.",
		Priority: model.PriorityUrgent,
		Icon:     "✔",
	},
}
