package models

import "time"

// Event types recorded in the session log.
const (
	EventToggle        = "TOGGLE"
	EventCommandSent   = "COMMAND_SENT"
	EventCommandFailed = "COMMAND_FAILED"
	EventStatusChange  = "STATUS_CHANGE"
	EventWarning       = "WARNING"
)

// DashboardEvent is a single log entry.
type DashboardEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // TOGGLE | COMMAND_SENT | COMMAND_FAILED | STATUS_CHANGE | WARNING
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
