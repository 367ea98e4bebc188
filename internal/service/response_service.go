package service

import "time"

// LogFilter narrows the session event log. Zero bounds are open.
type LogFilter struct {
	From time.Time // inclusive
	To   time.Time // inclusive
	Type string    // "", "TOGGLE", "COMMAND_SENT", "COMMAND_FAILED", "STATUS_CHANGE", "WARNING"
}

// Health is the liveness summary served on /health.
type Health struct {
	FeedConnected bool   `json:"feed_connected"`
	DeviceStatus  string `json:"device_status"`
	CommandSink   string `json:"command_sink,omitempty"` // breaker state when the sink has one
}
