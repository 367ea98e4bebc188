package models

import "time"

// ManualWaterCommand is the single write emitted by a local toggle.
type ManualWaterCommand struct {
	ID       string    `json:"id"`
	DeviceID string    `json:"device_id"`
	Active   bool      `json:"active"`
	IssuedAt time.Time `json:"issued_at"`
}

// CommandResult reports the outcome of a fire-and-forget command publish.
type CommandResult struct {
	Command ManualWaterCommand
	Err     error
}
