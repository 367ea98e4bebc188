// Package reconcile merges device telemetry with locally issued manual-water
// toggles and keeps the bounded history of recent readings.
//
// All state lives in an explicit *State owned by the caller. The package does
// no locking; callers serialise access so that a State has a single writer.
package reconcile

import (
	"time"

	"irrigation_dashboard/internal/models"
)

const (
	// HistoryCapacity bounds State.History.
	HistoryCapacity = 5
	// DefaultLockWindow is how long remote manualActive values are ignored
	// after a local toggle.
	DefaultLockWindow = 5 * time.Second

	warningMoistureThreshold = 20.0

	defaultRecommendation = "UNKNOWN"
	defaultStatus         = "offline"
	initialRecommendation = "LOADING..."
	initialServoPosition  = 90

	timestampLayout = "15:04:05"
)

// State is the dashboard state for a single device session.
type State struct {
	Moisture       float64
	Recommendation string
	Status         string
	LastUpdate     string // HH:MM:SS of the last telemetry event, empty before the first one
	ServoPosition  int
	ManualActive   bool
	ShowWarning    bool
	History        []models.HistoryItem // newest first, len <= HistoryCapacity

	lastToggle time.Time // override lock; zero until the first local toggle
}

// NewState returns the state shown before any feed event arrives.
func NewState() *State {
	return &State{
		Recommendation: initialRecommendation,
		Status:         defaultStatus,
		ServoPosition:  initialServoPosition,
		History:        make([]models.HistoryItem, 0, HistoryCapacity+1),
	}
}

// MoisturePercent is the moisture reading as a percentage.
// Sensors report percent already, so it mirrors Moisture.
func (s *State) MoisturePercent() float64 {
	return s.Moisture
}

// LastToggle returns the time of the last local toggle (zero if none).
func (s *State) LastToggle() time.Time {
	return s.lastToggle
}
