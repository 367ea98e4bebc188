package models

// DeviceSnapshot is one telemetry record pushed by the device.
// Nil fields were absent from the payload.
type DeviceSnapshot struct {
	Moisture       *float64 `json:"moisture,omitempty"`       // raw %, not clamped
	Recommendation *string  `json:"recommendation,omitempty"` // SUHO | OPTIMALNO | VLAZNO | VLAŽNO | ...
	ServoPosition  *int     `json:"servoPosition,omitempty"`  // degrees, 0..180 nominal
	ManualActive   *bool    `json:"manualActive,omitempty"`
	Warning        *bool    `json:"warning,omitempty"`
}
