package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"

	"github.com/spf13/cast"

	"irrigation_dashboard/internal/models"
)

var errEmptyPayload = errors.New("empty telemetry payload")

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// DecodeSnapshot parses a telemetry payload leniently. Fields with the wrong
// type are dropped (treated as absent) instead of failing the whole record.
// A null or empty payload returns errEmptyPayload and must be ignored.
func DecodeSnapshot(payload []byte) (models.DeviceSnapshot, error) {
	var snap models.DeviceSnapshot

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return snap, errEmptyPayload
	}
	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return snap, err
	}
	if raw == nil {
		return snap, errEmptyPayload
	}

	if v, ok := raw["moisture"]; ok && v != nil {
		if f, err := cast.ToFloat64E(v); err == nil && finite(f) {
			snap.Moisture = &f
		}
	}
	if v, ok := raw["recommendation"]; ok && v != nil {
		if s, err := cast.ToStringE(v); err == nil {
			snap.Recommendation = &s
		}
	}
	if v, ok := raw["servoPosition"]; ok && v != nil {
		if f, err := cast.ToFloat64E(v); err == nil && finite(f) {
			// values that do not fit an int32 are treated as absent
			if r := math.Round(f); r >= math.MinInt32 && r <= math.MaxInt32 {
				pos := int(r)
				snap.ServoPosition = &pos
			}
		}
	}
	if v, ok := raw["manualActive"]; ok && v != nil {
		if b, err := cast.ToBoolE(v); err == nil {
			snap.ManualActive = &b
		}
	}
	if v, ok := raw["warning"]; ok && v != nil {
		if b, err := cast.ToBoolE(v); err == nil {
			snap.Warning = &b
		}
	}
	return snap, nil
}

// DecodeStatus accepts a bare string or a JSON string. Empty and null
// payloads are reported as absent.
func DecodeStatus(payload []byte) *string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	s := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &s); err != nil {
			s = string(trimmed)
		}
	}
	if s == "" {
		return nil
	}
	return &s
}
