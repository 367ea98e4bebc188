// Package feed connects the dashboard to the device: telemetry and status
// subscriptions in, manual-water commands out.
package feed

import (
	"context"

	"irrigation_dashboard/internal/models"
)

// TelemetryHandler receives decoded telemetry snapshots in delivery order.
type TelemetryHandler func(snap models.DeviceSnapshot)

// StatusHandler receives the raw status value; nil means absent.
type StatusHandler func(status *string)

// CommandHandler receives manual-water commands (device side of the bus).
type CommandHandler func(active bool)

// Feed delivers device events.
type Feed interface {
	SubscribeTelemetry(deviceID string, h TelemetryHandler) error
	SubscribeStatus(deviceID string, h StatusHandler) error
	Connected() bool
	Close()
}

// CommandSink accepts manual-water commands. Implementations must not wait
// for a device acknowledgement.
type CommandSink interface {
	PublishManualWater(ctx context.Context, deviceID string, active bool) error
}

const defaultTopicPrefix = "devices"

// Topics builds the per-device topic names.
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return defaultTopicPrefix
	}
	return t.Prefix
}

// Telemetry is the topic carrying DeviceSnapshot records.
func (t Topics) Telemetry(deviceID string) string {
	return t.prefix() + "/" + deviceID + "/currentData"
}

// Status is the topic carrying the online/offline string.
func (t Topics) Status(deviceID string) string {
	return t.prefix() + "/" + deviceID + "/status"
}

// ManualWater is the command topic for the manual watering flag.
func (t Topics) ManualWater(deviceID string) string {
	return t.prefix() + "/" + deviceID + "/commands/manualWater"
}
