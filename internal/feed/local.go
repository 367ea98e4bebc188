package feed

import (
	"context"
	"sync"

	"irrigation_dashboard/internal/models"
)

// Bus is an in-process Feed and CommandSink. Publishers call handlers
// synchronously, so events reach subscribers in publish order.
type Bus struct {
	mu        sync.RWMutex
	telemetry map[string][]TelemetryHandler
	status    map[string][]StatusHandler
	commands  map[string][]CommandHandler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{
		telemetry: make(map[string][]TelemetryHandler),
		status:    make(map[string][]StatusHandler),
		commands:  make(map[string][]CommandHandler),
	}
}

func (b *Bus) SubscribeTelemetry(deviceID string, h TelemetryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.telemetry[deviceID] = append(b.telemetry[deviceID], h)
	return nil
}

func (b *Bus) SubscribeStatus(deviceID string, h StatusHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status[deviceID] = append(b.status[deviceID], h)
	return nil
}

// SubscribeCommands registers the device side of the command channel.
func (b *Bus) SubscribeCommands(deviceID string, h CommandHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands[deviceID] = append(b.commands[deviceID], h)
}

func (b *Bus) Connected() bool { return true }

// Close drops every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.telemetry = make(map[string][]TelemetryHandler)
	b.status = make(map[string][]StatusHandler)
	b.commands = make(map[string][]CommandHandler)
}

// PublishTelemetry delivers snap to every telemetry subscriber of deviceID.
func (b *Bus) PublishTelemetry(deviceID string, snap models.DeviceSnapshot) {
	b.mu.RLock()
	hs := append([]TelemetryHandler(nil), b.telemetry[deviceID]...)
	b.mu.RUnlock()
	for _, h := range hs {
		h(snap)
	}
}

// PublishStatus delivers status to every status subscriber of deviceID.
func (b *Bus) PublishStatus(deviceID string, status *string) {
	b.mu.RLock()
	hs := append([]StatusHandler(nil), b.status[deviceID]...)
	b.mu.RUnlock()
	for _, h := range hs {
		h(status)
	}
}

// PublishManualWater implements CommandSink.
func (b *Bus) PublishManualWater(ctx context.Context, deviceID string, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	hs := append([]CommandHandler(nil), b.commands[deviceID]...)
	b.mu.RUnlock()
	for _, h := range hs {
		h(active)
	}
	return nil
}
