package service

import (
	"context"
	"math"
	"sync"
	"time"

	"irrigation_dashboard/internal/feed"
	"irrigation_dashboard/internal/logger"
	"irrigation_dashboard/internal/models"
	"irrigation_dashboard/internal/reconcile"
)

// Soil model.
const (
	InitialMoisture   = 45.0 // % at start
	DryingPerSec      = 0.4  // % lost per second with the valve closed
	WateringPerSec    = 2.5  // % gained per second with the valve open
	DryBelow          = 30.0 // below: SUHO, valve opens automatically
	SaturatedAbove    = 70.0 // above: VLAZNO, valve closes automatically
	SaturationWarning = 85.0 // manual watering above this raises the device warning
	ServoStepPerSec   = 90   // degrees per second
)

// Recommendation tags published by the device.
const (
	RecDry       = reconcile.RecommendationDry
	RecOptimal   = reconcile.RecommendationOptimal
	RecSaturated = reconcile.RecommendationWet
)

const (
	ServoClosedDeg = 0
	ServoOpenDeg   = 180

	statusOffline = "offline"
)

// SimulatorService plays the irrigation device on a local bus: it publishes
// telemetry and status and obeys manual-water commands.
type SimulatorService struct {
	bus      *feed.Bus
	deviceID string
	log      *logger.Logger

	mu       sync.Mutex
	moisture float64
	servo    int
	manual   bool
	auto     bool // automatic watering in progress
	last     time.Time
}

// NewSimulatorService registers the device side of the command channel on bus.
func NewSimulatorService(bus *feed.Bus, deviceID string, log *logger.Logger) *SimulatorService {
	if log == nil {
		log = logger.Nop()
	}
	s := &SimulatorService{
		bus:      bus,
		deviceID: deviceID,
		log:      log,
		moisture: InitialMoisture,
		servo:    ServoClosedDeg,
	}
	bus.SubscribeCommands(deviceID, s.onCommand)
	return s
}

// Run ticks at the given interval until ctx is canceled. The device reports
// online on start and offline on exit.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	online := statusOnline
	s.bus.PublishStatus(s.deviceID, &online)
	s.log.Infow("simulator_started", "device_id", s.deviceID, "tick", tick)

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			offline := statusOffline
			s.bus.PublishStatus(s.deviceID, &offline)
			s.log.Infow("simulator_stopped", "device_id", s.deviceID)
			return
		case now := <-t.C:
			snap, ok := s.step(now)
			if !ok {
				continue
			}
			s.bus.PublishTelemetry(s.deviceID, snap)
		}
	}
}

func (s *SimulatorService) onCommand(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual = active
	s.log.Debugw("simulator_command", "device_id", s.deviceID, "manual_active", active)
}

// step advances the soil model to now and returns the snapshot to publish.
// The first call only arms the clock.
func (s *SimulatorService) step(now time.Time) (models.DeviceSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last.IsZero() {
		s.last = now
		return models.DeviceSnapshot{}, false
	}
	elapsed := now.Sub(s.last).Seconds()
	if elapsed <= 0 {
		return models.DeviceSnapshot{}, false
	}
	s.last = now

	s.updateAuto()
	s.moveServo(elapsed)
	s.updateMoisture(elapsed)

	return s.snapshot(), true
}

// updateAuto starts automatic watering on dry soil and stops it once the
// soil is saturated.
func (s *SimulatorService) updateAuto() {
	switch {
	case s.moisture < DryBelow:
		s.auto = true
	case s.moisture > SaturatedAbove:
		s.auto = false
	}
}

func (s *SimulatorService) valveTarget() int {
	if s.manual || s.auto {
		return ServoOpenDeg
	}
	return ServoClosedDeg
}

func (s *SimulatorService) moveServo(elapsed float64) {
	target := s.valveTarget()
	step := int(math.Round(ServoStepPerSec * elapsed))
	switch {
	case s.servo < target:
		s.servo = minInt(s.servo+step, target)
	case s.servo > target:
		s.servo = maxInt(s.servo-step, target)
	}
}

// updateMoisture waters in proportion to how far the valve is open.
func (s *SimulatorService) updateMoisture(elapsed float64) {
	open := float64(s.servo) / ServoOpenDeg
	delta := (open*WateringPerSec - (1-open)*DryingPerSec) * elapsed
	s.moisture = clamp(s.moisture+delta, 0, 100)
}

func (s *SimulatorService) snapshot() models.DeviceSnapshot {
	moisture := math.Round(s.moisture*10) / 10
	rec := recommendationFor(moisture)
	servo := s.servo
	manual := s.manual
	warning := s.manual && moisture > SaturationWarning
	return models.DeviceSnapshot{
		Moisture:       &moisture,
		Recommendation: &rec,
		ServoPosition:  &servo,
		ManualActive:   &manual,
		Warning:        &warning,
	}
}

func recommendationFor(moisture float64) string {
	switch {
	case moisture < DryBelow:
		return RecDry
	case moisture > SaturatedAbove:
		return RecSaturated
	default:
		return RecOptimal
	}
}

// helpers
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
