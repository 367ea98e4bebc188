package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"irrigation_dashboard/internal/feed"
	"irrigation_dashboard/internal/logger"
	"irrigation_dashboard/internal/metrics"
	"irrigation_dashboard/internal/models"
	"irrigation_dashboard/internal/reconcile"
	"irrigation_dashboard/internal/repository"
)

const (
	defaultCommandTimeout = 5 * time.Second
	eventWriteTimeout     = 2 * time.Second
	resultBuffer          = 16
	commandQueue          = 64
	statusOnline          = "online"
)

var (
	errNoDeviceID = errors.New("dashboard: device id is required")
	errNoSink     = errors.New("no command sink configured")
)

// DashboardConfig configures a DashboardService.
type DashboardConfig struct {
	DeviceID       string
	CommandTimeout time.Duration
	Reconcile      reconcile.Config
	Clock          func() time.Time // defaults to time.Now
}

// DashboardService owns the dashboard state of one device. Feed callbacks
// and HTTP toggles are serialised by mu. Commands are queued in toggle order
// and published by a single worker, which reports on the results channel.
type DashboardService struct {
	deviceID   string
	cmdTimeout time.Duration
	now        func() time.Time

	sink      feed.CommandSink
	eventRepo repository.EventRepo
	metrics   *metrics.Metrics
	log       *logger.Logger

	mu    sync.Mutex
	rec   *reconcile.Reconciler
	state *reconcile.State
	src   feed.Feed

	commands  chan models.ManualWaterCommand
	stopped   bool // guarded by mu; no commands are queued once set
	results   chan models.CommandResult
	closed    chan struct{}
	closeOnce sync.Once
	inflight  sync.WaitGroup

	watchMu  sync.Mutex
	watchers map[uint64]chan struct{}
	watchSeq uint64
}

// NewDashboardService returns a service holding the initial state.
// m and log may be nil.
func NewDashboardService(cfg DashboardConfig, sink feed.CommandSink, eventRepo repository.EventRepo, m *metrics.Metrics, log *logger.Logger) (*DashboardService, error) {
	if cfg.DeviceID == "" {
		return nil, errNoDeviceID
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &DashboardService{
		deviceID:   cfg.DeviceID,
		cmdTimeout: cfg.CommandTimeout,
		now:        cfg.Clock,
		sink:       sink,
		eventRepo:  eventRepo,
		metrics:    m,
		log:        log,
		rec:        reconcile.NewReconciler(cfg.Reconcile),
		state:      reconcile.NewState(),
		commands:   make(chan models.ManualWaterCommand, commandQueue),
		results:    make(chan models.CommandResult, resultBuffer),
		closed:     make(chan struct{}),
		watchers:   make(map[uint64]chan struct{}),
	}
	s.observe(s.rec.View(s.state))
	go s.publishLoop()
	return s, nil
}

// Attach subscribes the service to the device topics of f.
func (s *DashboardService) Attach(f feed.Feed) error {
	s.mu.Lock()
	s.src = f
	s.mu.Unlock()

	if err := f.SubscribeTelemetry(s.deviceID, s.OnTelemetry); err != nil {
		return fmt.Errorf("subscribe telemetry: %w", err)
	}
	if err := f.SubscribeStatus(s.deviceID, s.OnStatus); err != nil {
		return fmt.Errorf("subscribe status: %w", err)
	}
	s.log.Infow("feed_attached", "device_id", s.deviceID)
	return nil
}

// OnTelemetry applies one snapshot from the telemetry feed.
func (s *DashboardService) OnTelemetry(snap models.DeviceSnapshot) {
	s.mu.Lock()
	now := s.now()
	out := s.rec.OnTelemetry(s.state, snap, now)
	view := s.rec.View(s.state)
	s.mu.Unlock()

	s.metrics.TelemetryEvents.Inc()
	s.observe(view)

	if out.ManualSuppressed {
		s.metrics.ManualSuppressed.Inc()
		s.log.Debugw("remote_manual_ignored", "device_id", s.deviceID, "manual_active", view.ManualActive)
	}
	if out.WarningRaised {
		s.recordWarning(context.Background(), now, view)
	}
	s.notify()
}

// OnStatus applies a status update. nil means the value was absent.
func (s *DashboardService) OnStatus(status *string) {
	s.mu.Lock()
	prev := s.state.Status
	changed := s.rec.OnStatus(s.state, status)
	view := s.rec.View(s.state)
	s.mu.Unlock()

	s.metrics.StatusEvents.Inc()
	s.metrics.DeviceOnline.Set(metrics.BoolGauge(view.Status == statusOnline))
	if !changed {
		return
	}

	s.log.Infow("device_status_changed", "device_id", s.deviceID, "from", prev, "to", view.Status)
	s.record(context.Background(), models.DashboardEvent{
		OccurredAt:  s.now(),
		Type:        models.EventStatusChange,
		Description: "Device is " + view.Status,
		Metadata:    map[string]any{"from": prev, "to": view.Status},
	})
	s.notify()
}

// ToggleManualWater flips the manual-water flag and queues exactly one
// command. It returns without waiting for the publish; the outcome arrives
// on Results. Commands reach the sink in toggle order.
func (s *DashboardService) ToggleManualWater(ctx context.Context) (models.ManualWaterCommand, models.DashboardView) {
	s.mu.Lock()
	now := s.now()
	wasWarning := s.state.ShowWarning
	active := s.rec.ToggleManualWater(s.state, now)
	view := s.rec.View(s.state)
	cmd := models.ManualWaterCommand{
		ID:       uuid.NewString(),
		DeviceID: s.deviceID,
		Active:   active,
		IssuedAt: now,
	}
	s.enqueue(cmd)
	s.mu.Unlock()

	s.metrics.Toggles.Inc()
	s.observe(view)
	s.log.Infow("manual_water_toggled", "device_id", s.deviceID, "active", active, "command_id", cmd.ID)
	s.record(ctx, models.DashboardEvent{
		OccurredAt:  now,
		Type:        models.EventToggle,
		Description: fmt.Sprintf("Manual watering set to %t", active),
		Metadata:    map[string]any{"active": active, "command_id": cmd.ID},
	})
	if !wasWarning && view.ShowWarning {
		s.recordWarning(ctx, now, view)
	}
	s.notify()
	return cmd, view
}

// View returns a copy of the current read model.
func (s *DashboardService) View() models.DashboardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.View(s.state)
}

// History returns the history log, newest first.
func (s *DashboardService) History() []models.HistoryItem {
	return s.View().History
}

// Health summarises feed connectivity.
func (s *DashboardService) Health() Health {
	s.mu.Lock()
	src := s.src
	status := s.state.Status
	s.mu.Unlock()

	h := Health{DeviceStatus: status}
	if src != nil {
		h.FeedConnected = src.Connected()
	}
	if b, ok := s.sink.(interface{ State() string }); ok {
		h.CommandSink = b.State()
	}
	return h
}

// Results is the command-result channel. It has one consumer: Run, or a
// caller that reads it directly instead of calling Run.
func (s *DashboardService) Results() <-chan models.CommandResult {
	return s.results
}

// Run consumes command results until ctx is done: failures are logged and
// every outcome is counted and recorded in the event log.
func (s *DashboardService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-s.results:
			s.handleResult(ctx, res)
		}
	}
}

// Watch registers for change notifications. The channel holds at most one
// pending signal; cancel releases it.
func (s *DashboardService) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.watchMu.Lock()
	s.watchSeq++
	id := s.watchSeq
	s.watchers[id] = ch
	s.watchMu.Unlock()

	return ch, func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

// Close stops queueing commands and delivering results, publishes what is
// already queued and stops the publish worker.
func (s *DashboardService) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		close(s.closed)
		s.inflight.Wait()
		close(s.commands)
	})
}

// enqueue must be called with mu held so queue order matches toggle order.
func (s *DashboardService) enqueue(cmd models.ManualWaterCommand) {
	if s.stopped {
		s.log.Warnw("command_dropped_after_close", "command_id", cmd.ID, "active", cmd.Active)
		return
	}
	s.inflight.Add(1)
	s.commands <- cmd
}

func (s *DashboardService) publishLoop() {
	for cmd := range s.commands {
		s.publish(cmd)
		s.inflight.Done()
	}
}

func (s *DashboardService) publish(cmd models.ManualWaterCommand) {
	if s.sink == nil {
		s.deliver(models.CommandResult{Command: cmd, Err: errNoSink})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cmdTimeout)
	defer cancel()
	err := s.sink.PublishManualWater(ctx, cmd.DeviceID, cmd.Active)
	s.deliver(models.CommandResult{Command: cmd, Err: err})
}

// deliver never blocks the publish worker: with no reader keeping up the
// result is dropped.
func (s *DashboardService) deliver(res models.CommandResult) {
	select {
	case <-s.closed:
	default:
		select {
		case s.results <- res:
			return
		default:
		}
	}
	s.log.Warnw("command_result_dropped", "command_id", res.Command.ID, "err", res.Err)
}

func (s *DashboardService) handleResult(ctx context.Context, res models.CommandResult) {
	cmd := res.Command
	if res.Err != nil {
		s.metrics.CommandPublishes.WithLabelValues(metrics.ResultError).Inc()
		s.log.Errorw("command_publish_failed", "device_id", cmd.DeviceID, "command_id", cmd.ID, "active", cmd.Active, "err", res.Err)
		s.record(ctx, models.DashboardEvent{
			OccurredAt:  s.now(),
			Type:        models.EventCommandFailed,
			Description: "Manual water command failed",
			Metadata:    map[string]any{"command_id": cmd.ID, "active": cmd.Active, "error": res.Err.Error()},
		})
		return
	}
	s.metrics.CommandPublishes.WithLabelValues(metrics.ResultOK).Inc()
	s.log.Debugw("command_published", "device_id", cmd.DeviceID, "command_id", cmd.ID, "active", cmd.Active)
	s.record(ctx, models.DashboardEvent{
		OccurredAt:  s.now(),
		Type:        models.EventCommandSent,
		Description: "Manual water command sent",
		Metadata:    map[string]any{"command_id": cmd.ID, "active": cmd.Active},
	})
}

func (s *DashboardService) recordWarning(ctx context.Context, at time.Time, view models.DashboardView) {
	s.record(ctx, models.DashboardEvent{
		OccurredAt:  at,
		Type:        models.EventWarning,
		Description: "Warning raised",
		Metadata: map[string]any{
			"moisture":      view.Moisture,
			"manual_active": view.ManualActive,
		},
	})
}

// record writes to the event log. The log is auxiliary, so failures are
// only logged.
func (s *DashboardService) record(ctx context.Context, e models.DashboardEvent) {
	if s.eventRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventWriteTimeout)
	defer cancel()
	if err := s.eventRepo.Append(ctx, e); err != nil {
		s.log.Warnw("event_log_append_failed", "type", e.Type, "err", err)
	}
}

func (s *DashboardService) observe(v models.DashboardView) {
	s.metrics.MoisturePercent.Set(v.MoisturePercent)
	s.metrics.ManualActive.Set(metrics.BoolGauge(v.ManualActive))
	s.metrics.WarningActive.Set(metrics.BoolGauge(v.ShowWarning))
	s.metrics.HistoryEntries.Set(float64(len(v.History)))
}

func (s *DashboardService) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
