package service

import (
	"context"
	"time"

	"irrigation_dashboard/internal/feed"
	"irrigation_dashboard/internal/logger"
	"irrigation_dashboard/internal/metrics"
	"irrigation_dashboard/internal/models"
	"irrigation_dashboard/internal/repository"
)

// Dashboard exposes the read side: current view, history and health.
type Dashboard interface {
	View() models.DashboardView
	History() []models.HistoryItem
	Health() Health
	// Watch signals state changes; call the returned func to stop.
	Watch() (<-chan struct{}, func())
}

// Control exposes the manual-water toggle.
type Control interface {
	ToggleManualWater(ctx context.Context) (models.ManualWaterCommand, models.DashboardView)
}

// EventLog exposes the session event log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.DashboardEvent, error)
}

// Simulator runs the in-process device until ctx is canceled.
type Simulator interface {
	Run(ctx context.Context, tick time.Duration)
}

// Service aggregates the sub-services used by the handlers.
type Service struct {
	Dashboard
	Control
	EventLog
	Simulator // nil unless feed.mode is simulator

	core *DashboardService
}

// Deps carries what NewService wires together.
type Deps struct {
	Config  DashboardConfig
	Sink    feed.CommandSink
	Bus     *feed.Bus // set in simulator mode
	Metrics *metrics.Metrics
	Log     *logger.Logger
}

// NewService wires the repository layer and the feed into concrete services.
func NewService(repos *repository.Repository, deps Deps) (*Service, error) {
	core, err := NewDashboardService(deps.Config, deps.Sink, repos.EventRepo, deps.Metrics, deps.Log)
	if err != nil {
		return nil, err
	}
	s := &Service{
		Dashboard: core,
		Control:   core,
		EventLog:  NewEventLogService(repos.EventRepo),
		core:      core,
	}
	if deps.Bus != nil {
		s.Simulator = NewSimulatorService(deps.Bus, deps.Config.DeviceID, deps.Log)
	}
	return s, nil
}

// Attach subscribes the dashboard to f.
func (s *Service) Attach(f feed.Feed) error {
	return s.core.Attach(f)
}

// ConsumeResults handles command results until ctx is done.
func (s *Service) ConsumeResults(ctx context.Context) {
	s.core.Run(ctx)
}

// Close waits for in-flight command publishes.
func (s *Service) Close() {
	s.core.Close()
}
