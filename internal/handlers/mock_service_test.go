package handlers

import (
	"context"
	"sync"
	"time"

	"irrigation_dashboard/internal/models"
	"irrigation_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockDashboard struct {
	mu      sync.Mutex
	view    models.DashboardView
	health  service.Health
	changes chan struct{}
}

func newMockDashboard(v models.DashboardView) *mockDashboard {
	return &mockDashboard{view: v, changes: make(chan struct{}, 1)}
}

func (m *mockDashboard) View() models.DashboardView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

func (m *mockDashboard) History() []models.HistoryItem {
	return m.View().History
}

func (m *mockDashboard) Health() service.Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

func (m *mockDashboard) Watch() (<-chan struct{}, func()) {
	return m.changes, func() {}
}

// set replaces the view and signals watchers.
func (m *mockDashboard) set(v models.DashboardView) {
	m.mu.Lock()
	m.view = v
	m.mu.Unlock()
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

type mockControl struct {
	mu    sync.Mutex
	calls int
	view  models.DashboardView
}

func (m *mockControl) ToggleManualWater(ctx context.Context) (models.ManualWaterCommand, models.DashboardView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.view.ManualActive = !m.view.ManualActive
	return models.ManualWaterCommand{
		ID:       "cmd-1",
		DeviceID: "ESP32-001",
		Active:   m.view.ManualActive,
		IssuedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}, m.view
}

func (m *mockControl) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockEventLog struct {
	resp     []models.DashboardEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.DashboardEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
