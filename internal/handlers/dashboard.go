package handlers

import (
	"net/http"

	"irrigation_dashboard/internal/models"
	"irrigation_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusAccepted = "accepted"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err, "request_id", c.GetString(requestIDKey)}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	service.Health
}

// ToggleResponse is returned by the manual-water toggle.
type ToggleResponse struct {
	Status  string                    `json:"status" example:"accepted"`
	Command models.ManualWaterCommand `json:"command"`
	State   models.DashboardView      `json:"state"`
}

// @Summary      Health check
// @Description  Reports feed connectivity; 503 while the feed is disconnected
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	if h.services == nil || h.services.Dashboard == nil {
		c.JSON(http.StatusOK, HealthResponse{Status: statusOK})
		return
	}
	hs := h.services.Dashboard.Health()
	if !hs.FeedConnected {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: statusDegraded, Health: hs})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: statusOK, Health: hs})
}

// @Summary      Current dashboard state
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  models.DashboardView
// @Router       /api/v1/dashboard [get]
func (h *Handler) getDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Dashboard.View())
}

// @Summary      Recent readings
// @Description  Up to five entries, newest first
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, history"
// @Router       /api/v1/dashboard/history [get]
func (h *Handler) getHistory(c *gin.Context) {
	history := h.services.Dashboard.History()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(history),
		"history": history,
	})
}

// @Summary      Toggle manual watering
// @Description  Flips the manual-water flag and sends one command to the device without waiting for it
// @Tags         dashboard
// @Produce      json
// @Success      202  {object}  ToggleResponse
// @Router       /api/v1/manual-water/toggle [post]
func (h *Handler) toggleManualWater(c *gin.Context) {
	cmd, view := h.services.Control.ToggleManualWater(c.Request.Context())
	c.JSON(http.StatusAccepted, ToggleResponse{
		Status:  statusAccepted,
		Command: cmd,
		State:   view,
	})
}
