package handlers

import (
	"net/http"
	"time"

	"irrigation_dashboard/internal/logger"
	"irrigation_dashboard/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	metrics  http.Handler
	log      *logger.Logger
	wsPush   pushConfig
}

// NewHandler constructs a new HTTP handler with dependencies.
// metrics may be nil, in which case /metrics is not served.
func NewHandler(services *service.Service, metrics http.Handler, log *logger.Logger) *Handler {
	return &Handler{services: services, metrics: metrics, log: log, wsPush: defaultPushConfig()}
}

// WithPushInterval sets the default websocket push interval.
func (h *Handler) WithPushInterval(d time.Duration) *Handler {
	if d > 0 && d <= maxInterval {
		h.wsPush.interval = d
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestIDMiddleware)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAPIRoutes(router)

	// live dashboard push on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.accessLogMiddleware)
	{
		h.registerDashboardRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerDashboardRoutes(api *gin.RouterGroup) {
	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("", h.getDashboard)
		dashboard.GET("/history", h.getHistory)
	}
	api.POST("/manual-water/toggle", h.toggleManualWater)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
