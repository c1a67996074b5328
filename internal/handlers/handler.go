package handlers

import (
	_ "esp32_supervisor/docs"
	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: logger.OrNop(log)}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// state stream, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorMiddleware)
	{
		api.GET("/device/state", h.getState)
		api.POST("/relay/toggle", h.toggleRelay)
		h.registerSetpointRoutes(api)
		api.GET("/logs", h.getLogs)
	}
}

func (h *Handler) registerSetpointRoutes(api *gin.RouterGroup) {
	sp := api.Group("/setpoint")
	{
		sp.GET("", h.getSetpoint)
		sp.PUT("", h.putSetpoint)
		// Body example: {"height_px":180}
		sp.PUT("/track", h.putTrack)
		sp.POST("/gesture/start", h.gestureStart)
		// Body example: {"delta_px":-42.5}
		sp.POST("/gesture/move", h.gestureMove)
		sp.POST("/gesture/end", h.gestureEnd)
	}
}
