// Package devserver is a local emulation of the Greenleaf backend: REST
// endpoints for accounts, rooms, messages and the disease data, plus the
// push-only room websocket.
package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/auth"
	"github.com/sharanperla/Greenleaf-client/internal/config"
	"github.com/sharanperla/Greenleaf-client/internal/store"
)

// NewRouter wires every route onto a gin engine.
func NewRouter(st store.Store, authService *auth.Service, hub *Hub, cfg config.DevServerConfig, logger *zerolog.Logger) *gin.Engine {
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	authHandlers := NewAuthHandlers(authService, logger)
	chatHandlers := NewChatHandlers(st, hub, cfg.MediaDir, logger)
	dataHandlers := NewDataHandlers(st, logger)
	wsHandler := NewWSHandler(hub, logger)
	requireAuth := AuthMiddleware(authService, logger)
	limit := RateLimitMiddleware(cfg.AuthRateLimit)

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/login/", limit, authHandlers.Login)
		authGroup.POST("/register/", limit, authHandlers.Register)
		authGroup.POST("/refresh/", authHandlers.Refresh)
		authGroup.GET("/me/", requireAuth, authHandlers.Me)
	}

	chat := router.Group("/api/chat", requireAuth)
	{
		chat.GET("/rooms/", chatHandlers.ListRooms)
		chat.POST("/rooms/", chatHandlers.CreateRoom)
		chat.GET("/rooms/:id/messages/", chatHandlers.ListMessages)
		chat.POST("/messages/", chatHandlers.SendMessage)
		chat.POST("/messages/upload_image/", chatHandlers.UploadImage)
	}

	data := router.Group("/api/data", requireAuth)
	{
		data.GET("/diseases", dataHandlers.ListDiseases)
		data.POST("/predict/", dataHandlers.Predict)
	}

	router.Static("/media", cfg.MediaDir)
	router.GET("/ws/chat/:room/", requireAuth, wsHandler.Serve)

	return router
}

// NewServer builds the HTTP server for the emulator.
func NewServer(handler http.Handler, cfg config.DevServerConfig) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
