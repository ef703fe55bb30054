package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kamuy/apperr"
	"kamuy/config"
	"kamuy/handlers"
	"kamuy/middleware"
	"kamuy/websocket"
)

// SetupRouter wires every route. All chat operations live behind the auth
// middleware; ownership rules are enforced again in the store, not just by
// hiding controls in the UI.
func SetupRouter(cfg *config.Config, h *handlers.Handler, manager *websocket.Manager) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "Kamuy is running", "service": "healthy"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	loginLimiter := middleware.NewIPRateLimiter(10, time.Minute)
	router.POST("/api/login", middleware.RateLimit(loginLimiter), h.Login)
	router.POST("/api/logout", h.Logout)
	router.GET("/api/vapid-public-key", h.VapidPublicKey)
	router.GET("/api/flash", h.GetFlash)

	protected := router.Group("/api")
	protected.Use(middleware.Auth(cfg.JWTSecret))

	protected.GET("/me", h.Me)

	protected.GET("/chats", h.ListChats)
	protected.POST("/chats", h.CreateChat)
	protected.GET("/chats/:chatId", h.GetChat)
	protected.PATCH("/chats/:chatId", h.RenameChat)
	protected.DELETE("/chats/:chatId", h.DeleteChat)
	protected.POST("/chats/:chatId/image", h.UploadChatImage)
	protected.POST("/chats/:chatId/members", h.AddMembers)

	protected.GET("/messages/:chatId", h.GetMessages)
	protected.POST("/addMessageToChat", h.AddMessageToChat)
	protected.POST("/removeMember", h.RemoveMember)
	protected.POST("/validateMemberToBeAdded", h.ValidateMemberToBeAdded)

	protected.POST("/subscribe", h.SubscribePush)

	// The browser WebSocket API cannot set headers, so the upgrade
	// authenticates via the cookie or ?token= before handing off.
	router.GET("/ws", func(c *gin.Context) {
		token, err := middleware.TokenFromRequest(c.Request)
		if err == nil {
			var userID string
			if userID, err = middleware.VerifyToken(token, cfg.JWTSecret); err == nil {
				websocket.Handler(manager, userID, c.Writer, c.Request)
				return
			}
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": apperr.UnauthenticatedMessage})
	})

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
