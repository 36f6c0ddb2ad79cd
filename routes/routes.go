package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"juggerconnect/handlers"
	"juggerconnect/middleware"
)

func SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Jugger-Connect API is running",
			"time":    time.Now().Unix(),
			"ws":      "WebSocket available at /ws",
		})
	})

	// CORS configuration with WebSocket support
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes (no auth required)
	router.GET("/api/push/public-key", handlers.GetVapidPublicKey)

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.RateLimitMiddleware())
	protected.Use(middleware.JWTAuthMiddleware())

	// Users
	protected.GET("/users", handlers.GetUsers)
	protected.GET("/users/search", handlers.SearchUsers)
	protected.GET("/users/:id", handlers.GetUserByID)
	protected.PUT("/users/profile", handlers.UpdateProfile)
	protected.POST("/users/:id/follow", handlers.FollowUser)
	protected.DELETE("/users/:id/follow", handlers.UnfollowUser)
	protected.GET("/users/:id/followers", handlers.GetFollowers)
	protected.GET("/users/:id/following", handlers.GetFollowing)

	// Posts
	protected.POST("/posts", handlers.CreatePost)
	protected.GET("/posts", handlers.GetFeed)
	protected.GET("/posts/:id", handlers.GetPost)
	protected.PUT("/posts/:id", handlers.UpdatePost)
	protected.DELETE("/posts/:id", handlers.DeletePost)
	protected.POST("/posts/:id/like", handlers.LikePost)
	protected.POST("/posts/:id/comment", handlers.AddComment)
	protected.DELETE("/posts/:id/comment/:commentId", handlers.RemoveComment)

	// Chat
	protected.POST("/chat/conversations", handlers.CreateConversation)
	protected.GET("/chat/conversations", handlers.GetConversations)
	protected.GET("/chat/conversation/:conversationId", handlers.GetConversation)
	protected.POST("/chat/messages", handlers.SendMessage)
	protected.PUT("/chat/messages/read/:senderId", handlers.MarkMessagesAsRead)
	protected.GET("/chat/unread-count", handlers.GetUnreadCount)
	protected.DELETE("/chat/messages/:messageId", handlers.DeleteMessage)
	protected.GET("/chat/search", handlers.SearchMessages)

	// Media upload
	protected.POST("/upload", handlers.UploadFile)

	// Push subscriptions
	protected.POST("/push/subscribe", handlers.SubscribePush)

	// Catch-all for undefined API routes
	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
