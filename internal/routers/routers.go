package routers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/studyhub-io/studyhub/internal/handlers"
	"github.com/studyhub-io/studyhub/internal/services"
	"github.com/studyhub-io/studyhub/middleware/jwt"
	log "github.com/studyhub-io/studyhub/middleware/log"
	"github.com/studyhub-io/studyhub/pkg/middlewares"
	"github.com/studyhub-io/studyhub/pkg/mq"
	"github.com/studyhub-io/studyhub/pkg/ws"
)

// SetupRoutes 设置所有路由
func SetupRoutes(r *gin.Engine,
	tokens *jwt.TokenManager,
	authHandler *handlers.AuthHandler,
	groupHandler *handlers.GroupHandler,
	messageHandler *handlers.MessageHandler,
	fileHandler *handlers.FileHandler,
	notificationHandler *handlers.NotificationHandler,
	hub *ws.Hub,
	authService *services.AuthService,
	groupService *services.GroupService,
	msgService *services.MessageService,
	kafkaProducer *mq.KafkaProducer,
	logger *log.Logger,
) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// 全局限流中间件
	r.Use(middlewares.RateLimitMiddleware(2 * time.Second))

	// WebSocket 路由 (必须在 AsyncMiddleware 之前注册，避免握手请求被放入 Worker Pool)
	// 认证通过连接内的 auth 帧完成，不挂 HTTP 认证中间件
	r.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(hub, authService, groupService, msgService, kafkaProducer, logger, c)
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"Status": "OK",
		})
	})

	// 异步处理中间件，将请求放入 Worker Pool 中排队执行
	r.Use(middlewares.AsyncMiddleware())

	RegisterAuthRoutes(r, authHandler)
	RegisterGroupRoutes(r, tokens, groupHandler, messageHandler, fileHandler)
	RegisterNotificationRoutes(r, tokens, notificationHandler)
}

// 认证相关路由，不要求 token
func RegisterAuthRoutes(r *gin.Engine, authHandler *handlers.AuthHandler) {
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", authHandler.Register) // 注册
		authGroup.POST("/login", authHandler.Login)       // 登录
	}
}

// 群组、消息、置顶与文件路由
func RegisterGroupRoutes(r *gin.Engine, tokens *jwt.TokenManager,
	groupHandler *handlers.GroupHandler,
	messageHandler *handlers.MessageHandler,
	fileHandler *handlers.FileHandler,
) {
	groupGroup := r.Group("/api/groups")
	groupGroup.Use(middlewares.AuthMiddleware(tokens))
	{
		groupGroup.POST("", groupHandler.CreateGroup)  // 创建群组
		groupGroup.GET("/mine", groupHandler.MyGroups) // 我所在的群组
		groupGroup.GET("/:groupId", groupHandler.GetGroup)

		// 成员管理
		groupGroup.GET("/:groupId/members", groupHandler.ListMembers)
		groupGroup.POST("/:groupId/members", groupHandler.AddMember)
		groupGroup.DELETE("/:groupId/members/:userId", groupHandler.RemoveMember)

		// 消息
		groupGroup.GET("/:groupId/messages", messageHandler.List)
		groupGroup.POST("/:groupId/files", fileHandler.Upload)
		groupGroup.GET("/:groupId/pins", messageHandler.ListPinned)
	}

	messageGroup := r.Group("/api/messages")
	messageGroup.Use(middlewares.AuthMiddleware(tokens))
	{
		messageGroup.POST("", messageHandler.Send)
		messageGroup.DELETE("/:messageId", messageHandler.Delete)
		messageGroup.POST("/:messageId/pin", messageHandler.Pin)
		messageGroup.DELETE("/:messageId/pin", messageHandler.Unpin)
	}

	fileGroup := r.Group("/api/files")
	fileGroup.Use(middlewares.AuthMiddleware(tokens))
	{
		fileGroup.GET("/:fileId", fileHandler.Download)
	}
}

// 通知路由，只操作当前用户自己的通知
func RegisterNotificationRoutes(r *gin.Engine, tokens *jwt.TokenManager, notificationHandler *handlers.NotificationHandler) {
	notificationGroup := r.Group("/api/notifications")
	notificationGroup.Use(middlewares.AuthMiddleware(tokens))
	{
		notificationGroup.GET("", notificationHandler.List)
		notificationGroup.GET("/unread-count", notificationHandler.UnreadCount)
		notificationGroup.PATCH("/:notificationId/read", notificationHandler.MarkRead)
		notificationGroup.PATCH("/read-all", notificationHandler.MarkAllRead)
		notificationGroup.DELETE("/read", notificationHandler.DeleteRead)
		notificationGroup.POST("/delete-batch", notificationHandler.DeleteBatch)
	}
}
