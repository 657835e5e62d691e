package app

import (
	"wispa_backend/docs"
	"wispa_backend/internal/config"
	"wispa_backend/internal/middleware"
	"wispa_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		// 资料
		authGroup.GET("/profile", c.profile.GetProfile)
		authGroup.PUT("/profile", c.profile.UpdateProfile)
		authGroup.POST("/profile/avatar", c.profile.UploadAvatar)
		authGroup.GET("/users/search", c.profile.SearchByCode)
		authGroup.GET("/users/:id", c.profile.GetUserCard)

		// 设置
		authGroup.GET("/settings", c.settings.GetSettings)
		authGroup.PUT("/settings", c.settings.UpdateSettings)

		// 联系人
		authGroup.GET("/contacts", c.contact.ListContacts)
		authGroup.DELETE("/contacts/:userId", c.contact.RemoveContact)
		authGroup.GET("/contact-requests", c.contact.ListRequests)
		authGroup.POST("/contact-requests", c.contact.SendRequest)
		authGroup.PUT("/contact-requests/:id", c.contact.HandleRequest)
		authGroup.DELETE("/contact-requests/:id", c.contact.CancelRequest)

		// 会话与消息
		authGroup.GET("/chats", c.chat.ListChats)
		authGroup.POST("/chats", c.chat.StartChat)
		authGroup.GET("/chats/:id/messages", c.chat.GetMessages)
		authGroup.POST("/chats/:id/messages", c.chat.SendMessage)
		authGroup.POST("/chats/:id/attachments", c.chat.UploadAttachment)
		authGroup.PUT("/chats/:id/read", c.chat.MarkRead)
		authGroup.DELETE("/messages/:messageId", c.chat.DeleteMessage)

		// 实时连接
		authGroup.GET("/ws", c.chat.HandleWebSocket)
	}
}
