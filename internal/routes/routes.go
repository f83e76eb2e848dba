package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/courier-backend/internal/handlers"
	"github.com/pushp314/courier-backend/internal/middleware"
)

func RegisterAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", handlers.Register)
	rg.POST("/login", handlers.Login)
	rg.POST("/logout", middleware.AuthMiddleware(), handlers.Logout)
}

func RegisterMessageRoutes(rg *gin.RouterGroup) {
	messages := rg.Group("/messages")
	messages.Use(middleware.AuthMiddleware())

	messages.POST("", handlers.SendMessage)
	messages.GET("/unread", handlers.GetUnreadMessages)
	messages.GET("/unread/count", handlers.GetUnreadCount)
	messages.PUT("/read", handlers.MarkManyMessagesRead)
	messages.PUT("/:id", handlers.EditMessage)
	messages.PUT("/:id/read", handlers.MarkMessageRead)
	messages.GET("/:id/thread", handlers.GetThread)
	messages.GET("/:id/history", handlers.GetMessageHistory)

	conversations := rg.Group("/conversations")
	conversations.Use(middleware.AuthMiddleware())
	conversations.GET("/:userId", handlers.GetConversation)
}

func RegisterNotificationRoutes(rg *gin.RouterGroup) {
	notifications := rg.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())

	notifications.GET("", handlers.GetNotifications)
	notifications.GET("/unread-count", handlers.GetUnreadNotificationCount)
	notifications.PUT("/read-all", handlers.MarkAllNotificationsRead)
	notifications.PUT("/:id/read", handlers.MarkNotificationRead)
}

func RegisterUserRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.AuthMiddleware())

	users.GET("/me", handlers.GetProfile)
	users.DELETE("/me", handlers.DeleteAccount)
}
