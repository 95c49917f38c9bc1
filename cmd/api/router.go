package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	notificationDelivery "push-backend/internal/notification/delivery"
	triggerDelivery "push-backend/internal/trigger/delivery"
)

func SetupRoutes(r *gin.Engine, notificationHandler *notificationDelivery.NotificationHandler, triggerHandler *triggerDelivery.TriggerHandler) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Notification routes
		notifications := api.Group("/notifications")
		{
			notifications.POST("/send", notificationHandler.Send)
			notifications.POST("", notificationHandler.Create)
			notifications.GET("/:id", notificationHandler.GetByID)
		}

		// Store trigger routes
		triggers := api.Group("/triggers")
		{
			triggers.POST("/events", triggerHandler.HandleEvent)
			triggers.POST("/pubsub", triggerHandler.HandlePubSubPush)
		}
	}
}
