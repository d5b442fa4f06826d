package handlers

import (
	"github.com/citycycle/citycycle-bot/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler streams rental lifecycle events to dashboard clients
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("userId")

		services.ServeWS(hub, c.Writer, c.Request, userID)
	}
}

// Health reports process liveness and the number of dashboard clients
func Health(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"clients": hub.GetConnectedClients(),
		})
	}
}
