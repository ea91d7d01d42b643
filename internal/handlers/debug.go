package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workshop-chat-service/internal/broadcast"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, broadcaster broadcast.Broadcaster, enabled bool) {
	if !enabled {
		return
	}

	// pushes a probe notice through the full delivery chain, fallback included
	router.POST("/debug/broadcast-probe", func(c *gin.Context) {
		var req struct {
			RoomID int    `json:"room_id" binding:"required"`
			Text   string `json:"text"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := broadcaster.SendToGroup(c.Request.Context(), req.RoomID, broadcast.MethodReceiveError, "probe: "+req.Text); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
