package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studygroup/services"
)

// Dependencies 路由所需的服务
type Dependencies struct {
	GroupService *services.GroupService
	WSManager    *services.WebSocketManager
	Kafka        MetricsProvider
	BufferSize   int
}

// RegisterRoutes 注册API路由
func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	// 创建控制器
	groupController := NewGroupController(deps.GroupService)
	wsController := NewWebSocketController(deps.GroupService, deps.WSManager, deps.BufferSize)
	monitorController := NewMonitorController(deps.GroupService, deps.WSManager, deps.Kafka)

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// 群组相关
		api.GET("/groups", groupController.GetGroups)
		api.POST("/groups", groupController.CreateGroup)
		api.GET("/groups/:id", groupController.GetGroupByID)
		api.POST("/groups/:id/join", groupController.JoinGroup)
		api.GET("/groups/:id/messages", groupController.GetGroupDiscussions)
		api.POST("/groups/:id/messages", groupController.PostMessage)

		// WebSocket
		api.GET("/groups/:id/ws", wsController.HandleWebSocket)

		// 监控相关
		api.GET("/monitor/system", monitorController.GetSystemStatus)
	}
}
