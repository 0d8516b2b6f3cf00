package api

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"studygroup/services"
)

// MetricsProvider 提供事件发布指标
type MetricsProvider interface {
	GetMetrics() map[string]int64
}

// MonitorController 监控控制器
type MonitorController struct {
	GroupService *services.GroupService
	WSManager    *services.WebSocketManager
	Kafka        MetricsProvider
}

// NewMonitorController 创建监控控制器，kafka 可以为 nil
func NewMonitorController(groupService *services.GroupService, wsManager *services.WebSocketManager, kafka MetricsProvider) *MonitorController {
	return &MonitorController{
		GroupService: groupService,
		WSManager:    wsManager,
		Kafka:        kafka,
	}
}

// GetSystemStatus 获取系统状态
func (c *MonitorController) GetSystemStatus(ctx *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := c.GroupService.Stats()
	status := gin.H{
		"groups":      stats.Groups,
		"members":     stats.Members,
		"messages":    stats.Messages,
		"connections": c.WSManager.GetConnectionCount(),
		"goroutines":  runtime.NumGoroutine(),
		"memory": gin.H{
			"alloc":       m.Alloc / 1024 / 1024,      // MB
			"total_alloc": m.TotalAlloc / 1024 / 1024, // MB
			"sys":         m.Sys / 1024 / 1024,        // MB
			"num_gc":      m.NumGC,
		},
	}
	if c.Kafka != nil {
		status["kafka"] = c.Kafka.GetMetrics()
	}

	ctx.JSON(http.StatusOK, status)
}
