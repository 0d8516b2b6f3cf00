package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"studygroup/services"
)

// WebSocketController WebSocket控制器
type WebSocketController struct {
	GroupService *services.GroupService
	WSManager    *services.WebSocketManager
	BufferSize   int
}

// NewWebSocketController 创建WebSocket控制器
func NewWebSocketController(groupService *services.GroupService, wsManager *services.WebSocketManager, bufferSize int) *WebSocketController {
	return &WebSocketController{
		GroupService: groupService,
		WSManager:    wsManager,
		BufferSize:   bufferSize,
	}
}

// HandleWebSocket 订阅群组事件，仅限群组成员
func (c *WebSocketController) HandleWebSocket(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	member, err := c.GroupService.IsMember(groupID, caller)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !member {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "not a member of this group"})
		return
	}

	conn, err := services.Upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade 已经写入了错误响应
		slog.Warn("WebSocket升级失败", "principal", caller, "group_id", groupID, "error", err)
		return
	}

	client := services.NewClient(caller, groupID, conn, c.BufferSize)
	if !c.WSManager.RegisterClient(client) {
		// 连接已升级，只能通过关闭帧告知客户端
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}

	// 启动读写协程
	go client.WritePump()
	go client.ReadPump(c.WSManager)
}
