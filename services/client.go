package services

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"studygroup/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4 * 1024
)

// Upgrader WebSocket升级器
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有跨域请求，CORS 由中间件处理
	},
}

// Client 订阅某个群组事件的 WebSocket 客户端
type Client struct {
	Principal models.Principal
	GroupID   models.GroupID
	Conn      *websocket.Conn
	Send      chan []byte
}

// NewClient 创建客户端
func NewClient(principal models.Principal, groupID models.GroupID, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		Principal: principal,
		GroupID:   groupID,
		Conn:      conn,
		Send:      make(chan []byte, buffer),
	}
}

// WritePump 将消息从通道发送到WebSocket连接
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump 只处理心跳和关闭，订阅端不接受客户端消息
func (c *Client) ReadPump(manager *WebSocketManager) {
	defer func() {
		manager.UnregisterClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket连接异常关闭", "principal", c.Principal, "group_id", c.GroupID, "error", err)
			}
			return
		}
	}
}
