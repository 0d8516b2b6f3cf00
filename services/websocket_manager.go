package services

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"studygroup/models"
)

// WebSocketManager 按群组管理 WebSocket 订阅者并分发群组事件
type WebSocketManager struct {
	// 群组ID -> 订阅该群组的客户端
	groups map[models.GroupID]map[*Client]struct{}

	// 互斥锁保护 groups
	mu sync.RWMutex

	connectionCount int32
	maxConnections  int32

	log *slog.Logger
}

// NewWebSocketManager 创建一个新的WebSocket管理器
func NewWebSocketManager(maxConnections int) *WebSocketManager {
	return &WebSocketManager{
		groups:         make(map[models.GroupID]map[*Client]struct{}),
		maxConnections: int32(maxConnections),
		log:            slog.Default().With("component", "websocket"),
	}
}

// RegisterClient 注册一个新的客户端，超过最大连接数时返回 false
func (m *WebSocketManager) RegisterClient(client *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if atomic.LoadInt32(&m.connectionCount) >= m.maxConnections {
		m.log.Warn("达到最大连接数限制，拒绝新连接", "max", m.maxConnections)
		return false
	}

	subscribers, ok := m.groups[client.GroupID]
	if !ok {
		subscribers = make(map[*Client]struct{})
		m.groups[client.GroupID] = subscribers
	}
	subscribers[client] = struct{}{}
	count := atomic.AddInt32(&m.connectionCount, 1)

	m.log.Info("客户端已连接", "principal", client.Principal, "group_id", client.GroupID, "connections", count)
	return true
}

// UnregisterClient 注销一个客户端，重复注销是安全的
func (m *WebSocketManager) UnregisterClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(client)
}

func (m *WebSocketManager) removeLocked(client *Client) {
	subscribers, ok := m.groups[client.GroupID]
	if !ok {
		return
	}
	if _, ok := subscribers[client]; !ok {
		return
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(m.groups, client.GroupID)
	}
	close(client.Send)
	count := atomic.AddInt32(&m.connectionCount, -1)

	m.log.Info("客户端已断开连接", "principal", client.Principal, "group_id", client.GroupID, "connections", count)
}

// BroadcastToGroup 发送给群组的所有订阅者，发送缓冲区已满的客户端会被断开
func (m *WebSocketManager) BroadcastToGroup(groupID models.GroupID, message []byte) {
	var slow []*Client

	m.mu.RLock()
	for client := range m.groups[groupID] {
		select {
		case client.Send <- message:
		default:
			slow = append(slow, client)
		}
	}
	m.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, client := range slow {
		m.log.Warn("客户端发送缓冲区已满，关闭连接", "principal", client.Principal, "group_id", groupID)
		m.removeLocked(client)
	}
}

// GetConnectionCount 获取当前连接数
func (m *WebSocketManager) GetConnectionCount() int32 {
	return atomic.LoadInt32(&m.connectionCount)
}

// Stop 断开所有客户端
func (m *WebSocketManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, subscribers := range m.groups {
		for client := range subscribers {
			m.removeLocked(client)
		}
	}
}
