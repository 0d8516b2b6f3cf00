package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWebSocketManager_RegisterAndUnregister(t *testing.T) {
	req := require.New(t)
	m := NewWebSocketManager(10)

	client := NewClient("alice", 1, nil, 1)
	req.True(m.RegisterClient(client))
	req.Equal(int32(1), m.GetConnectionCount())

	m.UnregisterClient(client)
	req.Equal(int32(0), m.GetConnectionCount())
	_, open := <-client.Send
	req.False(open)

	// 重复注销不会 panic
	m.UnregisterClient(client)
	req.Equal(int32(0), m.GetConnectionCount())
}

func TestWebSocketManager_MaxConnections(t *testing.T) {
	req := require.New(t)
	m := NewWebSocketManager(2)

	req.True(m.RegisterClient(NewClient("a", 1, nil, 1)))
	req.True(m.RegisterClient(NewClient("b", 2, nil, 1)))
	req.False(m.RegisterClient(NewClient("c", 1, nil, 1)))
	req.Equal(int32(2), m.GetConnectionCount())
}

func TestWebSocketManager_SlowClientIsDropped(t *testing.T) {
	req := require.New(t)
	m := NewWebSocketManager(10)

	slow := NewClient("slow", 1, nil, 1)
	fast := NewClient("fast", 1, nil, 4)
	req.True(m.RegisterClient(slow))
	req.True(m.RegisterClient(fast))

	m.BroadcastToGroup(1, []byte("one"))
	m.BroadcastToGroup(1, []byte("two"))

	req.Equal(int32(1), m.GetConnectionCount())
	req.Len(fast.Send, 2)

	req.Equal([]byte("one"), <-slow.Send)
	_, open := <-slow.Send
	req.False(open)
}

func TestWebSocketManager_Stop(t *testing.T) {
	req := require.New(t)
	m := NewWebSocketManager(10)
	a := NewClient("a", 1, nil, 1)
	b := NewClient("b", 2, nil, 1)
	req.True(m.RegisterClient(a))
	req.True(m.RegisterClient(b))

	m.Stop()
	req.Equal(int32(0), m.GetConnectionCount())
	_, open := <-a.Send
	req.False(open)
	_, open = <-b.Send
	req.False(open)

	// 停止后广播不做任何事
	m.BroadcastToGroup(1, []byte("late"))
}
