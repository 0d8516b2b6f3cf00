package models

// EventType 群组事件类型
type EventType string

const (
	EventGroupCreated  EventType = "group_created"
	EventMemberJoined  EventType = "member_joined"
	EventMessagePosted EventType = "message_posted"
)

// GroupEvent 群组状态变化后发布到 Kafka 和 WebSocket 订阅者
type GroupEvent struct {
	Type      EventType `json:"type"`
	GroupID   GroupID   `json:"group_id"`
	Principal Principal `json:"principal"`
	Name      string    `json:"name,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp int64     `json:"timestamp"`
}
