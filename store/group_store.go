package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"studygroup/models"
)

// JoinStatus 加入群组的结果
type JoinStatus string

const (
	StatusJoined        JoinStatus = "joined"
	StatusAlreadyMember JoinStatus = "already a member"
)

// Clock 消息时间戳来源
type Clock func() time.Time

// Store 持有全部群组和下一个群组ID。
// 所有操作在一把互斥锁内完成，检查与修改之间不会被其他请求观察到中间状态。
type Store struct {
	mu     sync.Mutex
	groups []*models.Group
	byID   map[models.GroupID]*models.Group
	nextID models.GroupID
	now    Clock
}

// Option 配置 Store
type Option func(*Store)

// WithClock 替换时钟，主要用于测试
func WithClock(clock Clock) Option {
	return func(s *Store) {
		s.now = clock
	}
}

// New 创建空的群组存储，第一个分配的ID为1
func New(opts ...Option) *Store {
	s := &Store{
		byID:   make(map[models.GroupID]*models.Group),
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGroup 创建新群组，创建者自动成为第一个成员
func (s *Store) CreateGroup(name, description string, caller models.Principal) (models.GroupID, error) {
	name, err := ValidateGroupName(name)
	if err != nil {
		return 0, err
	}
	description, err = ValidateDescription(description)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	group := &models.Group{
		ID:          s.nextID,
		Name:        name,
		Description: description,
		Creator:     caller,
		Members:     []models.Principal{caller},
		Messages:    []models.Message{},
	}
	s.groups = append(s.groups, group)
	s.byID[group.ID] = group
	s.nextID++

	return group.ID, nil
}

// JoinGroup 加入群组。已是成员时直接返回，不受人数上限影响。
func (s *Store) JoinGroup(id models.GroupID, caller models.Principal) (JoinStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	if lo.Contains(group.Members, caller) {
		return StatusAlreadyMember, nil
	}
	if len(group.Members) >= MaxMembers {
		return "", fmt.Errorf("%w: %d members", ErrGroupFull, MaxMembers)
	}

	group.Members = append(group.Members, caller)
	return StatusJoined, nil
}

// PostMessage 发送消息。先检查成员身份，再校验内容。
func (s *Store) PostMessage(id models.GroupID, content string, caller models.Principal) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.lookup(id)
	if err != nil {
		return models.Message{}, err
	}
	if !lo.Contains(group.Members, caller) {
		return models.Message{}, ErrNotMember
	}
	content, err = ValidateMessageContent(content)
	if err != nil {
		return models.Message{}, err
	}

	timestamp := s.now().UnixMilli()
	if n := len(group.Messages); n > 0 && timestamp < group.Messages[n-1].Timestamp {
		timestamp = group.Messages[n-1].Timestamp
	}
	message := models.Message{
		Sender:    caller,
		Content:   content,
		Timestamp: timestamp,
	}
	group.Messages = append(group.Messages, message)
	return message, nil
}

// ListGroups 按创建顺序返回所有群组的副本
func (s *Store) ListGroups() []models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.Map(s.groups, func(g *models.Group, _ int) models.Group {
		return g.Clone()
	})
}

// GetGroup 根据ID获取群组副本
func (s *Store) GetGroup(id models.GroupID) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.lookup(id)
	if err != nil {
		return models.Group{}, err
	}
	return group.Clone(), nil
}

// IsMember 判断调用者是否为群组成员
func (s *Store) IsMember(id models.GroupID, caller models.Principal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	return lo.Contains(group.Members, caller), nil
}

// MemberCount 群组当前成员数
func (s *Store) MemberCount(id models.GroupID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	return len(group.Members), nil
}

// lookup 调用方必须持有锁
func (s *Store) lookup(id models.GroupID) (*models.Group, error) {
	group, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return group, nil
}
