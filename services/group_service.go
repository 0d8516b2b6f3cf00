package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"studygroup/models"
	"studygroup/store"
)

// EventPublisher 群组事件的外部发布者
type EventPublisher interface {
	PublishGroupEvent(evt models.GroupEvent) error
}

// EventBroadcaster 将群组事件推送给在线订阅者
type EventBroadcaster interface {
	BroadcastToGroup(groupID models.GroupID, message []byte)
}

// GroupService 群组服务：调用核心存储，成功后写入持久化并发布事件。
// repo、publisher、broadcaster 都可以为 nil。
//
// 写操作由 writeMu 串行化：内存修改、持久化和事件发布作为一个整体完成，
// 持久化顺序和事件顺序与内存中的顺序一致。读操作只经过 store 的锁。
type GroupService struct {
	writeMu     sync.Mutex
	store       *store.Store
	repo        StateRepository
	publisher   EventPublisher
	broadcaster EventBroadcaster
	log         *slog.Logger
}

// NewGroupService 创建群组服务实例
func NewGroupService(st *store.Store, repo StateRepository, publisher EventPublisher, broadcaster EventBroadcaster) *GroupService {
	return &GroupService{
		store:       st,
		repo:        repo,
		publisher:   publisher,
		broadcaster: broadcaster,
		log:         slog.Default().With("component", "group_service"),
	}
}

// Restore 从持久化恢复群组状态
func (s *GroupService) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	state, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Restore(state); err != nil {
		return err
	}
	s.log.Info("群组状态已恢复", "groups", len(state.Groups), "next_id", state.NextID)
	return nil
}

// CreateGroup 创建新群组
func (s *GroupService) CreateGroup(ctx context.Context, name, description string, caller models.Principal) (models.GroupID, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id, err := s.store.CreateGroup(name, description, caller)
	if err != nil {
		return 0, err
	}

	group, err := s.store.GetGroup(id)
	if err != nil {
		return 0, fmt.Errorf("读取新建群组失败: %w", err)
	}
	if s.repo != nil {
		// 先推进计数器，群组写入失败时该ID也不会在重启后被复用
		if err := s.repo.ReserveGroupID(ctx, id+1); err != nil {
			s.log.Error("持久化群组计数器失败", "group_id", id, "error", err)
		}
		if err := s.repo.SaveGroup(ctx, group); err != nil {
			s.log.Error("持久化群组失败", "group_id", id, "error", err)
		}
	}

	s.log.Info("群组已创建", "group_id", id, "creator", caller)
	s.publish(models.GroupEvent{
		Type:      models.EventGroupCreated,
		GroupID:   id,
		Principal: caller,
		Name:      group.Name,
	})
	return id, nil
}

// JoinGroup 加入群组
func (s *GroupService) JoinGroup(ctx context.Context, id models.GroupID, caller models.Principal) (store.JoinStatus, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	status, err := s.store.JoinGroup(id, caller)
	if err != nil {
		return "", err
	}
	if status != store.StatusJoined {
		return status, nil
	}

	if s.repo != nil {
		count, err := s.store.MemberCount(id)
		if err != nil {
			return "", fmt.Errorf("读取群组成员数失败: %w", err)
		}
		if err := s.repo.AddMember(ctx, id, caller, count-1); err != nil {
			s.log.Error("持久化群组成员失败", "group_id", id, "principal", caller, "error", err)
		}
	}
	s.publish(models.GroupEvent{
		Type:      models.EventMemberJoined,
		GroupID:   id,
		Principal: caller,
	})
	return status, nil
}

// PostMessage 发送群组消息
func (s *GroupService) PostMessage(ctx context.Context, id models.GroupID, content string, caller models.Principal) (models.Message, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	message, err := s.store.PostMessage(id, content, caller)
	if err != nil {
		return models.Message{}, err
	}

	if s.repo != nil {
		if err := s.repo.AppendMessage(ctx, id, message); err != nil {
			s.log.Error("持久化群组消息失败", "group_id", id, "error", err)
		}
	}
	s.publish(models.GroupEvent{
		Type:      models.EventMessagePosted,
		GroupID:   id,
		Principal: caller,
		Message:   &message,
		Timestamp: message.Timestamp,
	})
	return message, nil
}

// ListGroups 获取全部群组
func (s *GroupService) ListGroups() []models.Group {
	return s.store.ListGroups()
}

// ListGroupSummaries 获取全部群组的轻量视图
func (s *GroupService) ListGroupSummaries() []models.GroupSummary {
	return lo.Map(s.store.ListGroups(), func(g models.Group, _ int) models.GroupSummary {
		return g.Summary()
	})
}

// GetGroupByID 根据ID获取群组
func (s *GroupService) GetGroupByID(id models.GroupID) (models.Group, error) {
	return s.store.GetGroup(id)
}

// GetGroupDiscussions 分页获取群组消息
func (s *GroupService) GetGroupDiscussions(id models.GroupID, skip, limit int) ([]models.Message, error) {
	return s.store.GetGroupDiscussions(id, skip, limit)
}

// IsMember 判断是否为群组成员
func (s *GroupService) IsMember(id models.GroupID, caller models.Principal) (bool, error) {
	return s.store.IsMember(id, caller)
}

// GroupStats 群组统计
type GroupStats struct {
	Groups   int           `json:"groups"`
	Members  int           `json:"members"`
	Messages int           `json:"messages"`
	NextID   models.GroupID `json:"next_id"`
}

// Stats 基于存储快照统计群组、成员和消息数量
func (s *GroupService) Stats() GroupStats {
	snapshot := s.store.Snapshot()
	stats := GroupStats{
		Groups: len(snapshot.Groups),
		NextID: snapshot.NextID,
	}
	for _, g := range snapshot.Groups {
		stats.Members += len(g.Members)
		stats.Messages += len(g.Messages)
	}
	return stats
}

func (s *GroupService) publish(evt models.GroupEvent) {
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}
	if s.publisher != nil {
		if err := s.publisher.PublishGroupEvent(evt); err != nil {
			s.log.Error("发布群组事件失败", "type", evt.Type, "group_id", evt.GroupID, "error", err)
		}
	}
	if s.broadcaster != nil {
		payload, err := json.Marshal(evt)
		if err != nil {
			s.log.Error("序列化群组事件失败", "type", evt.Type, "error", err)
			return
		}
		s.broadcaster.BroadcastToGroup(evt.GroupID, payload)
	}
}
