package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studygroup/models"
	"studygroup/store"
)

const stateRowID = 1

// StateRepository 宿主侧的持久化，进程重启后恢复群组状态
type StateRepository interface {
	Load(ctx context.Context) (store.State, error)
	ReserveGroupID(ctx context.Context, nextID models.GroupID) error
	SaveGroup(ctx context.Context, group models.Group) error
	AddMember(ctx context.Context, groupID models.GroupID, principal models.Principal, position int) error
	AppendMessage(ctx context.Context, groupID models.GroupID, message models.Message) error
}

// GormStateRepository 基于 gorm 的状态仓库
type GormStateRepository struct {
	db *gorm.DB
}

// NewStateRepository 创建状态仓库
func NewStateRepository(db *gorm.DB) *GormStateRepository {
	return &GormStateRepository{db: db}
}

// Migrate 自动迁移表结构
func (r *GormStateRepository) Migrate() error {
	return r.db.AutoMigrate(
		&models.GroupRecord{},
		&models.MemberRecord{},
		&models.MessageRecord{},
		&models.StateRecord{},
	)
}

// Load 读取全部群组、成员和消息
func (r *GormStateRepository) Load(ctx context.Context) (store.State, error) {
	db := r.db.WithContext(ctx)

	var groupRecords []models.GroupRecord
	if err := db.Order("id").Find(&groupRecords).Error; err != nil {
		return store.State{}, fmt.Errorf("加载群组失败: %w", err)
	}
	var memberRecords []models.MemberRecord
	if err := db.Order("group_id").Order("position").Find(&memberRecords).Error; err != nil {
		return store.State{}, fmt.Errorf("加载群组成员失败: %w", err)
	}
	var messageRecords []models.MessageRecord
	if err := db.Order("id").Find(&messageRecords).Error; err != nil {
		return store.State{}, fmt.Errorf("加载群组消息失败: %w", err)
	}

	var state models.StateRecord
	err := db.First(&state, stateRowID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return store.State{}, fmt.Errorf("加载群组计数器失败: %w", err)
	}

	// 群组写入失败时遗留的成员和消息没有所属群组，直接忽略
	known := make(map[uint64]struct{}, len(groupRecords))
	for _, g := range groupRecords {
		known[g.ID] = struct{}{}
	}
	members := make(map[uint64][]models.Principal)
	for _, m := range memberRecords {
		if _, ok := known[m.GroupID]; !ok {
			continue
		}
		members[m.GroupID] = append(members[m.GroupID], models.Principal(m.Principal))
	}
	messages := make(map[uint64][]models.Message)
	for _, m := range messageRecords {
		if _, ok := known[m.GroupID]; !ok {
			continue
		}
		messages[m.GroupID] = append(messages[m.GroupID], models.Message{
			Sender:    models.Principal(m.Sender),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}

	groups := make([]models.Group, 0, len(groupRecords))
	for _, g := range groupRecords {
		groups = append(groups, models.Group{
			ID:          models.GroupID(g.ID),
			Name:        g.Name,
			Description: g.Description,
			Creator:     models.Principal(g.Creator),
			Members:     members[g.ID],
			Messages:    messages[g.ID],
		})
	}

	return store.State{Groups: groups, NextID: models.GroupID(state.NextGroupID)}, nil
}

// ReserveGroupID 推进群组计数器，只增不减。
// 独立于群组写入，群组写入失败时该ID也不会被再次分配。
func (r *GormStateRepository) ReserveGroupID(ctx context.Context, nextID models.GroupID) error {
	state := models.StateRecord{ID: stateRowID, NextGroupID: uint64(nextID)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Set{{
			Column: clause.Column{Name: "next_group_id"},
			Value: gorm.Expr("CASE WHEN ? > next_group_id THEN ? ELSE next_group_id END",
				uint64(nextID), uint64(nextID)),
		}},
	}).Create(&state).Error
}

// SaveGroup 在一个事务中写入新群组和它的成员
func (r *GormStateRepository) SaveGroup(ctx context.Context, group models.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := models.GroupRecord{
			ID:          uint64(group.ID),
			Name:        group.Name,
			Description: group.Description,
			Creator:     string(group.Creator),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		for i, principal := range group.Members {
			member := models.MemberRecord{GroupID: uint64(group.ID), Principal: string(principal), Position: i}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AddMember 追加成员
func (r *GormStateRepository) AddMember(ctx context.Context, groupID models.GroupID, principal models.Principal, position int) error {
	member := models.MemberRecord{GroupID: uint64(groupID), Principal: string(principal), Position: position}
	return r.db.WithContext(ctx).Create(&member).Error
}

// AppendMessage 追加消息
func (r *GormStateRepository) AppendMessage(ctx context.Context, groupID models.GroupID, message models.Message) error {
	record := models.MessageRecord{
		GroupID:   uint64(groupID),
		Sender:    string(message.Sender),
		Content:   message.Content,
		Timestamp: message.Timestamp,
	}
	return r.db.WithContext(ctx).Create(&record).Error
}
