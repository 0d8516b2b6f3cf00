package models

// 以下为持久化模型，仅由状态仓库使用

// GroupRecord 群组表
type GroupRecord struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Name        string `gorm:"size:50;not null"`
	Description string `gorm:"type:text;not null"`
	Creator     string `gorm:"size:255;not null"`
}

func (GroupRecord) TableName() string { return "study_groups" }

// MemberRecord 群组成员表，Position 为成员在内存中的下标，创建者为 0
type MemberRecord struct {
	ID        uint64 `gorm:"primaryKey"`
	GroupID   uint64 `gorm:"not null;uniqueIndex:idx_group_member;uniqueIndex:idx_group_position"`
	Principal string `gorm:"size:255;not null;uniqueIndex:idx_group_member"`
	Position  int    `gorm:"not null;uniqueIndex:idx_group_position"`
}

func (MemberRecord) TableName() string { return "study_group_members" }

// MessageRecord 群组消息表，ID 自增以保留发送顺序
type MessageRecord struct {
	ID        uint64 `gorm:"primaryKey"`
	GroupID   uint64 `gorm:"not null;index"`
	Sender    string `gorm:"size:255;not null"`
	Content   string `gorm:"type:text;not null"`
	Timestamp int64  `gorm:"not null"`
}

func (MessageRecord) TableName() string { return "study_group_messages" }

// StateRecord 单行表，保存下一个群组ID
type StateRecord struct {
	ID          uint   `gorm:"primaryKey"`
	NextGroupID uint64 `gorm:"not null"`
}

func (StateRecord) TableName() string { return "study_group_state" }
