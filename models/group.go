package models

// Principal 调用者身份，由宿主解析，核心只做相等比较
type Principal string

// GroupID 群组ID，从1开始递增
type GroupID uint64

// Group 学习小组
type Group struct {
	ID          GroupID     `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Creator     Principal   `json:"creator"`
	Members     []Principal `json:"members"`
	Messages    []Message   `json:"messages"`
}

// Clone 深拷贝，调用方不会与存储共享切片
func (g *Group) Clone() Group {
	c := *g
	c.Members = append([]Principal(nil), g.Members...)
	c.Messages = append([]Message(nil), g.Messages...)
	if c.Members == nil {
		c.Members = []Principal{}
	}
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	return c
}

// GroupSummary 群组列表的轻量视图
type GroupSummary struct {
	ID           GroupID   `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Creator      Principal `json:"creator"`
	MemberCount  int       `json:"member_count"`
	MessageCount int       `json:"message_count"`
}

// Summary 转换为轻量视图
func (g Group) Summary() GroupSummary {
	return GroupSummary{
		ID:           g.ID,
		Name:         g.Name,
		Description:  g.Description,
		Creator:      g.Creator,
		MemberCount:  len(g.Members),
		MessageCount: len(g.Messages),
	}
}

// GroupRequest 创建群组请求模型
type GroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
