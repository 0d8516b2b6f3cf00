package models

// Message 群组讨论消息，追加后不可变
type Message struct {
	Sender    Principal `json:"sender"`
	Content   string    `json:"content"`
	Timestamp int64     `json:"timestamp"` // 毫秒
}

// MessageRequest 发送消息请求模型，内容由存储层校验，保证先检查成员身份
type MessageRequest struct {
	Content string `json:"content"`
}

// PageQuery 分页参数
type PageQuery struct {
	Skip  int `form:"skip,default=0" binding:"min=0"`
	Limit int `form:"limit,default=20" binding:"min=0"`
}
