package model

import (
	"time"
)

// Chat 会话容器。除创建时间外没有自身元数据，
// 列表展示名称等信息在读取时由对端用户资料派生。
type Chat struct {
	UUIDBase
	Participants []ChatParticipant `gorm:"foreignKey:ChatID" json:"participants"`
}

func (Chat) TableName() string {
	return "chats"
}

// ChatParticipant 会话成员关系，同时承载已读位置
type ChatParticipant struct {
	ChatID              string     `gorm:"primaryKey;type:varchar(36)" json:"chatId"`
	UserID              uint       `gorm:"primaryKey;index" json:"userId"`
	User                User       `gorm:"foreignKey:UserID" json:"user"`
	LastReadMessageID   string     `gorm:"type:varchar(36);default:''" json:"lastReadMessageId"`
	LastReadMessageTime *time.Time `json:"lastReadMessageTime"`
	JoinedAt            time.Time  `gorm:"autoCreateTime" json:"joinedAt"`
}

func (ChatParticipant) TableName() string {
	return "chat_participants"
}

// Message 消息记录。发出后不可变，仅支持软删除
type Message struct {
	UUIDBase
	ChatID         string    `gorm:"index;index:idx_chat_created;type:varchar(36);not null" json:"chatId"`
	CreatedAt      time.Time `gorm:"index:idx_chat_created" json:"createdAt"`
	SenderID       uint      `gorm:"index;not null" json:"senderId"`
	Sender         User      `gorm:"foreignKey:SenderID" json:"sender"`
	Content        string    `gorm:"type:text" json:"content"`
	IsDeleted      bool      `gorm:"default:false" json:"isDeleted"`
	AttachmentURL  string    `gorm:"size:255" json:"attachmentUrl,omitempty"`
	AttachmentType string    `gorm:"size:100" json:"attachmentType,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
