package models

import (
	"time"

	"gorm.io/gorm"
)

// 消息类型。file/document 消息的 Content 为原始文件名。
const (
	MsgTypeText     = "text"
	MsgTypeFile     = "file"
	MsgTypeDocument = "document"
)

// Message 消息模型
// ID 由 snowflake 生成，在单个存储实例内单调递增；消息创建后内容不可变，
// 置顶状态由独立的 PinnedMessage 记录跟踪
type Message struct {
	ID        int64          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	GroupID   uint           `gorm:"not null;index" json:"group_id"`
	SenderID  uint           `gorm:"not null;index" json:"sender_id"`
	Content   string         `gorm:"not null" json:"content"`
	MsgType   string         `gorm:"default:text" json:"msg_type"` // text, file, document
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Sender    *User          `gorm:"foreignKey:SenderID" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}

// MessageReply 回复关系，与回复消息同事务创建，一条消息至多回复一条消息
type MessageReply struct {
	ID                uint  `gorm:"primaryKey" json:"id"`
	ReplyMessageID    int64 `gorm:"not null;uniqueIndex" json:"reply_message_id"`
	OriginalMessageID int64 `gorm:"not null;index" json:"original_message_id"`
	ReplierID         uint  `gorm:"not null" json:"replier_id"`
}

func (MessageReply) TableName() string {
	return "message_replies"
}

// PinnedMessage 置顶记录。同一条消息同一时刻至多存在一条置顶记录，
// 重复置顶只刷新 PinnedAt
type PinnedMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"not null;index" json:"group_id"`
	MessageID int64     `gorm:"not null;uniqueIndex" json:"message_id"`
	PinnedAt  time.Time `json:"pinned_at"`

	Message *Message `gorm:"foreignKey:MessageID" json:"-"`
}

func (PinnedMessage) TableName() string {
	return "pinned_messages"
}
