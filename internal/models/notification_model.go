package models

import "time"

// 通知分类
const (
	NotificationInvites   = "Invites"
	NotificationReminders = "Reminders"
	NotificationUpdates   = "Updates"
)

// Notification 通知模型。内容在创建后不可变，只有已读标记会变化
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `json:"title,omitempty"`
	Message   string    `gorm:"not null" json:"message"`
	Type      string    `gorm:"index" json:"type"` // Invites, Reminders, Updates, ...
	IsRead    bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`

	// 可选的关联实体，用于前端跳转
	RelatedEntityID   *int64  `json:"related_entity_id,omitempty"`
	RelatedEntityType *string `json:"related_entity_type,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
