package models

import (
	"time"

	"gorm.io/gorm"
)

// GroupFile 群组文件元数据。字节内容由外部文件存储持有，这里只记录
// StoredKey；MessageID 指向随上传同事务创建的 file 类型消息
type GroupFile struct {
	ID               int64          `gorm:"primaryKey" json:"id"`
	GroupID          uint           `gorm:"not null;index" json:"group_id"`
	UploaderID       uint           `gorm:"not null" json:"uploader_id"`
	MessageID        int64          `gorm:"index" json:"message_id"`
	OriginalFilename string         `gorm:"not null" json:"original_filename"`
	StoredKey        string         `gorm:"not null;uniqueIndex" json:"-"`
	ContentType      string         `json:"content_type"`
	Size             int64          `gorm:"column:size_bytes" json:"size"`
	CreatedAt        time.Time      `json:"created_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Group    *Group `gorm:"foreignKey:GroupID" json:"-"`
	Uploader *User  `gorm:"foreignKey:UploaderID" json:"-"`
}

func (GroupFile) TableName() string {
	return "group_files"
}
