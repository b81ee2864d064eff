package models

import (
	"time"

	"gorm.io/gorm"
)

// Group 群组模型
type Group struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description"`
	OwnerID     uint          `gorm:"not null" json:"owner_id"`
	Owner       *User         `gorm:"foreignKey:OwnerID" json:"-"`
	Members     []GroupMember `gorm:"foreignKey:GroupID" json:"-"`
	Messages    []Message     `gorm:"foreignKey:GroupID" json:"-"`
	Files       []GroupFile   `gorm:"foreignKey:GroupID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Group) TableName() string {
	return "groups"
}
