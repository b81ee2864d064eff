package models

import (
	"time"
)

// 成员角色，一个用户在一个群组中至多持有一个角色
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// GroupMember 群组成员模型。退群是物理删除，重新加入不受唯一索引残留影响
type GroupMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	GroupID  uint      `gorm:"not null;uniqueIndex:idx_group_user" json:"group_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_group_user" json:"user_id"`
	Role     string    `gorm:"default:member" json:"role"` // admin, member
	JoinedAt time.Time `json:"joined_at"`

	Group *Group `gorm:"foreignKey:GroupID" json:"-"`
	User  *User  `gorm:"foreignKey:UserID" json:"-"`
}

func (GroupMember) TableName() string {
	return "group_members"
}
