package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/studyhub-io/studyhub/internal/models"
	"github.com/studyhub-io/studyhub/internal/repositories"
)

// GroupService 群组服务
type GroupService struct {
	groupRepo *repositories.GroupRepository
	userRepo  *repositories.UserRepository
	notifier  *NotificationService
}

// NewGroupService 创建群组服务实例
func NewGroupService(groupRepo *repositories.GroupRepository, userRepo *repositories.UserRepository, notifier *NotificationService) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		notifier:  notifier,
	}
}

// CreateGroupRequest 创建群组请求
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// GroupDTO 群组数据传输对象
type GroupDTO struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     uint   `json:"owner_id"`
	CreatedAt   string `json:"created_at"`
}

// MemberDTO 群组成员数据传输对象
type MemberDTO struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

func toGroupDTO(group *models.Group) *GroupDTO {
	return &GroupDTO{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		OwnerID:     group.OwnerID,
		CreatedAt:   group.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// CreateGroup 创建群组，创建者自动成为 admin 成员
func (s *GroupService) CreateGroup(ownerID uint, req *CreateGroupRequest) (*GroupDTO, error) {
	if len(req.Name) == 0 || len(req.Name) > 100 {
		return nil, fmt.Errorf("%w: group name invalid", ErrInvalidInput)
	}

	group := &models.Group{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     ownerID,
	}
	if err := s.groupRepo.Create(group); err != nil {
		return nil, err
	}

	return toGroupDTO(group), nil
}

// GetGroup 获取群组信息
func (s *GroupService) GetGroup(groupID uint) (*GroupDTO, error) {
	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group %d", ErrNotFound, groupID)
		}
		return nil, err
	}
	return toGroupDTO(group), nil
}

// AddMember 把用户加入群组并下发邀请通知。操作者必须是群组 admin
func (s *GroupService) AddMember(actorID, groupID, userID uint, role string) error {
	actorRole, err := s.groupRepo.GetMemberRole(groupID, actorID)
	if err != nil {
		return err
	}
	if actorRole != models.RoleAdmin {
		return fmt.Errorf("%w: only group admins can add members", ErrUnauthorized)
	}

	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: group %d", ErrNotFound, groupID)
		}
		return err
	}
	if _, err := s.userRepo.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return err
	}

	if role != models.RoleAdmin {
		role = models.RoleMember
	}
	member := &models.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	if err := s.groupRepo.AddMember(member); err != nil {
		return err
	}

	if s.notifier != nil {
		// 通知失败不阻塞入群
		_ = s.notifier.NotifyInvite(userID, group)
	}
	return nil
}

// RemoveMember 把用户移出群组。操作者必须是群组 admin 或本人
func (s *GroupService) RemoveMember(actorID, groupID, userID uint) error {
	if actorID != userID {
		actorRole, err := s.groupRepo.GetMemberRole(groupID, actorID)
		if err != nil {
			return err
		}
		if actorRole != models.RoleAdmin {
			return fmt.Errorf("%w: only group admins can remove members", ErrUnauthorized)
		}
	}
	return s.groupRepo.RemoveMember(groupID, userID)
}

// RoleOf 返回用户在群组中的角色，非成员返回空串
func (s *GroupService) RoleOf(groupID, userID uint) (string, error) {
	return s.groupRepo.GetMemberRole(groupID, userID)
}

// ListMembers 返回群组成员列表
func (s *GroupService) ListMembers(groupID uint) ([]MemberDTO, error) {
	members, err := s.groupRepo.GetGroupMembers(groupID)
	if err != nil {
		return nil, err
	}

	dtos := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		dto := MemberDTO{
			UserID:   m.UserID,
			Role:     m.Role,
			JoinedAt: m.JoinedAt.Format("2006-01-02 15:04:05"),
		}
		if m.User != nil {
			dto.Username = m.User.Username
			dto.Nickname = m.User.Nickname
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// GetUserGroupIDs 返回用户所在的群组ID列表
func (s *GroupService) GetUserGroupIDs(userID uint) ([]uint, error) {
	return s.groupRepo.GetUserGroupIDs(userID)
}
