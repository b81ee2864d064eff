package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/studyhub-io/studyhub/internal/models"
	"github.com/studyhub-io/studyhub/internal/repositories"
	log "github.com/studyhub-io/studyhub/middleware/log"
)

// NotificationService 通知服务。先落库，再推送到用户私有队列：
// 用户离线时推送丢失，但通知一定能在列表里查到
type NotificationService struct {
	notificationRepo *repositories.NotificationRepository
	userRepo         *repositories.UserRepository
	broadcaster      Broadcaster
	logger           *log.Logger
}

// NewNotificationService 创建通知服务实例
func NewNotificationService(notificationRepo *repositories.NotificationRepository, userRepo *repositories.UserRepository, broadcaster Broadcaster, logger *log.Logger) *NotificationService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		broadcaster:      broadcaster,
		logger:           logger,
	}
}

// NotificationDTO 通知数据传输对象
type NotificationDTO struct {
	ID                uint    `json:"id"`
	UserID            uint    `json:"user_id"`
	Title             string  `json:"title"`
	Message           string  `json:"message"`
	Type              string  `json:"type"`
	IsRead            bool    `json:"is_read"`
	CreatedAt         string  `json:"created_at"`
	RelatedEntityID   *int64  `json:"related_entity_id,omitempty"`
	RelatedEntityType *string `json:"related_entity_type,omitempty"`
}

func toNotificationDTO(n *models.Notification) *NotificationDTO {
	return &NotificationDTO{
		ID:                n.ID,
		UserID:            n.UserID,
		Title:             n.Title,
		Message:           n.Message,
		Type:              n.Type,
		IsRead:            n.IsRead,
		CreatedAt:         n.CreatedAt.Format("2006-01-02 15:04:05"),
		RelatedEntityID:   n.RelatedEntityID,
		RelatedEntityType: n.RelatedEntityType,
	}
}

// Create 创建通知并推送到用户私有队列
func (s *NotificationService) Create(notification *models.Notification) (*NotificationDTO, error) {
	if notification.Type == "" {
		notification.Type = models.NotificationUpdates
	}

	// 目标用户必须存在，避免给不存在的用户攒下孤儿通知
	if _, err := s.userRepo.GetByID(notification.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, notification.UserID)
		}
		return nil, err
	}

	if err := s.notificationRepo.Create(notification); err != nil {
		return nil, err
	}

	dto := toNotificationDTO(notification)
	s.broadcaster.Publish(UserQueueDestination(notification.UserID), dto)
	return dto, nil
}

// NotifyInvite 下发入群邀请通知
func (s *NotificationService) NotifyInvite(userID uint, group *models.Group) error {
	entityID := int64(group.ID)
	entityType := "group"
	_, err := s.Create(&models.Notification{
		UserID:            userID,
		Title:             "Group invitation",
		Message:           fmt.Sprintf("You have been added to %s", group.Name),
		Type:              models.NotificationInvites,
		RelatedEntityID:   &entityID,
		RelatedEntityType: &entityType,
	})
	if err != nil && s.logger != nil {
		s.logger.Error(fmt.Sprintf("notify invite failed: user=%d group=%d err=%v", userID, group.ID, err))
	}
	return err
}

// NotifyReminder 下发提醒类通知
func (s *NotificationService) NotifyReminder(userID uint, title, message string) error {
	_, err := s.Create(&models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    models.NotificationReminders,
	})
	return err
}

// NotifyUpdate 下发更新类通知，可附带相关实体
func (s *NotificationService) NotifyUpdate(userID uint, title, message string, entityID *int64, entityType *string) error {
	_, err := s.Create(&models.Notification{
		UserID:            userID,
		Title:             title,
		Message:           message,
		Type:              models.NotificationUpdates,
		RelatedEntityID:   entityID,
		RelatedEntityType: entityType,
	})
	return err
}

// List 返回用户通知，onlyUnread 为 true 时只含未读
func (s *NotificationService) List(userID uint, onlyUnread bool) ([]NotificationDTO, error) {
	notifications, err := s.notificationRepo.ListByUser(userID, onlyUnread)
	if err != nil {
		return nil, err
	}
	dtos := make([]NotificationDTO, 0, len(notifications))
	for i := range notifications {
		dtos = append(dtos, *toNotificationDTO(&notifications[i]))
	}
	return dtos, nil
}

// MarkRead 标记单条通知已读，只能操作属于自己的通知
func (s *NotificationService) MarkRead(userID, notificationID uint) error {
	notification, err := s.notificationRepo.GetByID(notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
		}
		return err
	}
	if notification.UserID != userID {
		return fmt.Errorf("%w: notification belongs to another user", ErrUnauthorized)
	}
	return s.notificationRepo.MarkRead(notificationID)
}

// MarkAllRead 标记用户全部通知已读
func (s *NotificationService) MarkAllRead(userID uint) error {
	return s.notificationRepo.MarkAllRead(userID)
}

// DeleteRead 删除用户全部已读通知
func (s *NotificationService) DeleteRead(userID uint) error {
	return s.notificationRepo.DeleteRead(userID)
}

// DeleteByIDs 按ID批量删除用户的通知，非本人或不存在的ID直接跳过
func (s *NotificationService) DeleteByIDs(userID uint, ids []uint) error {
	return s.notificationRepo.DeleteByIDs(userID, ids)
}

// UnreadCount 未读通知数
func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	return s.notificationRepo.CountUnread(userID)
}
