package repositories

import (
	"gorm.io/gorm"

	"github.com/studyhub-io/studyhub/internal/models"
)

// NotificationRepository 通知仓储
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储实例
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 创建通知
func (r *NotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// GetByID 根据ID获取通知
func (r *NotificationRepository) GetByID(id uint) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.First(&notification, id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListByUser 按创建时间倒序返回用户通知，onlyUnread 为 true 时只返回未读
func (r *NotificationRepository) ListByUser(userID uint, onlyUnread bool) ([]models.Notification, error) {
	var notifications []models.Notification
	query := r.db.Where("user_id = ?", userID)
	if onlyUnread {
		query = query.Where("is_read = ?", false)
	}
	err := query.Order("created_at DESC, id DESC").Find(&notifications).Error
	return notifications, err
}

// MarkRead 将单条通知标记为已读，重复标记无副作用
func (r *NotificationRepository) MarkRead(id uint) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

// MarkAllRead 将用户全部未读通知标记为已读
func (r *NotificationRepository) MarkAllRead(userID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

// DeleteRead 删除用户所有已读通知
func (r *NotificationRepository) DeleteRead(userID uint) error {
	return r.db.Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&models.Notification{}).Error
}

// DeleteByIDs 按ID批量删除用户的通知，不存在的ID直接跳过
func (r *NotificationRepository) DeleteByIDs(userID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&models.Notification{}).Error
}

// CountUnread 统计用户未读通知数
func (r *NotificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
