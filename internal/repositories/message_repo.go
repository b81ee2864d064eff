package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/studyhub-io/studyhub/internal/models"
)

// MessageRepository 消息仓储。所有多行写入都包裹在单个事务中：
// 消息+回复链接、文件+伴随消息、删除级联，要么全部可见要么全部不可见
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息仓储实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateWithReply 创建消息；replyToID 非零且指向同群组已存在的消息时，
// 同事务创建回复链接，否则仅创建消息（回复链接是 best-effort，不报错）
func (r *MessageRepository) CreateWithReply(message *models.Message, replyToID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		if replyToID == 0 {
			return nil
		}

		var original models.Message
		err := tx.Where("id = ? AND group_id = ?", replyToID, message.GroupID).
			First(&original).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 原消息不存在：消息照常落库，跳过回复链接
				return nil
			}
			return err
		}

		reply := &models.MessageReply{
			ReplyMessageID:    message.ID,
			OriginalMessageID: original.ID,
			ReplierID:         message.SenderID,
		}
		return tx.Create(reply).Error
	})
}

// CreateFilePair 同事务持久化文件元数据与 file 类型伴随消息
func (r *MessageRepository) CreateFilePair(file *models.GroupFile, message *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		file.MessageID = message.ID
		return tx.Create(file).Error
	})
}

// GetByID 根据ID获取消息
func (r *MessageRepository) GetByID(id int64) (*models.Message, error) {
	var message models.Message
	if err := r.db.Preload("Sender").First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByGroup 按创建时间升序返回群组消息，时间相同时按ID稳定排序
func (r *MessageRepository) ListByGroup(groupID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("group_id = ?", groupID).
		Preload("Sender").
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// GetReplyFor 返回消息的回复链接，没有则返回 nil
func (r *MessageRepository) GetReplyFor(messageID int64) (*models.MessageReply, error) {
	var reply models.MessageReply
	err := r.db.Where("reply_message_id = ?", messageID).First(&reply).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reply, nil
}

// CountReplyLinks 统计引用该消息的回复链接（任一方向），测试与级联校验用
func (r *MessageRepository) CountReplyLinks(messageID int64) (int64, error) {
	var count int64
	err := r.db.Model(&models.MessageReply{}).
		Where("reply_message_id = ? OR original_message_id = ?", messageID, messageID).
		Count(&count).Error
	return count, err
}

// DeleteCascade 删除消息及其派生行：文件链接、双向回复链接、置顶记录，
// 全部在一个事务内
func (r *MessageRepository) DeleteCascade(messageID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", messageID).
			Delete(&models.GroupFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reply_message_id = ? OR original_message_id = ?", messageID, messageID).
			Delete(&models.MessageReply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", messageID).
			Delete(&models.PinnedMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, messageID).Error
	})
}

// Pin 置顶消息。已置顶时只刷新 PinnedAt（幂等）
func (r *MessageRepository) Pin(groupID uint, messageID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.PinnedMessage
		err := tx.Where("message_id = ?", messageID).First(&existing).Error
		if err == nil {
			return tx.Model(&existing).Update("pinned_at", time.Now()).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		pin := &models.PinnedMessage{
			GroupID:   groupID,
			MessageID: messageID,
			PinnedAt:  time.Now(),
		}
		return tx.Create(pin).Error
	})
}

// Unpin 取消置顶。未置顶时为 no-op
func (r *MessageRepository) Unpin(messageID int64) error {
	return r.db.Where("message_id = ?", messageID).
		Delete(&models.PinnedMessage{}).Error
}

// ListPinned 按置顶时间倒序返回群组置顶消息
func (r *MessageRepository) ListPinned(groupID uint) ([]models.PinnedMessage, error) {
	var pins []models.PinnedMessage
	err := r.db.Where("group_id = ?", groupID).
		Preload("Message").
		Preload("Message.Sender").
		Order("pinned_at DESC").
		Find(&pins).Error
	return pins, err
}

// GetFileByID 根据ID获取文件元数据
func (r *MessageRepository) GetFileByID(fileID int64) (*models.GroupFile, error) {
	var file models.GroupFile
	if err := r.db.First(&file, fileID).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// GetFileByMessageID 返回伴随消息对应的文件元数据，没有则返回 nil
func (r *MessageRepository) GetFileByMessageID(messageID int64) (*models.GroupFile, error) {
	var file models.GroupFile
	err := r.db.Where("message_id = ?", messageID).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}
