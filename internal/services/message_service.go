package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/studyhub-io/studyhub/internal/models"
	"github.com/studyhub-io/studyhub/internal/repositories"
	"github.com/studyhub-io/studyhub/utils/snowflake"
)

// MessageService 消息服务。消息ID由雪花算法生成，创建时间从ID反解，
// 保证同群组内时间戳单调不减
type MessageService struct {
	messageRepo *repositories.MessageRepository
	groupRepo   *repositories.GroupRepository
	userRepo    *repositories.UserRepository
	idGen       *snowflake.Generator
	broadcaster Broadcaster
}

// NewMessageService 创建消息服务实例
func NewMessageService(
	messageRepo *repositories.MessageRepository,
	groupRepo *repositories.GroupRepository,
	userRepo *repositories.UserRepository,
	idGen *snowflake.Generator,
	broadcaster Broadcaster,
) *MessageService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &MessageService{
		messageRepo: messageRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		idGen:       idGen,
		broadcaster: broadcaster,
	}
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	GroupID   uint   `json:"group_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
	MsgType   string `json:"msg_type"`
	ReplyToID int64  `json:"reply_to_id"`
}

// MessageDTO 消息数据传输对象
type MessageDTO struct {
	ID        int64    `json:"id"`
	GroupID   uint     `json:"group_id"`
	SenderID  uint     `json:"sender_id"`
	Sender    *UserDTO `json:"sender,omitempty"`
	Content   string   `json:"content"`
	MsgType   string   `json:"msg_type"`
	ReplyToID *int64   `json:"reply_to_id,omitempty"`
	FileID    *int64   `json:"file_id,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// PinnedMessageDTO 置顶消息数据传输对象
type PinnedMessageDTO struct {
	MessageDTO
	PinnedAt string `json:"pinned_at"`
}

// FileDTO 群组文件数据传输对象
type FileDTO struct {
	ID               int64  `json:"id"`
	GroupID          uint   `json:"group_id"`
	UploaderID       uint   `json:"uploader_id"`
	MessageID        int64  `json:"message_id"`
	OriginalFilename string `json:"original_filename"`
	ContentType      string `json:"content_type"`
	Size             int64  `json:"size"`
	CreatedAt        string `json:"created_at"`
}

func toMessageDTO(msg *models.Message) *MessageDTO {
	return &MessageDTO{
		ID:        msg.ID,
		GroupID:   msg.GroupID,
		SenderID:  msg.SenderID,
		Sender:    toUserDTO(msg.Sender),
		Content:   msg.Content,
		MsgType:   msg.MsgType,
		CreatedAt: msg.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toFileDTO(file *models.GroupFile) *FileDTO {
	return &FileDTO{
		ID:               file.ID,
		GroupID:          file.GroupID,
		UploaderID:       file.UploaderID,
		MessageID:        file.MessageID,
		OriginalFilename: file.OriginalFilename,
		ContentType:      file.ContentType,
		Size:             file.Size,
		CreatedAt:        file.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// Send 发送消息。只校验群组和发送者存在；ReplyToID 指向本群组已存在
// 的消息时建立回复链接，否则静默跳过。落库成功后广播给群组订阅者
func (s *MessageService) Send(senderID uint, req *SendMessageRequest) (*MessageDTO, error) {
	if len(req.Content) == 0 || len(req.Content) > 5000 {
		return nil, fmt.Errorf("%w: message content invalid", ErrInvalidInput)
	}
	if req.MsgType == "" {
		req.MsgType = models.MsgTypeText
	}

	if _, err := s.groupRepo.GetByID(req.GroupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group %d", ErrNotFound, req.GroupID)
		}
		return nil, err
	}
	sender, err := s.userRepo.GetByID(senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, senderID)
		}
		return nil, err
	}

	id, err := s.idGen.NextID()
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ID:        id,
		GroupID:   req.GroupID,
		SenderID:  senderID,
		Content:   req.Content,
		MsgType:   req.MsgType,
		CreatedAt: s.idGen.TimeOf(id),
	}

	if err := s.messageRepo.CreateWithReply(message, req.ReplyToID); err != nil {
		return nil, err
	}

	dto := toMessageDTO(message)
	dto.Sender = toUserDTO(sender)
	if reply, err := s.messageRepo.GetReplyFor(message.ID); err == nil && reply != nil {
		dto.ReplyToID = &reply.OriginalMessageID
	}

	s.broadcaster.Publish(GroupDestination(message.GroupID), dto)
	return dto, nil
}

// ListGroupMessages 按时间升序返回群组消息，带回复链接
func (s *MessageService) ListGroupMessages(groupID uint) ([]MessageDTO, error) {
	messages, err := s.messageRepo.ListByGroup(groupID)
	if err != nil {
		return nil, err
	}

	dtos := make([]MessageDTO, 0, len(messages))
	for i := range messages {
		dto := toMessageDTO(&messages[i])
		if reply, err := s.messageRepo.GetReplyFor(messages[i].ID); err == nil && reply != nil {
			dto.ReplyToID = &reply.OriginalMessageID
		}
		if messages[i].MsgType == models.MsgTypeFile || messages[i].MsgType == models.MsgTypeDocument {
			if file, err := s.messageRepo.GetFileByMessageID(messages[i].ID); err == nil && file != nil {
				dto.FileID = &file.ID
			}
		}
		dtos = append(dtos, *dto)
	}
	return dtos, nil
}

// Delete 删除消息。只有发送者本人或群组 admin 可以删除；
// 级联清理文件链接、双向回复链接和置顶记录
func (s *MessageService) Delete(actorID uint, messageID int64) error {
	message, err := s.messageRepo.GetByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: message %d", ErrNotFound, messageID)
		}
		return err
	}

	if message.SenderID != actorID {
		role, err := s.groupRepo.GetMemberRole(message.GroupID, actorID)
		if err != nil {
			return err
		}
		if role != models.RoleAdmin {
			return fmt.Errorf("%w: only the sender or a group admin can delete a message", ErrUnauthorized)
		}
	}

	return s.messageRepo.DeleteCascade(messageID)
}

// AttachFile 记录已存储文件的元数据并创建 file 类型伴随消息，二者同事务。
// 伴随消息内容为原始文件名，随后广播给群组订阅者
func (s *MessageService) AttachFile(uploaderID uint, file *models.GroupFile) (*FileDTO, *MessageDTO, error) {
	if _, err := s.groupRepo.GetByID(file.GroupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: group %d", ErrNotFound, file.GroupID)
		}
		return nil, nil, err
	}
	sender, err := s.userRepo.GetByID(uploaderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: user %d", ErrNotFound, uploaderID)
		}
		return nil, nil, err
	}

	msgID, err := s.idGen.NextID()
	if err != nil {
		return nil, nil, err
	}
	fileID, err := s.idGen.NextID()
	if err != nil {
		return nil, nil, err
	}

	message := &models.Message{
		ID:        msgID,
		GroupID:   file.GroupID,
		SenderID:  uploaderID,
		Content:   file.OriginalFilename,
		MsgType:   models.MsgTypeFile,
		CreatedAt: s.idGen.TimeOf(msgID),
	}
	file.ID = fileID
	file.UploaderID = uploaderID
	file.CreatedAt = message.CreatedAt

	if err := s.messageRepo.CreateFilePair(file, message); err != nil {
		return nil, nil, err
	}

	msgDTO := toMessageDTO(message)
	msgDTO.Sender = toUserDTO(sender)
	msgDTO.FileID = &file.ID
	s.broadcaster.Publish(GroupDestination(file.GroupID), msgDTO)

	return toFileDTO(file), msgDTO, nil
}

// GetFile 获取文件元数据
func (s *MessageService) GetFile(fileID int64) (*models.GroupFile, error) {
	file, err := s.messageRepo.GetFileByID(fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file %d", ErrNotFound, fileID)
		}
		return nil, err
	}
	return file, nil
}

// Pin 置顶消息，群组成员均可操作。重复置顶只刷新置顶时间
func (s *MessageService) Pin(actorID uint, messageID int64) error {
	message, err := s.messageRepo.GetByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: message %d", ErrNotFound, messageID)
		}
		return err
	}

	role, err := s.groupRepo.GetMemberRole(message.GroupID, actorID)
	if err != nil {
		return err
	}
	if role == "" {
		return fmt.Errorf("%w: only group members can pin messages", ErrUnauthorized)
	}

	if err := s.messageRepo.Pin(message.GroupID, messageID); err != nil {
		return err
	}

	s.broadcaster.Publish(GroupDestination(message.GroupID), map[string]any{
		"event":      "pinned",
		"group_id":   message.GroupID,
		"message_id": messageID,
	})
	return nil
}

// Unpin 取消置顶，未置顶的消息取消是 no-op
func (s *MessageService) Unpin(actorID uint, messageID int64) error {
	message, err := s.messageRepo.GetByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: message %d", ErrNotFound, messageID)
		}
		return err
	}

	role, err := s.groupRepo.GetMemberRole(message.GroupID, actorID)
	if err != nil {
		return err
	}
	if role == "" {
		return fmt.Errorf("%w: only group members can unpin messages", ErrUnauthorized)
	}

	if err := s.messageRepo.Unpin(messageID); err != nil {
		return err
	}

	s.broadcaster.Publish(GroupDestination(message.GroupID), map[string]any{
		"event":      "unpinned",
		"group_id":   message.GroupID,
		"message_id": messageID,
	})
	return nil
}

// ListPinned 按置顶时间倒序返回群组置顶消息
func (s *MessageService) ListPinned(groupID uint) ([]PinnedMessageDTO, error) {
	pins, err := s.messageRepo.ListPinned(groupID)
	if err != nil {
		return nil, err
	}

	dtos := make([]PinnedMessageDTO, 0, len(pins))
	for i := range pins {
		if pins[i].Message == nil {
			continue
		}
		dtos = append(dtos, PinnedMessageDTO{
			MessageDTO: *toMessageDTO(pins[i].Message),
			PinnedAt:   pins[i].PinnedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return dtos, nil
}
