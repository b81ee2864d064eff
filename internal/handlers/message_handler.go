package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-io/studyhub/internal/services"
)

// MessageHandler 消息处理器
type MessageHandler struct {
	msgService *services.MessageService
}

// NewMessageHandler 创建消息处理器实例
func NewMessageHandler(msgService *services.MessageService) *MessageHandler {
	return &MessageHandler{
		msgService: msgService,
	}
}

func messageIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return id, true
}

// Send 发送消息（HTTP 入口，WebSocket 网关走同一个 Service）
func (h *MessageHandler) Send(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req services.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.msgService.Send(userID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, msg)
}

// List 群组消息列表，时间升序
func (h *MessageHandler) List(c *gin.Context) {
	groupID, valid := groupIDParam(c)
	if !valid {
		return
	}

	messages, err := h.msgService.ListGroupMessages(groupID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, messages)
}

// Delete 删除消息
func (h *MessageHandler) Delete(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	messageID, valid := messageIDParam(c)
	if !valid {
		return
	}

	if err := h.msgService.Delete(userID, messageID); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, nil)
}

// Pin 置顶消息
func (h *MessageHandler) Pin(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	messageID, valid := messageIDParam(c)
	if !valid {
		return
	}

	if err := h.msgService.Pin(userID, messageID); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, nil)
}

// Unpin 取消置顶
func (h *MessageHandler) Unpin(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	messageID, valid := messageIDParam(c)
	if !valid {
		return
	}

	if err := h.msgService.Unpin(userID, messageID); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, nil)
}

// ListPinned 群组置顶消息列表
func (h *MessageHandler) ListPinned(c *gin.Context) {
	groupID, valid := groupIDParam(c)
	if !valid {
		return
	}

	pins, err := h.msgService.ListPinned(groupID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, pins)
}
