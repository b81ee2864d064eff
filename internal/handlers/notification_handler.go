package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-io/studyhub/internal/services"
)

// NotificationHandler 通知处理器。所有路由都只操作当前用户自己的通知
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler 创建通知处理器实例
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// List 通知列表，?unread=true 时只返回未读
func (h *NotificationHandler) List(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	onlyUnread := c.Query("unread") == "true"
	notifications, err := h.notificationService.List(userID, onlyUnread)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, notifications)
}

// UnreadCount 未读通知数
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	count, err := h.notificationService.UnreadCount(userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"unread": count})
}

// MarkRead 标记单条通知已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	notificationID, err := strconv.ParseUint(c.Param("notificationId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notificationService.MarkRead(userID, uint(notificationID)); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, nil)
}

// MarkAllRead 标记全部通知已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.notificationService.MarkAllRead(userID); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, nil)
}

// DeleteRead 删除全部已读通知
func (h *NotificationHandler) DeleteRead(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.notificationService.DeleteRead(userID); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, nil)
}

// DeleteBatchRequest 批量删除请求
type DeleteBatchRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// DeleteBatch 按ID批量删除通知，不属于当前用户的ID被忽略
func (h *NotificationHandler) DeleteBatch(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req DeleteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.notificationService.DeleteByIDs(userID, req.IDs); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, nil)
}
