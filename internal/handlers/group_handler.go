package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-io/studyhub/internal/services"
)

// GroupHandler 群组处理器
type GroupHandler struct {
	groupService *services.GroupService
}

// NewGroupHandler 创建群组处理器实例
func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
	}
}

func groupIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("groupId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, false
	}
	return uint(id), true
}

// CreateGroup 创建群组
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req services.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupService.CreateGroup(userID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, group)
}

// GetGroup 获取群组信息
func (h *GroupHandler) GetGroup(c *gin.Context) {
	groupID, valid := groupIDParam(c)
	if !valid {
		return
	}

	group, err := h.groupService.GetGroup(groupID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, group)
}

// AddMemberRequest 添加成员请求
type AddMemberRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

// AddMember 添加群组成员
func (h *GroupHandler) AddMember(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	groupID, valid := groupIDParam(c)
	if !valid {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.groupService.AddMember(userID, groupID, req.UserID, req.Role); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, nil)
}

// RemoveMember 移除群组成员
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	groupID, valid := groupIDParam(c)
	if !valid {
		return
	}
	memberID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.groupService.RemoveMember(userID, groupID, uint(memberID)); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, nil)
}

// ListMembers 群组成员列表
func (h *GroupHandler) ListMembers(c *gin.Context) {
	groupID, valid := groupIDParam(c)
	if !valid {
		return
	}

	members, err := h.groupService.ListMembers(groupID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, members)
}

// MyGroups 当前用户所在的群组ID列表
func (h *GroupHandler) MyGroups(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ids, err := h.groupService.GetUserGroupIDs(userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, ids)
}
