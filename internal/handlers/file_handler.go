package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-io/studyhub/internal/models"
	"github.com/studyhub-io/studyhub/internal/services"
	log "github.com/studyhub-io/studyhub/middleware/log"
	"github.com/studyhub-io/studyhub/pkg/filestore"
)

// FileHandler 群组文件处理器。内容先写进文件存储，
// 元数据和伴随消息再进数据库；数据库失败时尽力清理已写的内容
type FileHandler struct {
	msgService *services.MessageService
	store      filestore.Store
	logger     *log.Logger
}

// NewFileHandler 创建文件处理器实例
func NewFileHandler(msgService *services.MessageService, store filestore.Store, logger *log.Logger) *FileHandler {
	return &FileHandler{
		msgService: msgService,
		store:      store,
		logger:     logger,
	}
}

// Upload 上传文件到群组（multipart form，字段名 file）
func (h *FileHandler) Upload(c *gin.Context) {
	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	groupID, valid := groupIDParam(c)
	if !valid {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	key, size, err := h.store.Save(fileHeader.Filename, src)
	if err != nil {
		abortWithError(c, err)
		return
	}

	file := &models.GroupFile{
		GroupID:          groupID,
		OriginalFilename: fileHeader.Filename,
		StoredKey:        key,
		ContentType:      fileHeader.Header.Get("Content-Type"),
		Size:             size,
	}

	fileDTO, msgDTO, err := h.msgService.AttachFile(userID, file)
	if err != nil {
		if removeErr := h.store.Remove(key); removeErr != nil && h.logger != nil {
			h.logger.Warn(fmt.Sprintf("清理上传文件失败: key=%s err=%v", key, removeErr))
		}
		abortWithError(c, err)
		return
	}

	ok(c, gin.H{"file": fileDTO, "message": msgDTO})
}

// Download 下载群组文件
func (h *FileHandler) Download(c *gin.Context) {
	fileID, err := strconv.ParseInt(c.Param("fileId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	file, err := h.msgService.GetFile(fileID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	content, err := h.store.Open(file.StoredKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file content missing"})
		return
	}
	defer content.Close()

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalFilename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	io.Copy(c.Writer, content)
}
