package handler

import (
	"net/http"
	"strconv"

	"grant-trust-go/internal/service"
	"grant-trust-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责文档上传、查询和删除的 API 请求。
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Upload 处理文档上传请求（multipart form）。
// 上传成功即返回登记结果，解析和索引由后台管线异步完成，
// 客户端可通过 Get 轮询文档状态。
func (h *DocumentHandler) Upload(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Warnf("[DocumentHandler] 上传请求缺少文件, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "file 字段不能为空"})
		return
	}
	grantID := c.PostForm("grantId")

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("[DocumentHandler] 打开上传文件失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取上传文件失败"})
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(c.Request.Context(), file, fileHeader.Size, fileHeader.Filename, user.TenantID, grantID)
	if err != nil {
		log.Errorf("[DocumentHandler] 文档上传失败, FileName: %s, error: %v", fileHeader.Filename, err)
		c.JSON(statusForError(err), gin.H{"code": statusForError(err), "message": err.Error()})
		return
	}

	log.Infof("[DocumentHandler] 文档上传成功, DocumentID: %s", doc.ID)
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": doc, "message": "success"})
}

// List 分页返回当前租户的文档列表。
func (h *DocumentHandler) List(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	docs, total, err := h.documentService.List(user.TenantID, page, size)
	if err != nil {
		log.Errorf("[DocumentHandler] 查询文档列表失败, error: %v", err)
		c.JSON(statusForError(err), gin.H{"code": statusForError(err), "message": "查询文档列表失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{
		"documents": docs,
		"total":     total,
	}, "message": "success"})
}

// Get 返回单个文档的元数据，含解析置信度和索引状态。
func (h *DocumentHandler) Get(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		return
	}

	doc, err := h.documentService.Get(c.Param("id"), user.TenantID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"code": statusForError(err), "message": err.Error()})
		return
	}

	// 下载链接是附带信息，生成失败不影响元数据查询
	downloadURL, err := h.documentService.DownloadURL(doc)
	if err != nil {
		log.Warnf("[DocumentHandler] 生成下载链接失败, id: %s, error: %v", doc.ID, err)
		downloadURL = ""
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{
		"document":    doc,
		"downloadUrl": downloadURL,
	}, "message": "success"})
}

// Delete 删除文档及其全部派生数据。
func (h *DocumentHandler) Delete(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), c.Param("id"), user.TenantID); err != nil {
		log.Errorf("[DocumentHandler] 删除文档失败, id: %s, error: %v", c.Param("id"), err)
		c.JSON(statusForError(err), gin.H{"code": statusForError(err), "message": err.Error()})
		return
	}

	log.Infof("[DocumentHandler] 文档删除成功, id: %s", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "文档删除成功"})
}
