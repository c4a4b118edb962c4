package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"grant-trust-go/internal/repository"
	"grant-trust-go/internal/service"
	"grant-trust-go/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuditHandler 负责审计记录的查询 API。审计记录只读，没有写入接口：
// 写入只发生在生成管线内部。
type AuditHandler struct {
	auditService service.AuditService
}

// NewAuditHandler 创建一个新的 AuditHandler 实例。
func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// Query 按过滤条件分页查询当前租户的审计记录。
// 支持 grantId / sectionId / from / to / minConfidence 过滤和游标分页。
func (h *AuditHandler) Query(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		return
	}

	filter := repository.AuditFilter{
		TenantID: user.TenantID,
		Cursor:   c.Query("cursor"),
	}
	if v := c.Query("grantId"); v != "" {
		filter.GrantID = &v
	}
	if v := c.Query("sectionId"); v != "" {
		filter.SectionID = &v
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "from 必须是 RFC3339 时间"})
			return
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "to 必须是 RFC3339 时间"})
			return
		}
		filter.To = &t
	}
	if v := c.Query("minConfidence"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "minConfidence 必须是 0-100 的整数"})
			return
		}
		filter.MinConfidence = &n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			filter.Limit = n
		}
	}

	page, err := h.auditService.Query(c.Request.Context(), filter)
	if err != nil {
		log.Errorf("[AuditHandler] 查询审计记录失败, error: %v", err)
		c.JSON(statusForError(err), gin.H{"code": statusForError(err), "message": "查询审计记录失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{
		"records":    page.Records,
		"hasMore":    page.HasMore,
		"nextCursor": page.NextCursor,
	}, "message": "success"})
}

// Get 获取单条审计记录，含完整的提示词、来源快照和置信度分量。
func (h *AuditHandler) Get(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		return
	}

	record, err := h.auditService.Get(c.Request.Context(), user.TenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "审计记录不存在"})
			return
		}
		log.Errorf("[AuditHandler] 获取审计记录失败, id: %s, error: %v", c.Param("id"), err)
		c.JSON(statusForError(err), gin.H{"code": statusForError(err), "message": "获取审计记录失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": record, "message": "success"})
}
