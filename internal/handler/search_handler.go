package handler

import (
	"net/http"
	"strconv"

	"grant-trust-go/internal/service"
	"grant-trust-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了记忆检索相关的处理器。
type SearchHandler struct {
	generationService service.GenerationService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(generationService service.GenerationService) *SearchHandler {
	return &SearchHandler{
		generationService: generationService,
	}
}

// SearchMemory 是处理机构记忆检索请求的 Gin 处理函数。
// 只做检索，不触发生成，用于来源浏览和素材查找。
func (h *SearchHandler) SearchMemory(c *gin.Context) {
	query := c.Query("query")
	log.Infof("[SearchHandler] 收到记忆检索请求, query_len: %d", len(query))

	if query == "" {
		log.Warnf("[SearchHandler] 检索请求失败: query 参数为空")
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的查询参数"})
		return
	}
	topKStr := c.DefaultQuery("topK", "10")
	topK, err := strconv.Atoi(topKStr)
	if err != nil || topK <= 0 {
		topK = 10
	}

	user, err := currentUser(c)
	if err != nil {
		return
	}

	results, err := h.generationService.SearchMemory(c.Request.Context(), query, user.TenantID, topK)
	if err != nil {
		log.Errorf("[SearchHandler] 记忆检索服务返回错误, error: %v", err)
		c.JSON(statusForError(err), gin.H{"code": statusForError(err), "message": "检索失败"})
		return
	}

	log.Infof("[SearchHandler] 记忆检索成功, 返回 %d 条结果", len(results))
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": results, "message": "success"})
}
