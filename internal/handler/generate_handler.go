package handler

import (
	"net/http"

	"grant-trust-go/internal/model"
	"grant-trust-go/internal/service"
	"grant-trust-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// GenerateHandler 负责处理置信度门控生成相关的 API 请求。
type GenerateHandler struct {
	generationService service.GenerationService
}

// NewGenerateHandler 创建一个新的 GenerateHandler 实例。
func NewGenerateHandler(generationService service.GenerationService) *GenerateHandler {
	return &GenerateHandler{generationService: generationService}
}

// GenerateRequest 定义了生成 API 的请求体结构。
type GenerateRequest struct {
	Query     string  `json:"query" binding:"required"`
	Mode      string  `json:"mode"`
	GrantID   *string `json:"grantId"`
	SectionID *string `json:"sectionId"`
	TopK      int     `json:"topK"`
	MinScore  float64 `json:"minScore"`
}

// Generate 处理生成请求。
// 闸门拦截和低置信度展示都不是 HTTP 错误：响应体里的 shouldGenerate /
// shouldDisplay / confidence 字段携带了判定结果，由前端决定呈现方式。
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[GenerateHandler] 无效的请求负载, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "query 不能为空"})
		return
	}

	user, err := currentUser(c)
	if err != nil {
		return
	}

	outcome, err := h.generationService.GenerateGrounded(c.Request.Context(), model.GenerationRequest{
		Query:     req.Query,
		Mode:      model.WritingMode(req.Mode),
		GrantID:   req.GrantID,
		SectionID: req.SectionID,
		TopK:      req.TopK,
		MinScore:  req.MinScore,
	}, user)
	if err != nil {
		log.Errorf("[GenerateHandler] 生成管线返回错误, error: %v", err)
		c.JSON(statusForError(err), gin.H{"code": statusForError(err), "message": err.Error()})
		return
	}

	log.Infof("[GenerateHandler] 生成请求完成, generated: %t, confidence: %d",
		outcome.ShouldGenerate, outcome.Confidence.Score)
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": outcome, "message": "success"})
}

// currentUser 从 Gin 上下文取出认证中间件注入的用户对象。
func currentUser(c *gin.Context) (*model.User, error) {
	userValue, exists := c.Get("user")
	if !exists {
		log.Errorf("[Handler] 无法从 Gin 上下文中获取用户信息")
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法获取用户信息"})
		return nil, service.ErrInvalidTenant
	}
	user, ok := userValue.(*model.User)
	if !ok || user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "用户数据类型错误"})
		return nil, service.ErrInvalidTenant
	}
	return user, nil
}
