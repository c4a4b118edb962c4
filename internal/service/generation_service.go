package service

import (
	"context"
	"fmt"
	"strings"

	"grant-trust-go/internal/model"
	"grant-trust-go/pkg/llm"
	"grant-trust-go/pkg/log"
)

// GenerationService 是置信度门控生成管线的编排层，也是暴露给路由层的核心入口。
type GenerationService interface {
	// GenerateGrounded 执行完整管线：检索 → 检索置信度 → 信任闸门 → 生成 →
	// 生成置信度 → 审计入账。闸门拦截不是错误：返回携带来源和说明的成功响应。
	GenerateGrounded(ctx context.Context, req model.GenerationRequest, user *model.User) (*model.GenerationOutcome, error)
	// SearchMemory 只做检索，不触发生成，也不写审计。
	SearchMemory(ctx context.Context, query, tenantID string, limit int) ([]model.SourceChunk, error)
}

type generationService struct {
	retrievalService  RetrievalService
	confidenceService ConfidenceService
	gate              TrustGate
	llmClient         llm.Client
	auditService      AuditService
}

// NewGenerationService 创建一个新的 GenerationService 实例。
func NewGenerationService(
	retrievalService RetrievalService,
	confidenceService ConfidenceService,
	gate TrustGate,
	llmClient llm.Client,
	auditService AuditService,
) GenerationService {
	return &generationService{
		retrievalService:  retrievalService,
		confidenceService: confidenceService,
		gate:              gate,
		llmClient:         llmClient,
		auditService:      auditService,
	}
}

// GenerateGrounded 编排一次生成请求的全部阶段。
func (s *generationService) GenerateGrounded(ctx context.Context, req model.GenerationRequest, user *model.User) (*model.GenerationOutcome, error) {
	// 1. 入参校验，任何网络调用之前完成
	if err := validateRequest(&req, user); err != nil {
		return nil, err
	}
	log.Infof("[GenerationService] 开始生成管线, tenant: %s, mode: %s, query_len: %d",
		user.TenantID, req.Mode, len(req.Query))

	// 2. 检索。检索置信度必须基于完整的结果集计算，不做流式的部分判定。
	sources, err := s.retrievalService.Retrieve(ctx, req.Query, user.TenantID, req.TopK, req.MinScore)
	if err != nil {
		// 检索失败会污染置信度计算，中止整个请求，也不写审计
		return nil, NewDomainError(ErrorTypeExternal, "retrieval failed", err)
	}

	// 3. 检索置信度
	retrievalConf := s.confidenceService.ScoreRetrieval(sources)
	log.Infof("[GenerationService] 检索置信度: %d (%s), sources: %d",
		retrievalConf.Score, retrievalConf.Level, len(sources))

	actx := AuditContext{
		TenantID:  user.TenantID,
		UserID:    user.ID,
		GrantID:   req.GrantID,
		SectionID: req.SectionID,
		Mode:      req.Mode,
	}

	// 4. 信任闸门：低于阈值直接拦截，跳过模型调用
	decision := s.gate.Decide(retrievalConf)
	if !decision.Proceed {
		outcome := &model.GenerationOutcome{
			ShouldGenerate: false,
			Content:        nil,
			Confidence:     retrievalConf.ConfidenceResult,
			ShouldDisplay:  false,
			Sources:        sources,
			Message:        retrievalConf.Message,
		}
		s.recordAudit(ctx, req.Query, "", sources, retrievalConf.ConfidenceResult, "", 0, actx, outcome)
		return outcome, nil
	}

	// 5. 生成：带模式化系统提示和来源标注的用户消息
	systemPrompt := buildSystemPrompt(req.Mode)
	userMessage := buildUserMessage(req.Query, sources)
	completion, err := s.llmClient.Complete(ctx, systemPrompt, userMessage, nil)
	if err != nil {
		// 模型调用失败不自动重试：重试只会翻倍成本，不会改变闸门判定
		return nil, NewDomainError(ErrorTypeExternal, "generation failed", err)
	}

	// 6. 生成置信度：对完整文本打分，之后才决定展示方式
	generationConf := s.confidenceService.ScoreGeneration(completion.Content, sources, req.Query)
	log.Infof("[GenerationService] 生成置信度: %d (%s), tokens: %d",
		generationConf.Score, generationConf.Level, completion.TotalTokens())

	content := completion.Content
	outcome := &model.GenerationOutcome{
		ShouldGenerate: true,
		Content:        &content,
		Confidence:     generationConf.ConfidenceResult,
		ShouldDisplay:  generationConf.ShouldDisplay,
		Sources:        sources,
		Message:        generationConf.Message,
	}

	// 7. 审计入账
	s.recordAudit(ctx, req.Query, completion.Content, sources, generationConf.ConfidenceResult,
		completion.Model, completion.TotalTokens(), actx, outcome)

	return outcome, nil
}

// SearchMemory 只读检索，供来源浏览类场景使用。
func (s *generationService) SearchMemory(ctx context.Context, query, tenantID string, limit int) ([]model.SourceChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if tenantID == "" {
		return nil, ErrInvalidTenant
	}
	return s.retrievalService.Retrieve(ctx, query, tenantID, limit, 0)
}

// recordAudit 写入审计记录并回填 auditId。
// 审计失败不反转已完成的管线结果，只记错误日志，auditId 留空。
func (s *generationService) recordAudit(ctx context.Context, prompt, content string, sources []model.SourceChunk,
	confidence model.ConfidenceResult, modelName string, tokensUsed int, actx AuditContext, outcome *model.GenerationOutcome) {

	auditID, err := s.auditService.Record(ctx, prompt, content, sources, confidence, modelName, tokensUsed, actx)
	if err != nil {
		log.Errorf("[GenerationService] 审计入账失败: %v", err)
		return
	}
	outcome.AuditID = &auditID
}

// validateRequest 校验请求并补全默认写作模式。
func validateRequest(req *model.GenerationRequest, user *model.User) error {
	if user == nil || user.TenantID == "" {
		return ErrInvalidTenant
	}
	if strings.TrimSpace(req.Query) == "" {
		return ErrEmptyQuery
	}
	if len([]rune(req.Query)) > MaxQueryLength {
		return ErrQueryTooLong
	}
	if req.Mode == "" {
		req.Mode = model.ModeMemoryAssist
	}
	if !model.ValidWritingMode(req.Mode) {
		return ErrInvalidMode
	}
	return nil
}

// buildSystemPrompt 按写作模式返回系统提示词。
// 共同的约束是只允许使用来源中出现的事实；这是提示词层面的契约，
// 机械校验由之后的生成置信度打分承担。
func buildSystemPrompt(mode model.WritingMode) string {
	const groundingRules = "You are a grant-writing assistant. Use ONLY facts that appear in the provided sources. " +
		"Never invent statistics, names, dates, or commitments that are not present in the sources. " +
		"If the sources do not cover something, say so instead of guessing."

	switch mode {
	case model.ModeAIDraft:
		return groundingRules + " Write a complete, well-structured draft of the requested section."
	case model.ModeHumanFirst:
		return groundingRules + " The user is writing this section personally. Respond with at most a short list of " +
			"relevant facts from the sources, without drafting any prose for them."
	default: // memory_assist
		return groundingRules + " Suggest concrete talking points and passages the user could adapt, citing the source label for each."
	}
}

// buildUserMessage 将查询和带标签的来源块拼装成用户消息。
// 每个来源块都带可引用的编号、文档名和相关度，便于模型按来源组织内容。
func buildUserMessage(query string, sources []model.SourceChunk) string {
	var b strings.Builder
	b.WriteString("Request: ")
	b.WriteString(query)
	b.WriteString("\n\nSources:\n")
	for i, src := range sources {
		b.WriteString(fmt.Sprintf("[S%d] %s (relevance %d%%)\n%s\n\n",
			i+1, src.DocumentName, round(src.SimilarityScore*100), src.Text))
	}
	return b.String()
}
