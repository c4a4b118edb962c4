package service

import (
	"context"
	"fmt"

	"grant-trust-go/internal/model"
	"grant-trust-go/internal/repository"
	"grant-trust-go/pkg/log"

	"github.com/google/uuid"
)

// AuditContext 是一次生成管线调用的调用方上下文。
type AuditContext struct {
	TenantID  string
	UserID    uint
	GrantID   *string
	SectionID *string
	Mode      model.WritingMode
}

// AuditService 负责生成管线的审计入账与查询。
// 每次管线调用恰好入账一条，无论闸门是否放行；记录落库后不可变。
type AuditService interface {
	Record(ctx context.Context, prompt, content string, sources []model.SourceChunk,
		confidence model.ConfidenceResult, modelName string, tokensUsed int, actx AuditContext) (string, error)
	Query(ctx context.Context, filter repository.AuditFilter) (*repository.AuditPage, error)
	Get(ctx context.Context, tenantID, id string) (*model.AuditRecord, error)
}

type auditService struct {
	auditRepo repository.AuditRecordRepository
}

// NewAuditService 创建一个新的 AuditService 实例。
func NewAuditService(auditRepo repository.AuditRecordRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// Record 追加写入一条审计记录并返回其 ID。
// 来源列表完整入库，不做截断：审计的意义就在于事后能还原整个决策。
func (s *auditService) Record(ctx context.Context, prompt, content string, sources []model.SourceChunk,
	confidence model.ConfidenceResult, modelName string, tokensUsed int, actx AuditContext) (string, error) {

	record := &model.AuditRecord{
		ID:              uuid.New().String(),
		TenantID:        actx.TenantID,
		UserID:          actx.UserID,
		GrantID:         actx.GrantID,
		SectionID:       actx.SectionID,
		Prompt:          prompt,
		Content:         content,
		ConfidenceScore: confidence.Score,
		ConfidenceLevel: string(confidence.Level),
		Model:           modelName,
		TokensUsed:      tokensUsed,
		WritingMode:     string(actx.Mode),
	}
	if err := record.SetSources(sources); err != nil {
		return "", fmt.Errorf("failed to serialize audit sources: %w", err)
	}

	if err := s.auditRepo.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to persist audit record: %w", err)
	}

	log.Infof("[AuditService] 审计入账成功, id: %s, tenant: %s, score: %d, sources: %d",
		record.ID, record.TenantID, record.ConfidenceScore, len(sources))
	return record.ID, nil
}

// Query 按过滤条件分页查询审计记录。
func (s *auditService) Query(ctx context.Context, filter repository.AuditFilter) (*repository.AuditPage, error) {
	if filter.TenantID == "" {
		return nil, ErrInvalidTenant
	}
	return s.auditRepo.Query(ctx, filter)
}

// Get 在租户范围内按 ID 获取单条审计记录。
func (s *auditService) Get(ctx context.Context, tenantID, id string) (*model.AuditRecord, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenant
	}
	return s.auditRepo.FindByID(ctx, tenantID, id)
}
