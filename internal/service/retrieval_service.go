package service

import (
	"context"
	"fmt"

	"grant-trust-go/internal/model"
	"grant-trust-go/pkg/embedding"
	"grant-trust-go/pkg/log"
)

// RetrievalService 接口定义了租户隔离的语义检索操作。
type RetrievalService interface {
	// Retrieve 返回按相似度降序排列、最多 topK 条且相似度不低于 minScore 的来源分块。
	// topK/minScore 传零值时使用配置的默认值。
	Retrieve(ctx context.Context, query, tenantID string, topK int, minScore float64) ([]model.SourceChunk, error)
}

type retrievalService struct {
	embeddingClient embedding.Client
	searcher        VectorSearcher
	defaultTopK     int
	defaultMinScore float64
}

// NewRetrievalService 创建一个新的 RetrievalService 实例。
// embeddingClient 或 searcher 为 nil 表示未配置：此时检索恒返回空集而不报错，
// 下游对"未配置"和"没有命中"一视同仁。
func NewRetrievalService(embeddingClient embedding.Client, searcher VectorSearcher, defaultTopK int, defaultMinScore float64) RetrievalService {
	return &retrievalService{
		embeddingClient: embeddingClient,
		searcher:        searcher,
		defaultTopK:     defaultTopK,
		defaultMinScore: defaultMinScore,
	}
}

// Retrieve 执行向量化和命名空间内的相似度查询，并做阈值过滤。
// 向量化本身失败时错误必须向上传播：用不完整的检索结果算出的置信度比没有答案更糟。
func (s *retrievalService) Retrieve(ctx context.Context, query, tenantID string, topK int, minScore float64) ([]model.SourceChunk, error) {
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if minScore <= 0 {
		minScore = s.defaultMinScore
	}
	log.Infof("[RetrievalService] 开始检索, tenant: %s, topK: %d, minScore: %.2f", tenantID, topK, minScore)

	if s.embeddingClient == nil || s.searcher == nil {
		log.Warnf("[RetrievalService] 检索组件未配置, 返回空结果")
		return []model.SourceChunk{}, nil
	}

	// 1. 向量化查询
	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("[RetrievalService] 向量化查询失败: %v", err)
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	log.Infof("[RetrievalService] 向量化查询成功, 向量维度: %d", len(queryVector))

	// 2. 在租户命名空间内做相似度查询
	hits, err := s.searcher.Search(ctx, tenantID, queryVector, topK)
	if err != nil {
		return nil, err
	}
	log.Infof("[RetrievalService] 索引返回 %d 条命中", len(hits))

	// 3. 过滤低于阈值或文本为空的命中。
	// 命中已按相似度降序返回，同分保持索引返回顺序，这里不再重排。
	sources := make([]model.SourceChunk, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < minScore || hit.Doc.TextContent == "" {
			continue
		}
		chunk := model.SourceChunk{
			DocumentID:      hit.Doc.DocumentID,
			DocumentName:    hit.Doc.DocumentName,
			Text:            hit.Doc.TextContent,
			ChunkIndex:      hit.Doc.ChunkIndex,
			SimilarityScore: hit.Score,
			ParseConfidence: hit.Doc.ParseConfidence,
		}
		if !hit.Doc.CreatedAt.IsZero() {
			createdAt := hit.Doc.CreatedAt
			chunk.CreatedAt = &createdAt
		}
		sources = append(sources, chunk)
		if len(sources) == topK {
			break
		}
	}

	log.Infof("[RetrievalService] 检索完成, 过滤后返回 %d 条来源", len(sources))
	return sources, nil
}
