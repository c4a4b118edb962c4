package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"grant-trust-go/internal/model"
	"grant-trust-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// VectorHit 是向量索引返回的一条命中。
type VectorHit struct {
	Doc   model.EsDocument
	Score float64 // [0,1]，余弦相似度
}

// VectorSearcher 抽象了按租户命名空间的向量相似度查询。
// 检索服务只依赖该接口，测试时用内存实现替换。
type VectorSearcher interface {
	Search(ctx context.Context, tenantID string, vector []float32, topK int) ([]VectorHit, error)
}

type esVectorSearcher struct {
	esClient  *elasticsearch.Client
	indexName string
}

// NewESVectorSearcher 创建基于 Elasticsearch 的 VectorSearcher。
func NewESVectorSearcher(esClient *elasticsearch.Client, indexName string) VectorSearcher {
	return &esVectorSearcher{esClient: esClient, indexName: indexName}
}

// Search 执行 kNN 查询。tenant_id 过滤内嵌在 knn 子句里：
// 不带租户的查询在这里根本构造不出来，隔离是结构性的而不是约定性的。
func (s *esVectorSearcher) Search(ctx context.Context, tenantID string, vector []float32, topK int) ([]VectorHit, error) {
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": topK * 10,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{"tenant_id": tenantID},
			},
		},
		"size": topK,
		"_source": map[string]interface{}{
			"excludes": []string{"vector"},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(s.indexName),
		s.esClient.Search.WithBody(&buf),
	)
	if err != nil {
		log.Errorf("[VectorSearcher] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[VectorSearcher] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsDocument `json:"_source"`
				Score  float64          `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]VectorHit, 0, len(esResponse.Hits.Hits))
	for _, h := range esResponse.Hits.Hits {
		hits = append(hits, VectorHit{Doc: h.Source, Score: h.Score})
	}
	return hits, nil
}
