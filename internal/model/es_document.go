package model

import "time"

// EsDocument 定义了存储在 Elasticsearch 记忆索引中的分块文档结构。
// tenant_id 是命名空间字段：所有写入和查询都必须携带它，实现结构性的租户隔离。
type EsDocument struct {
	VectorID        string    `json:"vector_id"` // 唯一标识，documentId + chunkIndex
	TenantID        string    `json:"tenant_id"`
	DocumentID      string    `json:"document_id"`
	DocumentName    string    `json:"document_name"`
	GrantID         string    `json:"grant_id,omitempty"`
	ChunkIndex      int       `json:"chunk_index"`
	TextContent     string    `json:"text_content"`
	Vector          []float32 `json:"vector"` // 文本内容的向量表示
	ModelVersion    string    `json:"model_version"`
	ParseConfidence int       `json:"parse_confidence"`
	CreatedAt       time.Time `json:"created_at"`
}
