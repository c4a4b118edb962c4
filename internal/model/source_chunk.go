package model

import "time"

// SourceChunk 是一次检索返回的单个来源分块。
// 每个请求重新计算，返回后不可变，并始终携带足以回溯到所属文档的标识。
type SourceChunk struct {
	DocumentID      string     `json:"documentId"`
	DocumentName    string     `json:"documentName"`
	Text            string     `json:"text"`
	ChunkIndex      int        `json:"chunkIndex"`
	SimilarityScore float64    `json:"similarityScore"`          // [0,1]，余弦相似度
	ParseConfidence int        `json:"parseConfidence,omitempty"` // 0-100，所属文档的解析置信度
	CreatedAt       *time.Time `json:"createdAt,omitempty"`       // 所属文档的入库时间
}
