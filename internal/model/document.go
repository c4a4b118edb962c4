package model

import "time"

// 文档处理状态。
const (
	DocumentStatusPending = 0 // 已登记，等待入库管线处理
	DocumentStatusIndexed = 1 // 已解析并完成向量索引
	DocumentStatusFailed  = 2 // 处理失败
)

// Document 对应于数据库中的 documents 表。
// 它记录了每个入库文档的元数据与解析置信度，检索端据此回填来源的解析质量。
type Document struct {
	ID              string     `gorm:"type:varchar(36);primaryKey;column:id" json:"id"`
	TenantID        string     `gorm:"type:varchar(36);not null;index;column:tenant_id" json:"tenantId"`
	GrantID         *string    `gorm:"type:varchar(36);index;column:grant_id" json:"grantId"`
	FileName        string     `gorm:"type:varchar(255);not null;column:file_name" json:"fileName"`
	ObjectName      string     `gorm:"type:varchar(255);not null;column:object_name" json:"objectName"`
	SourceFormat    string     `gorm:"type:varchar(20);column:source_format" json:"sourceFormat"` // pdf / docx / txt ...
	Status          int        `gorm:"type:tinyint;not null;default:0;column:status" json:"status"`
	ParseConfidence int        `gorm:"not null;default:0;column:parse_confidence" json:"parseConfidence"`
	ParseLevel      string     `gorm:"type:varchar(10);column:parse_level" json:"parseLevel"`
	TextChars       int        `gorm:"not null;default:0;column:text_chars" json:"textChars"`
	WordCount       int        `gorm:"not null;default:0;column:word_count" json:"wordCount"`
	DateCount       int        `gorm:"not null;default:0;column:date_count" json:"dateCount"`
	ChunkCount      int        `gorm:"not null;default:0;column:chunk_count" json:"chunkCount"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;column:created_at" json:"createdAt"`
	IndexedAt       *time.Time `gorm:"default:null;column:indexed_at" json:"indexedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// DocumentChunk 对应于数据库中的 document_chunks 表。
// 入库管线先把分块文本落库，再读回做批量向量化，保证处理可重入。
type DocumentChunk struct {
	ID           uint   `gorm:"primaryKey;autoIncrement;column:id"`
	DocumentID   string `gorm:"type:varchar(36);not null;index;column:document_id"`
	TenantID     string `gorm:"type:varchar(36);not null;index;column:tenant_id"`
	ChunkIndex   int    `gorm:"not null;column:chunk_index"`
	TextContent  string `gorm:"type:text;column:text_content"`
	ModelVersion string `gorm:"type:varchar(50);column:model_version"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// ParseMetadata 是解析置信度打分的输入，由入库管线在文本抽取后填充。
type ParseMetadata struct {
	Text         string
	SourceFormat string
	DateCount    int
	HasAmounts   bool
	HasNames     bool
	HasOrgs      bool
}
