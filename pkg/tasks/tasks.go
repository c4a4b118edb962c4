// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentIngestTask represents the data structure for a document ingestion job.
// 消费端据此从对象存储取回文件，完成解析、打分、分块、向量化和索引。
type DocumentIngestTask struct {
	DocumentID string `json:"document_id"`
	TenantID   string `json:"tenant_id"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
	GrantID    string `json:"grant_id,omitempty"`
}
