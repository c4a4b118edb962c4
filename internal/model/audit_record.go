package model

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// AuditRecord 对应于数据库中的 audit_records 表。
// 每次生成管线调用（不论是否放行生成）追加写入一条，创建后不可变。
type AuditRecord struct {
	ID              string    `gorm:"type:varchar(36);primaryKey;column:id" json:"id"`
	TenantID        string    `gorm:"type:varchar(36);not null;index;column:tenant_id" json:"tenantId"`
	UserID          uint      `gorm:"not null;column:user_id" json:"userId"`
	GrantID         *string   `gorm:"type:varchar(36);index;column:grant_id" json:"grantId"`
	SectionID       *string   `gorm:"type:varchar(36);column:section_id" json:"sectionId"`
	Prompt          string    `gorm:"type:text;column:prompt" json:"prompt"`
	Content         string    `gorm:"type:text;column:content" json:"content"` // 被拦截时为空串
	SourcesJSON     string    `gorm:"type:mediumtext;column:sources" json:"-"` // 完整来源列表的 JSON，不截断
	ConfidenceScore int       `gorm:"not null;column:confidence_score" json:"confidenceScore"`
	ConfidenceLevel string    `gorm:"type:varchar(10);not null;column:confidence_level" json:"confidenceLevel"`
	Model           string    `gorm:"type:varchar(100);column:model" json:"model"`
	TokensUsed      int       `gorm:"not null;default:0;column:tokens_used" json:"tokensUsed"`
	WritingMode     string    `gorm:"type:varchar(20);column:writing_mode" json:"writingMode"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index;column:created_at" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (AuditRecord) TableName() string {
	return "audit_records"
}

// ErrAuditRecordImmutable 在尝试修改或删除已落库的审计记录时返回。
var ErrAuditRecordImmutable = errors.New("audit records are append-only and cannot be modified")

// BeforeUpdate 拒绝任何对已存在审计记录的更新。
func (AuditRecord) BeforeUpdate(*gorm.DB) error {
	return ErrAuditRecordImmutable
}

// BeforeDelete 拒绝任何对已存在审计记录的删除。
func (AuditRecord) BeforeDelete(*gorm.DB) error {
	return ErrAuditRecordImmutable
}

// SetSources 序列化完整来源列表写入 SourcesJSON。
func (r *AuditRecord) SetSources(sources []SourceChunk) error {
	b, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	r.SourcesJSON = string(b)
	return nil
}

// Sources 反序列化 SourcesJSON 为来源列表。
func (r *AuditRecord) Sources() ([]SourceChunk, error) {
	if r.SourcesJSON == "" {
		return []SourceChunk{}, nil
	}
	var sources []SourceChunk
	if err := json.Unmarshal([]byte(r.SourcesJSON), &sources); err != nil {
		return nil, err
	}
	return sources, nil
}
