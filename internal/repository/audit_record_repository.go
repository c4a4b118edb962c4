// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"grant-trust-go/internal/model"

	"gorm.io/gorm"
)

// AuditFilter 是审计记录查询的过滤条件。
// TenantID 必填：审计查询永远限定在单一租户内。
type AuditFilter struct {
	TenantID      string
	GrantID       *string
	SectionID     *string
	From          *time.Time
	To            *time.Time
	MinConfidence *int
	Cursor        string // 上一页返回的 nextCursor，空串表示第一页
	Limit         int
}

// AuditPage 是一页审计记录及分页游标。
type AuditPage struct {
	Records    []model.AuditRecord `json:"records"`
	HasMore    bool                `json:"hasMore"`
	NextCursor string              `json:"nextCursor,omitempty"`
}

// AuditRecordRepository 定义了审计记录的持久化操作。
// 只有追加和查询：审计记录创建后不可修改、不可删除。
type AuditRecordRepository interface {
	Create(ctx context.Context, record *model.AuditRecord) error
	FindByID(ctx context.Context, tenantID, id string) (*model.AuditRecord, error)
	Query(ctx context.Context, filter AuditFilter) (*AuditPage, error)
}

type auditRecordRepository struct {
	db *gorm.DB
}

// NewAuditRecordRepository 创建一个新的 AuditRecordRepository 实例。
func NewAuditRecordRepository(db *gorm.DB) AuditRecordRepository {
	return &auditRecordRepository{db: db}
}

// Create 追加写入一条审计记录。
func (r *auditRecordRepository) Create(ctx context.Context, record *model.AuditRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByID 在租户范围内按 ID 查找一条审计记录。
func (r *auditRecordRepository) FindByID(ctx context.Context, tenantID, id string) (*model.AuditRecord, error) {
	var record model.AuditRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Query 按过滤条件分页查询审计记录，按创建时间倒序。
// 游标分页：多取一条，弹出多余的那条来判定 hasMore 并生成 nextCursor。
func (r *auditRecordRepository) Query(ctx context.Context, filter AuditFilter) (*AuditPage, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	q := r.db.WithContext(ctx).Model(&model.AuditRecord{}).
		Where("tenant_id = ?", filter.TenantID)

	if filter.GrantID != nil {
		q = q.Where("grant_id = ?", *filter.GrantID)
	}
	if filter.SectionID != nil {
		q = q.Where("section_id = ?", *filter.SectionID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}
	if filter.MinConfidence != nil {
		q = q.Where("confidence_score >= ?", *filter.MinConfidence)
	}

	if filter.Cursor != "" {
		cursorAt, cursorID, err := decodeCursor(filter.Cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cursorAt, cursorAt, cursorID)
	}

	var records []model.AuditRecord
	err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&records).Error
	if err != nil {
		return nil, err
	}

	page := &AuditPage{Records: records}
	if len(records) > limit {
		// 弹出多取的那条，用页内最后一条生成游标
		page.Records = records[:limit]
		page.HasMore = true
		last := page.Records[limit-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// encodeCursor 将分页边界编码为不透明游标。
func encodeCursor(createdAt time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", createdAt.UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor 解码游标为分页边界。
func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("malformed cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, nanos), parts[1], nil
}
