package repository

import (
	"time"

	"grant-trust-go/internal/model"

	"gorm.io/gorm"
)

// DocumentRepository 定义了文档元数据的持久化操作。
type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByID(id string) (*model.Document, error)
	FindByTenant(tenantID string, offset, limit int) ([]model.Document, int64, error)
	UpdateParseResult(doc *model.Document) error
	MarkFailed(id string) error
	Delete(id string) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 在数据库中创建一条新的文档记录。
func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// FindByID 根据 ID 查找文档。
func (r *documentRepository) FindByID(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByTenant 分页检索某租户的文档记录，返回文档列表和总数。
func (r *documentRepository) FindByTenant(tenantID string, offset, limit int) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64
	if err := r.db.Model(&model.Document{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&docs).Error
	return docs, total, err
}

// UpdateParseResult 回写入库管线的解析与索引结果。
func (r *documentRepository) UpdateParseResult(doc *model.Document) error {
	now := time.Now()
	doc.IndexedAt = &now
	doc.Status = model.DocumentStatusIndexed
	return r.db.Save(doc).Error
}

// MarkFailed 将文档标记为处理失败。
func (r *documentRepository) MarkFailed(id string) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).
		Update("status", model.DocumentStatusFailed).Error
}

// Delete 删除文档记录。
func (r *documentRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.Document{}).Error
}
