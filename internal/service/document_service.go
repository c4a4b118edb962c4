package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"grant-trust-go/internal/config"
	"grant-trust-go/internal/model"
	"grant-trust-go/internal/repository"
	"grant-trust-go/pkg/es"
	"grant-trust-go/pkg/kafka"
	"grant-trust-go/pkg/log"
	"grant-trust-go/pkg/storage"
	"grant-trust-go/pkg/tasks"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
)

// DocumentService 接口定义了文档登记、查询和删除的业务操作。
// 上传只负责落盘和登记；解析、打分和索引由入库管线异步完成。
type DocumentService interface {
	Upload(ctx context.Context, file io.Reader, fileSize int64, fileName, tenantID, grantID string) (*model.Document, error)
	List(tenantID string, page, size int) ([]model.Document, int64, error)
	Get(id, tenantID string) (*model.Document, error)
	DownloadURL(doc *model.Document) (string, error)
	Delete(ctx context.Context, id, tenantID string) error
}

type documentService struct {
	documentRepo repository.DocumentRepository
	chunkRepo    repository.DocumentChunkRepository
	minioCfg     config.MinIOConfig
	esCfg        config.ElasticsearchConfig
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	documentRepo repository.DocumentRepository,
	chunkRepo repository.DocumentChunkRepository,
	minioCfg config.MinIOConfig,
	esCfg config.ElasticsearchConfig,
) DocumentService {
	return &documentService{
		documentRepo: documentRepo,
		chunkRepo:    chunkRepo,
		minioCfg:     minioCfg,
		esCfg:        esCfg,
	}
}

// Upload 将文件存入 MinIO、登记文档记录，并投递入库任务到 Kafka。
func (s *documentService) Upload(ctx context.Context, file io.Reader, fileSize int64, fileName, tenantID, grantID string) (*model.Document, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenant
	}
	if fileName == "" {
		return nil, NewDomainError(ErrorTypeValidation, "file name is required", nil)
	}

	docID := uuid.NewString()
	objectName := fmt.Sprintf("documents/%s/%s/%s", tenantID, docID, fileName)

	// 1. 原始文件落盘到对象存储
	log.Infof("[DocumentService] 步骤1: 上传文件到MinIO, Object: %s, Size: %d", objectName, fileSize)
	_, err := storage.MinioClient.PutObject(ctx, s.minioCfg.BucketName, objectName, file, fileSize, minio.PutObjectOptions{})
	if err != nil {
		log.Errorf("[DocumentService] 上传文件到MinIO失败, Object: %s, Error: %v", objectName, err)
		return nil, NewDomainError(ErrorTypeExternal, "object storage upload failed", err)
	}

	// 2. 登记文档记录，初始为待处理态
	doc := &model.Document{
		ID:         docID,
		TenantID:   tenantID,
		FileName:   fileName,
		ObjectName: objectName,
		Status:     model.DocumentStatusPending,
	}
	if grantID != "" {
		doc.GrantID = &grantID
	}
	if err := s.documentRepo.Create(doc); err != nil {
		log.Errorf("[DocumentService] 创建文档记录失败, DocumentID: %s, Error: %v", docID, err)
		return nil, NewDomainError(ErrorTypeInternal, "failed to register document", err)
	}

	// 3. 投递入库任务
	task := tasks.DocumentIngestTask{
		DocumentID: docID,
		TenantID:   tenantID,
		ObjectName: objectName,
		FileName:   fileName,
		GrantID:    grantID,
	}
	if err := kafka.ProduceIngestTask(task); err != nil {
		// 投递失败时记录文档为失败态，让用户可见并可重新上传
		log.Errorf("[DocumentService] 发送入库任务到Kafka失败, DocumentID: %s, Error: %v", docID, err)
		if markErr := s.documentRepo.MarkFailed(docID); markErr != nil {
			log.Errorf("[DocumentService] 标记文档失败状态出错, DocumentID: %s, Error: %v", docID, markErr)
		}
		return nil, NewDomainError(ErrorTypeExternal, "failed to enqueue ingest task", err)
	}
	log.Infof("[DocumentService] 文档登记成功并已投递入库任务, DocumentID: %s", docID)

	return doc, nil
}

// List 分页返回租户下的文档列表。
func (s *documentService) List(tenantID string, page, size int) ([]model.Document, int64, error) {
	if tenantID == "" {
		return nil, 0, ErrInvalidTenant
	}
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return s.documentRepo.FindByTenant(tenantID, (page-1)*size, size)
}

// Get 查询单个文档，租户不匹配时按不存在处理。
func (s *documentService) Get(id, tenantID string) (*model.Document, error) {
	doc, err := s.documentRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if doc.TenantID != tenantID {
		// 跨租户访问不暴露记录的存在性
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// DownloadURL 为文档原始文件生成一个限时的预签名下载链接。
func (s *documentService) DownloadURL(doc *model.Document) (string, error) {
	return storage.GetPresignedURL(s.minioCfg.BucketName, doc.ObjectName, 15*time.Minute)
}

// Delete 删除文档及其派生数据：ES 索引、分块记录、对象存储文件、文档记录。
// ES 和对象存储的清理是尽力而为的：失败只记日志，数据库删除照常进行，
// 避免外部系统故障把记录卡成永远删不掉的状态。
func (s *documentService) Delete(ctx context.Context, id, tenantID string) error {
	doc, err := s.Get(id, tenantID)
	if err != nil {
		return err
	}

	if err := es.DeleteByDocument(ctx, s.esCfg.IndexName, tenantID, id); err != nil {
		log.Warnf("[DocumentService] 删除ES索引数据失败, DocumentID: %s, Error: %v", id, err)
	}
	if err := storage.MinioClient.RemoveObject(ctx, s.minioCfg.BucketName, doc.ObjectName, minio.RemoveObjectOptions{}); err != nil {
		log.Warnf("[DocumentService] 删除MinIO对象失败, Object: %s, Error: %v", doc.ObjectName, err)
	}
	if err := s.chunkRepo.DeleteByDocumentID(id); err != nil {
		log.Errorf("[DocumentService] 删除文档分块记录失败, DocumentID: %s, Error: %v", id, err)
		return err
	}
	if err := s.documentRepo.Delete(id); err != nil {
		log.Errorf("[DocumentService] 删除文档记录失败, DocumentID: %s, Error: %v", id, err)
		return err
	}
	log.Infof("[DocumentService] 文档删除完成, DocumentID: %s", id)
	return nil
}
