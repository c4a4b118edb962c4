// Package pipeline 定义了文档入库处理的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"grant-trust-go/internal/config"
	"grant-trust-go/internal/model"
	"grant-trust-go/internal/repository"
	"grant-trust-go/internal/service"
	"grant-trust-go/pkg/embedding"
	"grant-trust-go/pkg/es"
	"grant-trust-go/pkg/log"
	"grant-trust-go/pkg/storage"
	"grant-trust-go/pkg/tasks"
	"grant-trust-go/pkg/tika"

	"github.com/minio/minio-go/v7"
)

// Processor 封装了文档入库处理的所有依赖和逻辑。
// 流程：对象存储下载 → Tika 解析 → 解析置信度打分 → 分块落库 →
// 批量向量化 → 索引到 Elasticsearch。解析置信度会随每个分块写入索引，
// 在检索阶段参与来源质量评估。
type Processor struct {
	tikaClient        *tika.Client
	embeddingClient   embedding.Client
	confidenceService service.ConfidenceService
	esCfg             config.ElasticsearchConfig
	minioCfg          config.MinIOConfig
	embeddingCfg      config.EmbeddingConfig
	documentRepo      repository.DocumentRepository
	chunkRepo         repository.DocumentChunkRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient *tika.Client,
	embeddingClient embedding.Client,
	confidenceService service.ConfidenceService,
	esCfg config.ElasticsearchConfig,
	minioCfg config.MinIOConfig,
	embeddingCfg config.EmbeddingConfig,
	documentRepo repository.DocumentRepository,
	chunkRepo repository.DocumentChunkRepository,
) *Processor {
	return &Processor{
		tikaClient:        tikaClient,
		embeddingClient:   embeddingClient,
		confidenceService: confidenceService,
		esCfg:             esCfg,
		minioCfg:          minioCfg,
		embeddingCfg:      embeddingCfg,
		documentRepo:      documentRepo,
		chunkRepo:         chunkRepo,
	}
}

// Process 是文档入库处理的主函数。
// 任何阶段失败都会把文档标记为失败态，之后的重试会先清理旧数据再重建（幂等）。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentIngestTask) error {
	log.Infof("[Processor] 开始处理文档, DocumentID: %s, FileName: %s, TenantID: %s",
		task.DocumentID, task.FileName, task.TenantID)

	if err := p.process(ctx, task); err != nil {
		if markErr := p.documentRepo.MarkFailed(task.DocumentID); markErr != nil {
			log.Errorf("[Processor] 标记文档失败状态出错, DocumentID: %s, Error: %v", task.DocumentID, markErr)
		}
		return err
	}
	return nil
}

func (p *Processor) process(ctx context.Context, task tasks.DocumentIngestTask) error {
	doc, err := p.documentRepo.FindByID(task.DocumentID)
	if err != nil {
		return fmt.Errorf("查询文档记录失败: %w", err)
	}

	// 1. 从 MinIO 下载文件
	log.Infof("[Processor] 步骤1: 从MinIO下载文件, Bucket: %s, Object: %s", p.minioCfg.BucketName, task.ObjectName)
	object, err := storage.MinioClient.GetObject(ctx, p.minioCfg.BucketName, task.ObjectName, minio.GetObjectOptions{})
	if err != nil {
		log.Errorf("[Processor] 从MinIO下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		log.Errorf("[Processor] 从MinIO对象流中读取内容失败, Error: %v", err)
		return fmt.Errorf("读取MinIO对象流失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d字节", size)
	if size == 0 {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", task.FileName)
		return errors.New("文件内容为空")
	}

	// 2. 使用 Tika 提取文本
	log.Info("[Processor] 步骤2: 使用Tika提取文本内容")
	textContent, err := p.tikaClient.ExtractText(ctx, bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		log.Errorf("[Processor] 使用Tika提取文本失败, FileName: %s, Error: %v", task.FileName, err)
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	if textContent == "" {
		log.Warnf("[Processor] Tika提取的文本内容为空, 处理中止, FileName: %s", task.FileName)
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 步骤2: 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 3. 解析置信度打分，结果随文档元数据持久化
	meta := analyzeText(textContent, tika.SourceFormat(task.FileName))
	parseResult := p.confidenceService.ScoreParse(meta)
	log.Infof("[Processor] 步骤3: 解析置信度: %d (%s), dates: %d", parseResult.Score, parseResult.Level, meta.DateCount)

	// 4. 文本切块
	log.Info("[Processor] 步骤4: 进行文本分块, chunkSize: 1000, chunkOverlap: 100")
	chunks := splitText(textContent, 1000, 100)
	log.Infof("[Processor] 步骤4: 文本分块完成, 共生成 %d 个分块", len(chunks))
	if len(chunks) == 0 {
		log.Warnf("[Processor] 未生成任何文本分块, 处理中止, FileName: %s", task.FileName)
		return errors.New("未生成任何文本分块")
	}

	// 阶段一：清理旧数据并把分块文本落库
	log.Info("[Processor] 阶段一: 开始将分块文本存入数据库")
	if err := p.chunkRepo.DeleteByDocumentID(task.DocumentID); err != nil {
		log.Warnf("[Processor] 清理 document_chunks 旧记录失败 (document_id=%s): %v", task.DocumentID, err)
	}
	if err := es.DeleteByDocument(ctx, p.esCfg.IndexName, task.TenantID, task.DocumentID); err != nil {
		log.Warnf("[Processor] 清理 ES 旧索引失败 (document_id=%s): %v", task.DocumentID, err)
	}

	dbChunks := make([]*model.DocumentChunk, 0, len(chunks))
	for i, chunk := range chunks {
		dbChunks = append(dbChunks, &model.DocumentChunk{
			DocumentID:   task.DocumentID,
			TenantID:     task.TenantID,
			ChunkIndex:   i,
			TextContent:  chunk,
			ModelVersion: p.embeddingCfg.Model,
		})
	}
	if err := p.chunkRepo.BatchCreate(dbChunks); err != nil {
		log.Errorf("[Processor] 阶段一: 批量保存文本分块到数据库失败, Error: %v", err)
		return fmt.Errorf("批量保存文本分块失败: %w", err)
	}
	log.Infof("[Processor] 阶段一: 成功将 %d 个分块存入数据库", len(dbChunks))

	// 阶段二：从数据库读回分块，批量向量化后索引到 ES
	log.Info("[Processor] 阶段二: 开始批量向量化与索引")
	savedChunks, err := p.chunkRepo.FindByDocumentID(task.DocumentID)
	if err != nil {
		log.Errorf("[Processor] 阶段二: 从数据库读取分块失败, DocumentID: %s, Error: %v", task.DocumentID, err)
		return fmt.Errorf("从数据库读取分块失败: %w", err)
	}

	if err := p.embedAndIndex(ctx, doc, savedChunks, parseResult.Score, task.GrantID); err != nil {
		return err
	}

	// 5. 回写文档解析元数据与索引状态
	now := time.Now()
	doc.Status = model.DocumentStatusIndexed
	doc.SourceFormat = meta.SourceFormat
	doc.ParseConfidence = parseResult.Score
	doc.ParseLevel = string(parseResult.Level)
	doc.TextChars = utf8.RuneCountInString(textContent)
	doc.WordCount = len(strings.Fields(textContent))
	doc.DateCount = meta.DateCount
	doc.ChunkCount = len(savedChunks)
	doc.IndexedAt = &now
	if err := p.documentRepo.UpdateParseResult(doc); err != nil {
		log.Errorf("[Processor] 回写文档解析结果失败, DocumentID: %s, Error: %v", task.DocumentID, err)
		return fmt.Errorf("回写文档解析结果失败: %w", err)
	}

	log.Infof("[Processor] 文档处理成功完成, DocumentID: %s, chunks: %d, parse_confidence: %d",
		task.DocumentID, len(savedChunks), parseResult.Score)
	return nil
}

// embedAndIndex 按配置的批量大小向量化分块并写入 ES。
// 批与批之间按 BatchDelayMs 间隔，规避上游向量化接口的限流。
func (p *Processor) embedAndIndex(ctx context.Context, doc *model.Document, chunks []*model.DocumentChunk,
	parseConfidence int, grantID string) error {

	batchSize := p.embeddingCfg.BatchSize
	if batchSize <= 0 || batchSize > embedding.MaxBatchSize {
		batchSize = embedding.MaxBatchSize
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, 0, len(batch))
		for _, c := range batch {
			texts = append(texts, c.TextContent)
		}

		vectors, err := p.embeddingClient.CreateEmbeddings(ctx, texts)
		if err != nil {
			log.Errorf("[Processor] 批量向量化失败, batch: [%d, %d), Error: %v", start, end, err)
			return fmt.Errorf("批量向量化失败: %w", err)
		}

		for i, chunk := range batch {
			esDoc := model.EsDocument{
				VectorID:        fmt.Sprintf("%s_%d", chunk.DocumentID, chunk.ChunkIndex),
				TenantID:        chunk.TenantID,
				DocumentID:      chunk.DocumentID,
				DocumentName:    doc.FileName,
				GrantID:         grantID,
				ChunkIndex:      chunk.ChunkIndex,
				TextContent:     chunk.TextContent,
				Vector:          vectors[i],
				ModelVersion:    p.embeddingCfg.Model,
				ParseConfidence: parseConfidence,
				CreatedAt:       time.Now(),
			}
			if err := es.IndexDocument(ctx, p.esCfg.IndexName, esDoc); err != nil {
				log.Errorf("[Processor] 索引分块 %d 到Elasticsearch失败, Error: %v", chunk.ChunkIndex, err)
				return fmt.Errorf("索引块 %d 到 Elasticsearch 失败: %w", chunk.ChunkIndex, err)
			}
		}
		log.Infof("[Processor] 批次 [%d, %d) 向量化并索引成功", start, end)

		if end < len(chunks) && p.embeddingCfg.BatchDelayMs > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(p.embeddingCfg.BatchDelayMs) * time.Millisecond):
			}
		}
	}
	return nil
}

var (
	dateRe   = regexp.MustCompile(`\b(\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}[-/]\d{1,2}[-/]\d{4}|(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})\b`)
	amountRe = regexp.MustCompile(`[$€£]\s?\d[\d,]*(\.\d+)?|\b\d[\d,]*(\.\d+)?\s?(USD|EUR|dollars?)\b`)
	nameRe   = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)
	orgRe    = regexp.MustCompile(`\b[A-Z][A-Za-z&.\- ]*(Inc|LLC|Ltd|Corp|Foundation|University|Institute|Association|Agency|Department|Council|Trust|Fund)\b`)
)

// analyzeText 从解析出的文本中提取结构化指标，供解析置信度打分使用。
// 正则是粗粒度的启发式：识别不到不扣到零分，只影响实体性分量。
func analyzeText(text, sourceFormat string) model.ParseMetadata {
	return model.ParseMetadata{
		Text:         text,
		SourceFormat: sourceFormat,
		DateCount:    len(dateRe.FindAllString(text, -1)),
		HasAmounts:   amountRe.MatchString(text),
		HasNames:     nameRe.MatchString(text),
		HasOrgs:      orgRe.MatchString(text),
	}
}

// splitText 将长文本按指定大小和重叠进行切分。
func splitText(text string, chunkSize int, chunkOverlap int) []string {
	if chunkSize <= chunkOverlap {
		return simpleSplit(text, chunkSize)
	}

	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := chunkSize - chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func simpleSplit(text string, chunkSize int) []string {
	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
