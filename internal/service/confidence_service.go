package service

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"grant-trust-go/internal/config"
	"grant-trust-go/internal/model"
)

// WarningNoSources 是空检索集的固定警告文案，下游按它识别"无来源"场景。
const WarningNoSources = "No sources found for query"

// untrackedParseConfidence 是来源未记录解析置信度时使用的中性默认值。
const untrackedParseConfidence = 80

// neutralRecency 是来源完全没有日期信息时 documentRecency 分量的中性默认值。
const neutralRecency = 70

// neutralCoverage 是没有查询可对照时 queryCoverage 分量的中性默认值。
const neutralCoverage = 70

// ConfidenceService 是置信度打分引擎：三个互相独立的打分器，
// 输入相同则输出相同（纯函数，无隐藏随机性），分值恒在 [0,100]。
type ConfidenceService interface {
	// ScoreRetrieval 对一次检索返回的来源集合打分，并给出是否放行生成的判定。
	ScoreRetrieval(sources []model.SourceChunk) model.RetrievalConfidence
	// ScoreGeneration 对生成内容相对来源与查询的落地程度打分。
	ScoreGeneration(content string, sources []model.SourceChunk, query string) model.GenerationConfidence
	// ScoreParse 对单个入库文档的解析质量打分，每个文档只在入库时打一次。
	ScoreParse(meta model.ParseMetadata) model.ConfidenceResult
}

type confidenceService struct {
	cfg     config.ConfidenceConfig
	overlap OverlapChecker
}

// NewConfidenceService 创建一个新的 ConfidenceService 实例。
func NewConfidenceService(cfg config.ConfidenceConfig, overlap OverlapChecker) ConfidenceService {
	return &confidenceService{cfg: cfg, overlap: overlap}
}

// ScoreRetrieval 按加权分量计算检索置信度。
// 空集是特殊分支：直接判 0 分拦截，绝不对空集求均值（除零会伪装成中性分）。
func (s *confidenceService) ScoreRetrieval(sources []model.SourceChunk) model.RetrievalConfidence {
	if len(sources) == 0 {
		return model.RetrievalConfidence{
			ConfidenceResult: model.ConfidenceResult{
				Score: 0,
				Level: model.ConfidenceLow,
				Components: map[string]int{
					model.ComponentSimilarity:         0,
					model.ComponentChunkQuantity:      0,
					model.ComponentDocumentRecency:    0,
					model.ComponentSourceParseQuality: 0,
				},
				Warnings: []string{WarningNoSources},
				Message:  "No grounded sources were found, generation is blocked.",
			},
			ShouldAllowGeneration: false,
		}
	}

	w := s.cfg.Retrieval
	similarity := meanSimilarity(sources) * 100
	quantity := math.Min(float64(len(sources))/10, 1) * 100
	recency := recencyComponent(sources)
	parseQuality := parseQualityComponent(sources)

	score := clampScore(round(
		similarity*w.Similarity +
			quantity*w.ChunkQuantity +
			recency*w.DocumentRecency +
			parseQuality*w.SourceParseQuality))

	var warnings []string
	if similarity < 70 {
		warnings = append(warnings, "Average source similarity is low")
	}
	// 55 分档还在一年以内，只有更低的档位才算超过一年
	if recency < 55 {
		warnings = append(warnings, "Sources are older than one year on average")
	}

	level := model.LevelForScore(score)
	allow := score >= s.cfg.MinGeneration

	return model.RetrievalConfidence{
		ConfidenceResult: model.ConfidenceResult{
			Score: score,
			Level: level,
			Components: map[string]int{
				model.ComponentSimilarity:         round(similarity),
				model.ComponentChunkQuantity:      round(quantity),
				model.ComponentDocumentRecency:    round(recency),
				model.ComponentSourceParseQuality: round(parseQuality),
			},
			Warnings: warnings,
			Message:  retrievalMessage(level, allow),
		},
		ShouldAllowGeneration: allow,
	}
}

// ScoreGeneration 衡量已生成内容的落地程度。
// 此时模型调用已经发生：低分不丢弃内容，只降级展示并附警告。
func (s *confidenceService) ScoreGeneration(content string, sources []model.SourceChunk, query string) model.GenerationConfidence {
	w := s.cfg.Generation

	relevance := meanSimilarity(sources) * 100
	coverage := s.queryCoverageComponent(content, query)
	verification := s.factVerificationComponent(content, sources)

	score := clampScore(round(
		relevance*w.SourceRelevance +
			coverage*w.QueryCoverage +
			verification*w.FactVerification))

	var warnings []string
	if len(sources) == 0 {
		warnings = append(warnings, "Content could not be verified against any source")
	} else if verification < 50 {
		warnings = append(warnings, "Large portions of the content do not appear in the sources")
	}

	display := score >= s.cfg.MinDisplay
	if !display {
		warnings = append(warnings, "Generation confidence is below the display threshold")
	}

	level := model.LevelForScore(score)
	return model.GenerationConfidence{
		ConfidenceResult: model.ConfidenceResult{
			Score: score,
			Level: level,
			Components: map[string]int{
				model.ComponentSourceRelevance:  round(relevance),
				model.ComponentQueryCoverage:    round(coverage),
				model.ComponentFactVerification: round(verification),
			},
			Warnings: warnings,
			Message:  generationMessage(level),
		},
		ShouldDisplay: display,
	}
}

// ScoreParse 对入库文档的解析质量打分。
// 各分量和总分都钳制在 [0,100]，此处的加分项不允许把总分推过上限。
func (s *confidenceService) ScoreParse(meta model.ParseMetadata) model.ConfidenceResult {
	w := s.cfg.Parse

	completeness := textCompletenessComponent(meta.Text)
	structure := structureComponent(meta.SourceFormat)
	dates := clampFloat(float64(meta.DateCount) * 25)
	entities := entityComponent(meta)

	score := clampScore(round(
		completeness*w.TextCompleteness +
			structure*w.StructurePreservation +
			dates*w.DateExtraction +
			entities*w.EntityExtraction))

	var warnings []string
	if len([]rune(meta.Text)) < 500 {
		warnings = append(warnings, "Extracted text is very short")
	}
	if meta.DateCount == 0 {
		warnings = append(warnings, "No dates could be extracted from the document")
	}

	level := model.LevelForScore(score)
	return model.ConfidenceResult{
		Score: score,
		Level: level,
		Components: map[string]int{
			model.ComponentTextCompleteness:      round(completeness),
			model.ComponentStructurePreservation: round(structure),
			model.ComponentDateExtraction:        round(dates),
			model.ComponentEntityExtraction:      round(entities),
		},
		Warnings: warnings,
		Message:  fmt.Sprintf("Document parse quality is %s.", level),
	}
}

// queryCoverageComponent 计算查询词在生成内容中的覆盖率。
// 长度超过 3 个字符的查询词按逐词匹配计分（满分 80），
// 另按内容长度给最多 20 分的加成（1000 字符及以上拿满）。
// 没有查询或查询里没有可对照的词时退回中性默认值。
func (s *confidenceService) queryCoverageComponent(content, query string) float64 {
	if query == "" {
		return neutralCoverage
	}
	var terms []string
	for _, t := range strings.Fields(query) {
		if len([]rune(t)) > 3 {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return neutralCoverage
	}

	corpus := strings.ToLower(content)
	covered := 0
	for _, t := range terms {
		if s.overlap.Contains(corpus, t) {
			covered++
		}
	}

	base := float64(covered) / float64(len(terms)) * 80
	bonus := math.Min(float64(len(content))/1000, 1) * 20
	return base + bonus
}

// factVerificationComponent 计算内容中 5 字符以上词元出现在来源拼接文本里的比例。
// 零来源时无从验证，直接判 0。
func (s *confidenceService) factVerificationComponent(content string, sources []model.SourceChunk) float64 {
	if len(sources) == 0 {
		return 0
	}

	var corpusBuilder strings.Builder
	for _, src := range sources {
		corpusBuilder.WriteString(strings.ToLower(src.Text))
		corpusBuilder.WriteString(" ")
	}
	corpus := corpusBuilder.String()

	var tokens []string
	for _, t := range strings.Fields(content) {
		trimmed := strings.TrimFunc(t, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len([]rune(trimmed)) >= 5 {
			tokens = append(tokens, trimmed)
		}
	}
	if len(tokens) == 0 {
		// 内容里没有可验证的词元，给中性分并留给上层警告
		return neutralCoverage
	}

	verified := 0
	for _, t := range tokens {
		if s.overlap.Contains(corpus, t) {
			verified++
		}
	}
	return float64(verified) / float64(len(tokens)) * 100
}

// meanSimilarity 计算来源相似度均值，调用方保证非空时才有意义。
func meanSimilarity(sources []model.SourceChunk) float64 {
	if len(sources) == 0 {
		return 0
	}
	var sum float64
	for _, src := range sources {
		sum += src.SimilarityScore
	}
	return sum / float64(len(sources))
}

// recencyComponent 按来源的平均年龄分档计分：
// 30 天内 100 分，90 天内 85，180 天内 70，一年内 55，更久 40。
// 所有来源都没有日期时返回中性分 70。
func recencyComponent(sources []model.SourceChunk) float64 {
	now := time.Now()
	var totalDays float64
	dated := 0
	for _, src := range sources {
		if src.CreatedAt == nil {
			continue
		}
		totalDays += now.Sub(*src.CreatedAt).Hours() / 24
		dated++
	}
	if dated == 0 {
		return neutralRecency
	}

	meanAge := totalDays / float64(dated)
	switch {
	case meanAge <= 30:
		return 100
	case meanAge <= 90:
		return 85
	case meanAge <= 180:
		return 70
	case meanAge <= 365:
		return 55
	default:
		return 40
	}
}

// parseQualityComponent 计算来源解析置信度的均值，未记录的来源按默认值 80 计。
func parseQualityComponent(sources []model.SourceChunk) float64 {
	var sum float64
	for _, src := range sources {
		if src.ParseConfidence > 0 {
			sum += float64(src.ParseConfidence)
		} else {
			sum += untrackedParseConfidence
		}
	}
	return sum / float64(len(sources))
}

// textCompletenessComponent 评估抽取文本的完整性。
func textCompletenessComponent(text string) float64 {
	score := 100.0
	runes := []rune(text)
	words := strings.Fields(text)

	if len(runes) < 500 {
		score -= 30
	}
	if len(words) < 200 {
		score -= 20
	}
	if len(words) > 1000 {
		score += 10
	}

	// 低字母数字占比通常意味着 OCR 噪声或表格碎片
	if alnumRatio(runes) < 0.5 {
		score -= 20
	}

	return clampFloat(score)
}

// structureComponent 按来源格式估计结构保留程度。
func structureComponent(format string) float64 {
	switch strings.ToLower(format) {
	case "txt", "md":
		return 95
	case "docx", "doc":
		return 90
	case "html":
		return 85
	case "pdf":
		return 80
	default:
		return 60
	}
}

// entityComponent 按关键实体（金额、人名、机构名）的存在性计分。
func entityComponent(meta model.ParseMetadata) float64 {
	score := 0.0
	if meta.HasAmounts {
		score += 40
	}
	if meta.HasNames {
		score += 30
	}
	if meta.HasOrgs {
		score += 30
	}
	return score
}

// alnumRatio 计算非空白字符中字母数字的占比。
func alnumRatio(runes []rune) float64 {
	total := 0
	alnum := 0
	for _, r := range runes {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) / float64(total)
}

func retrievalMessage(level model.ConfidenceLevel, allow bool) string {
	if !allow {
		return "Retrieval confidence is too low to generate grounded content. Review the sources manually."
	}
	switch level {
	case model.ConfidenceHigh:
		return "Retrieved sources are strongly grounded."
	default:
		return "Retrieved sources are moderately grounded. Verify the generated content before use."
	}
}

func generationMessage(level model.ConfidenceLevel) string {
	switch level {
	case model.ConfidenceHigh:
		return "Generated content is well supported by your sources."
	case model.ConfidenceMedium:
		return "Generated content is partially supported by your sources. Verify before use."
	default:
		return "Generated content has weak support from your sources. Treat it as a starting point only."
	}
}

func round(v float64) int {
	return int(math.Round(v))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampFloat(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
