// Package model 定义了与数据库表对应的 Go 结构体以及对外的 DTO。
package model

// ConfidenceLevel 是 0-100 置信度分值映射出的定性档位。
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// 置信度分量的命名键，三类打分器共用同一套 components map。
const (
	ComponentSimilarity         = "similarityScore"
	ComponentChunkQuantity      = "chunkQuantity"
	ComponentDocumentRecency    = "documentRecency"
	ComponentSourceParseQuality = "sourceParseQuality"

	ComponentSourceRelevance  = "sourceRelevance"
	ComponentQueryCoverage    = "queryCoverage"
	ComponentFactVerification = "factVerification"

	ComponentTextCompleteness      = "textCompleteness"
	ComponentStructurePreservation = "structurePreservation"
	ComponentDateExtraction        = "dateExtraction"
	ComponentEntityExtraction      = "entityExtraction"
)

// LevelForScore 是三类打分器共用的档位映射：>=80 高，>=60 中，其余低。
func LevelForScore(score int) ConfidenceLevel {
	switch {
	case score >= 80:
		return ConfidenceHigh
	case score >= 60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ConfidenceResult 是三类打分器共用的结果结构。
// Score 恒在 [0,100]，Components 记录各加权分量归一化后的得分。
type ConfidenceResult struct {
	Score      int             `json:"score"`
	Level      ConfidenceLevel `json:"level"`
	Components map[string]int  `json:"components"`
	Warnings   []string        `json:"warnings"`
	Message    string          `json:"message"`
}

// RetrievalConfidence 是检索置信度结果，附带放行生成的判定。
type RetrievalConfidence struct {
	ConfidenceResult
	ShouldAllowGeneration bool `json:"shouldAllowGeneration"`
}

// GenerationConfidence 是生成置信度结果，附带是否直接展示的判定。
// 模型调用此时已经发生，低分只降级展示并附警告，不会把已生成的内容丢弃。
type GenerationConfidence struct {
	ConfidenceResult
	ShouldDisplay bool `json:"shouldDisplay"`
}
