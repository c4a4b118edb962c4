package model

// WritingMode 控制生成的介入程度，对应不同的系统提示词。
type WritingMode string

const (
	// ModeMemoryAssist 仅基于来源给出建议要点。
	ModeMemoryAssist WritingMode = "memory_assist"
	// ModeAIDraft 基于来源生成完整草稿。
	ModeAIDraft WritingMode = "ai_draft"
	// ModeHumanFirst 以人工写作为主，仅提供最少的来源提示。
	ModeHumanFirst WritingMode = "human_first"
)

// ValidWritingMode 判断给定模式是否受支持。
func ValidWritingMode(m WritingMode) bool {
	switch m {
	case ModeMemoryAssist, ModeAIDraft, ModeHumanFirst:
		return true
	}
	return false
}

// GenerationRequest 是一次生成请求的入参。
type GenerationRequest struct {
	Query     string      `json:"query" binding:"required"`
	Mode      WritingMode `json:"mode"`
	GrantID   *string     `json:"grantId"`
	SectionID *string     `json:"sectionId"`
	TopK      int         `json:"topK"`
	MinScore  float64     `json:"minScore"`
}

// GenerationOutcome 是生成管线的统一响应。
// 不论闸门是否放行，Sources 都会携带本次检索到的全部来源，供人工复核。
type GenerationOutcome struct {
	ShouldGenerate bool             `json:"shouldGenerate"`
	Content        *string          `json:"content"`
	Confidence     ConfidenceResult `json:"confidence"`
	ShouldDisplay  bool             `json:"shouldDisplay"`
	Sources        []SourceChunk    `json:"sources"`
	Message        string           `json:"message"`
	AuditID        *string          `json:"auditId"`
}
