package service

import (
	"testing"
	"time"

	"grant-trust-go/internal/config"
	"grant-trust-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfidenceService() ConfidenceService {
	return NewConfidenceService(config.DefaultConfidence(), NewSubstringOverlapChecker())
}

func daysAgo(d int) *time.Time {
	t := time.Now().AddDate(0, 0, -d)
	return &t
}

func makeSources(n int, similarity float64, ageDays int) []model.SourceChunk {
	sources := make([]model.SourceChunk, 0, n)
	for i := 0; i < n; i++ {
		sources = append(sources, model.SourceChunk{
			DocumentID:      "doc-1",
			DocumentName:    "annual-report.pdf",
			Text:            "The foundation awarded a grant of $50,000 to support community education programs in 2024.",
			ChunkIndex:      i,
			SimilarityScore: similarity,
			ParseConfidence: 85,
			CreatedAt:       daysAgo(ageDays),
		})
	}
	return sources
}

func TestScoreRetrievalEmptySources(t *testing.T) {
	svc := newTestConfidenceService()

	result := svc.ScoreRetrieval(nil)

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, model.ConfidenceLow, result.Level)
	assert.False(t, result.ShouldAllowGeneration)
	assert.Contains(t, result.Warnings, WarningNoSources)
	for name, v := range result.Components {
		assert.Equal(t, 0, v, "component %s should be zero for the empty set", name)
	}
}

func TestScoreRetrievalStrongSources(t *testing.T) {
	svc := newTestConfidenceService()

	// 充足的近期高相似度来源应放行生成
	result := svc.ScoreRetrieval(makeSources(10, 0.92, 10))

	assert.True(t, result.ShouldAllowGeneration)
	assert.GreaterOrEqual(t, result.Score, 80)
	assert.Equal(t, model.ConfidenceHigh, result.Level)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 92, result.Components[model.ComponentSimilarity])
	assert.Equal(t, 100, result.Components[model.ComponentChunkQuantity])
	assert.Equal(t, 100, result.Components[model.ComponentDocumentRecency])
}

func TestScoreRetrievalWeakSourcesBlocked(t *testing.T) {
	svc := newTestConfidenceService()

	// 单个低相似度陈旧来源应被闸门拦截
	result := svc.ScoreRetrieval(makeSources(1, 0.35, 800))

	assert.False(t, result.ShouldAllowGeneration)
	assert.Less(t, result.Score, 60)
	assert.Equal(t, model.ConfidenceLow, result.Level)
	assert.Contains(t, result.Warnings, "Average source similarity is low")
	assert.Contains(t, result.Warnings, "Sources are older than one year on average")
}

func TestScoreRetrievalRecencyBuckets(t *testing.T) {
	svc := newTestConfidenceService()

	cases := []struct {
		ageDays int
		want    int
	}{
		{10, 100},
		{60, 85},
		{150, 70},
		{300, 55},
		{500, 40},
	}
	for _, tc := range cases {
		result := svc.ScoreRetrieval(makeSources(3, 0.8, tc.ageDays))
		assert.Equal(t, tc.want, result.Components[model.ComponentDocumentRecency],
			"age %d days", tc.ageDays)
	}
}

func TestScoreRetrievalNoDatesUsesNeutralRecency(t *testing.T) {
	svc := newTestConfidenceService()

	sources := makeSources(3, 0.8, 10)
	for i := range sources {
		sources[i].CreatedAt = nil
	}

	result := svc.ScoreRetrieval(sources)
	assert.Equal(t, neutralRecency, result.Components[model.ComponentDocumentRecency])
}

func TestScoreRetrievalUntrackedParseConfidence(t *testing.T) {
	svc := newTestConfidenceService()

	sources := makeSources(2, 0.8, 10)
	sources[0].ParseConfidence = 0
	sources[1].ParseConfidence = 0

	result := svc.ScoreRetrieval(sources)
	assert.Equal(t, untrackedParseConfidence, result.Components[model.ComponentSourceParseQuality])
}

func TestScoreRetrievalDeterministic(t *testing.T) {
	svc := newTestConfidenceService()
	sources := makeSources(5, 0.77, 45)

	first := svc.ScoreRetrieval(sources)
	second := svc.ScoreRetrieval(sources)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Components, second.Components)
	assert.Equal(t, first.Warnings, second.Warnings)
}

func TestScoreRetrievalBounds(t *testing.T) {
	svc := newTestConfidenceService()

	cases := [][]model.SourceChunk{
		nil,
		makeSources(1, 0.0, 2000),
		makeSources(50, 1.0, 0),
	}
	for _, sources := range cases {
		result := svc.ScoreRetrieval(sources)
		assert.GreaterOrEqual(t, result.Score, 0)
		assert.LessOrEqual(t, result.Score, 100)
		for _, v := range result.Components {
			assert.GreaterOrEqual(t, v, 0)
			assert.LessOrEqual(t, v, 100)
		}
	}
}

func TestScoreGenerationGroundedContent(t *testing.T) {
	svc := newTestConfidenceService()
	sources := makeSources(5, 0.9, 20)

	// 内容的长词元都来自来源文本，事实验证分量应当很高
	content := "The foundation awarded a grant of $50,000 to support community education programs."
	result := svc.ScoreGeneration(content, sources, "grant community education")

	assert.True(t, result.ShouldDisplay)
	assert.GreaterOrEqual(t, result.Score, 60)
	assert.GreaterOrEqual(t, result.Components[model.ComponentFactVerification], 90)
}

func TestScoreGenerationUnverifiableContent(t *testing.T) {
	svc := newTestConfidenceService()
	sources := makeSources(3, 0.9, 20)

	// 词元与来源完全不相交
	content := "Quarterly liquidity forecasts demonstrate unprecedented macroeconomic volatility worldwide."
	result := svc.ScoreGeneration(content, sources, "liquidity forecasts")

	assert.Equal(t, 0, result.Components[model.ComponentFactVerification])
	assert.Contains(t, result.Warnings, "Large portions of the content do not appear in the sources")
}

func TestScoreGenerationNoSources(t *testing.T) {
	svc := newTestConfidenceService()

	result := svc.ScoreGeneration("Some generated text here.", nil, "query")

	assert.Equal(t, 0, result.Components[model.ComponentFactVerification])
	assert.Contains(t, result.Warnings, "Content could not be verified against any source")
}

func TestScoreGenerationEmptyQueryUsesNeutralCoverage(t *testing.T) {
	svc := newTestConfidenceService()
	sources := makeSources(3, 0.8, 20)

	result := svc.ScoreGeneration("The foundation awarded a grant.", sources, "")
	assert.Equal(t, neutralCoverage, result.Components[model.ComponentQueryCoverage])
}

func TestScoreGenerationBelowDisplayThreshold(t *testing.T) {
	cfg := config.DefaultConfidence()
	cfg.MinDisplay = 99
	svc := NewConfidenceService(cfg, NewSubstringOverlapChecker())

	result := svc.ScoreGeneration("The foundation awarded a grant.", makeSources(2, 0.5, 400), "grant")

	assert.False(t, result.ShouldDisplay)
	assert.Contains(t, result.Warnings, "Generation confidence is below the display threshold")
}

func TestScoreParseRichDocument(t *testing.T) {
	svc := newTestConfidenceService()

	longText := ""
	for i := 0; i < 300; i++ {
		longText += "The Example Foundation granted funds to education programs during 2024 fiscal year. "
	}
	result := svc.ScoreParse(model.ParseMetadata{
		Text:         longText,
		SourceFormat: "docx",
		DateCount:    6,
		HasAmounts:   true,
		HasNames:     true,
		HasOrgs:      true,
	})

	assert.Equal(t, model.ConfidenceHigh, result.Level)
	assert.Equal(t, 100, result.Components[model.ComponentDateExtraction])
	assert.Equal(t, 100, result.Components[model.ComponentEntityExtraction])
	assert.Equal(t, 90, result.Components[model.ComponentStructurePreservation])
	assert.Empty(t, result.Warnings)
}

func TestScoreParsePoorDocument(t *testing.T) {
	svc := newTestConfidenceService()

	result := svc.ScoreParse(model.ParseMetadata{
		Text:         "||| ~~ ### 12 ;;;",
		SourceFormat: "xyz",
		DateCount:    0,
	})

	assert.Equal(t, model.ConfidenceLow, result.Level)
	assert.Contains(t, result.Warnings, "Extracted text is very short")
	assert.Contains(t, result.Warnings, "No dates could be extracted from the document")
	assert.Equal(t, 0, result.Components[model.ComponentEntityExtraction])
	assert.Equal(t, 60, result.Components[model.ComponentStructurePreservation])
}

func TestScoreParseStructureByFormat(t *testing.T) {
	svc := newTestConfidenceService()

	cases := map[string]int{
		"txt":  95,
		"md":   95,
		"docx": 90,
		"pdf":  80,
		"bin":  60,
	}
	for format, want := range cases {
		result := svc.ScoreParse(model.ParseMetadata{Text: "short", SourceFormat: format})
		require.Equal(t, want, result.Components[model.ComponentStructurePreservation], "format %s", format)
	}
}

func TestScoreRetrievalStaleWarningOnlyBeyondOneYear(t *testing.T) {
	svc := newTestConfidenceService()

	// 平均 200 天仍在一年以内，不应提示来源超过一年
	within := svc.ScoreRetrieval(makeSources(3, 0.8, 200))
	assert.NotContains(t, within.Warnings, "Sources are older than one year on average")

	beyond := svc.ScoreRetrieval(makeSources(3, 0.8, 400))
	assert.Contains(t, beyond.Warnings, "Sources are older than one year on average")
}

func TestScoreRetrievalMixedSimilarityTriple(t *testing.T) {
	svc := newTestConfidenceService()

	sources := makeSources(3, 0.95, 10)
	sources[1].SimilarityScore = 0.92
	sources[2].SimilarityScore = 0.88

	result := svc.ScoreRetrieval(sources)

	assert.GreaterOrEqual(t, result.Score, 80)
	assert.Equal(t, model.ConfidenceHigh, result.Level)
	assert.True(t, result.ShouldAllowGeneration)
	assert.Empty(t, result.Warnings)
}

func TestLevelForScore(t *testing.T) {
	assert.Equal(t, model.ConfidenceHigh, model.LevelForScore(80))
	assert.Equal(t, model.ConfidenceHigh, model.LevelForScore(100))
	assert.Equal(t, model.ConfidenceMedium, model.LevelForScore(79))
	assert.Equal(t, model.ConfidenceMedium, model.LevelForScore(60))
	assert.Equal(t, model.ConfidenceLow, model.LevelForScore(59))
	assert.Equal(t, model.ConfidenceLow, model.LevelForScore(0))
}
