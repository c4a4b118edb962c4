package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextOverlap(t *testing.T) {
	text := strings.Repeat("a", 2500)

	chunks := splitText(text, 1000, 100)

	require.Len(t, chunks, 3)
	assert.Len(t, []rune(chunks[0]), 1000)
	assert.Len(t, []rune(chunks[1]), 1000)
	// 最后一块是余量：2500 - 2*900 = 700
	assert.Len(t, []rune(chunks[2]), 700)
}

func TestSplitTextShortInput(t *testing.T) {
	chunks := splitText("short text", 1000, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])

	assert.Nil(t, splitText("", 1000, 100))
}

func TestSplitTextInvalidOverlapFallsBack(t *testing.T) {
	text := strings.Repeat("b", 250)

	chunks := splitText(text, 100, 100)

	// 重叠无效时退回无重叠切分
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 50)
}

func TestAnalyzeTextExtractsSignals(t *testing.T) {
	text := "On 2024-03-15 the Acme Foundation awarded $125,000 to Jane Smith " +
		"for the literacy initiative. A follow-up review is scheduled for Jun 1, 2025."

	meta := analyzeText(text, "pdf")

	assert.Equal(t, "pdf", meta.SourceFormat)
	assert.Equal(t, 2, meta.DateCount)
	assert.True(t, meta.HasAmounts)
	assert.True(t, meta.HasNames)
	assert.True(t, meta.HasOrgs)
}

func TestAnalyzeTextNoSignals(t *testing.T) {
	meta := analyzeText("plain lowercase text without any structured facts", "txt")

	assert.Equal(t, 0, meta.DateCount)
	assert.False(t, meta.HasAmounts)
	assert.False(t, meta.HasNames)
	assert.False(t, meta.HasOrgs)
}
