package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRecordImmutableHooks(t *testing.T) {
	record := AuditRecord{}

	assert.ErrorIs(t, record.BeforeUpdate(nil), ErrAuditRecordImmutable)
	assert.ErrorIs(t, record.BeforeDelete(nil), ErrAuditRecordImmutable)
}

func TestAuditRecordSources(t *testing.T) {
	record := &AuditRecord{}

	// 未设置来源时返回空列表而不是错误
	sources, err := record.Sources()
	require.NoError(t, err)
	assert.Empty(t, sources)

	in := []SourceChunk{
		{DocumentID: "doc-1", DocumentName: "report.pdf", Text: "full chunk text", ChunkIndex: 2, SimilarityScore: 0.91},
	}
	require.NoError(t, record.SetSources(in))

	out, err := record.Sources()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "doc-1", out[0].DocumentID)
	assert.Equal(t, "full chunk text", out[0].Text)
	assert.Equal(t, 0.91, out[0].SimilarityScore)
}
