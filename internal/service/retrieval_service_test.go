package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"grant-trust-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = f.vector
	}
	return result, nil
}

type fakeSearcher struct {
	hits       []VectorHit
	err        error
	lastTenant string
	lastTopK   int
}

func (f *fakeSearcher) Search(ctx context.Context, tenantID string, vector []float32, topK int) ([]VectorHit, error) {
	f.lastTenant = tenantID
	f.lastTopK = topK
	return f.hits, f.err
}

func hit(docID string, chunkIndex int, score float64, text string) VectorHit {
	return VectorHit{
		Doc: model.EsDocument{
			DocumentID:      docID,
			DocumentName:    docID + ".pdf",
			ChunkIndex:      chunkIndex,
			TextContent:     text,
			ParseConfidence: 85,
			CreatedAt:       time.Now().AddDate(0, 0, -30),
		},
		Score: score,
	}
}

func TestRetrieveFiltersByMinScore(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	searcher := &fakeSearcher{hits: []VectorHit{
		hit("doc-1", 0, 0.95, "strong match"),
		hit("doc-2", 0, 0.72, "moderate match"),
		hit("doc-3", 0, 0.40, "weak match"),
	}}
	svc := NewRetrievalService(embedder, searcher, 10, 0.7)

	sources, err := svc.Retrieve(context.Background(), "grant outcomes", "tenant-a", 0, 0)

	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "doc-1", sources[0].DocumentID)
	assert.Equal(t, "doc-2", sources[1].DocumentID)
	assert.Equal(t, "tenant-a", searcher.lastTenant)
	assert.Equal(t, 10, searcher.lastTopK)
}

func TestRetrieveSkipsEmptyText(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	searcher := &fakeSearcher{hits: []VectorHit{
		hit("doc-1", 0, 0.9, ""),
		hit("doc-2", 0, 0.85, "usable text"),
	}}
	svc := NewRetrievalService(embedder, searcher, 10, 0.7)

	sources, err := svc.Retrieve(context.Background(), "query", "tenant-a", 0, 0)

	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "doc-2", sources[0].DocumentID)
}

func TestRetrieveCapsAtTopK(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	hits := make([]VectorHit, 0, 8)
	for i := 0; i < 8; i++ {
		hits = append(hits, hit("doc", i, 0.9, "text"))
	}
	searcher := &fakeSearcher{hits: hits}
	svc := NewRetrievalService(embedder, searcher, 10, 0.7)

	sources, err := svc.Retrieve(context.Background(), "query", "tenant-a", 3, 0)

	require.NoError(t, err)
	assert.Len(t, sources, 3)
	// 保持索引返回的顺序
	for i, src := range sources {
		assert.Equal(t, i, src.ChunkIndex)
	}
}

func TestRetrieveUnconfiguredReturnsEmpty(t *testing.T) {
	svc := NewRetrievalService(nil, nil, 10, 0.7)

	sources, err := svc.Retrieve(context.Background(), "query", "tenant-a", 0, 0)

	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestRetrieveEmbeddingErrorPropagates(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("upstream unavailable")}
	searcher := &fakeSearcher{}
	svc := NewRetrievalService(embedder, searcher, 10, 0.7)

	sources, err := svc.Retrieve(context.Background(), "query", "tenant-a", 0, 0)

	assert.Error(t, err)
	assert.Nil(t, sources)
}

func TestRetrieveSearchErrorPropagates(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	searcher := &fakeSearcher{err: errors.New("index unreachable")}
	svc := NewRetrievalService(embedder, searcher, 10, 0.7)

	_, err := svc.Retrieve(context.Background(), "query", "tenant-a", 0, 0)
	assert.Error(t, err)
}
