package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"grant-trust-go/internal/model"
	"grant-trust-go/internal/repository"
	"grant-trust-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetrieval struct {
	sources []model.SourceChunk
	err     error
}

func (f *fakeRetrieval) Retrieve(ctx context.Context, query, tenantID string, topK int, minScore float64) ([]model.SourceChunk, error) {
	return f.sources, f.err
}

type fakeLLM struct {
	completion  *llm.Completion
	err         error
	calls       int
	lastSystem  string
	lastMessage string
}

func (f *fakeLLM) Complete(ctx context.Context, systemPrompt, userMessage string, gen *llm.GenerationParams) (*llm.Completion, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastMessage = userMessage
	return f.completion, f.err
}

type fakeAudit struct {
	records int
	err     error
	lastCtx AuditContext
}

func (f *fakeAudit) Record(ctx context.Context, prompt, content string, sources []model.SourceChunk,
	confidence model.ConfidenceResult, modelName string, tokensUsed int, actx AuditContext) (string, error) {
	f.records++
	f.lastCtx = actx
	if f.err != nil {
		return "", f.err
	}
	return "audit-1", nil
}

func (f *fakeAudit) Query(ctx context.Context, filter repository.AuditFilter) (*repository.AuditPage, error) {
	return &repository.AuditPage{}, nil
}

func (f *fakeAudit) Get(ctx context.Context, tenantID, id string) (*model.AuditRecord, error) {
	return nil, errors.New("not implemented")
}

func testUser() *model.User {
	return &model.User{ID: 7, Username: "alice", Role: "user", TenantID: "tenant-a"}
}

func newPipeline(retrieval *fakeRetrieval, llmClient *fakeLLM, audit *fakeAudit) GenerationService {
	return NewGenerationService(
		retrieval,
		newTestConfidenceService(),
		NewTrustGate(60),
		llmClient,
		audit,
	)
}

func TestGenerateGroundedBlockedByGate(t *testing.T) {
	retrieval := &fakeRetrieval{sources: nil} // 空检索集必然拦截
	llmClient := &fakeLLM{}
	audit := &fakeAudit{}
	svc := newPipeline(retrieval, llmClient, audit)

	outcome, err := svc.GenerateGrounded(context.Background(), model.GenerationRequest{
		Query: "What outcomes did our youth program achieve?",
	}, testUser())

	require.NoError(t, err)
	assert.False(t, outcome.ShouldGenerate)
	assert.Nil(t, outcome.Content)
	assert.False(t, outcome.ShouldDisplay)
	assert.Equal(t, 0, outcome.Confidence.Score)
	assert.Contains(t, outcome.Confidence.Warnings, WarningNoSources)
	// 拦截时绝不调用模型，但审计照常入账
	assert.Equal(t, 0, llmClient.calls)
	assert.Equal(t, 1, audit.records)
	require.NotNil(t, outcome.AuditID)
	assert.Equal(t, "audit-1", *outcome.AuditID)
}

func TestGenerateGroundedBlockedKeepsWeakSource(t *testing.T) {
	// 单个弱相似度的陈旧来源：拦截，但来源本身仍随结果返回供人工复核
	retrieval := &fakeRetrieval{sources: makeSources(1, 0.35, 800)}
	llmClient := &fakeLLM{}
	audit := &fakeAudit{}
	svc := newPipeline(retrieval, llmClient, audit)

	outcome, err := svc.GenerateGrounded(context.Background(), model.GenerationRequest{
		Query: "What did the pilot program cost?",
	}, testUser())

	require.NoError(t, err)
	assert.False(t, outcome.ShouldGenerate)
	assert.Nil(t, outcome.Content)
	assert.Less(t, outcome.Confidence.Score, 60)
	require.Len(t, outcome.Sources, 1)
	assert.Equal(t, 0.35, outcome.Sources[0].SimilarityScore)
	assert.Equal(t, 0, llmClient.calls)
	assert.Equal(t, 1, audit.records)
}

func TestGenerateGroundedHighConfidenceTripleOpensGate(t *testing.T) {
	sources := makeSources(3, 0.95, 10)
	sources[1].SimilarityScore = 0.92
	sources[2].SimilarityScore = 0.88
	llmClient := &fakeLLM{completion: &llm.Completion{
		Content: "The foundation awarded a grant of $50,000 to support community education programs.",
		Model:   "gpt-4o",
	}}
	svc := newPipeline(&fakeRetrieval{sources: sources}, llmClient, &fakeAudit{})

	outcome, err := svc.GenerateGrounded(context.Background(), model.GenerationRequest{
		Query: "Summarize the community education grant",
	}, testUser())

	require.NoError(t, err)
	assert.True(t, outcome.ShouldGenerate)
	require.NotNil(t, outcome.Content)
	assert.Equal(t, 1, llmClient.calls)
	assert.Len(t, outcome.Sources, 3)
}

func TestGenerateGroundedMediumConfidenceProceeds(t *testing.T) {
	// 中等相似度、半年多前的来源：检索分落在 [60,80)，放行但不是 high
	sources := makeSources(4, 0.75, 200)
	conf := newTestConfidenceService().ScoreRetrieval(sources)
	require.True(t, conf.ShouldAllowGeneration)
	assert.Equal(t, model.ConfidenceMedium, conf.Level)
	assert.GreaterOrEqual(t, conf.Score, 60)
	assert.Less(t, conf.Score, 80)

	llmClient := &fakeLLM{completion: &llm.Completion{
		Content: "The foundation awarded a grant of $50,000.",
		Model:   "gpt-4o",
	}}
	audit := &fakeAudit{}
	svc := newPipeline(&fakeRetrieval{sources: sources}, llmClient, audit)

	outcome, err := svc.GenerateGrounded(context.Background(), model.GenerationRequest{
		Query: "How large was the award?",
	}, testUser())

	require.NoError(t, err)
	assert.True(t, outcome.ShouldGenerate)
	assert.Equal(t, 1, llmClient.calls)
	assert.Equal(t, 1, audit.records)
}

func TestGenerateGroundedProceeds(t *testing.T) {
	retrieval := &fakeRetrieval{sources: makeSources(10, 0.92, 10)}
	llmClient := &fakeLLM{completion: &llm.Completion{
		Content:          "The foundation awarded a grant of $50,000 to support community education programs.",
		Model:            "gpt-4o",
		PromptTokens:     900,
		CompletionTokens: 120,
	}}
	audit := &fakeAudit{}
	svc := newPipeline(retrieval, llmClient, audit)

	outcome, err := svc.GenerateGrounded(context.Background(), model.GenerationRequest{
		Query: "Summarize the community education grant",
		Mode:  model.ModeAIDraft,
	}, testUser())

	require.NoError(t, err)
	assert.True(t, outcome.ShouldGenerate)
	require.NotNil(t, outcome.Content)
	assert.True(t, outcome.ShouldDisplay)
	assert.Len(t, outcome.Sources, 10)
	assert.Equal(t, 1, llmClient.calls)
	assert.Equal(t, 1, audit.records)
	assert.Equal(t, model.ModeAIDraft, audit.lastCtx.Mode)

	// 用户消息必须携带带标签的来源块
	assert.Contains(t, llmClient.lastMessage, "[S1]")
	assert.Contains(t, llmClient.lastMessage, "annual-report.pdf")
	assert.Contains(t, llmClient.lastSystem, "ONLY facts that appear in the provided sources")
}

func TestGenerateGroundedModePrompts(t *testing.T) {
	retrieval := &fakeRetrieval{sources: makeSources(10, 0.92, 10)}
	llmClient := &fakeLLM{completion: &llm.Completion{Content: "draft", Model: "gpt-4o"}}
	svc := newPipeline(retrieval, llmClient, &fakeAudit{})

	_, err := svc.GenerateGrounded(context.Background(), model.GenerationRequest{
		Query: "help with the budget narrative",
		Mode:  model.ModeHumanFirst,
	}, testUser())
	require.NoError(t, err)
	assert.Contains(t, llmClient.lastSystem, "without drafting any prose")

	_, err = svc.GenerateGrounded(context.Background(), model.GenerationRequest{
		Query: "help with the budget narrative",
	}, testUser())
	require.NoError(t, err)
	// 缺省模式是 memory_assist
	assert.Contains(t, llmClient.lastSystem, "talking points")
}

func TestGenerateGroundedValidation(t *testing.T) {
	svc := newPipeline(&fakeRetrieval{}, &fakeLLM{}, &fakeAudit{})

	_, err := svc.GenerateGrounded(context.Background(), model.GenerationRequest{Query: "  "}, testUser())
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = svc.GenerateGrounded(context.Background(), model.GenerationRequest{
		Query: strings.Repeat("q", MaxQueryLength+1),
	}, testUser())
	assert.ErrorIs(t, err, ErrQueryTooLong)

	_, err = svc.GenerateGrounded(context.Background(), model.GenerationRequest{
		Query: "valid", Mode: "freestyle",
	}, testUser())
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = svc.GenerateGrounded(context.Background(), model.GenerationRequest{Query: "valid"}, nil)
	assert.ErrorIs(t, err, ErrInvalidTenant)
}

func TestGenerateGroundedRetrievalFailure(t *testing.T) {
	retrieval := &fakeRetrieval{err: errors.New("embedding api down")}
	llmClient := &fakeLLM{}
	audit := &fakeAudit{}
	svc := newPipeline(retrieval, llmClient, audit)

	_, err := svc.GenerateGrounded(context.Background(), model.GenerationRequest{Query: "valid"}, testUser())

	require.Error(t, err)
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrorTypeExternal, de.Type)
	// 检索失败中止整个请求：不调模型，不写审计
	assert.Equal(t, 0, llmClient.calls)
	assert.Equal(t, 0, audit.records)
}

func TestGenerateGroundedLLMFailure(t *testing.T) {
	retrieval := &fakeRetrieval{sources: makeSources(10, 0.92, 10)}
	llmClient := &fakeLLM{err: errors.New("model timeout")}
	audit := &fakeAudit{}
	svc := newPipeline(retrieval, llmClient, audit)

	_, err := svc.GenerateGrounded(context.Background(), model.GenerationRequest{Query: "valid"}, testUser())

	require.Error(t, err)
	// 没有自动重试
	assert.Equal(t, 1, llmClient.calls)
	assert.Equal(t, 0, audit.records)
}

func TestGenerateGroundedAuditFailureDoesNotFailRequest(t *testing.T) {
	retrieval := &fakeRetrieval{sources: makeSources(10, 0.92, 10)}
	llmClient := &fakeLLM{completion: &llm.Completion{Content: "The foundation awarded a grant.", Model: "gpt-4o"}}
	audit := &fakeAudit{err: errors.New("db write failed")}
	svc := newPipeline(retrieval, llmClient, audit)

	outcome, err := svc.GenerateGrounded(context.Background(), model.GenerationRequest{Query: "valid"}, testUser())

	require.NoError(t, err)
	assert.True(t, outcome.ShouldGenerate)
	assert.Nil(t, outcome.AuditID)
}

func TestSearchMemoryValidation(t *testing.T) {
	svc := newPipeline(&fakeRetrieval{sources: makeSources(2, 0.8, 10)}, &fakeLLM{}, &fakeAudit{})

	_, err := svc.SearchMemory(context.Background(), "", "tenant-a", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = svc.SearchMemory(context.Background(), "query", "", 5)
	assert.ErrorIs(t, err, ErrInvalidTenant)

	sources, err := svc.SearchMemory(context.Background(), "query", "tenant-a", 5)
	require.NoError(t, err)
	assert.Len(t, sources, 2)
}
