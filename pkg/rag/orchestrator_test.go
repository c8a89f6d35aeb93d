package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat-be/internal/config"
	"paperchat-be/internal/entity"
	"paperchat-be/internal/registry"
	"paperchat-be/internal/retrieval"
	"paperchat-be/pkg/index"
	"paperchat-be/pkg/llm"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// scriptedProvider streams a fixed token sequence, optionally dying midway.
type scriptedProvider struct {
	tokens     []string
	failAfter  int // fail once this many tokens went out; -1 disables
	lastPrompt string
}

func (p *scriptedProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	return strings.Join(p.tokens, ""), nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, history []llm.Message, fn llm.TokenFunc, _ ...llm.Option) error {
	p.lastPrompt = history[len(history)-1].Content
	for i, tok := range p.tokens {
		if p.failAfter >= 0 && i == p.failAfter {
			return errors.New("connection reset by peer")
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(tok); err != nil {
			return err
		}
	}
	return nil
}

type stubRetriever struct {
	results []retrieval.Result
	err     error
	block   bool
}

func (s *stubRetriever) Retrieve(ctx context.Context, _ uuid.UUID, _ string, _ int) ([]retrieval.Result, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.results, s.err
}

func collect(fragments *[]Fragment) FragmentFunc {
	return func(f Fragment) error {
		*fragments = append(*fragments, f)
		return nil
	}
}

func joinContent(fragments []Fragment) string {
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(f.Content)
	}
	return b.String()
}

func newTestOrchestrator(provider llm.Provider, retriever ContextRetriever) (*Orchestrator, *registry.Registry) {
	reg := registry.New(time.Hour, time.Hour, nopLogger{})
	o := NewOrchestrator(
		reg, retriever, provider, nopLogger{},
		config.ChatConfig{HistoryWindow: 10, CompletionTimeout: 2 * time.Second},
		config.RetrievalConfig{TopK: 5, Threshold: 0.3, Timeout: 100 * time.Millisecond},
	)
	return o, reg
}

func TestChat_StreamsTokensAndRecordsTranscript(t *testing.T) {
	provider := &scriptedProvider{tokens: []string{"Hello", " there", "."}, failAfter: -1}
	o, reg := newTestOrchestrator(provider, &stubRetriever{})
	h := reg.Create()

	var fragments []Fragment
	err := o.Chat(context.Background(), h.Id(), "hi", collect(&fragments))
	require.NoError(t, err)

	require.NotEmpty(t, fragments)
	last := fragments[len(fragments)-1]
	assert.True(t, last.Done)
	assert.Equal(t, "Hello there.", joinContent(fragments))

	msgs := h.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.ChatMessageRoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, entity.ChatMessageRoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello there.", msgs[1].Content)
	assert.True(t, msgs[1].Done)
}

func TestChat_RelatedPayloadStrippedFromContent(t *testing.T) {
	provider := &scriptedProvider{
		tokens:    []string{"See the survey.", "%%", `[["2101.00001"]]`, "%%", " More text."},
		failAfter: -1,
	}
	o, reg := newTestOrchestrator(provider, &stubRetriever{})
	h := reg.Create()

	var fragments []Fragment
	require.NoError(t, o.Chat(context.Background(), h.Id(), "related work?", collect(&fragments)))

	assert.Equal(t, "See the survey. More text.", joinContent(fragments))

	var related []string
	for _, f := range fragments {
		related = append(related, f.Related...)
	}
	assert.Equal(t, []string{"2101.00001"}, related)

	msgs := h.Messages()
	assert.Equal(t, "See the survey. More text.", msgs[1].Content, "markers never reach the transcript")
}

func TestChat_ProviderFailureApologizesAndStaysUsable(t *testing.T) {
	provider := &scriptedProvider{tokens: []string{"Partial ", "answer ", "never finished"}, failAfter: 2}
	o, reg := newTestOrchestrator(provider, &stubRetriever{})
	h := reg.Create()

	var fragments []Fragment
	err := o.Chat(context.Background(), h.Id(), "question", collect(&fragments))
	require.NoError(t, err, "a dead provider is reported in-band, not as a transport error")

	last := fragments[len(fragments)-1]
	assert.True(t, last.Done)
	assert.Contains(t, joinContent(fragments), apology)

	msgs := h.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].Done)
	assert.Contains(t, msgs[1].Content, "Partial answer ")
	assert.Contains(t, msgs[1].Content, apology)

	// The next turn works against the same session.
	provider.failAfter = -1
	fragments = nil
	require.NoError(t, o.Chat(context.Background(), h.Id(), "again", collect(&fragments)))
	assert.True(t, fragments[len(fragments)-1].Done)
	assert.Len(t, h.Messages(), 4)
}

func TestChat_RetrievalTimeoutDegradesToEmptyContext(t *testing.T) {
	provider := &scriptedProvider{tokens: []string{"Answer without context."}, failAfter: -1}
	o, reg := newTestOrchestrator(provider, &stubRetriever{block: true})
	h := reg.Create()

	var fragments []Fragment
	start := time.Now()
	err := o.Chat(context.Background(), h.Id(), "question", collect(&fragments))

	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "retrieval deadline bounds the wait")
	assert.NotContains(t, provider.lastPrompt, "<reference_material>")
	assert.True(t, fragments[len(fragments)-1].Done)
}

func TestChat_RetrievedChunksReachThePrompt(t *testing.T) {
	doc := entity.DocumentRef{Id: uuid.New(), Name: "2101.00001", Origin: entity.DocumentOriginFetched}
	retriever := &stubRetriever{results: []retrieval.Result{{
		Chunk:    index.Chunk{DocumentId: doc.Id, Index: 0, Text: "transformers use attention"},
		Score:    0.9,
		Document: doc,
	}}}
	provider := &scriptedProvider{tokens: []string{"ok"}, failAfter: -1}
	o, reg := newTestOrchestrator(provider, retriever)
	h := reg.Create()

	var fragments []Fragment
	require.NoError(t, o.Chat(context.Background(), h.Id(), "what is attention?", collect(&fragments)))

	assert.Contains(t, provider.lastPrompt, "<reference_material>")
	assert.Contains(t, provider.lastPrompt, "transformers use attention")
	assert.Contains(t, provider.lastPrompt, "2101.00001")
}

func TestChat_UnknownSessionErrors(t *testing.T) {
	o, _ := newTestOrchestrator(&scriptedProvider{failAfter: -1}, &stubRetriever{})

	err := o.Chat(context.Background(), uuid.New(), "hi", func(Fragment) error { return nil })
	assert.Error(t, err)
}

func TestChat_CallerDisconnectStopsStream(t *testing.T) {
	provider := &scriptedProvider{tokens: []string{"a", "b", "c", "d"}, failAfter: -1}
	o, reg := newTestOrchestrator(provider, &stubRetriever{})
	h := reg.Create()

	ctx, cancel := context.WithCancel(context.Background())
	var fragments []Fragment
	emit := func(f Fragment) error {
		fragments = append(fragments, f)
		if len(fragments) == 2 {
			cancel()
			return context.Canceled
		}
		return nil
	}

	err := o.Chat(ctx, h.Id(), "hi", emit)
	require.NoError(t, err)

	assert.Len(t, fragments, 2, "no fragments after the caller went away")

	// The assistant message is still finalized with what made it through.
	msgs := h.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].Done)
}
