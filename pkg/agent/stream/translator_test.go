package stream

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-research-agent-be/internal/pkg/logger"
	"ai-research-agent-be/pkg/agent"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	chunks []agent.Chunk
	err    error
}

func (f *fakeRetriever) Search(context.Context, string, int) ([]agent.Chunk, error) {
	return f.chunks, f.err
}

type fakeGenerator struct {
	relevance string
	synthesis []string // consumed per synthesis call
	err       error

	synthesisCalls int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	switch {
	case strings.HasPrefix(prompt, "Analyze the following research query"):
		return "LOCAL_SEARCH: yes\nWEB_SEARCH: no", nil
	case strings.HasPrefix(prompt, "Evaluate if the retrieved documents"):
		return f.relevance, nil
	case strings.HasPrefix(prompt, "Synthesize a comprehensive answer"):
		idx := f.synthesisCalls
		f.synthesisCalls++
		if idx >= len(f.synthesis) {
			idx = len(f.synthesis) - 1
		}
		return f.synthesis[idx], nil
	}
	return "", errors.New("unexpected prompt")
}

// tokenGenerator additionally streams the synthesis token by token.
type tokenGenerator struct {
	fakeGenerator
	tokens []string
}

func (g *tokenGenerator) GenerateStream(ctx context.Context, prompt string, onToken func(string)) (string, error) {
	if !strings.HasPrefix(prompt, "Synthesize a comprehensive answer") {
		return g.Generate(ctx, prompt)
	}
	var full strings.Builder
	for _, tok := range g.tokens {
		onToken(tok)
		full.WriteString(tok)
	}
	return full.String(), nil
}

type fakePersister struct {
	saved     []*agent.Result
	messageID uuid.UUID
	err       error

	// ctxErr records ctx.Err() as seen at save time; onSave, when set, is
	// closed after the save lands.
	ctxErr error
	onSave chan struct{}
}

func (f *fakePersister) SaveAnswer(ctx context.Context, _ uuid.UUID, result *agent.Result) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.saved = append(f.saved, result)
	f.ctxErr = ctx.Err()
	if f.onSave != nil {
		close(f.onSave)
	}
	return f.messageID, nil
}

func collect(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func indexOf(events []Event, typ EventType, node string) int {
	for i, ev := range events {
		if ev.Type != typ {
			continue
		}
		if node == "" {
			return i
		}
		if data, ok := ev.Data.(NodeData); ok && data.Node == node {
			return i
		}
	}
	return -1
}

func newTestTranslator(r agent.Retriever, g agent.Generator, p Persister) *Translator {
	engine := agent.NewEngine(agent.DefaultConfig(), r, g, logger.NewNopLogger())
	return NewTranslator(engine, p, logger.NewNopLogger())
}

func TestStreamEventOrdering(t *testing.T) {
	retriever := &fakeRetriever{chunks: []agent.Chunk{
		{Content: "X is a thing", Metadata: map[string]string{"source": "a.txt"}},
	}}
	generator := &fakeGenerator{
		relevance: "RELEVANCE_SCORE: 9",
		synthesis: []string{"X is a thing [Source: a.txt]"},
	}
	persister := &fakePersister{messageID: uuid.New()}

	tr := newTestTranslator(retriever, generator, persister)
	events := collect(tr.Stream(context.Background(), uuid.New(), "What is X?"))

	// Every node_start precedes its node_complete.
	for _, node := range []string{"query_analysis", "rag_retrieval", "relevance_check", "synthesis"} {
		start := indexOf(events, EventNodeStart, node)
		complete := indexOf(events, EventNodeComplete, node)
		require.GreaterOrEqualf(t, start, 0, "missing node_start for %s", node)
		require.GreaterOrEqualf(t, complete, 0, "missing node_complete for %s", node)
		assert.Lessf(t, start, complete, "node_start after node_complete for %s", node)
	}

	// synthesis_complete precedes node_complete(synthesis).
	synthComplete := indexOf(events, EventSynthesisComplete, "")
	nodeComplete := indexOf(events, EventNodeComplete, "synthesis")
	require.GreaterOrEqual(t, synthComplete, 0)
	assert.Less(t, synthComplete, nodeComplete)

	synthData, ok := events[synthComplete].Data.(SynthesisData)
	require.True(t, ok)
	assert.Contains(t, synthData.Content, "a.txt")
	assert.Equal(t, []string{"a.txt"}, synthData.Sources)
	assert.Equal(t, 1, synthData.DocumentsUsed)
	assert.Equal(t, 1, synthData.Iterations)
	assert.Equal(t, 9.0, synthData.RelevanceScore)

	// Exactly one terminal event, and it is the last event.
	terminals := 0
	for _, ev := range events {
		if ev.Type == EventComplete || ev.Type == EventError {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Type)
	assert.Equal(t, CompleteData{MessageID: persister.messageID.String()}, last.Data)

	require.Len(t, persister.saved, 1)
}

func TestStreamWorkflowFailureEmitsErrorWithoutPersisting(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("model unavailable")}
	persister := &fakePersister{messageID: uuid.New()}

	tr := newTestTranslator(&fakeRetriever{}, generator, persister)
	events := collect(tr.Stream(context.Background(), uuid.New(), "q"))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)

	terminals := 0
	for _, ev := range events {
		if ev.Type == EventComplete || ev.Type == EventError {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	assert.Empty(t, persister.saved, "failed runs must not persist")
}

func TestStreamPersistenceFailureEmitsError(t *testing.T) {
	retriever := &fakeRetriever{chunks: []agent.Chunk{
		{Content: "text", Metadata: map[string]string{"source": "s.txt"}},
	}}
	generator := &fakeGenerator{
		relevance: "RELEVANCE_SCORE: 9",
		synthesis: []string{"answer"},
	}
	persister := &fakePersister{err: errors.New("db down")}

	tr := newTestTranslator(retriever, generator, persister)
	events := collect(tr.Stream(context.Background(), uuid.New(), "q"))

	last := events[len(events)-1]
	require.Equal(t, EventError, last.Type)
	data, ok := last.Data.(ErrorData)
	require.True(t, ok)
	assert.Contains(t, data.Error, "db down")
}

func TestStreamTokenEvents(t *testing.T) {
	retriever := &fakeRetriever{chunks: []agent.Chunk{
		{Content: "text", Metadata: map[string]string{"source": "s.txt"}},
	}}
	generator := &tokenGenerator{
		fakeGenerator: fakeGenerator{relevance: "RELEVANCE_SCORE: 9"},
		tokens:        []string{"Hel", "lo ", "world"},
	}
	persister := &fakePersister{messageID: uuid.New()}

	tr := newTestTranslator(retriever, generator, persister)
	events := collect(tr.Stream(context.Background(), uuid.New(), "q"))

	var tokens []TokenData
	for _, ev := range events {
		if ev.Type == EventToken {
			tokens = append(tokens, ev.Data.(TokenData))
		}
	}

	require.Len(t, tokens, 3)
	assert.Equal(t, "Hel", tokens[0].Token)
	assert.Equal(t, "Hel", tokens[0].PartialResponse)
	assert.Equal(t, "world", tokens[2].Token)
	assert.Equal(t, "Hello world", tokens[2].PartialResponse)

	// Tokens arrive before the synthesis_complete event.
	lastToken := indexOf(events, EventToken, "")
	synthComplete := indexOf(events, EventSynthesisComplete, "")
	assert.Less(t, lastToken, synthComplete)
}

// blockingGenerator parks until the run's context is cancelled.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// cancellingGenerator cancels the consumer's context while producing the
// synthesis, simulating a disconnect after the run's work is done.
type cancellingGenerator struct {
	fakeGenerator
	cancel context.CancelFunc
}

func (g *cancellingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.HasPrefix(prompt, "Synthesize a comprehensive answer") {
		g.cancel()
	}
	return g.fakeGenerator.Generate(ctx, prompt)
}

func TestStreamSlowConsumerDropsEventsButRunPersists(t *testing.T) {
	retriever := &fakeRetriever{chunks: []agent.Chunk{
		{Content: "text", Metadata: map[string]string{"source": "s.txt"}},
	}}
	tokens := make([]string, 200)
	for i := range tokens {
		tokens[i] = "t"
	}
	generator := &tokenGenerator{
		fakeGenerator: fakeGenerator{relevance: "RELEVANCE_SCORE: 9"},
		tokens:        tokens,
	}
	persister := &fakePersister{messageID: uuid.New(), onSave: make(chan struct{})}

	tr := newTestTranslator(retriever, generator, persister)
	tr.bufSize = 8
	ch := tr.Stream(context.Background(), uuid.New(), "q")

	// Read nothing until the answer is durably stored: an absent consumer
	// must not stall the run.
	<-persister.onSave
	require.Len(t, persister.saved, 1)

	events := collect(ch)

	received := 0
	for _, ev := range events {
		if ev.Type == EventToken {
			received++
		}
	}
	assert.Greater(t, received, 0)
	assert.Less(t, received, len(tokens), "a full buffer must drop token events")

	terminals := 0
	for _, ev := range events {
		if ev.Type == EventComplete || ev.Type == EventError {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	assert.Equal(t, EventComplete, events[len(events)-1].Type)
}

func TestStreamMidRunCancelPersistsNothing(t *testing.T) {
	persister := &fakePersister{messageID: uuid.New()}
	tr := newTestTranslator(&fakeRetriever{}, blockingGenerator{}, persister)

	ctx, cancel := context.WithCancel(context.Background())
	ch := tr.Stream(ctx, uuid.New(), "q")
	cancel()

	events := collect(ch)

	assert.Empty(t, persister.saved, "a cancelled run must not persist")
	for _, ev := range events {
		assert.NotEqual(t, EventComplete, ev.Type)
	}
}

func TestStreamCompletedRunPersistsDespiteCancel(t *testing.T) {
	retriever := &fakeRetriever{chunks: []agent.Chunk{
		{Content: "text", Metadata: map[string]string{"source": "s.txt"}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	generator := &cancellingGenerator{
		fakeGenerator: fakeGenerator{
			relevance: "RELEVANCE_SCORE: 9",
			synthesis: []string{"answer"},
		},
		cancel: cancel,
	}
	persister := &fakePersister{messageID: uuid.New()}

	tr := newTestTranslator(retriever, generator, persister)
	collect(tr.Stream(ctx, uuid.New(), "q"))

	// The disconnect arrived after the run finished: the answer still lands,
	// saved under a non-cancelable context.
	require.Len(t, persister.saved, 1)
	assert.Equal(t, "answer", persister.saved[0].Answer)
	assert.NoError(t, persister.ctxErr)
}

func TestStreamSyncFallbackWhenNoSynthesisSurfaced(t *testing.T) {
	retriever := &fakeRetriever{chunks: []agent.Chunk{
		{Content: "text", Metadata: map[string]string{"source": "s.txt"}},
	}}
	// First synthesis yields nothing, the synchronous fallback recovers.
	generator := &fakeGenerator{
		relevance: "RELEVANCE_SCORE: 9",
		synthesis: []string{"", "recovered answer"},
	}
	persister := &fakePersister{messageID: uuid.New()}

	tr := newTestTranslator(retriever, generator, persister)
	events := collect(tr.Stream(context.Background(), uuid.New(), "q"))

	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Type)

	require.Len(t, persister.saved, 1)
	assert.Equal(t, "recovered answer", persister.saved[0].Answer)
}
