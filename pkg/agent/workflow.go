package agent

import (
	"context"
	"fmt"

	"ai-research-agent-be/internal/pkg/logger"
)

// Retriever is the retrieval capability: up to k relevant chunks for a
// query, similarity ordered, with source metadata.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Chunk, error)
}

// Generator is the generation capability. Transient failures are retried
// inside the capability (bounded attempts with backoff); whatever reaches
// the engine is fatal.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamingGenerator is optionally implemented by generators that expose
// incremental output. The engine uses it for synthesis only; absence of
// incremental output is not an error.
type StreamingGenerator interface {
	Generator
	GenerateStream(ctx context.Context, prompt string, onToken func(token string)) (string, error)
}

// Observer receives run progress. All methods are called from the run's
// own goroutine, in step order. A nil observer is valid.
type Observer interface {
	NodeStart(node Node)
	NodeComplete(node Node, st *State)
	Token(node Node, token string)
}

// Config holds the knobs bounding a research run.
type Config struct {
	// MaxIterations caps relevance-driven retrieval loops.
	MaxIterations int
	// RelevanceThreshold is the minimum score to stop looping.
	RelevanceThreshold float64
	// RetrievalTopK is the chunk count fetched for the main query.
	RetrievalTopK int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:      3,
		RelevanceThreshold: 7.0,
		RetrievalTopK:      5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.RelevanceThreshold <= 0 {
		c.RelevanceThreshold = d.RelevanceThreshold
	}
	if c.RetrievalTopK <= 0 {
		c.RetrievalTopK = d.RetrievalTopK
	}
	return c
}

// subQuestionTopK is the smaller fetch used per sub-question retrieval.
const subQuestionTopK = 3

// Engine runs the research workflow: query analysis -> [planning] ->
// retrieval -> relevance gating -> (loop via web fallback) -> synthesis.
// Steps execute strictly sequentially; the state is owned by one run.
// Engines are stateless across runs and safe to share between concurrent
// requests.
type Engine struct {
	cfg       Config
	retriever Retriever
	generator Generator
	logger    logger.ILogger
}

// NewEngine creates a workflow engine. Zero config fields fall back to
// DefaultConfig values.
func NewEngine(cfg Config, retriever Retriever, generator Generator, log logger.ILogger) *Engine {
	return &Engine{
		cfg:       cfg.withDefaults(),
		retriever: retriever,
		generator: generator,
		logger:    log,
	}
}

// transition is a tagged variant (node, routing action). Unconditional
// edges use actionAny.
type transition struct {
	node   Node
	action Action
}

const actionAny Action = "*"

var transitions = map[transition]Node{
	{NodeQueryAnalysis, ActionRAG}:       NodeRetrieval,
	{NodeQueryAnalysis, ActionWeb}:       NodeWebSearch,
	{NodeQueryAnalysis, ActionBoth}:      NodeResearchPlanning,
	{NodeResearchPlanning, actionAny}:    NodeRetrieval,
	{NodeRetrieval, actionAny}:           NodeRelevanceCheck,
	{NodeRelevanceCheck, ActionSynthesize}: NodeSynthesis,
	{NodeRelevanceCheck, ActionWeb}:        NodeWebSearch,
	{NodeWebSearch, ActionSynthesize}:      NodeSynthesis,
}

// route resolves the next node for a (node, action) pair. Exact matches
// win over unconditional edges.
func route(node Node, action Action) (Node, bool) {
	if next, ok := transitions[transition{node, action}]; ok {
		return next, true
	}
	if next, ok := transitions[transition{node, actionAny}]; ok {
		return next, true
	}
	return "", false
}

// Run executes one workflow run to completion. obs may be nil.
func (e *Engine) Run(ctx context.Context, query string, obs Observer) (*Result, error) {
	st := NewState(query)
	node := NodeQueryAnalysis

	e.logger.Info("Workflow", "Starting research run", map[string]interface{}{"query": query})

	for {
		if err := ctx.Err(); err != nil {
			return nil, &WorkflowError{Node: node, Err: err}
		}

		if obs != nil {
			obs.NodeStart(node)
		}

		if err := e.step(ctx, node, st, obs); err != nil {
			return nil, &WorkflowError{Node: node, Err: err}
		}

		if obs != nil {
			obs.NodeComplete(node, st)
		}

		if node == NodeSynthesis {
			break
		}

		next, ok := route(node, st.NextAction)
		if !ok {
			return nil, &WorkflowError{
				Node: node,
				Err:  fmt.Errorf("no transition for action %q", st.NextAction),
			}
		}
		node = next
	}

	e.logger.Info("Workflow", "Research run completed", map[string]interface{}{
		"iterations":      st.IterationCount,
		"documents_used":  len(st.AllDocuments),
		"relevance_score": st.RelevanceScore,
	})

	return st.result(), nil
}

func (e *Engine) step(ctx context.Context, node Node, st *State, obs Observer) error {
	switch node {
	case NodeQueryAnalysis:
		return e.queryAnalysis(ctx, st)
	case NodeResearchPlanning:
		return e.researchPlanning(ctx, st)
	case NodeRetrieval:
		return e.retrieval(ctx, st)
	case NodeRelevanceCheck:
		return e.relevanceCheck(ctx, st)
	case NodeWebSearch:
		return e.webSearch(st)
	case NodeSynthesis:
		return e.synthesis(ctx, st, obs)
	default:
		return fmt.Errorf("unknown node %q", node)
	}
}
