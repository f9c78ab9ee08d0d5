package agent

// Action is the routing decision produced by the most recently executed node.
// The engine reads it to pick the next transition; every conditional node
// overwrites it before it is read again.
type Action string

const (
	ActionUnset      Action = ""
	ActionRAG        Action = "rag"
	ActionWeb        Action = "web"
	ActionBoth       Action = "both"
	ActionSynthesize Action = "synthesize"
	ActionEnd        Action = "end"
)

// Node identifies a workflow step. Node names are part of the streaming
// contract: they appear verbatim in node_start/node_complete events.
type Node string

const (
	NodeQueryAnalysis    Node = "query_analysis"
	NodeResearchPlanning Node = "research_planning"
	NodeRetrieval        Node = "rag_retrieval"
	NodeWebSearch        Node = "web_search"
	NodeRelevanceCheck   Node = "relevance_check"
	NodeSynthesis        Node = "synthesis"
)

// Chunk is a unit of retrievable text with source metadata.
type Chunk struct {
	Content  string
	Metadata map[string]string
}

// Source returns the source identifier from metadata, or "Unknown".
func (c Chunk) Source() string {
	if s, ok := c.Metadata["source"]; ok && s != "" {
		return s
	}
	return "Unknown"
}

// State is the mutable aggregate threaded through every node of one run.
// It is created fresh per query, owned by exactly one run and never shared,
// so it needs no synchronization.
type State struct {
	// Query is the user's research question, immutable for the run.
	Query string

	// ResearchPlan holds sub-questions; defaults to [Query] when analysis
	// or planning yields none.
	ResearchPlan []string

	RetrievedDocuments []Chunk
	WebResults         []Chunk

	// AllDocuments is always a deduplicated superset of the two above.
	AllDocuments []Chunk

	// Synthesis is empty until the synthesis node runs.
	Synthesis string

	// IterationCount is incremented only by the relevance check.
	IterationCount int

	// Sources is derived at synthesis time from chunk metadata, deduplicated.
	Sources []string

	NextAction Action

	// RelevanceScore is the last evaluation result in [0,10];
	// 0.0 when no documents were available.
	RelevanceScore float64
}

// NewState creates the initial state for a run.
func NewState(query string) *State {
	return &State{
		Query:              query,
		ResearchPlan:       []string{},
		RetrievedDocuments: []Chunk{},
		WebResults:         []Chunk{},
		AllDocuments:       []Chunk{},
		Sources:            []string{},
		NextAction:         ActionUnset,
	}
}

// Result is what the engine hands back after a completed run.
type Result struct {
	Query          string
	Answer         string
	Sources        []string
	DocumentsUsed  int
	RelevanceScore float64
	Iterations     int
}

func (s *State) result() *Result {
	return &Result{
		Query:          s.Query,
		Answer:         s.Synthesis,
		Sources:        s.Sources,
		DocumentsUsed:  len(s.AllDocuments),
		RelevanceScore: s.RelevanceScore,
		Iterations:     s.IterationCount,
	}
}
