package stream

// EventType names an event in the ordered stream a consumer receives while
// a research run progresses. Serialization of event bodies is the
// transport's concern; bodies here are plain structs.
type EventType string

const (
	// EventNodeStart fires immediately before a workflow node executes.
	EventNodeStart EventType = "node_start"
	// EventNodeComplete fires immediately after a workflow node executes.
	EventNodeComplete EventType = "node_complete"
	// EventSynthesisComplete carries the final answer; it precedes the
	// node_complete event of the synthesis node.
	EventSynthesisComplete EventType = "synthesis_complete"
	// EventToken carries one increment of generated text plus the
	// cumulative text so far.
	EventToken EventType = "token"
	// EventComplete is the success terminal: the answer was persisted.
	EventComplete EventType = "complete"
	// EventError is the failure terminal.
	EventError EventType = "error"
)

// Event is one entry in the stream.
type Event struct {
	Type EventType   `json:"event"`
	Data interface{} `json:"data"`
}

type NodeData struct {
	Node string `json:"node"`
}

type SynthesisData struct {
	Content        string   `json:"content"`
	Sources        []string `json:"sources"`
	DocumentsUsed  int      `json:"documents_used"`
	RelevanceScore float64  `json:"relevance_score"`
	Iterations     int      `json:"iterations"`
}

type TokenData struct {
	Token           string `json:"token"`
	PartialResponse string `json:"partial_response"`
}

type CompleteData struct {
	MessageID string `json:"message_id"`
}

type ErrorData struct {
	Error string `json:"error"`
}
