package stream

import (
	"context"
	"fmt"
	"strings"

	"ai-research-agent-be/internal/pkg/logger"
	"ai-research-agent-be/pkg/agent"

	"github.com/google/uuid"
)

// Persister durably stores the final synthesized answer with its provenance
// against a conversation and returns the created message id.
type Persister interface {
	SaveAnswer(ctx context.Context, sessionID uuid.UUID, result *agent.Result) (uuid.UUID, error)
}

// defaultBufferSize bounds how far event production may run ahead of the
// consumer. When the buffer is full, non-terminal events are dropped from
// the wire; the run itself always proceeds.
const defaultBufferSize = 64

// Translator wraps one workflow run and exposes its progress as an ordered
// event sequence. Per run it guarantees: node_start before each step,
// node_complete after, synthesis_complete before node_complete(synthesis),
// and exactly one terminal event - complete after persisting, or error.
// It never panics past its boundary.
type Translator struct {
	engine    *agent.Engine
	persister Persister
	logger    logger.ILogger
	bufSize   int
}

func NewTranslator(engine *agent.Engine, persister Persister, log logger.ILogger) *Translator {
	return &Translator{
		engine:    engine,
		persister: persister,
		logger:    log,
		bufSize:   defaultBufferSize,
	}
}

// Stream starts one research run and returns its event channel. The channel
// is closed after the terminal event. Cancelling ctx aborts in-flight
// capability calls and stops event production; a run that already finished
// is still persisted (persistence runs under a non-cancelable context so a
// consumer disconnect cannot lose a completed answer).
func (t *Translator) Stream(ctx context.Context, sessionID uuid.UUID, query string) <-chan Event {
	events := make(chan Event, t.bufSize)

	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("Streaming", "Panic during streaming run", map[string]interface{}{"panic": fmt.Sprint(r)})
				t.deliver(ctx, events, Event{Type: EventError, Data: ErrorData{Error: "internal error"}})
			}
		}()
		t.run(ctx, sessionID, query, events)
	}()

	return events
}

func (t *Translator) run(ctx context.Context, sessionID uuid.UUID, query string, events chan<- Event) {
	obs := &emittingObserver{translator: t, ctx: ctx, events: events}

	result, err := t.engine.Run(ctx, query, obs)
	if err != nil {
		t.logger.Error("Streaming", "Workflow run failed", map[string]interface{}{"error": err.Error()})
		t.deliver(ctx, events, Event{Type: EventError, Data: ErrorData{Error: err.Error()}})
		return
	}

	// The streamed run should have produced a synthesis; if the execution
	// substrate surfaced none, fall back to a synchronous run.
	if strings.TrimSpace(result.Answer) == "" {
		t.logger.Warn("Streaming", "No synthesis from streamed run, using sync fallback", nil)
		result, err = t.engine.Run(ctx, query, nil)
		if err != nil {
			t.deliver(ctx, events, Event{Type: EventError, Data: ErrorData{Error: err.Error()}})
			return
		}
	}

	// The run is complete: persist even if the consumer has gone away.
	messageID, err := t.persister.SaveAnswer(context.WithoutCancel(ctx), sessionID, result)
	if err != nil {
		t.logger.Error("Streaming", "Failed to persist answer", map[string]interface{}{"error": err.Error()})
		t.deliver(ctx, events, Event{Type: EventError, Data: ErrorData{Error: err.Error()}})
		return
	}

	t.deliver(ctx, events, Event{Type: EventComplete, Data: CompleteData{MessageID: messageID.String()}})
}

// emit sends best-effort: a full buffer drops the event rather than
// blocking the run.
func (t *Translator) emit(events chan<- Event, ev Event) {
	select {
	case events <- ev:
	default:
		t.logger.Warn("Streaming", "Event buffer full, dropping event", map[string]interface{}{"event": string(ev.Type)})
	}
}

// deliver blocks until the event is taken or the consumer is gone. Used for
// terminal events, which must not be silently dropped while a consumer is
// still listening.
func (t *Translator) deliver(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// emittingObserver translates engine callbacks into stream events.
type emittingObserver struct {
	translator *Translator
	ctx        context.Context
	events     chan<- Event

	partial strings.Builder
}

func (o *emittingObserver) NodeStart(node agent.Node) {
	o.translator.emit(o.events, Event{Type: EventNodeStart, Data: NodeData{Node: string(node)}})
}

func (o *emittingObserver) NodeComplete(node agent.Node, st *agent.State) {
	if node == agent.NodeSynthesis {
		o.translator.emit(o.events, Event{
			Type: EventSynthesisComplete,
			Data: SynthesisData{
				Content:        st.Synthesis,
				Sources:        st.Sources,
				DocumentsUsed:  len(st.AllDocuments),
				RelevanceScore: st.RelevanceScore,
				Iterations:     st.IterationCount,
			},
		})
	}
	o.translator.emit(o.events, Event{Type: EventNodeComplete, Data: NodeData{Node: string(node)}})
}

func (o *emittingObserver) Token(_ agent.Node, token string) {
	o.partial.WriteString(token)
	o.translator.emit(o.events, Event{
		Type: EventToken,
		Data: TokenData{Token: token, PartialResponse: o.partial.String()},
	})
}
