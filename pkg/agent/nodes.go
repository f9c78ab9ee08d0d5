package agent

import (
	"context"
	"fmt"
	"strings"
)

// queryAnalysis classifies the query (local / web / both / neither) and
// optionally decomposes it into sub-questions. Unparseable responses fall
// back to local-search-only with plan [query].
func (e *Engine) queryAnalysis(ctx context.Context, st *State) error {
	prompt := fmt.Sprintf(queryAnalysisPrompt, st.Query)

	response, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("query analysis generation: %w", err)
	}

	decision := ParseAnalysis(response)

	plan := decision.SubQuestions
	if len(plan) == 0 {
		plan = []string{st.Query}
	}

	st.ResearchPlan = plan
	st.NextAction = decision.Action()

	e.logger.Info("Workflow", "Query analysis complete", map[string]interface{}{
		"local_search":  decision.LocalSearch,
		"web_search":    decision.WebSearch,
		"next_action":   string(st.NextAction),
		"sub_questions": len(decision.SubQuestions),
	})

	return nil
}

// researchPlanning re-derives sub-questions from the query alone. It only
// runs on the "both" route.
func (e *Engine) researchPlanning(ctx context.Context, st *State) error {
	prompt := fmt.Sprintf(researchPlanningPrompt, st.Query)

	response, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("research planning generation: %w", err)
	}

	plan := ParseSubQuestions(response)
	if len(plan) == 0 {
		plan = []string{st.Query}
	}
	st.ResearchPlan = plan

	e.logger.Info("Workflow", "Research plan created", map[string]interface{}{
		"sub_questions": len(plan),
	})

	return nil
}

// retrieval fetches chunks for the main query at the configured top-k, then
// a smaller batch per sub-question that is not case-insensitively identical
// to the main query, and deduplicates the combined set.
func (e *Engine) retrieval(ctx context.Context, st *State) error {
	docs, err := e.retriever.Search(ctx, st.Query, e.cfg.RetrievalTopK)
	if err != nil {
		return fmt.Errorf("retrieval for main query: %w", err)
	}
	combined := docs

	for _, subQ := range st.ResearchPlan {
		if strings.EqualFold(subQ, st.Query) {
			continue
		}
		subDocs, err := e.retriever.Search(ctx, subQ, subQuestionTopK)
		if err != nil {
			return fmt.Errorf("retrieval for sub-question: %w", err)
		}
		combined = append(combined, subDocs...)
	}

	unique := Deduplicate(combined)
	st.RetrievedDocuments = unique
	st.AllDocuments = unique

	e.logger.Info("Workflow", "Retrieved documents", map[string]interface{}{
		"unique_documents": len(unique),
	})

	return nil
}

// relevanceCheckTopDocs caps how many documents are shown to the scorer.
const relevanceCheckTopDocs = 5

// relevanceCheck scores how well the retrieved documents answer the query
// and decides whether to synthesize or try the web fallback. The iteration
// count increments exactly once on the scored branch; the no-documents
// branch leaves it untouched (the web stub still guarantees termination).
func (e *Engine) relevanceCheck(ctx context.Context, st *State) error {
	if len(st.AllDocuments) == 0 {
		st.RelevanceScore = 0.0
		if st.IterationCount < e.cfg.MaxIterations {
			st.NextAction = ActionWeb
		} else {
			st.NextAction = ActionSynthesize
		}
		e.logger.Warn("Workflow", "No documents available for relevance check", map[string]interface{}{
			"next_action": string(st.NextAction),
		})
		return nil
	}

	topDocs := st.AllDocuments
	if len(topDocs) > relevanceCheckTopDocs {
		topDocs = topDocs[:relevanceCheckTopDocs]
	}
	prompt := fmt.Sprintf(relevanceCheckPrompt, st.Query, formatDocuments(topDocs))

	response, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("relevance check generation: %w", err)
	}

	score, parsed := ParseRelevanceScore(response)
	if !parsed {
		e.logger.Warn("Workflow", "Relevance score unparseable, using default", map[string]interface{}{
			"default": DefaultRelevanceScore,
		})
	}

	st.RelevanceScore = score
	st.IterationCount++

	switch {
	case score >= e.cfg.RelevanceThreshold:
		st.NextAction = ActionSynthesize
	case st.IterationCount >= e.cfg.MaxIterations:
		st.NextAction = ActionSynthesize
		e.logger.Info("Workflow", "Iteration ceiling reached, forcing synthesis", map[string]interface{}{
			"iterations": st.IterationCount,
		})
	default:
		st.NextAction = ActionWeb
	}

	e.logger.Info("Workflow", "Relevance check complete", map[string]interface{}{
		"score":       score,
		"iterations":  st.IterationCount,
		"next_action": string(st.NextAction),
	})

	return nil
}

// webSearch is a stub: it contributes zero documents and unconditionally
// forces synthesis so the retrieval/relevance loop terminates. A real
// implementation would search the web and route back to relevance_check.
func (e *Engine) webSearch(st *State) error {
	e.logger.Warn("Workflow", "Web search is a stub, skipping to synthesis", nil)

	st.WebResults = []Chunk{}
	st.AllDocuments = Deduplicate(append(append([]Chunk{}, st.RetrievedDocuments...), st.WebResults...))
	st.NextAction = ActionSynthesize

	return nil
}

// synthesis produces the cited final answer, or the fixed apology when no
// documents were accumulated.
func (e *Engine) synthesis(ctx context.Context, st *State, obs Observer) error {
	if len(st.AllDocuments) == 0 {
		st.Synthesis = NoAnswerMessage
		st.Sources = []string{}
		st.NextAction = ActionEnd
		return nil
	}

	prompt := fmt.Sprintf(synthesisPrompt, st.Query, formatDocuments(st.AllDocuments))

	answer, err := e.generate(ctx, prompt, obs)
	if err != nil {
		return fmt.Errorf("synthesis generation: %w", err)
	}

	st.Synthesis = answer
	st.Sources = collectSources(st.AllDocuments)
	st.NextAction = ActionEnd

	e.logger.Info("Workflow", "Synthesis complete", map[string]interface{}{
		"sources": len(st.Sources),
	})

	return nil
}

// generate prefers incremental output when both the generator and the
// observer support it.
func (e *Engine) generate(ctx context.Context, prompt string, obs Observer) (string, error) {
	if sg, ok := e.generator.(StreamingGenerator); ok && obs != nil {
		return sg.GenerateStream(ctx, prompt, func(token string) {
			obs.Token(NodeSynthesis, token)
		})
	}
	return e.generator.Generate(ctx, prompt)
}

// collectSources deduplicates chunk sources, keeping first-occurrence order.
func collectSources(docs []Chunk) []string {
	seen := make(map[string]struct{}, len(docs))
	sources := make([]string, 0, len(docs))
	for _, doc := range docs {
		src := doc.Source()
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources
}
