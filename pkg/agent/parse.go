package agent

import (
	"regexp"
	"strconv"
	"strings"
)

// Model output is parsed tolerantly: every field has a documented fallback
// and a parse miss never surfaces as an error. Fallbacks:
//
//	LOCAL_SEARCH missing  -> false (decision table then defaults to rag)
//	WEB_SEARCH missing    -> false
//	SUB_QUESTIONS missing -> nil (caller substitutes [query])
//	RELEVANCE_SCORE missing or malformed -> 5.0

// AnalysisDecision is the typed result of parsing a query-analysis response.
type AnalysisDecision struct {
	LocalSearch  bool
	WebSearch    bool
	SubQuestions []string
}

// Action maps the decision table: both -> both, local-only -> rag,
// web-only -> web, neither -> rag.
func (d AnalysisDecision) Action() Action {
	switch {
	case d.LocalSearch && d.WebSearch:
		return ActionBoth
	case d.WebSearch:
		return ActionWeb
	default:
		return ActionRAG
	}
}

// ParseAnalysis extracts the routing decision and optional sub-questions
// from a query-analysis response.
func ParseAnalysis(response string) AnalysisDecision {
	return AnalysisDecision{
		LocalSearch:  parseMarkerYes(response, "local_search:"),
		WebSearch:    parseMarkerYes(response, "web_search:"),
		SubQuestions: ParseSubQuestions(response),
	}
}

// parseMarkerYes reports whether the line following the marker contains
// "yes". A missing marker reads as false.
func parseMarkerYes(response, marker string) bool {
	rest, ok := afterMarker(response, marker)
	if !ok {
		return false
	}
	line := rest
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return strings.Contains(strings.ToLower(line), "yes")
}

// ParseSubQuestions extracts "- " bullet lines after the SUB_QUESTIONS
// marker. Returns nil when the marker is absent or yields no bullets.
func ParseSubQuestions(response string) []string {
	rest, ok := afterMarker(response, "sub_questions:")
	if !ok {
		return nil
	}

	var questions []string
	for _, line := range strings.Split(rest, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "-") {
			continue
		}
		q := strings.TrimSpace(strings.TrimLeft(trimmed, "- "))
		if q != "" {
			questions = append(questions, q)
		}
	}
	return questions
}

var scorePattern = regexp.MustCompile(`\d+\.?\d*`)

// DefaultRelevanceScore substitutes for an unparseable relevance response.
const DefaultRelevanceScore = 5.0

// ParseRelevanceScore extracts the numeric value after RELEVANCE_SCORE:.
// The second return reports whether the score came from the response
// rather than the fallback. Scores are clamped to [0,10].
func ParseRelevanceScore(response string) (float64, bool) {
	rest, ok := afterMarker(response, "relevance_score:")
	if !ok {
		return DefaultRelevanceScore, false
	}
	line := rest
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	match := scorePattern.FindString(line)
	if match == "" {
		return DefaultRelevanceScore, false
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return DefaultRelevanceScore, false
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, true
}

// afterMarker finds the marker case-insensitively and returns the text
// following it in the original response.
func afterMarker(response, marker string) (string, bool) {
	idx := strings.Index(strings.ToLower(response), strings.ToLower(marker))
	if idx < 0 {
		return "", false
	}
	return response[idx+len(marker):], true
}
