package agent

import (
	"testing"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantLocal  bool
		wantWeb    bool
		wantSubs   int
		wantAction Action
	}{
		{
			name:       "local only",
			response:   "LOCAL_SEARCH: yes\nWEB_SEARCH: no",
			wantLocal:  true,
			wantWeb:    false,
			wantAction: ActionRAG,
		},
		{
			name:       "web only",
			response:   "LOCAL_SEARCH: no\nWEB_SEARCH: yes",
			wantWeb:    true,
			wantAction: ActionWeb,
		},
		{
			name:       "both with sub-questions",
			response:   "LOCAL_SEARCH: yes\nWEB_SEARCH: yes\nSUB_QUESTIONS:\n- What is A?\n- What is B?",
			wantLocal:  true,
			wantWeb:    true,
			wantSubs:   2,
			wantAction: ActionBoth,
		},
		{
			name:       "neither defaults to rag",
			response:   "LOCAL_SEARCH: no\nWEB_SEARCH: no",
			wantAction: ActionRAG,
		},
		{
			name:       "missing markers default to rag",
			response:   "I cannot follow instructions.",
			wantAction: ActionRAG,
		},
		{
			name:       "lowercase markers accepted",
			response:   "local_search: YES\nweb_search: No",
			wantLocal:  true,
			wantAction: ActionRAG,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAnalysis(tt.response)

			if got.LocalSearch != tt.wantLocal {
				t.Errorf("LocalSearch = %v, want %v", got.LocalSearch, tt.wantLocal)
			}
			if got.WebSearch != tt.wantWeb {
				t.Errorf("WebSearch = %v, want %v", got.WebSearch, tt.wantWeb)
			}
			if len(got.SubQuestions) != tt.wantSubs {
				t.Errorf("SubQuestions = %d, want %d", len(got.SubQuestions), tt.wantSubs)
			}
			if got.Action() != tt.wantAction {
				t.Errorf("Action = %q, want %q", got.Action(), tt.wantAction)
			}
		})
	}
}

func TestParseSubQuestions(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "bulleted list",
			response: "SUB_QUESTIONS:\n- First question?\n- Second question?",
			want:     []string{"First question?", "Second question?"},
		},
		{
			name:     "marker missing",
			response: "No structure here.",
			want:     nil,
		},
		{
			name:     "marker without bullets",
			response: "SUB_QUESTIONS:\nnone needed",
			want:     nil,
		},
		{
			name:     "ignores non-bullet lines between bullets",
			response: "SUB_QUESTIONS:\n- One\nnoise\n- Two",
			want:     []string{"One", "Two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSubQuestions(tt.response)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d questions %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("question %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseRelevanceScore(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantScore  float64
		wantParsed bool
	}{
		{
			name:       "integer score",
			response:   "RELEVANCE_SCORE: 8\nREASONING: good",
			wantScore:  8.0,
			wantParsed: true,
		},
		{
			name:       "decimal score",
			response:   "RELEVANCE_SCORE: 7.5",
			wantScore:  7.5,
			wantParsed: true,
		},
		{
			name:       "marker missing falls back",
			response:   "The documents look fine.",
			wantScore:  DefaultRelevanceScore,
			wantParsed: false,
		},
		{
			name:       "no number after marker falls back",
			response:   "RELEVANCE_SCORE: high",
			wantScore:  DefaultRelevanceScore,
			wantParsed: false,
		},
		{
			name:       "clamped to ten",
			response:   "RELEVANCE_SCORE: 15",
			wantScore:  10.0,
			wantParsed: true,
		},
		{
			name:       "score embedded in sentence",
			response:   "relevance_score: I'd say 6 out of 10",
			wantScore:  6.0,
			wantParsed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, parsed := ParseRelevanceScore(tt.response)
			if score != tt.wantScore {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
			if parsed != tt.wantParsed {
				t.Errorf("parsed = %v, want %v", parsed, tt.wantParsed)
			}
		})
	}
}
