package agent

import (
	"fmt"
	"strings"
)

const queryAnalysisPrompt = `Analyze the following research query and determine the best approach to answer it.

Query: %s

Please answer the following:
1. Does this query require searching a local knowledge base? (yes/no)
2. Does this query require current information from the web? (yes/no)
3. If the query is complex, break it down into 2-3 sub-questions.

Provide your analysis in the following format:
LOCAL_SEARCH: [yes/no]
WEB_SEARCH: [yes/no]
SUB_QUESTIONS:
- [sub-question 1]
- [sub-question 2]
- [sub-question 3]

Keep sub-questions focused and relevant to the main query.`

const researchPlanningPrompt = `Create a research plan to answer the following query.

Query: %s

Break down the query into specific research steps:
1. Identify the main topics and concepts
2. List 2-4 focused sub-questions that need to be answered
3. Suggest what type of information sources would be most relevant

Provide your plan in the following format:
MAIN_TOPICS: [list main topics]
SUB_QUESTIONS:
- [sub-question 1]
- [sub-question 2]
- [sub-question 3]
SUGGESTED_SOURCES: [local documents, web search, or both]`

const relevanceCheckPrompt = `Evaluate if the retrieved documents sufficiently answer the research query.

Query: %s

Retrieved Documents:
%s

Rate the relevance on a scale of 0-10:
- 0-3: Documents are not relevant or insufficient
- 4-6: Documents are somewhat relevant but missing key information
- 7-10: Documents are highly relevant and sufficient to answer the query

Provide your evaluation in the following format:
RELEVANCE_SCORE: [0-10]
REASONING: [brief explanation of the score]
MISSING_INFO: [what information is missing, if any]`

const synthesisPrompt = `Synthesize a comprehensive answer to the research query based on the provided documents.

Query: %s

Source Documents:
%s

Please provide:
1. A clear, comprehensive answer to the query
2. Cite sources by referencing document metadata (e.g., [Source: filename.pdf])
3. Acknowledge any gaps or limitations in the available information
4. Organize the answer in a structured format with sections if appropriate

Your answer should be well-researched, accurate, and directly address the query.`

// NoAnswerMessage is the fixed synthesis output when no documents were
// available for the query.
const NoAnswerMessage = "I apologize, but I couldn't find relevant information to answer your query. " +
	"Please try rephrasing your question or adding documents to the knowledge base."

// documentPreviewLen bounds how much of each chunk is inlined into prompts,
// counted in runes so truncation never splits a multi-byte character.
const documentPreviewLen = 500

// formatDocuments renders chunks for prompt inclusion, truncating each
// chunk's content to a bounded preview.
func formatDocuments(docs []Chunk) string {
	if len(docs) == 0 {
		return "No documents available."
	}

	var b strings.Builder
	for i, doc := range docs {
		content := doc.Content
		if runes := []rune(content); len(runes) > documentPreviewLen {
			content = string(runes[:documentPreviewLen])
		}
		fmt.Fprintf(&b, "Document %d [Source: %s]:\n%s\n\n", i+1, doc.Source(), content)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
