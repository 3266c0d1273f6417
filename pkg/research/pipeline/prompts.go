package pipeline

import (
	"fmt"
	"strings"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/pkg/research"
)

// Instruction lines open each prompt. They are exported so fakes can route
// on them.
const (
	QueryInstruction   = "Write one focused web search query for new information on this research topic."
	ReviewInstruction  = "Decide which of these search results are relevant to the query."
	SummaryInstruction = "Summarize the evidence below in a few sentences, citing sources as [n]."
	QualityInstruction = "Assess the quality of these research findings."
	DedupInstruction   = "Compare the new research findings with the previous findings for the same topic."
)

const (
	querySchema   = `{"query": "string"}`
	reviewSchema  = `{"relevant": [1, 3]}`
	qualitySchema = `{"recency": 0.0, "relevance": 0.0, "depth": 0.0, "credibility": 0.0, "novelty": 0.0, "overall_quality_score": 0.0, "summary": "string", "key_insights": ["string"]}`
	dedupSchema   = `{"is_duplicate": false, "similarity_score": 0.0}`
)

// FallbackQuery is used whenever no query could be generated.
func FallbackQuery(topic string) string {
	return fmt.Sprintf("Recent developments and new information about %s", topic)
}

func queryPrompt(t *entity.Topic, now time.Time) string {
	var b strings.Builder
	b.WriteString(QueryInstruction + "\n")
	fmt.Fprintf(&b, "Topic: %s\n", t.Name)
	if t.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", t.Description)
	}
	if t.LastResearched != nil {
		fmt.Fprintf(&b, "Last researched: %s (prefer information published since then)\n", t.LastResearched.Format(time.RFC3339))
	} else {
		b.WriteString("This topic has never been researched before.\n")
	}
	fmt.Fprintf(&b, "Today is %s.", now.Format("2006-01-02"))
	return b.String()
}

func reviewPrompt(query, source string, results []research.SearchResult) string {
	var b strings.Builder
	b.WriteString(ReviewInstruction + "\n")
	fmt.Fprintf(&b, "Query: %s\nSource: %s\n\n", query, source)
	writeResults(&b, results)
	b.WriteString("\nReturn the numbers of the relevant results under \"relevant\". Return an empty list if none are relevant.")
	return b.String()
}

func summaryPrompt(query, source string, results []research.SearchResult) string {
	var b strings.Builder
	b.WriteString(SummaryInstruction + "\n")
	fmt.Fprintf(&b, "Query: %s\nSource: %s\n\n", query, source)
	writeResults(&b, results)
	return b.String()
}

func qualityPrompt(t *entity.Topic, query, evidence string) string {
	var b strings.Builder
	b.WriteString(QualityInstruction + "\n")
	fmt.Fprintf(&b, "Topic: %s\nQuery: %s\n\n", t.Name, query)
	b.WriteString("Score recency, relevance, depth, credibility and novelty between 0 and 1, ")
	b.WriteString("give an overall_quality_score between 0 and 1, a short summary of the findings and the key insights.\n\n")
	b.WriteString("Evidence:\n")
	b.WriteString(evidence)
	return b.String()
}

func dedupPrompt(summary string, previous []*entity.Finding) string {
	var b strings.Builder
	b.WriteString(DedupInstruction + "\n")
	b.WriteString("Answer whether the new findings mostly repeat what is already known.\n\n")
	fmt.Fprintf(&b, "New findings:\n%s\n\n", summary)
	for i, f := range previous {
		fmt.Fprintf(&b, "Previous finding %d (%s):\n%s\n\n", i+1, f.CreatedAt.Format("2006-01-02"), f.Summary)
	}
	return b.String()
}

func writeResults(b *strings.Builder, results []research.SearchResult) {
	for i, r := range results {
		fmt.Fprintf(b, "[%d] %s\n", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(b, "    %s\n", r.URL)
		}
		if r.Snippet != "" {
			fmt.Fprintf(b, "    %s\n", r.Snippet)
		}
	}
}
