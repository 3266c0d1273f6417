package research

import (
	"strings"
	"unicode"
)

type CandidateSource string

const (
	SourceGraphNode     CandidateSource = "graph_node"
	SourceGraphEdge     CandidateSource = "graph_edge"
	SourceModelProposed CandidateSource = "model_proposed"
)

// rank orders origins for tie breaking: nodes first, model proposals last.
func (s CandidateSource) rank() int {
	switch s {
	case SourceGraphNode:
		return 0
	case SourceGraphEdge:
		return 1
	default:
		return 2
	}
}

// ExpansionCandidate is a proposed related topic. It only becomes a Topic once
// the scheduler accepts it.
type ExpansionCandidate struct {
	Name       string          `json:"name"`
	Source     CandidateSource `json:"source"`
	Similarity *float64        `json:"similarity,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Rationale  string          `json:"rationale,omitempty"`
}

// Less orders candidates by similarity (missing last, confidence breaking ties
// among those), then by origin.
func (c ExpansionCandidate) Less(o ExpansionCandidate) bool {
	switch {
	case c.Similarity != nil && o.Similarity != nil:
		if *c.Similarity != *o.Similarity {
			return *c.Similarity > *o.Similarity
		}
	case c.Similarity != nil:
		return true
	case o.Similarity != nil:
		return false
	default:
		ci, oi := valueOr(c.Confidence, 0), valueOr(o.Confidence, 0)
		if ci != oi {
			return ci > oi
		}
	}
	return c.Source.rank() < o.Source.rank()
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

// NormalizeName folds a topic name to its comparison key: lower case with
// whitespace, separators, brackets and punctuation removed.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
