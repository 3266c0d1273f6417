package research

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hyphen and case", "Quantum-Computing", "quantumcomputing"},
		{"spaces", "quantum computing", "quantumcomputing"},
		{"brackets", "LLM (Large Language Models)", "llmlargelanguagemodels"},
		{"underscores and slashes", "ai_safety/alignment", "aisafetyalignment"},
		{"unicode letters kept", "Café Culture", "caféculture"},
		{"empty", "  --  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestExpansionCandidateOrdering(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	cands := []ExpansionCandidate{
		{Name: "model-low", Source: SourceModelProposed, Confidence: f(0.4)},
		{Name: "edge-high", Source: SourceGraphEdge, Similarity: f(0.9)},
		{Name: "model-high", Source: SourceModelProposed, Confidence: f(0.8)},
		{Name: "node-high", Source: SourceGraphNode, Similarity: f(0.9)},
		{Name: "node-mid", Source: SourceGraphNode, Similarity: f(0.6)},
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Less(cands[j]) })

	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"node-high", "edge-high", "node-mid", "model-high", "model-low"}, names)
}
