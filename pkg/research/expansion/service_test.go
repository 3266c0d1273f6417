package expansion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/researchtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectKey = "Expand the research topic"

func rootTopic(owner uuid.UUID) *entity.Topic {
	return &entity.Topic{
		Id:              uuid.New(),
		OwnerId:         owner,
		Name:            "AI Safety",
		Description:     "Alignment and robustness of machine learning systems",
		ExpansionStatus: entity.ExpansionStatusActive,
	}
}

func names(cands []research.ExpansionCandidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Name
	}
	return out
}

func staticGraph(nodes, edges []research.GraphHit) *researchtest.FakeGraph {
	return researchtest.NewFakeGraph(func(query string, scope research.GraphScope) ([]research.GraphHit, error) {
		if scope == research.ScopeEdges {
			return edges, nil
		}
		return nodes, nil
	})
}

func newService(graph research.GraphSearcher, model llm.LLMProvider, store research.Persistence) *Service {
	cfg := DefaultConfig()
	cfg.ModelTimeout = 100 * time.Millisecond
	return NewService(cfg, graph, model, store, logger.NewNopLogger())
}

func TestBuildQuery(t *testing.T) {
	long := strings.Repeat("word ", 60)

	tests := []struct {
		name  string
		topic entity.Topic
		want  string
	}{
		{"name only", entity.Topic{Name: "AI Safety"}, "AI Safety"},
		{"with description", entity.Topic{Name: "AI Safety", Description: "alignment  research"}, "AI Safety: alignment research"},
		{"long name truncated", entity.Topic{Name: strings.Repeat("x", 150)}, strings.Repeat("x", 120)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(&tt.topic, 120))
		})
	}

	q := BuildQuery(&entity.Topic{Name: "Topic", Description: long}, 120)
	assert.LessOrEqual(t, len([]rune(q)), 120)
	assert.True(t, strings.HasPrefix(q, "Topic: word"))
}

func TestGenerateCandidates_DeduplicatesNormalizedNames(t *testing.T) {
	owner := uuid.New()
	graph := staticGraph([]research.GraphHit{
		{Name: "Quantum-Computing", Similarity: 0.8},
		{Name: "quantum computing", Similarity: 0.7},
	}, nil)
	model := llm.NewMockProvider().OnText(selectKey, `{"selected":["h1","h2"],"proposed":[]}`)

	got := newService(graph, model, nil).GenerateCandidates(context.Background(), owner, rootTopic(owner))

	require.Len(t, got, 1)
	assert.Equal(t, "Quantum-Computing", got[0].Name)
}

func TestGenerateCandidates_SkipsExistingTopicsAndRoot(t *testing.T) {
	owner := uuid.New()
	store := researchtest.NewMemoryStore()
	store.Put(&entity.Topic{OwnerId: owner, Name: "Machine Learning", IsActiveResearch: false})

	graph := staticGraph([]research.GraphHit{
		{Name: "machine-learning", Similarity: 0.9},
		{Name: "AI safety", Similarity: 0.95},
		{Name: "Interpretability", Similarity: 0.6},
	}, nil)
	model := llm.NewMockProvider().OnText(selectKey, "not json at all")

	got := newService(graph, model, store).GenerateCandidates(context.Background(), owner, rootTopic(owner))

	assert.Equal(t, []string{"Interpretability"}, names(got))
}

func TestGenerateCandidates_ModelSelectsAndProposes(t *testing.T) {
	owner := uuid.New()
	graph := researchtest.NewFakeGraph(func(query string, scope research.GraphScope) ([]research.GraphHit, error) {
		switch {
		case scope == research.ScopeEdges:
			return []research.GraphHit{{Fact: "AI Safety relates to Reward Hacking", SourceName: "AI Safety", TargetName: "Reward Hacking", Similarity: 0.55}}, nil
		case query == "Mechanistic Interpretability":
			return []research.GraphHit{{Name: "Mechanistic Interpretability", Similarity: 0.7}}, nil
		case query == "AI Governance":
			return []research.GraphHit{{Name: "Policy", Similarity: 0.1}}, nil
		case strings.HasPrefix(query, "AI Safety"):
			return []research.GraphHit{
				{Name: "Robustness", Similarity: 0.65},
				{Name: "Cooking", Similarity: 0.5},
			}, nil
		}
		return nil, nil
	})
	model := llm.NewMockProvider().OnText(selectKey, "Sure! ```json\n"+`{
		"selected": ["h1", "h3"],
		"proposed": [
			{"name": "Mechanistic Interpretability", "confidence": 0.9, "rationale": "core subfield"},
			{"name": "AI Governance", "confidence": 0.6, "rationale": "policy side"},
			{"name": "Vague Idea"}
		]
	}`+"\n```")

	got := newService(graph, model, nil).GenerateCandidates(context.Background(), owner, rootTopic(owner))

	assert.Equal(t, []string{"Mechanistic Interpretability", "Robustness", "Reward Hacking", "AI Governance"}, names(got))

	byName := map[string]research.ExpansionCandidate{}
	for _, c := range got {
		byName[c.Name] = c
	}
	require.NotNil(t, byName["Mechanistic Interpretability"].Similarity)
	assert.Equal(t, research.SourceModelProposed, byName["Mechanistic Interpretability"].Source)
	assert.Nil(t, byName["AI Governance"].Similarity)
	require.NotNil(t, byName["AI Governance"].Confidence)
	assert.Equal(t, research.SourceGraphEdge, byName["Reward Hacking"].Source)
	assert.Equal(t, "AI Safety relates to Reward Hacking", byName["Reward Hacking"].Rationale)
}

func TestGenerateCandidates_ModelTimeoutFallsBackToRawHits(t *testing.T) {
	owner := uuid.New()
	graph := staticGraph(
		[]research.GraphHit{{Name: "Robustness", Similarity: 0.5}, {Name: "Low", Similarity: 0.2}},
		[]research.GraphHit{{SourceName: "AI Safety", TargetName: "Alignment Tax", Similarity: 0.5}},
	)
	model := llm.NewMockProvider().On(selectKey, func(string) (string, error) {
		time.Sleep(300 * time.Millisecond)
		return `{"selected":[],"proposed":[]}`, nil
	})

	start := time.Now()
	got := newService(graph, model, nil).GenerateCandidates(context.Background(), owner, rootTopic(owner))

	assert.Equal(t, []string{"Robustness", "Alignment Tax"}, names(got))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGenerateCandidates_GraphFailureKeepsModelProposals(t *testing.T) {
	owner := uuid.New()
	graph := researchtest.NewFakeGraph(func(string, research.GraphScope) ([]research.GraphHit, error) {
		return nil, errors.New("graph offline")
	})
	model := llm.NewMockProvider().OnText(selectKey, `{"selected":[],"proposed":[{"name":"Scalable Oversight","confidence":0.8}]}`)

	got := newService(graph, model, nil).GenerateCandidates(context.Background(), owner, rootTopic(owner))

	require.Len(t, got, 1)
	assert.Equal(t, "Scalable Oversight", got[0].Name)
	assert.Nil(t, got[0].Similarity)
}

func TestGenerateCandidates_EverythingFailsReturnsEmpty(t *testing.T) {
	owner := uuid.New()
	graph := researchtest.NewFakeGraph(func(string, research.GraphScope) ([]research.GraphHit, error) {
		return nil, errors.New("graph offline")
	})
	model := llm.NewMockProvider().On(selectKey, func(string) (string, error) {
		return "", errors.New("model offline")
	})

	got := newService(graph, model, nil).GenerateCandidates(context.Background(), owner, rootTopic(owner))

	assert.Empty(t, got)
}

func TestGenerateCandidates_QueriesBothScopes(t *testing.T) {
	owner := uuid.New()
	graph := staticGraph(nil, nil)
	model := llm.NewMockProvider().OnText(selectKey, `{"selected":[],"proposed":[]}`)

	newService(graph, model, nil).GenerateCandidates(context.Background(), owner, rootTopic(owner))

	assert.Len(t, graph.QueriesFor(research.ScopeNodes), 1)
	assert.Len(t, graph.QueriesFor(research.ScopeEdges), 1)
	assert.Equal(t, 1, model.CallsContaining(selectKey))
}

func TestGenerateCandidates_CapsResultCount(t *testing.T) {
	owner := uuid.New()
	var nodes []research.GraphHit
	for i := 0; i < 20; i++ {
		nodes = append(nodes, research.GraphHit{Name: "Topic " + string(rune('A'+i)), Similarity: 0.9 - float64(i)*0.01})
	}
	model := llm.NewMockProvider().OnText(selectKey, "{}")
	svc := newService(staticGraph(nodes, nil), model, nil)
	svc.cfg.MaxCandidates = 5

	got := svc.GenerateCandidates(context.Background(), owner, rootTopic(owner))

	assert.Empty(t, got, "an empty selection keeps nothing")

	model = llm.NewMockProvider().OnText(selectKey, "garbage")
	svc = newService(staticGraph(nodes, nil), model, nil)
	svc.cfg.MaxCandidates = 5
	got = svc.GenerateCandidates(context.Background(), owner, rootTopic(owner))
	assert.Equal(t, []string{"Topic A", "Topic B", "Topic C", "Topic D", "Topic E"}, names(got))
}
