// Package expansion discovers topics related to a root topic from the owner's
// knowledge graph, with a completion model selecting and proposing names.
package expansion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const logModule = "Expansion"

type Config struct {
	MinSimilarity float64
	GraphLimit    int
	ModelTimeout  time.Duration
	MaxQueryLen   int
	MaxCandidates int
	// ValidationWorkers bounds concurrent graph lookups for proposed names.
	ValidationWorkers int
}

func DefaultConfig() Config {
	return Config{
		MinSimilarity:     0.35,
		GraphLimit:        8,
		ModelTimeout:      20 * time.Second,
		MaxQueryLen:       120,
		MaxCandidates:     10,
		ValidationWorkers: 4,
	}
}

type Service struct {
	cfg    Config
	graph  research.GraphSearcher
	model  llm.LLMProvider
	store  research.Persistence
	logger logger.ILogger
}

func NewService(cfg Config, graph research.GraphSearcher, model llm.LLMProvider, store research.Persistence, log logger.ILogger) *Service {
	if cfg.ValidationWorkers <= 0 {
		cfg.ValidationWorkers = 1
	}
	return &Service{
		cfg:    cfg,
		graph:  graph,
		model:  model,
		store:  store,
		logger: log,
	}
}

// BuildQuery joins the topic name with as much of its description as fits in
// maxLen runes.
func BuildQuery(root *entity.Topic, maxLen int) string {
	name := strings.TrimSpace(root.Name)
	desc := strings.Join(strings.Fields(root.Description), " ")
	if maxLen <= 0 {
		maxLen = 120
	}

	if utf8.RuneCountInString(name) >= maxLen || desc == "" {
		return truncateRunes(name, maxLen)
	}
	query := name + ": " + desc
	return strings.TrimSpace(truncateRunes(query, maxLen))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

type graphResult struct {
	nodes   []research.GraphHit
	edges   []research.GraphHit
	nodeErr error
	edgeErr error
}

// GenerateCandidates returns ranked, deduplicated expansion candidates for
// root. Collaborator failures only remove their own contribution.
func (s *Service) GenerateCandidates(ctx context.Context, ownerID uuid.UUID, root *entity.Topic) []research.ExpansionCandidate {
	query := BuildQuery(root, s.cfg.MaxQueryLen)
	fields := map[string]interface{}{
		"owner_id": ownerID.String(),
		"topic_id": root.Id.String(),
		"query":    query,
	}

	graph := s.searchGraph(ctx, ownerID, query)
	if graph.nodeErr != nil {
		s.logger.Warn(logModule, "Node search failed", withErr(fields, graph.nodeErr))
	}
	if graph.edgeErr != nil {
		s.logger.Warn(logModule, "Edge search failed", withErr(fields, graph.edgeErr))
	}

	hits := s.hitCandidates(root, graph)

	sel, err := s.selectWithModel(ctx, root, query, hits)
	var candidates []research.ExpansionCandidate
	if err != nil {
		s.logger.Warn(logModule, "Model selection unavailable, using raw graph hits", withErr(fields, err))
		candidates = hits
	} else {
		candidates = append(candidates, sel.pick(hits)...)
		candidates = append(candidates, s.validateProposals(ctx, ownerID, sel.Proposed)...)
	}

	candidates = s.filter(candidates)
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Less(candidates[j]) })
	candidates = s.dedup(ctx, ownerID, root, candidates)
	if s.cfg.MaxCandidates > 0 && len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}

	s.logger.Info(logModule, "Expansion candidates generated", map[string]interface{}{
		"owner_id":   ownerID.String(),
		"topic_id":   root.Id.String(),
		"node_hits":  len(graph.nodes),
		"edge_hits":  len(graph.edges),
		"candidates": len(candidates),
	})
	return candidates
}

func (s *Service) searchGraph(ctx context.Context, ownerID uuid.UUID, query string) graphResult {
	var res graphResult
	var g errgroup.Group
	g.Go(func() error {
		res.nodes, res.nodeErr = s.graph.Search(ctx, ownerID, query, research.ScopeNodes, s.cfg.GraphLimit)
		return nil
	})
	g.Go(func() error {
		res.edges, res.edgeErr = s.graph.Search(ctx, ownerID, query, research.ScopeEdges, s.cfg.GraphLimit)
		return nil
	})
	_ = g.Wait()
	return res
}

// hitCandidates turns graph hits into candidates. An edge names the endpoint
// that is not the root itself.
func (s *Service) hitCandidates(root *entity.Topic, graph graphResult) []research.ExpansionCandidate {
	rootKey := research.NormalizeName(root.Name)
	out := make([]research.ExpansionCandidate, 0, len(graph.nodes)+len(graph.edges))

	for _, h := range graph.nodes {
		name := strings.TrimSpace(h.Name)
		if name == "" {
			continue
		}
		sim := h.Similarity
		out = append(out, research.ExpansionCandidate{
			Name:       name,
			Source:     research.SourceGraphNode,
			Similarity: &sim,
			Rationale:  h.Fact,
		})
	}
	for _, h := range graph.edges {
		name := strings.TrimSpace(h.TargetName)
		if name == "" || research.NormalizeName(name) == rootKey {
			name = strings.TrimSpace(h.SourceName)
		}
		if name == "" || research.NormalizeName(name) == rootKey {
			continue
		}
		sim := h.Similarity
		out = append(out, research.ExpansionCandidate{
			Name:       name,
			Source:     research.SourceGraphEdge,
			Similarity: &sim,
			Rationale:  h.Fact,
		})
	}
	return out
}

type proposal struct {
	Name       string   `json:"name"`
	Confidence *float64 `json:"confidence"`
	Rationale  string   `json:"rationale"`
}

type selection struct {
	Selected []string   `json:"selected"`
	Proposed []proposal `json:"proposed"`
}

// pick keeps the hits the model selected, matched by reference id or name.
func (sel selection) pick(hits []research.ExpansionCandidate) []research.ExpansionCandidate {
	wanted := make(map[string]bool, len(sel.Selected))
	for _, ref := range sel.Selected {
		wanted[strings.ToLower(strings.TrimSpace(ref))] = true
		wanted[research.NormalizeName(ref)] = true
	}
	var out []research.ExpansionCandidate
	for i, h := range hits {
		if wanted[hitRef(i)] || wanted[research.NormalizeName(h.Name)] {
			out = append(out, h)
		}
	}
	return out
}

func hitRef(i int) string {
	return fmt.Sprintf("h%d", i+1)
}

const selectionSchema = `{"selected": ["h1", "h3"], "proposed": [{"name": "string", "confidence": 0.0, "rationale": "string"}]}`

func (s *Service) selectWithModel(ctx context.Context, root *entity.Topic, query string, hits []research.ExpansionCandidate) (selection, error) {
	var sel selection
	if s.model == nil {
		return sel, fmt.Errorf("no completion model configured")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Expand the research topic %q into closely related topics worth researching.\n", root.Name)
	if root.Description != "" {
		fmt.Fprintf(&b, "Topic description: %s\n", root.Description)
	}
	fmt.Fprintf(&b, "Search query: %s\n\n", query)
	if len(hits) > 0 {
		b.WriteString("Knowledge graph matches:\n")
		for i, h := range hits {
			fmt.Fprintf(&b, "%s. %s (%s, similarity %.2f)", hitRef(i), h.Name, h.Source, *h.Similarity)
			if h.Rationale != "" {
				fmt.Fprintf(&b, ": %s", h.Rationale)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("The knowledge graph returned no matches.\n")
	}
	b.WriteString("\nList under \"selected\" the references of matches that are genuinely related topics. ")
	b.WriteString("Under \"proposed\", suggest up to 3 related topics not in the list, each with a confidence between 0 and 1.")

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ModelTimeout)
	defer cancel()

	if err := llm.CompleteJSON(callCtx, s.model, b.String(), selectionSchema, &sel); err != nil {
		return selection{}, err
	}
	return sel, nil
}

// validateProposals looks each proposed name up in the graph. A proposal with
// a close enough node gains that similarity; otherwise it keeps its confidence.
func (s *Service) validateProposals(ctx context.Context, ownerID uuid.UUID, proposals []proposal) []research.ExpansionCandidate {
	out := make([]research.ExpansionCandidate, 0, len(proposals))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ValidationWorkers)
	for _, p := range proposals {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		c := research.ExpansionCandidate{
			Name:      name,
			Source:    research.SourceModelProposed,
			Rationale: p.Rationale,
		}
		if p.Confidence != nil {
			conf := clamp01(*p.Confidence)
			c.Confidence = &conf
		}

		g.Go(func() error {
			hits, err := s.graph.Search(gctx, ownerID, name, research.ScopeNodes, 1)
			if err != nil {
				s.logger.Warn(logModule, "Proposal validation failed", map[string]interface{}{
					"owner_id": ownerID.String(),
					"name":     name,
					"error":    err.Error(),
				})
			} else if len(hits) > 0 && hits[0].Similarity >= s.cfg.MinSimilarity {
				sim := hits[0].Similarity
				c.Similarity = &sim
			}
			mu.Lock()
			out = append(out, c)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Workers finish in any order; restore proposal order for stable sorting.
	order := make(map[string]int, len(proposals))
	for i, p := range proposals {
		if _, ok := order[strings.TrimSpace(p.Name)]; !ok {
			order[strings.TrimSpace(p.Name)] = i
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return order[out[i].Name] < order[out[j].Name] })
	return out
}

func (s *Service) filter(in []research.ExpansionCandidate) []research.ExpansionCandidate {
	out := make([]research.ExpansionCandidate, 0, len(in))
	for _, c := range in {
		switch {
		case c.Similarity != nil:
			if *c.Similarity < s.cfg.MinSimilarity {
				continue
			}
		case c.Source != research.SourceModelProposed || c.Confidence == nil:
			continue
		}
		out = append(out, c)
	}
	return out
}

// dedup drops candidates colliding with each other, with the root, or with any
// topic the owner already has. Input is ranked, so the best duplicate wins.
func (s *Service) dedup(ctx context.Context, ownerID uuid.UUID, root *entity.Topic, in []research.ExpansionCandidate) []research.ExpansionCandidate {
	seen := map[string]bool{research.NormalizeName(root.Name): true}

	if s.store != nil {
		existing, err := s.store.GetAllTopics(ctx, ownerID)
		if err != nil {
			s.logger.Warn(logModule, "Could not load existing topics for dedup", map[string]interface{}{
				"owner_id": ownerID.String(),
				"error":    err.Error(),
			})
		}
		for _, t := range existing {
			seen[research.NormalizeName(t.Name)] = true
		}
	}

	out := make([]research.ExpansionCandidate, 0, len(in))
	for _, c := range in {
		key := research.NormalizeName(c.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func withErr(fields map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
