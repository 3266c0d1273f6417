package researchtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ai-research-be/pkg/research"

	"github.com/google/uuid"
)

// StaticEngagement serves fixed stats per topic.
type StaticEngagement struct {
	mu    sync.Mutex
	Stats map[uuid.UUID]research.EngagementStats
	Err   map[uuid.UUID]error
}

var _ research.EngagementReader = (*StaticEngagement)(nil)

func NewStaticEngagement() *StaticEngagement {
	return &StaticEngagement{
		Stats: make(map[uuid.UUID]research.EngagementStats),
		Err:   make(map[uuid.UUID]error),
	}
}

func (s *StaticEngagement) Set(topicID uuid.UUID, stats research.EngagementStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stats[topicID] = stats
}

func (s *StaticEngagement) Fail(topicID uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err[topicID] = err
}

func (s *StaticEngagement) GetEngagementStats(ctx context.Context, topicID uuid.UUID) (research.EngagementStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Err[topicID]; err != nil {
		return research.EngagementStats{}, err
	}
	return s.Stats[topicID], nil
}

// FakeGraph answers graph searches from a function, counting calls per scope.
type FakeGraph struct {
	Fn    func(query string, scope research.GraphScope) ([]research.GraphHit, error)
	mu    sync.Mutex
	Calls map[research.GraphScope][]string
}

var _ research.GraphSearcher = (*FakeGraph)(nil)

func NewFakeGraph(fn func(query string, scope research.GraphScope) ([]research.GraphHit, error)) *FakeGraph {
	return &FakeGraph{Fn: fn, Calls: make(map[research.GraphScope][]string)}
}

func (g *FakeGraph) Search(ctx context.Context, ownerID uuid.UUID, query string, scope research.GraphScope, limit int) ([]research.GraphHit, error) {
	g.mu.Lock()
	g.Calls[scope] = append(g.Calls[scope], query)
	g.mu.Unlock()

	if g.Fn == nil {
		return nil, nil
	}
	hits, err := g.Fn(query, scope)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (g *FakeGraph) QueriesFor(scope research.GraphScope) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.Calls[scope]...)
}

// FakeSource is a scripted research.SearchSource.
type FakeSource struct {
	SourceName string
	Disabled   bool
	Results    []research.SearchResult
	Err        error
	Delay      time.Duration
	calls      atomic.Int32
}

var _ research.SearchSource = (*FakeSource)(nil)

func (s *FakeSource) Name() string { return s.SourceName }
func (s *FakeSource) Available() bool { return !s.Disabled }
func (s *FakeSource) Calls() int { return int(s.calls.Load()) }

func (s *FakeSource) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	s.calls.Add(1)
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := s.Results
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
