// Package graph answers knowledge-graph similarity queries by embedding the
// query text and running a pgvector search over the owner's nodes or edges.
package graph

import (
	"context"
	"fmt"
	"time"

	"ai-research-be/internal/repository/contract"
	"ai-research-be/pkg/embedding"
	"ai-research-be/pkg/research"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Store is the slice of the graph repository the searcher needs.
type Store interface {
	SearchNodes(ctx context.Context, ownerId uuid.UUID, embedding []float32, limit int, threshold float64) ([]*contract.ScoredGraphNode, error)
	SearchEdges(ctx context.Context, ownerId uuid.UUID, embedding []float32, limit int, threshold float64) ([]*contract.ScoredGraphEdge, error)
}

type Searcher struct {
	store    Store
	embedder embedding.EmbeddingProvider
	vectors  *cache.Cache
}

var _ research.GraphSearcher = (*Searcher)(nil)

func NewSearcher(store Store, embedder embedding.EmbeddingProvider) *Searcher {
	return &Searcher{
		store:    store,
		embedder: embedder,
		// Expansion asks for the same query in both scopes and validates
		// proposals one by one; embeddings are reused for a while.
		vectors: cache.New(15*time.Minute, 30*time.Minute),
	}
}

func (s *Searcher) Search(ctx context.Context, ownerID uuid.UUID, query string, scope research.GraphScope, limit int) ([]research.GraphHit, error) {
	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	switch scope {
	case research.ScopeNodes:
		nodes, err := s.store.SearchNodes(ctx, ownerID, vec, limit, 0)
		if err != nil {
			return nil, fmt.Errorf("search graph nodes: %w", err)
		}
		hits := make([]research.GraphHit, 0, len(nodes))
		for _, n := range nodes {
			hits = append(hits, research.GraphHit{Name: n.Node.Name, Similarity: n.Similarity})
		}
		return hits, nil

	case research.ScopeEdges:
		edges, err := s.store.SearchEdges(ctx, ownerID, vec, limit, 0)
		if err != nil {
			return nil, fmt.Errorf("search graph edges: %w", err)
		}
		hits := make([]research.GraphHit, 0, len(edges))
		for _, e := range edges {
			hits = append(hits, research.GraphHit{
				Fact:       e.Edge.Fact,
				Similarity: e.Similarity,
				SourceName: e.Edge.SourceName,
				TargetName: e.Edge.TargetName,
			})
		}
		return hits, nil

	default:
		return nil, fmt.Errorf("unknown graph scope %q", scope)
	}
}

func (s *Searcher) embed(ctx context.Context, query string) ([]float32, error) {
	if v, ok := s.vectors.Get(query); ok {
		return v.([]float32), nil
	}
	resp, err := s.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed graph query: %w", err)
	}
	s.vectors.Set(query, resp.Embedding.Values, cache.DefaultExpiration)
	return resp.Embedding.Values, nil
}
