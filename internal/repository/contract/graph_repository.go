package contract

import (
	"context"

	"ai-research-be/internal/entity"

	"github.com/google/uuid"
)

// ScoredGraphNode wraps a GraphNode with its cosine similarity to the query.
type ScoredGraphNode struct {
	Node       *entity.GraphNode
	Similarity float64
}

type ScoredGraphEdge struct {
	Edge       *entity.GraphEdge
	Similarity float64
}

type GraphRepository interface {
	CreateNode(ctx context.Context, node *entity.GraphNode) error
	CreateEdge(ctx context.Context, edge *entity.GraphEdge) error
	CountNodes(ctx context.Context, ownerId uuid.UUID) (int64, error)
	SearchNodes(ctx context.Context, ownerId uuid.UUID, embedding []float32, limit int, threshold float64) ([]*ScoredGraphNode, error)
	SearchEdges(ctx context.Context, ownerId uuid.UUID, embedding []float32, limit int, threshold float64) ([]*ScoredGraphEdge, error)
}
