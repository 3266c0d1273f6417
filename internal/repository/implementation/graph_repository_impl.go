package implementation

import (
	"context"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/mapper"
	"ai-research-be/internal/model"
	"ai-research-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type GraphRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GraphMapper
}

func NewGraphRepository(db *gorm.DB) contract.GraphRepository {
	return &GraphRepositoryImpl{
		db:     db,
		mapper: mapper.NewGraphMapper(),
	}
}

func (r *GraphRepositoryImpl) CreateNode(ctx context.Context, node *entity.GraphNode) error {
	m := r.mapper.NodeToModel(node)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*node = *r.mapper.NodeToEntity(m)
	return nil
}

func (r *GraphRepositoryImpl) CreateEdge(ctx context.Context, edge *entity.GraphEdge) error {
	m := r.mapper.EdgeToModel(edge)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*edge = *r.mapper.EdgeToEntity(m)
	return nil
}

func (r *GraphRepositoryImpl) CountNodes(ctx context.Context, ownerId uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.GraphNode{}).Where("owner_id = ?", ownerId).Count(&count).Error
	return count, err
}

// SearchNodes ranks an owner's entities by cosine similarity.
// pgvector's <=> is cosine distance, so similarity is 1 - distance.
func (r *GraphRepositoryImpl) SearchNodes(ctx context.Context, ownerId uuid.UUID, embedding []float32, limit int, threshold float64) ([]*contract.ScoredGraphNode, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.GraphNode
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("graph_nodes").
		Select("graph_nodes.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("owner_id = ?", ownerId).
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredGraphNode, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredGraphNode{
			Node:       r.mapper.NodeToEntity(&res.GraphNode),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (r *GraphRepositoryImpl) SearchEdges(ctx context.Context, ownerId uuid.UUID, embedding []float32, limit int, threshold float64) ([]*contract.ScoredGraphEdge, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.GraphEdge
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("graph_edges").
		Select("graph_edges.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("owner_id = ?", ownerId).
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredGraphEdge, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredGraphEdge{
			Edge:       r.mapper.EdgeToEntity(&res.GraphEdge),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
