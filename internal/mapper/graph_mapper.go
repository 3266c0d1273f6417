package mapper

import (
	"ai-research-be/internal/entity"
	"ai-research-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type GraphMapper struct{}

func NewGraphMapper() *GraphMapper {
	return &GraphMapper{}
}

func (m *GraphMapper) NodeToEntity(n *model.GraphNode) *entity.GraphNode {
	if n == nil {
		return nil
	}
	return &entity.GraphNode{
		Id:        n.Id,
		OwnerId:   n.OwnerId,
		Name:      n.Name,
		Summary:   n.Summary,
		Embedding: n.EmbeddingValue.Slice(),
		CreatedAt: n.CreatedAt,
	}
}

func (m *GraphMapper) NodeToModel(n *entity.GraphNode) *model.GraphNode {
	if n == nil {
		return nil
	}
	return &model.GraphNode{
		Id:             n.Id,
		OwnerId:        n.OwnerId,
		Name:           n.Name,
		Summary:        n.Summary,
		EmbeddingValue: pgvector.NewVector(n.Embedding),
		CreatedAt:      n.CreatedAt,
	}
}

func (m *GraphMapper) EdgeToEntity(e *model.GraphEdge) *entity.GraphEdge {
	if e == nil {
		return nil
	}
	return &entity.GraphEdge{
		Id:           e.Id,
		OwnerId:      e.OwnerId,
		SourceNodeId: e.SourceNodeId,
		TargetNodeId: e.TargetNodeId,
		SourceName:   e.SourceName,
		TargetName:   e.TargetName,
		Fact:         e.Fact,
		Embedding:    e.EmbeddingValue.Slice(),
		CreatedAt:    e.CreatedAt,
	}
}

func (m *GraphMapper) EdgeToModel(e *entity.GraphEdge) *model.GraphEdge {
	if e == nil {
		return nil
	}
	return &model.GraphEdge{
		Id:             e.Id,
		OwnerId:        e.OwnerId,
		SourceNodeId:   e.SourceNodeId,
		TargetNodeId:   e.TargetNodeId,
		SourceName:     e.SourceName,
		TargetName:     e.TargetName,
		Fact:           e.Fact,
		EmbeddingValue: pgvector.NewVector(e.Embedding),
		CreatedAt:      e.CreatedAt,
	}
}
