package entity

import (
	"time"

	"github.com/google/uuid"
)

// GraphNode is an entity of the owner's knowledge graph.
type GraphNode struct {
	Id        uuid.UUID
	OwnerId   uuid.UUID
	Name      string
	Summary   string
	Embedding []float32
	CreatedAt time.Time
}

// GraphEdge is a fact connecting two nodes of the owner's knowledge graph.
type GraphEdge struct {
	Id           uuid.UUID
	OwnerId      uuid.UUID
	SourceNodeId uuid.UUID
	TargetNodeId uuid.UUID
	SourceName   string
	TargetName   string
	Fact         string
	Embedding    []float32
	CreatedAt    time.Time
}
