package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type GraphNode struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerId        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name           string          `gorm:"type:varchar(255);not null"`
	Summary        string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (GraphNode) TableName() string {
	return "graph_nodes"
}

type GraphEdge struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerId        uuid.UUID       `gorm:"type:uuid;not null;index"`
	SourceNodeId   uuid.UUID       `gorm:"type:uuid;not null"`
	TargetNodeId   uuid.UUID       `gorm:"type:uuid;not null"`
	SourceName     string          `gorm:"type:varchar(255)"`
	TargetName     string          `gorm:"type:varchar(255)"`
	Fact           string          `gorm:"type:text;not null"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (GraphEdge) TableName() string {
	return "graph_edges"
}
