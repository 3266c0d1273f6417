package model

import (
	"time"

	"github.com/google/uuid"
)

type Topic struct {
	Id                    uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerId               uuid.UUID  `gorm:"type:uuid;not null;index:idx_topics_owner_status,priority:1;uniqueIndex:idx_topics_owner_normalized,priority:1"`
	ParentId              *uuid.UUID `gorm:"type:uuid;index"`
	Name                  string     `gorm:"type:varchar(255);not null"`
	NormalizedName        string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_topics_owner_normalized,priority:2"`
	Description           string     `gorm:"type:text"`
	ConfidenceScore       float64    `gorm:"default:0"`
	IsActiveResearch      bool       `gorm:"not null;index"`
	IsExpansion           bool       `gorm:"default:false"`
	ExpansionDepth        int        `gorm:"default:0"`
	ChildExpansionEnabled bool       `gorm:"not null"`
	ExpansionStatus       string     `gorm:"type:varchar(16);default:'active';index:idx_topics_owner_status,priority:2"`
	LastResearched        *time.Time
	LastEvaluatedAt       time.Time
	LastBackoffUntil      *time.Time
	PausedAt              *time.Time
	PauseCount            int       `gorm:"default:0"`
	StalenessCoefficient  float64   `gorm:"default:1"`
	CreatedAt             time.Time `gorm:"autoCreateTime"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime"`
}

func (Topic) TableName() string {
	return "research_topics"
}
