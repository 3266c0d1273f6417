package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Finding struct {
	Id               uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TopicId          uuid.UUID                   `gorm:"type:uuid;not null;index:idx_findings_topic_created,priority:1"`
	OwnerId          uuid.UUID                   `gorm:"type:uuid;not null;index"`
	QualityScore     *float64
	Summary          string                      `gorm:"type:text"`
	Content          string                      `gorm:"type:text"`
	FormattedContent string                      `gorm:"type:text"`
	SourceUrls       datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	KeyInsights      datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	IsRead           bool                        `gorm:"default:false"`
	IsBookmarked     bool                        `gorm:"default:false"`
	IsIntegrated     bool                        `gorm:"default:false"`
	CreatedAt        time.Time                   `gorm:"index:idx_findings_topic_created,priority:2"`
}

func (Finding) TableName() string {
	return "research_findings"
}
