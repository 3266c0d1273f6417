package entity

import (
	"time"

	"github.com/google/uuid"
)

type Finding struct {
	Id               uuid.UUID
	TopicId          uuid.UUID
	OwnerId          uuid.UUID
	QualityScore     *float64
	Summary          string
	Content          string
	FormattedContent string
	SourceUrls       []string
	KeyInsights      []string
	IsRead           bool
	IsBookmarked     bool
	IsIntegrated     bool
	CreatedAt        time.Time
}
