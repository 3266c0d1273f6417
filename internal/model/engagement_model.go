package model

import (
	"time"

	"github.com/google/uuid"
)

type TopicEngagementEvent struct {
	Id         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TopicId    uuid.UUID  `gorm:"type:uuid;not null;index:idx_engagement_topic_time,priority:1"`
	OwnerId    uuid.UUID  `gorm:"type:uuid;not null;index"`
	FindingId  *uuid.UUID `gorm:"type:uuid"`
	Kind       string     `gorm:"type:varchar(32);not null"`
	OccurredAt time.Time  `gorm:"not null;index:idx_engagement_topic_time,priority:2"`
}

func (TopicEngagementEvent) TableName() string {
	return "topic_engagement_events"
}
