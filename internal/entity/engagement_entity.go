package entity

import (
	"time"

	"github.com/google/uuid"
)

type EngagementKind string

const (
	EngagementManualRead    EngagementKind = "manual_read"
	EngagementExpansionRead EngagementKind = "expansion_read"
	EngagementSourceClick   EngagementKind = "source_click"
	EngagementActivation    EngagementKind = "activation"
	EngagementBookmark      EngagementKind = "bookmark"
	EngagementIntegration   EngagementKind = "integration"
)

type EngagementEvent struct {
	Id         uuid.UUID
	TopicId    uuid.UUID
	OwnerId    uuid.UUID
	FindingId  *uuid.UUID
	Kind       EngagementKind
	OccurredAt time.Time
}

// ReadKinds are the engagements that keep an expansion topic from going cold.
var ReadKinds = []EngagementKind{
	EngagementManualRead,
	EngagementExpansionRead,
	EngagementBookmark,
	EngagementIntegration,
}
