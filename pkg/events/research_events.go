package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	FindingStored          = "FINDING_STORED"
	TopicExpanded          = "TOPIC_EXPANDED"
	TopicChildrenEnabled   = "TOPIC_CHILDREN_ENABLED"
	TopicPaused            = "TOPIC_PAUSED"
	TopicReactivated       = "TOPIC_REACTIVATED"
	TopicRetired           = "TOPIC_RETIRED"
	ResearchCycleCompleted = "RESEARCH_CYCLE_COMPLETED"

	// Engagement events are produced by the reading clients and consumed here.
	EngagementRecorded = "ENGAGEMENT_RECORDED"
)

func NewFindingStored(ownerID, topicID, findingID uuid.UUID, topicName string, quality float64) BaseEvent {
	return BaseEvent{
		Type: FindingStored,
		Data: map[string]interface{}{
			"owner_id":      ownerID.String(),
			"topic_id":      topicID.String(),
			"finding_id":    findingID.String(),
			"topic_name":    topicName,
			"quality_score": quality,
		},
		OccurredAt: time.Now(),
	}
}

func NewTopicExpanded(ownerID, parentID, topicID uuid.UUID, name string, depth int, active bool) BaseEvent {
	return BaseEvent{
		Type: TopicExpanded,
		Data: map[string]interface{}{
			"owner_id":  ownerID.String(),
			"parent_id": parentID.String(),
			"topic_id":  topicID.String(),
			"name":      name,
			"depth":     depth,
			"active":    active,
		},
		OccurredAt: time.Now(),
	}
}

// NewTopicTransition builds one of the lifecycle events; eventType is one of
// TopicChildrenEnabled, TopicPaused, TopicReactivated or TopicRetired.
func NewTopicTransition(eventType string, ownerID, topicID uuid.UUID, name, from, to string) BaseEvent {
	return BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"owner_id": ownerID.String(),
			"topic_id": topicID.String(),
			"name":     name,
			"from":     from,
			"to":       to,
		},
		OccurredAt: time.Now(),
	}
}

func NewResearchCycleCompleted(cycleID uuid.UUID, owners, researched, stored, expanded int, took time.Duration) BaseEvent {
	return BaseEvent{
		Type: ResearchCycleCompleted,
		Data: map[string]interface{}{
			"cycle_id":          cycleID.String(),
			"owners":            owners,
			"topics_researched": researched,
			"findings_stored":   stored,
			"expansions":        expanded,
			"duration_ms":       took.Milliseconds(),
		},
		OccurredAt: time.Now(),
	}
}
