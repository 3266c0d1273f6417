package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateTopicRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"max=2000"`
	// Active defaults to true; the owner's active quota still applies.
	Active *bool `json:"active"`
}

type TopicResponse struct {
	Id                    uuid.UUID  `json:"id"`
	ParentId              *uuid.UUID `json:"parent_id,omitempty"`
	Name                  string     `json:"name"`
	Description           string     `json:"description"`
	ConfidenceScore       float64    `json:"confidence_score"`
	IsActiveResearch      bool       `json:"is_active_research"`
	IsExpansion           bool       `json:"is_expansion"`
	ExpansionDepth        int        `json:"expansion_depth"`
	ChildExpansionEnabled bool       `json:"child_expansion_enabled"`
	ExpansionStatus       string     `json:"expansion_status"`
	LastResearched        *time.Time `json:"last_researched,omitempty"`
	LastBackoffUntil      *time.Time `json:"last_backoff_until,omitempty"`
	PauseCount            int        `json:"pause_count"`
	CreatedAt             time.Time  `json:"created_at"`
}

type FindingResponse struct {
	Id               uuid.UUID `json:"id"`
	TopicId          uuid.UUID `json:"topic_id"`
	QualityScore     *float64  `json:"quality_score,omitempty"`
	Summary          string    `json:"summary"`
	FormattedContent string    `json:"formatted_content"`
	SourceUrls       []string  `json:"source_urls"`
	KeyInsights      []string  `json:"key_insights"`
	IsRead           bool      `json:"is_read"`
	IsBookmarked     bool      `json:"is_bookmarked"`
	IsIntegrated     bool      `json:"is_integrated"`
	CreatedAt        time.Time `json:"created_at"`
}

type ListFindingsRequest struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

type RecordEngagementRequest struct {
	TopicId   uuid.UUID  `json:"topic_id" validate:"required"`
	FindingId *uuid.UUID `json:"finding_id"`
	Kind      string     `json:"kind" validate:"required,oneof=manual_read expansion_read source_click activation bookmark integration"`
}

type RecordEngagementResponse struct {
	Id         uuid.UUID `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UpdateResearchConfigRequest patches the live scheduler and drive settings.
// Nil fields are left unchanged.
type UpdateResearchConfigRequest struct {
	Enabled                *bool    `json:"enabled"`
	Interval               *string  `json:"interval" validate:"omitempty"`
	ResearchWorkers        *int     `json:"research_workers" validate:"omitempty,min=1,max=64"`
	ExpansionWorkers       *int     `json:"expansion_workers" validate:"omitempty,min=1,max=64"`
	PerRootExpansionBudget *int     `json:"per_root_expansion_budget" validate:"omitempty,min=0,max=50"`
	MaxExpansionDepth      *int     `json:"max_expansion_depth" validate:"omitempty,min=0,max=10"`

	// Impetus ranges over [-1, 2.5]; topic motivation has no upper bound.
	GlobalThreshold   *float64 `json:"global_threshold" validate:"omitempty,min=-1,max=3"`
	TopicThreshold    *float64 `json:"topic_threshold" validate:"omitempty,min=0"`
	BoredomRate       *float64 `json:"boredom_rate" validate:"omitempty,min=0"`
	CuriosityDecay    *float64 `json:"curiosity_decay" validate:"omitempty,min=0"`
	TirednessDecay    *float64 `json:"tiredness_decay" validate:"omitempty,min=0"`
	SatisfactionDecay *float64 `json:"satisfaction_decay" validate:"omitempty,min=0"`
	StalenessScale    *float64 `json:"staleness_scale" validate:"omitempty,min=0"`
	EngagementWeight  *float64 `json:"engagement_weight" validate:"omitempty,min=0"`
	QualityWeight     *float64 `json:"quality_weight" validate:"omitempty,min=0"`
}

// DriveOverrideRequest sets drive values directly, each clamped to [0,1].
type DriveOverrideRequest struct {
	Boredom      *float64 `json:"boredom" validate:"omitempty,min=0,max=1"`
	Curiosity    *float64 `json:"curiosity" validate:"omitempty,min=0,max=1"`
	Tiredness    *float64 `json:"tiredness" validate:"omitempty,min=0,max=1"`
	Satisfaction *float64 `json:"satisfaction" validate:"omitempty,min=0,max=1"`
}

type DriveResponse struct {
	Boredom         float64   `json:"boredom"`
	Curiosity       float64   `json:"curiosity"`
	Tiredness       float64   `json:"tiredness"`
	Satisfaction    float64   `json:"satisfaction"`
	Impetus         float64   `json:"impetus"`
	ShouldResearch  bool      `json:"should_research"`
	GlobalThreshold float64   `json:"global_threshold"`
	TopicThreshold  float64   `json:"topic_threshold"`
	LastTick        time.Time `json:"last_tick"`
}

// ResearchTriggerMessage is the in-process queue payload for a manual run.
type ResearchTriggerMessage struct {
	OwnerId     uuid.UUID `json:"owner_id"`
	RequestedAt time.Time `json:"requested_at"`
}

type TriggerResponse struct {
	Queued bool        `json:"queued"`
	Report interface{} `json:"report,omitempty"`
}
