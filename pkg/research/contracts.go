// Package research holds the collaborator contracts and shared value types of
// the autonomous research engine. Subpackages implement the drive model, the
// topic lifecycle, candidate expansion, the per-topic pipeline and the
// scheduler that composes them.
package research

import (
	"context"
	"time"

	"ai-research-be/internal/entity"

	"github.com/google/uuid"
)

// NewTopic describes a topic to be created through Persistence.
type NewTopic struct {
	Name        string
	Description string
	Confidence  float64
	IsExpansion bool
	Depth       int
	ParentID    *uuid.UUID
	Active      bool
}

// Persistence is the storage collaborator. Implementations serialize writes
// per topic.
type Persistence interface {
	ListOwners(ctx context.Context) ([]uuid.UUID, error)
	// GetActiveTopics returns topics flagged for research that are not retired.
	GetActiveTopics(ctx context.Context, ownerID uuid.UUID) ([]*entity.Topic, error)
	// GetAllTopics returns every topic of the owner, retired included.
	GetAllTopics(ctx context.Context, ownerID uuid.UUID) ([]*entity.Topic, error)
	SaveTopics(ctx context.Context, ownerID uuid.UUID, topics []*entity.Topic) error
	// CreateTopic returns ErrDuplicateTopic when the owner already has a topic
	// with the same normalized name.
	CreateTopic(ctx context.Context, ownerID uuid.UUID, t NewTopic) (*entity.Topic, error)
	GetRecentFindings(ctx context.Context, topicID uuid.UUID, limit int) ([]*entity.Finding, error)
	StoreFinding(ctx context.Context, topicID uuid.UUID, finding *entity.Finding) (bool, error)
	UpdateTopicLastResearched(ctx context.Context, topicID uuid.UUID, at time.Time) error
	// CanActivateTopic reports whether the owner is below the active-topic quota.
	CanActivateTopic(ctx context.Context, ownerID uuid.UUID) (bool, error)
}

type GraphScope string

const (
	ScopeNodes GraphScope = "nodes"
	ScopeEdges GraphScope = "edges"
)

// GraphHit is one knowledge-graph match. Node hits carry Name, edge hits carry
// Fact plus the names of both endpoints.
type GraphHit struct {
	Name       string
	Fact       string
	Similarity float64
	SourceName string
	TargetName string
}

// GraphSearcher queries the owner's knowledge graph. An unknown owner yields
// an empty result, not an error.
type GraphSearcher interface {
	Search(ctx context.Context, ownerID uuid.UUID, query string, scope GraphScope, limit int) ([]GraphHit, error)
}

type SearchResult struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Snippet     string     `json:"snippet"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// SearchSource is one pluggable external search backend.
type SearchSource interface {
	Name() string
	Available() bool
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// EngagementStats is the read model of a topic's user engagement.
type EngagementStats struct {
	ManualReads     int64
	ExpansionReads  int64
	SourceClicks    int64
	Activations     int64
	Bookmarks       int64
	Integrations    int64
	LastEngagedAt   *time.Time
	// LastReadAt is the latest read, bookmark or integration.
	LastReadAt      *time.Time
	FindingsTotal   int64
	FindingsEngaged int64
}

// HasData reports whether any signal at all has been recorded.
func (s EngagementStats) HasData() bool {
	return s.ManualReads+s.ExpansionReads+s.SourceClicks+s.Activations+s.Bookmarks+s.Integrations > 0 ||
		s.FindingsTotal > 0
}

type EngagementReader interface {
	GetEngagementStats(ctx context.Context, topicID uuid.UUID) (EngagementStats, error)
}
