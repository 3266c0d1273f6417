package contract

import (
	"context"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/repository/specification"

	"github.com/google/uuid"
)

type EngagementRepository interface {
	Create(ctx context.Context, event *entity.EngagementEvent) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EngagementEvent, error)
	// CountByKind groups a topic's events since the given time by kind.
	CountByKind(ctx context.Context, topicId uuid.UUID, since time.Time) (map[entity.EngagementKind]int64, error)
	// LastOccurredAt returns the latest event of the given kinds, or of any kind
	// when none are given.
	LastOccurredAt(ctx context.Context, topicId uuid.UUID, kinds ...entity.EngagementKind) (*time.Time, error)
}
