package contract

import (
	"context"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/repository/specification"

	"github.com/google/uuid"
)

type TopicRepository interface {
	Create(ctx context.Context, topic *entity.Topic) error
	Update(ctx context.Context, topic *entity.Topic) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Topic, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Topic, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// DistinctOwners lists every owner that has at least one non-retired topic.
	DistinctOwners(ctx context.Context) ([]uuid.UUID, error)
	TouchLastResearched(ctx context.Context, id uuid.UUID, at time.Time) error
}
