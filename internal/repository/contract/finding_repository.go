package contract

import (
	"context"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/repository/specification"

	"github.com/google/uuid"
)

type FindingRepository interface {
	Create(ctx context.Context, finding *entity.Finding) error
	Update(ctx context.Context, finding *entity.Finding) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Finding, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Finding, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkBookmarked(ctx context.Context, id uuid.UUID) error
	MarkIntegrated(ctx context.Context, id uuid.UUID) error
}
