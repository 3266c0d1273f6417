package service

import (
	"context"
	"fmt"
	"time"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/internal/repository/memory"
	"ai-research-be/internal/repository/specification"
	"ai-research-be/internal/repository/unitofwork"
	"ai-research-be/pkg/research"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const engagementModule = "EngagementService"

// ActivityListener is told whenever the owner interacts with research output.
type ActivityListener interface {
	OnUserActivity()
}

type IEngagementService interface {
	research.EngagementReader
	RecordEngagement(ctx context.Context, ownerID uuid.UUID, req *dto.RecordEngagementRequest) (*dto.RecordEngagementResponse, error)
	SetActivityListener(l ActivityListener)
}

type engagementService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *memory.EngagementCache
	window     time.Duration
	activity   ActivityListener
	logger     logger.ILogger
	now        func() time.Time
}

// NewEngagementService aggregates engagement counted over the trailing window.
func NewEngagementService(
	uowFactory unitofwork.RepositoryFactory,
	cache *memory.EngagementCache,
	window time.Duration,
	log logger.ILogger,
) IEngagementService {
	return &engagementService{
		uowFactory: uowFactory,
		cache:      cache,
		window:     window,
		logger:     log,
		now:        time.Now,
	}
}

// SetActivityListener breaks the construction cycle with the drive model,
// which itself reads engagement through this service.
func (s *engagementService) SetActivityListener(l ActivityListener) {
	s.activity = l
}

func (s *engagementService) GetEngagementStats(ctx context.Context, topicID uuid.UUID) (research.EngagementStats, error) {
	if stats, ok := s.cache.Get(topicID); ok {
		return stats, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	since := s.now().Add(-s.window)

	counts, err := uow.EngagementRepository().CountByKind(ctx, topicID, since)
	if err != nil {
		return research.EngagementStats{}, fmt.Errorf("count engagement: %w", err)
	}
	last, err := uow.EngagementRepository().LastOccurredAt(ctx, topicID)
	if err != nil {
		return research.EngagementStats{}, fmt.Errorf("last engagement: %w", err)
	}
	lastRead, err := uow.EngagementRepository().LastOccurredAt(ctx, topicID, entity.ReadKinds...)
	if err != nil {
		return research.EngagementStats{}, fmt.Errorf("last read: %w", err)
	}

	findings := uow.FindingRepository()
	total, err := findings.Count(ctx, specification.ByTopicID{TopicID: topicID})
	if err != nil {
		return research.EngagementStats{}, fmt.Errorf("count findings: %w", err)
	}
	engaged, err := findings.Count(ctx, specification.ByTopicID{TopicID: topicID}, specification.Engaged{})
	if err != nil {
		return research.EngagementStats{}, fmt.Errorf("count engaged findings: %w", err)
	}

	stats := research.EngagementStats{
		ManualReads:     counts[entity.EngagementManualRead],
		ExpansionReads:  counts[entity.EngagementExpansionRead],
		SourceClicks:    counts[entity.EngagementSourceClick],
		Activations:     counts[entity.EngagementActivation],
		Bookmarks:       counts[entity.EngagementBookmark],
		Integrations:    counts[entity.EngagementIntegration],
		LastEngagedAt:   last,
		LastReadAt:      lastRead,
		FindingsTotal:   total,
		FindingsEngaged: engaged,
	}
	s.cache.Save(topicID, stats)
	return stats, nil
}

func (s *engagementService) RecordEngagement(ctx context.Context, ownerID uuid.UUID, req *dto.RecordEngagementRequest) (*dto.RecordEngagementResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	topic, err := uow.TopicRepository().FindOne(ctx,
		specification.ByID{ID: req.TopicId},
		specification.OwnedBy{OwnerID: ownerID},
	)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "topic not found")
	}

	if req.FindingId != nil {
		finding, err := uow.FindingRepository().FindOne(ctx,
			specification.ByID{ID: *req.FindingId},
			specification.ByTopicID{TopicID: topic.Id},
		)
		if err != nil {
			return nil, err
		}
		if finding == nil {
			return nil, fiber.NewError(fiber.StatusNotFound, "finding not found")
		}
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	event := &entity.EngagementEvent{
		Id:         uuid.New(),
		TopicId:    topic.Id,
		OwnerId:    ownerID,
		FindingId:  req.FindingId,
		Kind:       entity.EngagementKind(req.Kind),
		OccurredAt: s.now().UTC(),
	}
	if err := uow.EngagementRepository().Create(ctx, event); err != nil {
		return nil, err
	}

	if req.FindingId != nil {
		if err := markFinding(ctx, uow, *req.FindingId, event.Kind); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.cache.Delete(topic.Id)
	if s.activity != nil {
		s.activity.OnUserActivity()
	}

	s.logger.Debug(engagementModule, "Engagement recorded", map[string]interface{}{
		"topic_id": topic.Id.String(),
		"kind":     req.Kind,
	})

	return &dto.RecordEngagementResponse{
		Id:         event.Id,
		OccurredAt: event.OccurredAt,
	}, nil
}

func markFinding(ctx context.Context, uow unitofwork.UnitOfWork, findingID uuid.UUID, kind entity.EngagementKind) error {
	repo := uow.FindingRepository()
	switch kind {
	case entity.EngagementManualRead, entity.EngagementExpansionRead:
		return repo.MarkRead(ctx, findingID)
	case entity.EngagementBookmark:
		return repo.MarkBookmarked(ctx, findingID)
	case entity.EngagementIntegration:
		return repo.MarkIntegrated(ctx, findingID)
	}
	return nil
}
