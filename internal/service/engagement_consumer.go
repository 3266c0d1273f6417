package service

import (
	"context"
	"errors"
	"fmt"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/internal/pkg/serverutils"
	"ai-research-be/pkg/events"
	pktNats "ai-research-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const engagementConsumerModule = "EngagementConsumer"

const engagementDurable = "research-engagement"

type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

// EngagementConsumer records engagement reported by reading clients over NATS.
type EngagementConsumer struct {
	subscriber EventSubscriber
	engagement IEngagementService
	logger     logger.ILogger
}

func NewEngagementConsumer(subscriber EventSubscriber, engagement IEngagementService, log logger.ILogger) *EngagementConsumer {
	return &EngagementConsumer{
		subscriber: subscriber,
		engagement: engagement,
		logger:     log,
	}
}

func (c *EngagementConsumer) Start(ctx context.Context) error {
	return c.subscriber.Subscribe(ctx, events.EngagementRecorded, engagementDurable, c.Handle)
}

// Handle returns an error only for failures worth redelivering.
func (c *EngagementConsumer) Handle(ctx context.Context, event events.Event) error {
	ownerID, req, err := parseEngagement(event.Payload())
	if err != nil {
		c.logger.Warn(engagementConsumerModule, "Dropping malformed engagement event", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		c.logger.Warn(engagementConsumerModule, "Dropping invalid engagement event", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	if _, err := c.engagement.RecordEngagement(ctx, ownerID, req); err != nil {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) && fiberErr.Code == fiber.StatusNotFound {
			c.logger.Warn(engagementConsumerModule, "Engagement for unknown topic or finding", map[string]interface{}{
				"owner_id": ownerID.String(),
				"topic_id": req.TopicId.String(),
			})
			return nil
		}
		return err
	}
	return nil
}

func parseEngagement(data map[string]interface{}) (uuid.UUID, *dto.RecordEngagementRequest, error) {
	ownerID, err := uuidField(data, "owner_id")
	if err != nil {
		return uuid.Nil, nil, err
	}
	topicID, err := uuidField(data, "topic_id")
	if err != nil {
		return uuid.Nil, nil, err
	}
	kind, _ := data["kind"].(string)

	req := &dto.RecordEngagementRequest{TopicId: topicID, Kind: kind}
	if _, ok := data["finding_id"]; ok {
		findingID, err := uuidField(data, "finding_id")
		if err != nil {
			return uuid.Nil, nil, err
		}
		req.FindingId = &findingID
	}
	return ownerID, req, nil
}

func uuidField(data map[string]interface{}, key string) (uuid.UUID, error) {
	raw, ok := data[key].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%s missing", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", key, err)
	}
	return id, nil
}
