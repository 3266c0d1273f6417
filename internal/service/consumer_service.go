package service

import (
	"context"
	"encoding/json"
	"errors"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/scheduler"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const consumerModule = "TriggerConsumer"

// OwnerTrigger runs a manual research pass for one owner.
type OwnerTrigger interface {
	TriggerOwner(ctx context.Context, ownerID uuid.UUID) (scheduler.CycleReport, error)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	trigger   OwnerTrigger
	logger    logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	trigger OwnerTrigger,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		trigger:   trigger,
		logger:    log,
	}
}

// Consume drains queued manual triggers until ctx is cancelled.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ResearchTriggerMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal trigger", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// A malformed payload never becomes valid.
		msg.Ack()
		return
	}

	report, err := cs.trigger.TriggerOwner(ctx, payload.OwnerId)
	switch {
	case errors.Is(err, research.ErrOwnerBusy):
		// The owner is being researched right now; the running pass covers the request.
		cs.logger.Info(consumerModule, "Owner already in progress, trigger dropped", map[string]interface{}{
			"owner_id": payload.OwnerId.String(),
		})
		msg.Ack()
		return
	case err != nil:
		cs.logger.Error(consumerModule, "Manual research failed", map[string]interface{}{
			"owner_id": payload.OwnerId.String(),
			"error":    err.Error(),
		})
		msg.Ack()
		return
	}

	cs.logger.Info(consumerModule, "Manual research finished", map[string]interface{}{
		"owner_id":          payload.OwnerId.String(),
		"cycle_id":          report.ID.String(),
		"topics_researched": report.TopicsResearched(),
		"findings_stored":   report.FindingsStored(),
		"expansions":        report.ExpansionsCreated(),
	})
	msg.Ack()
}
