package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/scheduler"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrigger struct {
	mu     sync.Mutex
	owners []uuid.UUID
	err    error
}

func (f *fakeTrigger) TriggerOwner(ctx context.Context, ownerID uuid.UUID) (scheduler.CycleReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners = append(f.owners, ownerID)
	return scheduler.CycleReport{ID: uuid.New(), Manual: true}, f.err
}

func (f *fakeTrigger) Owners() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.owners...)
}

func TestConsumerService_RunsQueuedTriggers(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "success"},
		{name: "owner busy", err: research.ErrOwnerBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
			defer pubSub.Close()

			trigger := &fakeTrigger{err: tt.err}
			consumer := NewConsumerService(pubSub, "RESEARCH_TRIGGER", trigger, logger.NewNopLogger())
			require.NoError(t, consumer.Consume(ctx))

			owner := uuid.New()
			payload, err := json.Marshal(dto.ResearchTriggerMessage{OwnerId: owner, RequestedAt: time.Now()})
			require.NoError(t, err)

			publisher := NewPublisherService("RESEARCH_TRIGGER", pubSub)
			require.NoError(t, publisher.Publish(ctx, []byte("not json")))
			require.NoError(t, publisher.Publish(ctx, payload))

			assert.Eventually(t, func() bool {
				return len(trigger.Owners()) == 1
			}, time.Second, 10*time.Millisecond)
			assert.Equal(t, owner, trigger.Owners()[0])
		})
	}
}
