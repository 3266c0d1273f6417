package service

import (
	"context"
	"errors"
	"testing"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/events"
	"ai-research-be/pkg/research"
	pktNats "ai-research-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngagementService struct {
	err   error
	calls []*dto.RecordEngagementRequest
	owner uuid.UUID
}

func (f *fakeEngagementService) GetEngagementStats(ctx context.Context, topicID uuid.UUID) (research.EngagementStats, error) {
	return research.EngagementStats{}, nil
}

func (f *fakeEngagementService) RecordEngagement(ctx context.Context, ownerID uuid.UUID, req *dto.RecordEngagementRequest) (*dto.RecordEngagementResponse, error) {
	f.owner = ownerID
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.RecordEngagementResponse{Id: uuid.New()}, nil
}

func (f *fakeEngagementService) SetActivityListener(l ActivityListener) {}

type fakeSubscriber struct {
	eventType string
	durable   string
	handler   pktNats.EventHandler
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error {
	s.eventType, s.durable, s.handler = eventType, durableName, handler
	return nil
}

func engagementEvent(data map[string]interface{}) events.Event {
	return events.BaseEvent{Type: events.EngagementRecorded, Data: data}
}

func TestEngagementConsumer_Start(t *testing.T) {
	sub := &fakeSubscriber{}
	c := NewEngagementConsumer(sub, &fakeEngagementService{}, logger.NewNopLogger())

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, events.EngagementRecorded, sub.eventType)
	assert.Equal(t, engagementDurable, sub.durable)
	assert.NotNil(t, sub.handler)
}

func TestEngagementConsumer_Handle(t *testing.T) {
	owner, topic, finding := uuid.New(), uuid.New(), uuid.New()
	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"owner_id":   owner.String(),
			"topic_id":   topic.String(),
			"finding_id": finding.String(),
			"kind":       "bookmark",
		}
	}

	tests := []struct {
		name      string
		data      func() map[string]interface{}
		recordErr error
		wantCalls int
		wantErr   bool
	}{
		{name: "valid", data: valid, wantCalls: 1},
		{
			name: "without finding",
			data: func() map[string]interface{} {
				d := valid()
				delete(d, "finding_id")
				d["kind"] = "activation"
				return d
			},
			wantCalls: 1,
		},
		{
			name: "missing owner is dropped",
			data: func() map[string]interface{} {
				d := valid()
				delete(d, "owner_id")
				return d
			},
		},
		{
			name: "malformed finding id is dropped",
			data: func() map[string]interface{} {
				d := valid()
				d["finding_id"] = "nope"
				return d
			},
		},
		{
			name: "unknown kind is dropped",
			data: func() map[string]interface{} {
				d := valid()
				d["kind"] = "like"
				return d
			},
		},
		{
			name:      "unknown topic is acked",
			data:      valid,
			recordErr: fiber.NewError(fiber.StatusNotFound, "topic not found"),
			wantCalls: 1,
		},
		{
			name:      "storage failure is redelivered",
			data:      valid,
			recordErr: errors.New("connection reset"),
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEngagementService{err: tt.recordErr}
			c := NewEngagementConsumer(&fakeSubscriber{}, svc, logger.NewNopLogger())

			err := c.Handle(context.Background(), engagementEvent(tt.data()))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, svc.calls, tt.wantCalls)
			if tt.wantCalls > 0 {
				assert.Equal(t, owner, svc.owner)
				assert.Equal(t, topic, svc.calls[0].TopicId)
			}
		})
	}
}
