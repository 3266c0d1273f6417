package mapper

import (
	"ai-research-be/internal/entity"
	"ai-research-be/internal/model"
)

type EngagementMapper struct{}

func NewEngagementMapper() *EngagementMapper {
	return &EngagementMapper{}
}

func (m *EngagementMapper) ToEntity(e *model.TopicEngagementEvent) *entity.EngagementEvent {
	if e == nil {
		return nil
	}
	return &entity.EngagementEvent{
		Id:         e.Id,
		TopicId:    e.TopicId,
		OwnerId:    e.OwnerId,
		FindingId:  e.FindingId,
		Kind:       entity.EngagementKind(e.Kind),
		OccurredAt: e.OccurredAt,
	}
}

func (m *EngagementMapper) ToModel(e *entity.EngagementEvent) *model.TopicEngagementEvent {
	if e == nil {
		return nil
	}
	return &model.TopicEngagementEvent{
		Id:         e.Id,
		TopicId:    e.TopicId,
		OwnerId:    e.OwnerId,
		FindingId:  e.FindingId,
		Kind:       string(e.Kind),
		OccurredAt: e.OccurredAt,
	}
}
