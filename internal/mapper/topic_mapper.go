package mapper

import (
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/model"
	"ai-research-be/pkg/research"
)

type TopicMapper struct{}

func NewTopicMapper() *TopicMapper {
	return &TopicMapper{}
}

func (m *TopicMapper) ToEntity(t *model.Topic) *entity.Topic {
	if t == nil {
		return nil
	}

	var updatedAt *time.Time
	if !t.UpdatedAt.IsZero() {
		u := t.UpdatedAt
		updatedAt = &u
	}

	status := entity.ExpansionStatus(t.ExpansionStatus)
	if status == "" {
		status = entity.ExpansionStatusActive
	}

	return &entity.Topic{
		Id:                    t.Id,
		OwnerId:               t.OwnerId,
		ParentId:              t.ParentId,
		Name:                  t.Name,
		Description:           t.Description,
		ConfidenceScore:       t.ConfidenceScore,
		IsActiveResearch:      t.IsActiveResearch,
		IsExpansion:           t.IsExpansion,
		ExpansionDepth:        t.ExpansionDepth,
		ChildExpansionEnabled: t.ChildExpansionEnabled,
		ExpansionStatus:       status,
		LastResearched:        t.LastResearched,
		LastEvaluatedAt:       t.LastEvaluatedAt,
		LastBackoffUntil:      t.LastBackoffUntil,
		PausedAt:              t.PausedAt,
		PauseCount:            t.PauseCount,
		StalenessCoefficient:  t.StalenessCoefficient,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             updatedAt,
	}
}

func (m *TopicMapper) ToModel(t *entity.Topic) *model.Topic {
	if t == nil {
		return nil
	}

	var updatedAt time.Time
	if t.UpdatedAt != nil {
		updatedAt = *t.UpdatedAt
	}

	coefficient := t.StalenessCoefficient
	if coefficient <= 0 {
		coefficient = 1
	}

	return &model.Topic{
		Id:                    t.Id,
		OwnerId:               t.OwnerId,
		ParentId:              t.ParentId,
		Name:                  t.Name,
		NormalizedName:        research.NormalizeName(t.Name),
		Description:           t.Description,
		ConfidenceScore:       t.ConfidenceScore,
		IsActiveResearch:      t.IsActiveResearch,
		IsExpansion:           t.IsExpansion,
		ExpansionDepth:        t.ExpansionDepth,
		ChildExpansionEnabled: t.ChildExpansionEnabled,
		ExpansionStatus:       string(t.ExpansionStatus),
		LastResearched:        t.LastResearched,
		LastEvaluatedAt:       t.LastEvaluatedAt,
		LastBackoffUntil:      t.LastBackoffUntil,
		PausedAt:              t.PausedAt,
		PauseCount:            t.PauseCount,
		StalenessCoefficient:  coefficient,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             updatedAt,
	}
}

func (m *TopicMapper) ToEntities(topics []*model.Topic) []*entity.Topic {
	entities := make([]*entity.Topic, len(topics))
	for i, t := range topics {
		entities[i] = m.ToEntity(t)
	}
	return entities
}
