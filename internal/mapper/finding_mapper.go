package mapper

import (
	"ai-research-be/internal/entity"
	"ai-research-be/internal/model"

	"gorm.io/datatypes"
)

type FindingMapper struct{}

func NewFindingMapper() *FindingMapper {
	return &FindingMapper{}
}

func (m *FindingMapper) ToEntity(f *model.Finding) *entity.Finding {
	if f == nil {
		return nil
	}
	return &entity.Finding{
		Id:               f.Id,
		TopicId:          f.TopicId,
		OwnerId:          f.OwnerId,
		QualityScore:     f.QualityScore,
		Summary:          f.Summary,
		Content:          f.Content,
		FormattedContent: f.FormattedContent,
		SourceUrls:       []string(f.SourceUrls),
		KeyInsights:      []string(f.KeyInsights),
		IsRead:           f.IsRead,
		IsBookmarked:     f.IsBookmarked,
		IsIntegrated:     f.IsIntegrated,
		CreatedAt:        f.CreatedAt,
	}
}

func (m *FindingMapper) ToModel(f *entity.Finding) *model.Finding {
	if f == nil {
		return nil
	}
	return &model.Finding{
		Id:               f.Id,
		TopicId:          f.TopicId,
		OwnerId:          f.OwnerId,
		QualityScore:     f.QualityScore,
		Summary:          f.Summary,
		Content:          f.Content,
		FormattedContent: f.FormattedContent,
		SourceUrls:       datatypes.JSONSlice[string](f.SourceUrls),
		KeyInsights:      datatypes.JSONSlice[string](f.KeyInsights),
		IsRead:           f.IsRead,
		IsBookmarked:     f.IsBookmarked,
		IsIntegrated:     f.IsIntegrated,
		CreatedAt:        f.CreatedAt,
	}
}

func (m *FindingMapper) ToEntities(findings []*model.Finding) []*entity.Finding {
	entities := make([]*entity.Finding, len(findings))
	for i, f := range findings {
		entities[i] = m.ToEntity(f)
	}
	return entities
}
