package implementation

import (
	"context"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/mapper"
	"ai-research-be/internal/model"
	"ai-research-be/internal/repository/contract"
	"ai-research-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EngagementRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EngagementMapper
}

func NewEngagementRepository(db *gorm.DB) contract.EngagementRepository {
	return &EngagementRepositoryImpl{
		db:     db,
		mapper: mapper.NewEngagementMapper(),
	}
}

func (r *EngagementRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *EngagementRepositoryImpl) Create(ctx context.Context, event *entity.EngagementEvent) error {
	m := r.mapper.ToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.ToEntity(m)
	return nil
}

func (r *EngagementRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EngagementEvent, error) {
	var models []*model.TopicEngagementEvent
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.EngagementEvent, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *EngagementRepositoryImpl) CountByKind(ctx context.Context, topicId uuid.UUID, since time.Time) (map[entity.EngagementKind]int64, error) {
	type row struct {
		Kind  string
		Total int64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&model.TopicEngagementEvent{}).
		Select("kind, COUNT(*) as total").
		Where("topic_id = ?", topicId).
		Where("occurred_at >= ?", since).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entity.EngagementKind]int64, len(rows))
	for _, rw := range rows {
		counts[entity.EngagementKind(rw.Kind)] = rw.Total
	}
	return counts, nil
}

func (r *EngagementRepositoryImpl) LastOccurredAt(ctx context.Context, topicId uuid.UUID, kinds ...entity.EngagementKind) (*time.Time, error) {
	query := r.db.WithContext(ctx).
		Model(&model.TopicEngagementEvent{}).
		Select("MAX(occurred_at)").
		Where("topic_id = ?", topicId)
	if len(kinds) > 0 {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		query = query.Where("kind IN ?", names)
	}

	var last *time.Time
	err := query.Scan(&last).Error
	if err != nil {
		return nil, err
	}
	return last, nil
}
