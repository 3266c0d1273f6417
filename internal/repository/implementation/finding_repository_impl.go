package implementation

import (
	"context"
	"errors"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/mapper"
	"ai-research-be/internal/model"
	"ai-research-be/internal/repository/contract"
	"ai-research-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FindingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.FindingMapper
}

func NewFindingRepository(db *gorm.DB) contract.FindingRepository {
	return &FindingRepositoryImpl{
		db:     db,
		mapper: mapper.NewFindingMapper(),
	}
}

func (r *FindingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *FindingRepositoryImpl) Create(ctx context.Context, finding *entity.Finding) error {
	m := r.mapper.ToModel(finding)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*finding = *r.mapper.ToEntity(m)
	return nil
}

func (r *FindingRepositoryImpl) Update(ctx context.Context, finding *entity.Finding) error {
	m := r.mapper.ToModel(finding)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*finding = *r.mapper.ToEntity(m)
	return nil
}

func (r *FindingRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Finding, error) {
	var m model.Finding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *FindingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Finding, error) {
	var models []*model.Finding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *FindingRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Finding{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *FindingRepositoryImpl) MarkRead(ctx context.Context, id uuid.UUID) error {
	return r.setFlag(ctx, id, "is_read")
}

func (r *FindingRepositoryImpl) MarkBookmarked(ctx context.Context, id uuid.UUID) error {
	return r.setFlag(ctx, id, "is_bookmarked")
}

func (r *FindingRepositoryImpl) MarkIntegrated(ctx context.Context, id uuid.UUID) error {
	return r.setFlag(ctx, id, "is_integrated")
}

func (r *FindingRepositoryImpl) setFlag(ctx context.Context, id uuid.UUID, column string) error {
	return r.db.WithContext(ctx).
		Model(&model.Finding{}).
		Where("id = ?", id).
		Update(column, true).Error
}
