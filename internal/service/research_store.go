package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/repository/specification"
	"ai-research-be/internal/repository/unitofwork"
	"ai-research-be/pkg/research"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// researchStore implements research.Persistence on top of the gorm unit of work.
type researchStore struct {
	uowFactory      unitofwork.RepositoryFactory
	maxActiveTopics int
	now             func() time.Time
}

func NewResearchStore(uowFactory unitofwork.RepositoryFactory, maxActiveTopics int) research.Persistence {
	return &researchStore{
		uowFactory:      uowFactory,
		maxActiveTopics: maxActiveTopics,
		now:             time.Now,
	}
}

func (s *researchStore) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.TopicRepository().DistinctOwners(ctx)
}

func (s *researchStore) GetActiveTopics(ctx context.Context, ownerID uuid.UUID) ([]*entity.Topic, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.TopicRepository().FindAll(ctx,
		specification.OwnedBy{OwnerID: ownerID},
		specification.ActiveResearch{},
		specification.NotRetired{},
		specification.OrderBy{Field: "created_at"},
	)
}

func (s *researchStore) GetAllTopics(ctx context.Context, ownerID uuid.UUID) ([]*entity.Topic, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.TopicRepository().FindAll(ctx,
		specification.OwnedBy{OwnerID: ownerID},
		specification.OrderBy{Field: "created_at"},
	)
}

func (s *researchStore) SaveTopics(ctx context.Context, ownerID uuid.UUID, topics []*entity.Topic) error {
	if len(topics) == 0 {
		return nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	repo := uow.TopicRepository()
	for _, t := range topics {
		if t.OwnerId != ownerID {
			return fmt.Errorf("topic %s does not belong to owner %s", t.Id, ownerID)
		}
		if err := repo.Update(ctx, t); err != nil {
			return fmt.Errorf("save topic %s: %w", t.Id, err)
		}
	}
	return uow.Commit()
}

func (s *researchStore) CreateTopic(ctx context.Context, ownerID uuid.UUID, nt research.NewTopic) (*entity.Topic, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.TopicRepository()

	existing, err := repo.FindOne(ctx,
		specification.OwnedBy{OwnerID: ownerID},
		specification.ByNormalizedName{Name: research.NormalizeName(nt.Name)},
	)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, research.ErrDuplicateTopic
	}

	now := s.now().UTC()
	topic := &entity.Topic{
		Id:                    uuid.New(),
		OwnerId:               ownerID,
		ParentId:              nt.ParentID,
		Name:                  nt.Name,
		Description:           nt.Description,
		ConfidenceScore:       nt.Confidence,
		IsActiveResearch:      nt.Active,
		IsExpansion:           nt.IsExpansion,
		ExpansionDepth:        nt.Depth,
		ChildExpansionEnabled: !nt.IsExpansion,
		ExpansionStatus:       entity.ExpansionStatusActive,
		LastEvaluatedAt:       now,
		StalenessCoefficient:  1,
		CreatedAt:             now,
	}

	// The unique index still guards against a concurrent insert of the same name.
	if err := repo.Create(ctx, topic); err != nil {
		if isUniqueViolation(err) {
			return nil, research.ErrDuplicateTopic
		}
		return nil, err
	}
	return topic, nil
}

func (s *researchStore) GetRecentFindings(ctx context.Context, topicID uuid.UUID, limit int) ([]*entity.Finding, error) {
	if limit <= 0 {
		return nil, nil
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.FindingRepository().FindAll(ctx,
		specification.ByTopicID{TopicID: topicID},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit},
	)
}

func (s *researchStore) StoreFinding(ctx context.Context, topicID uuid.UUID, finding *entity.Finding) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	topic, err := uow.TopicRepository().FindOne(ctx, specification.ByID{ID: topicID})
	if err != nil {
		return false, err
	}
	if topic == nil {
		return false, nil
	}

	if finding.Id == uuid.Nil {
		finding.Id = uuid.New()
	}
	finding.TopicId = topicID
	finding.OwnerId = topic.OwnerId
	if finding.CreatedAt.IsZero() {
		finding.CreatedAt = s.now().UTC()
	}

	if err := uow.FindingRepository().Create(ctx, finding); err != nil {
		return false, err
	}
	return true, nil
}

func (s *researchStore) UpdateTopicLastResearched(ctx context.Context, topicID uuid.UUID, at time.Time) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.TopicRepository().TouchLastResearched(ctx, topicID, at.UTC())
}

func (s *researchStore) CanActivateTopic(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	if s.maxActiveTopics <= 0 {
		return true, nil
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	active, err := uow.TopicRepository().Count(ctx,
		specification.OwnedBy{OwnerID: ownerID},
		specification.ActiveResearch{},
		specification.NotRetired{},
	)
	if err != nil {
		return false, err
	}
	return active < int64(s.maxActiveTopics), nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
