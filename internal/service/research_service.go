package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/internal/repository/specification"
	"ai-research-be/internal/repository/unitofwork"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/motivation"
	"ai-research-be/pkg/research/scheduler"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const researchModule = "ResearchService"

const defaultFindingsLimit = 20

type IResearchService interface {
	Status(ctx context.Context) scheduler.Status
	Start(ctx context.Context) (scheduler.Status, error)
	Stop(ctx context.Context) (scheduler.Status, error)
	Restart(ctx context.Context) (scheduler.Status, error)
	Trigger(ctx context.Context, ownerID uuid.UUID, wait bool) (*dto.TriggerResponse, error)
	UpdateConfig(ctx context.Context, req *dto.UpdateResearchConfigRequest) (scheduler.Status, error)
	GetDrive(ctx context.Context) *dto.DriveResponse
	OverrideDrive(ctx context.Context, req *dto.DriveOverrideRequest) *dto.DriveResponse
	ListTopics(ctx context.Context, ownerID uuid.UUID) ([]*dto.TopicResponse, error)
	CreateTopic(ctx context.Context, ownerID uuid.UUID, req *dto.CreateTopicRequest) (*dto.TopicResponse, error)
	ListFindings(ctx context.Context, ownerID, topicID uuid.UUID, req *dto.ListFindingsRequest) ([]*dto.FindingResponse, error)
}

type researchService struct {
	scheduler        *scheduler.Scheduler
	store            research.Persistence
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	logger           logger.ILogger
	stopTimeout      time.Duration
}

func NewResearchService(
	sched *scheduler.Scheduler,
	store research.Persistence,
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	log logger.ILogger,
) IResearchService {
	return &researchService{
		scheduler:        sched,
		store:            store,
		uowFactory:       uowFactory,
		publisherService: publisherService,
		logger:           log,
		stopTimeout:      30 * time.Second,
	}
}

func (s *researchService) Status(ctx context.Context) scheduler.Status {
	return s.scheduler.Status()
}

func (s *researchService) Start(ctx context.Context) (scheduler.Status, error) {
	if err := s.scheduler.Start(); err != nil {
		return scheduler.Status{}, researchError(err)
	}
	return s.scheduler.Status(), nil
}

func (s *researchService) Stop(ctx context.Context) (scheduler.Status, error) {
	stopCtx, cancel := context.WithTimeout(ctx, s.stopTimeout)
	defer cancel()
	if err := s.scheduler.Stop(stopCtx); err != nil {
		return scheduler.Status{}, researchError(err)
	}
	return s.scheduler.Status(), nil
}

func (s *researchService) Restart(ctx context.Context) (scheduler.Status, error) {
	stopCtx, cancel := context.WithTimeout(ctx, s.stopTimeout)
	defer cancel()
	if err := s.scheduler.Restart(stopCtx); err != nil {
		return scheduler.Status{}, researchError(err)
	}
	return s.scheduler.Status(), nil
}

// Trigger queues a manual run for the owner, or runs it inline when wait is set.
func (s *researchService) Trigger(ctx context.Context, ownerID uuid.UUID, wait bool) (*dto.TriggerResponse, error) {
	if wait {
		report, err := s.scheduler.TriggerOwner(ctx, ownerID)
		if err != nil {
			return nil, researchError(err)
		}
		return &dto.TriggerResponse{Report: report}, nil
	}

	payload, err := json.Marshal(dto.ResearchTriggerMessage{
		OwnerId:     ownerID,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		return nil, err
	}

	s.logger.Info(researchModule, "Manual research queued", map[string]interface{}{
		"owner_id": ownerID.String(),
	})
	return &dto.TriggerResponse{Queued: true}, nil
}

func (s *researchService) UpdateConfig(ctx context.Context, req *dto.UpdateResearchConfigRequest) (scheduler.Status, error) {
	cfg := s.scheduler.Config()
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.Interval != nil {
		interval, err := time.ParseDuration(*req.Interval)
		if err != nil {
			return scheduler.Status{}, fiber.NewError(fiber.StatusBadRequest, "interval: "+err.Error())
		}
		cfg.Interval = interval
	}
	if req.ResearchWorkers != nil {
		cfg.ResearchWorkers = *req.ResearchWorkers
	}
	if req.ExpansionWorkers != nil {
		cfg.ExpansionWorkers = *req.ExpansionWorkers
	}
	if req.PerRootExpansionBudget != nil {
		cfg.PerRootExpansionBudget = *req.PerRootExpansionBudget
	}
	if req.MaxExpansionDepth != nil {
		cfg.MaxExpansionDepth = *req.MaxExpansionDepth
	}
	if err := cfg.Validate(); err != nil {
		return scheduler.Status{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	drives := s.scheduler.Drives()
	driveCfg := applyDriveOverrides(drives.Config(), req)
	if err := driveCfg.Validate(); err != nil {
		return scheduler.Status{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := s.scheduler.SetConfig(cfg); err != nil {
		return scheduler.Status{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := drives.SetConfig(driveCfg); err != nil {
		return scheduler.Status{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	// Disabling stops the loop; enabling does not start it on its own.
	if !cfg.Enabled && s.scheduler.Status().Running {
		if _, err := s.Stop(ctx); err != nil {
			return scheduler.Status{}, err
		}
	}
	return s.scheduler.Status(), nil
}

func (s *researchService) GetDrive(ctx context.Context) *dto.DriveResponse {
	return driveResponse(s.scheduler.Drives())
}

func (s *researchService) OverrideDrive(ctx context.Context, req *dto.DriveOverrideRequest) *dto.DriveResponse {
	drives := s.scheduler.Drives()
	state := drives.State()
	if req.Boredom != nil {
		state.Boredom = *req.Boredom
	}
	if req.Curiosity != nil {
		state.Curiosity = *req.Curiosity
	}
	if req.Tiredness != nil {
		state.Tiredness = *req.Tiredness
	}
	if req.Satisfaction != nil {
		state.Satisfaction = *req.Satisfaction
	}
	drives.SetState(state)

	s.logger.Info(researchModule, "Drive state overridden", map[string]interface{}{
		"boredom":      state.Boredom,
		"curiosity":    state.Curiosity,
		"tiredness":    state.Tiredness,
		"satisfaction": state.Satisfaction,
	})
	return driveResponse(drives)
}

func (s *researchService) ListTopics(ctx context.Context, ownerID uuid.UUID) ([]*dto.TopicResponse, error) {
	topics, err := s.store.GetAllTopics(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	result := make([]*dto.TopicResponse, 0, len(topics))
	for _, t := range topics {
		result = append(result, topicResponse(t))
	}
	return result, nil
}

// CreateTopic declares a root topic. Requested activation is downgraded to
// inactive when the owner is at the active quota.
func (s *researchService) CreateTopic(ctx context.Context, ownerID uuid.UUID, req *dto.CreateTopicRequest) (*dto.TopicResponse, error) {
	active := req.Active == nil || *req.Active
	if active {
		ok, err := s.store.CanActivateTopic(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		active = ok
	}

	topic, err := s.store.CreateTopic(ctx, ownerID, research.NewTopic{
		Name:        req.Name,
		Description: req.Description,
		Confidence:  1,
		Active:      active,
	})
	if err != nil {
		return nil, researchError(err)
	}

	s.logger.Info(researchModule, "Topic created", map[string]interface{}{
		"owner_id": ownerID.String(),
		"topic_id": topic.Id.String(),
		"active":   active,
	})
	return topicResponse(topic), nil
}

func (s *researchService) ListFindings(ctx context.Context, ownerID, topicID uuid.UUID, req *dto.ListFindingsRequest) ([]*dto.FindingResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	topic, err := uow.TopicRepository().FindOne(ctx,
		specification.ByID{ID: topicID},
		specification.OwnedBy{OwnerID: ownerID},
	)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "topic not found")
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultFindingsLimit
	}
	findings, err := uow.FindingRepository().FindAll(ctx,
		specification.ByTopicID{TopicID: topicID},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: req.Offset},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.FindingResponse, 0, len(findings))
	for _, f := range findings {
		result = append(result, findingResponse(f))
	}
	return result, nil
}

func researchError(err error) error {
	switch {
	case errors.Is(err, research.ErrSchedulerRunning),
		errors.Is(err, research.ErrSchedulerStopped),
		errors.Is(err, research.ErrSchedulerDisabled),
		errors.Is(err, research.ErrOwnerBusy),
		errors.Is(err, research.ErrDuplicateTopic):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return err
}

func driveResponse(drives *motivation.System) *dto.DriveResponse {
	state := drives.State()
	cfg := drives.Config()
	return &dto.DriveResponse{
		Boredom:         state.Boredom,
		Curiosity:       state.Curiosity,
		Tiredness:       state.Tiredness,
		Satisfaction:    state.Satisfaction,
		Impetus:         state.Impetus(),
		ShouldResearch:  drives.ShouldResearch(),
		GlobalThreshold: cfg.GlobalThreshold,
		TopicThreshold:  cfg.TopicThreshold,
		LastTick:        state.LastTick,
	}
}

func topicResponse(t *entity.Topic) *dto.TopicResponse {
	return &dto.TopicResponse{
		Id:                    t.Id,
		ParentId:              t.ParentId,
		Name:                  t.Name,
		Description:           t.Description,
		ConfidenceScore:       t.ConfidenceScore,
		IsActiveResearch:      t.IsActiveResearch,
		IsExpansion:           t.IsExpansion,
		ExpansionDepth:        t.ExpansionDepth,
		ChildExpansionEnabled: t.ChildExpansionEnabled,
		ExpansionStatus:       string(t.ExpansionStatus),
		LastResearched:        t.LastResearched,
		LastBackoffUntil:      t.LastBackoffUntil,
		PauseCount:            t.PauseCount,
		CreatedAt:             t.CreatedAt,
	}
}

func findingResponse(f *entity.Finding) *dto.FindingResponse {
	return &dto.FindingResponse{
		Id:               f.Id,
		TopicId:          f.TopicId,
		QualityScore:     f.QualityScore,
		Summary:          f.Summary,
		FormattedContent: f.FormattedContent,
		SourceUrls:       f.SourceUrls,
		KeyInsights:      f.KeyInsights,
		IsRead:           f.IsRead,
		IsBookmarked:     f.IsBookmarked,
		IsIntegrated:     f.IsIntegrated,
		CreatedAt:        f.CreatedAt,
	}
}

func applyDriveOverrides(cfg motivation.Config, req *dto.UpdateResearchConfigRequest) motivation.Config {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cfg.GlobalThreshold, req.GlobalThreshold)
	set(&cfg.TopicThreshold, req.TopicThreshold)
	set(&cfg.BoredomRate, req.BoredomRate)
	set(&cfg.CuriosityDecay, req.CuriosityDecay)
	set(&cfg.TirednessDecay, req.TirednessDecay)
	set(&cfg.SatisfactionDecay, req.SatisfactionDecay)
	set(&cfg.StalenessScale, req.StalenessScale)
	set(&cfg.EngagementWeight, req.EngagementWeight)
	set(&cfg.QualityWeight, req.QualityWeight)
	return cfg
}
