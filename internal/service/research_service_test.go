package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/lifecycle"
	"ai-research-be/pkg/research/motivation"
	"ai-research-be/pkg/research/pipeline"
	"ai-research-be/pkg/research/researchtest"
	"ai-research-be/pkg/research/scheduler"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type skipResearcher struct{}

func (skipResearcher) Run(ctx context.Context, t *entity.Topic) (pipeline.Run, error) {
	return pipeline.Run{TopicID: t.Id, Outcome: pipeline.OutcomeSkipped}, nil
}

type noExpansion struct{}

func (noExpansion) GenerateCandidates(ctx context.Context, ownerID uuid.UUID, root *entity.Topic) []research.ExpansionCandidate {
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

type serviceFixture struct {
	owner     uuid.UUID
	store     *researchtest.MemoryStore
	sched     *scheduler.Scheduler
	publisher *recordingPublisher
	svc       IResearchService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	eng := researchtest.NewStaticEngagement()
	store := researchtest.NewMemoryStore()
	drives := motivation.NewSystem(motivation.DefaultConfig(), eng, logger.NewNopLogger())

	cfg := scheduler.DefaultConfig()
	cfg.Interval = time.Hour
	sched, err := scheduler.New(cfg, scheduler.Deps{
		Drives:     drives,
		Store:      store,
		Researcher: skipResearcher{},
		Expander:   noExpansion{},
		Lifecycle:  lifecycle.NewManager(lifecycle.DefaultConfig(), eng, motivation.DefaultEngagementWeights(), logger.NewNopLogger()),
		Logger:     logger.NewNopLogger(),
	})
	require.NoError(t, err)

	pub := &recordingPublisher{}
	return &serviceFixture{
		owner:     uuid.New(),
		store:     store,
		sched:     sched,
		publisher: pub,
		svc:       NewResearchService(sched, store, nil, pub, logger.NewNopLogger()),
	}
}

func fiberCode(t *testing.T, err error) int {
	t.Helper()
	var fe *fiber.Error
	require.True(t, errors.As(err, &fe), "expected fiber error, got %v", err)
	return fe.Code
}

func TestResearchService_StartStopConflicts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Stop(ctx)
	assert.Equal(t, fiber.StatusConflict, fiberCode(t, err))

	st, err := f.svc.Start(ctx)
	require.NoError(t, err)
	assert.True(t, st.Running)

	_, err = f.svc.Start(ctx)
	assert.Equal(t, fiber.StatusConflict, fiberCode(t, err))

	st, err = f.svc.Restart(ctx)
	require.NoError(t, err)
	assert.True(t, st.Running)

	st, err = f.svc.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, st.Running)
}

func TestResearchService_UpdateConfig(t *testing.T) {
	ptr := func(v int) *int { return &v }
	fptr := func(v float64) *float64 { return &v }
	sptr := func(v string) *string { return &v }

	t.Run("applies scheduler and drive settings", func(t *testing.T) {
		f := newServiceFixture(t)
		st, err := f.svc.UpdateConfig(context.Background(), &dto.UpdateResearchConfigRequest{
			Interval:               sptr("5m"),
			PerRootExpansionBudget: ptr(4),
			GlobalThreshold:        fptr(0.9),
			TopicThreshold:         fptr(0.2),
		})
		require.NoError(t, err)
		assert.Equal(t, "5m0s", st.Interval)
		assert.Equal(t, 4, f.sched.Config().PerRootExpansionBudget)
		assert.Equal(t, 0.9, f.sched.Drives().Config().GlobalThreshold)
		assert.Equal(t, 0.2, f.sched.Drives().Config().TopicThreshold)
	})

	t.Run("applies every drive rate and weight", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.UpdateConfig(context.Background(), &dto.UpdateResearchConfigRequest{
			CuriosityDecay:    fptr(0.01),
			TirednessDecay:    fptr(0.02),
			SatisfactionDecay: fptr(0.03),
			StalenessScale:    fptr(0.001),
			EngagementWeight:  fptr(0.7),
			QualityWeight:     fptr(0.1),
			BoredomRate:       fptr(0.004),
		})
		require.NoError(t, err)

		got := f.sched.Drives().Config()
		assert.Equal(t, 0.01, got.CuriosityDecay)
		assert.Equal(t, 0.02, got.TirednessDecay)
		assert.Equal(t, 0.03, got.SatisfactionDecay)
		assert.Equal(t, 0.001, got.StalenessScale)
		assert.Equal(t, 0.7, got.EngagementWeight)
		assert.Equal(t, 0.1, got.QualityWeight)
		assert.Equal(t, 0.004, got.BoredomRate)
	})

	t.Run("unset drive fields keep their values", func(t *testing.T) {
		f := newServiceFixture(t)
		before := f.sched.Drives().Config()
		_, err := f.svc.UpdateConfig(context.Background(), &dto.UpdateResearchConfigRequest{TirednessDecay: fptr(0.05)})
		require.NoError(t, err)

		after := f.sched.Drives().Config()
		assert.Equal(t, before.CuriosityDecay, after.CuriosityDecay)
		assert.Equal(t, before.QualityWeight, after.QualityWeight)
		assert.Equal(t, 0.05, after.TirednessDecay)
	})

	t.Run("negative global threshold is accepted", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.UpdateConfig(context.Background(), &dto.UpdateResearchConfigRequest{GlobalThreshold: fptr(-0.5)})
		require.NoError(t, err)
		assert.Equal(t, -0.5, f.sched.Drives().Config().GlobalThreshold)
	})

	t.Run("negative decay is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.UpdateConfig(context.Background(), &dto.UpdateResearchConfigRequest{CuriosityDecay: fptr(-0.1)})
		assert.Equal(t, fiber.StatusBadRequest, fiberCode(t, err))
		assert.Equal(t, 0.0002, f.sched.Drives().Config().CuriosityDecay)
	})

	t.Run("rejects a malformed interval", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.UpdateConfig(context.Background(), &dto.UpdateResearchConfigRequest{Interval: sptr("soon")})
		assert.Equal(t, fiber.StatusBadRequest, fiberCode(t, err))
		assert.Equal(t, time.Hour, f.sched.Config().Interval)
	})

	t.Run("invalid drive settings leave the scheduler untouched", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.UpdateConfig(context.Background(), &dto.UpdateResearchConfigRequest{
			ResearchWorkers: ptr(8),
			BoredomRate:     fptr(-1),
		})
		assert.Equal(t, fiber.StatusBadRequest, fiberCode(t, err))
		assert.Equal(t, 3, f.sched.Config().ResearchWorkers)
	})

	t.Run("disabling stops a running loop", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Start(context.Background())
		require.NoError(t, err)

		disabled := false
		st, err := f.svc.UpdateConfig(context.Background(), &dto.UpdateResearchConfigRequest{Enabled: &disabled})
		require.NoError(t, err)
		assert.False(t, st.Running)
		assert.False(t, st.Enabled)

		_, err = f.svc.Start(context.Background())
		assert.Equal(t, fiber.StatusConflict, fiberCode(t, err))
	})
}

func TestResearchService_OverrideDrive(t *testing.T) {
	f := newServiceFixture(t)
	b, c := 0.9, 0.7
	res := f.svc.OverrideDrive(context.Background(), &dto.DriveOverrideRequest{Boredom: &b, Curiosity: &c})

	assert.Equal(t, 0.9, res.Boredom)
	assert.Equal(t, 0.7, res.Curiosity)
	assert.InDelta(t, 1.6, res.Impetus, 1e-9)
	assert.True(t, res.ShouldResearch)
	assert.Equal(t, res.Boredom, f.svc.GetDrive(context.Background()).Boredom)
}

func TestResearchService_CreateTopic(t *testing.T) {
	t.Run("root topic can expand", func(t *testing.T) {
		f := newServiceFixture(t)
		res, err := f.svc.CreateTopic(context.Background(), f.owner, &dto.CreateTopicRequest{Name: "Quantum Computing"})
		require.NoError(t, err)
		assert.True(t, res.IsActiveResearch)
		assert.True(t, res.ChildExpansionEnabled)
		assert.False(t, res.IsExpansion)
		assert.Equal(t, "active", res.ExpansionStatus)
	})

	t.Run("quota creates an inactive topic", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.MaxActive = 1
		_, err := f.svc.CreateTopic(context.Background(), f.owner, &dto.CreateTopicRequest{Name: "First"})
		require.NoError(t, err)

		res, err := f.svc.CreateTopic(context.Background(), f.owner, &dto.CreateTopicRequest{Name: "Second"})
		require.NoError(t, err)
		assert.False(t, res.IsActiveResearch)
	})

	t.Run("normalized duplicate conflicts", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.CreateTopic(context.Background(), f.owner, &dto.CreateTopicRequest{Name: "Quantum Computing"})
		require.NoError(t, err)
		_, err = f.svc.CreateTopic(context.Background(), f.owner, &dto.CreateTopicRequest{Name: "quantum-computing"})
		assert.Equal(t, fiber.StatusConflict, fiberCode(t, err))
	})

	t.Run("listed back", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.CreateTopic(context.Background(), f.owner, &dto.CreateTopicRequest{Name: "Fusion"})
		require.NoError(t, err)
		topics, err := f.svc.ListTopics(context.Background(), f.owner)
		require.NoError(t, err)
		require.Len(t, topics, 1)
		assert.Equal(t, "Fusion", topics[0].Name)
	})
}

func TestResearchService_Trigger(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		f := newServiceFixture(t)
		res, err := f.svc.Trigger(context.Background(), f.owner, false)
		require.NoError(t, err)
		assert.True(t, res.Queued)

		require.Len(t, f.publisher.payloads, 1)
		var msg dto.ResearchTriggerMessage
		require.NoError(t, json.Unmarshal(f.publisher.payloads[0], &msg))
		assert.Equal(t, f.owner, msg.OwnerId)
	})

	t.Run("queue failure surfaces", func(t *testing.T) {
		f := newServiceFixture(t)
		f.publisher.err = errors.New("closed")
		_, err := f.svc.Trigger(context.Background(), f.owner, false)
		assert.EqualError(t, err, "closed")
	})

	t.Run("inline run returns the report", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.Put(&entity.Topic{
			OwnerId:          f.owner,
			Name:             "Fusion",
			IsActiveResearch: true,
			ExpansionStatus:  entity.ExpansionStatusActive,
			CreatedAt:        time.Now().Add(-time.Hour),
		})

		res, err := f.svc.Trigger(context.Background(), f.owner, true)
		require.NoError(t, err)
		assert.False(t, res.Queued)
		report, ok := res.Report.(scheduler.CycleReport)
		require.True(t, ok)
		assert.True(t, report.Manual)
		assert.Equal(t, 1, report.TopicsResearched())
		assert.Empty(t, f.publisher.payloads)
	})
}
