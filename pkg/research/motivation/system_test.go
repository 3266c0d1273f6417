package motivation

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/researchtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSystem(cfg Config, eng research.EngagementReader) (*System, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewSystemWithClock(cfg, eng, logger.NewNopLogger(), clock.Now), clock
}

func assertDrivesInRange(t *testing.T, d DriveState) {
	t.Helper()
	for name, v := range map[string]float64{
		"boredom":      d.Boredom,
		"curiosity":    d.Curiosity,
		"tiredness":    d.Tiredness,
		"satisfaction": d.Satisfaction,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestTick_KeepsDrivesInRange(t *testing.T) {
	starts := []DriveState{
		{},
		{Boredom: 1, Curiosity: 1, Tiredness: 1, Satisfaction: 1},
		{Boredom: 0.3, Curiosity: 0.7, Tiredness: 0.2, Satisfaction: 0.9},
	}
	elapsed := []time.Duration{0, time.Second, time.Hour, 30 * 24 * time.Hour}

	for _, start := range starts {
		for _, dt := range elapsed {
			s, clock := newTestSystem(DefaultConfig(), nil)
			s.SetState(start)
			clock.Advance(dt)
			s.Tick()
			assertDrivesInRange(t, s.State())
		}
	}
}

func TestTick_ZeroElapsedIsNoop(t *testing.T) {
	s, _ := newTestSystem(DefaultConfig(), nil)
	s.SetState(DriveState{Boredom: 0.4, Curiosity: 0.5, Tiredness: 0.2, Satisfaction: 0.1})
	before := s.State()

	s.Tick()

	assert.Equal(t, before, s.State())
}

func TestTick_GrowsBoredomAndDecaysTheRest(t *testing.T) {
	s, clock := newTestSystem(DefaultConfig(), nil)
	s.SetState(DriveState{Boredom: 0.1, Curiosity: 0.5, Tiredness: 0.5, Satisfaction: 0.5})

	clock.Advance(100 * time.Second)
	s.Tick()

	d := s.State()
	assert.InDelta(t, 0.15, d.Boredom, 1e-9)
	assert.InDelta(t, 0.48, d.Curiosity, 1e-9)
	assert.InDelta(t, 0.47, d.Tiredness, 1e-9)
	assert.InDelta(t, 0.48, d.Satisfaction, 1e-9)
	assert.Equal(t, clock.Now(), d.LastTick)
}

func TestTick_ClockGoingBackwardsIsIgnored(t *testing.T) {
	s, clock := newTestSystem(DefaultConfig(), nil)
	s.SetState(DriveState{Boredom: 0.2})

	clock.Advance(-time.Hour)
	s.Tick()

	assert.InDelta(t, 0.2, s.State().Boredom, 1e-12)
}

func TestOnUserActivity(t *testing.T) {
	s, _ := newTestSystem(DefaultConfig(), nil)
	s.SetState(DriveState{Boredom: 0.05, Curiosity: 0.9})

	s.OnUserActivity()

	d := s.State()
	assert.Equal(t, 1.0, d.Curiosity)
	assert.Equal(t, 0.0, d.Boredom)
}

func TestOnResearchCompleted_RewardsQuality(t *testing.T) {
	start := DriveState{Boredom: 0.5, Curiosity: 0.5, Tiredness: 0.3, Satisfaction: 0.1}

	high, _ := newTestSystem(DefaultConfig(), nil)
	high.SetState(start)
	high.OnResearchCompleted(1.0)

	low, _ := newTestSystem(DefaultConfig(), nil)
	low.SetState(start)
	low.OnResearchCompleted(0.0)

	h, l := high.State(), low.State()
	assert.Greater(t, h.Satisfaction, l.Satisfaction)
	assert.Less(t, h.Tiredness, l.Tiredness)
	assertDrivesInRange(t, h)
	assertDrivesInRange(t, l)

	assert.InDelta(t, 0.5, h.Tiredness, 1e-9)
	assert.InDelta(t, 0.9, h.Satisfaction, 1e-9)
	assert.InDelta(t, 0.1, h.Curiosity, 1e-9)
	assert.InDelta(t, 0.1, h.Boredom, 1e-9)
}

func TestOnResearchCompleted_ClampsQuality(t *testing.T) {
	s, _ := newTestSystem(DefaultConfig(), nil)
	s.OnResearchCompleted(7)
	assertDrivesInRange(t, s.State())
	assert.InDelta(t, 0.8, s.State().Satisfaction, 1e-9)
}

func TestShouldResearch_FollowsThreshold(t *testing.T) {
	cfg := DefaultConfig()
	s, _ := newTestSystem(cfg, nil)
	s.SetState(DriveState{Boredom: 0.5, Curiosity: 0.25, Satisfaction: 0.5, Tiredness: 0.25})
	require.Equal(t, 0.75, s.Impetus())

	tests := []struct {
		threshold float64
		want      bool
	}{
		{0.5, true},
		{0.75, true},
		{0.76, false},
		{1.5, false},
	}
	for _, tt := range tests {
		cfg.GlobalThreshold = tt.threshold
		require.NoError(t, s.SetConfig(cfg))
		assert.Equal(t, tt.want, s.ShouldResearch(), "threshold %v", tt.threshold)
	}
}

func openGate(s *System) {
	s.SetState(DriveState{Boredom: 1})
}

func topic(name string) *entity.Topic {
	return &entity.Topic{
		Id:                   uuid.New(),
		OwnerId:              uuid.New(),
		Name:                 name,
		IsActiveResearch:     true,
		ExpansionStatus:      entity.ExpansionStatusActive,
		StalenessCoefficient: 1,
	}
}

func TestEvaluateTopics_GateClosedAdmitsNothing(t *testing.T) {
	s, _ := newTestSystem(DefaultConfig(), nil)
	got := s.EvaluateTopics(context.Background(), uuid.New(), []*entity.Topic{topic("AI Safety")})
	assert.Empty(t, got)
}

func TestEvaluateTopics_NeverResearchedUsesFixedElapsed(t *testing.T) {
	s, _ := newTestSystem(DefaultConfig(), nil)
	openGate(s)

	got := s.EvaluateTopics(context.Background(), uuid.New(), []*entity.Topic{topic("AI Safety")})

	require.Len(t, got, 1)
	assert.InDelta(t, 0.5, got[0].Staleness, 1e-9)
	assert.InDelta(t, 0.5, got[0].SuccessRate, 1e-9)
	assert.InDelta(t, 0.65, got[0].Score, 1e-9)
}

func TestEvaluateTopics_FiltersAndOrders(t *testing.T) {
	s, clock := newTestSystem(DefaultConfig(), nil)
	openGate(s)
	now := clock.Now()

	recent := topic("recent")
	r := now.Add(-10 * time.Minute)
	recent.LastResearched = &r

	stale := topic("stale")
	st := now.Add(-4 * time.Hour)
	stale.LastResearched = &st

	fresh := topic("never")

	paused := topic("paused")
	paused.ExpansionStatus = entity.ExpansionStatusPaused

	backoff := topic("backoff")
	until := now.Add(time.Hour)
	backoff.LastBackoffUntil = &until

	inactive := topic("inactive")
	inactive.IsActiveResearch = false

	got := s.EvaluateTopics(context.Background(), uuid.New(),
		[]*entity.Topic{recent, fresh, paused, stale, backoff, inactive})

	require.Len(t, got, 2)
	assert.Equal(t, "stale", got[0].Topic.Name)
	assert.Equal(t, "never", got[1].Topic.Name)
}

func TestEvaluateTopics_StalenessCoefficientScalesPressure(t *testing.T) {
	s, clock := newTestSystem(DefaultConfig(), nil)
	openGate(s)

	last := clock.Now().Add(-2 * time.Hour)
	slow := topic("slow")
	slow.LastResearched = &last
	fast := topic("fast")
	fast.LastResearched = &last
	fast.StalenessCoefficient = 3

	got := s.EvaluateTopics(context.Background(), uuid.New(), []*entity.Topic{slow, fast})

	require.Len(t, got, 2)
	assert.Equal(t, "fast", got[0].Topic.Name)
	assert.InDelta(t, 3*got[1].Staleness, got[0].Staleness, 1e-9)
}

func TestEvaluateTopics_TiesBrokenByEngagement(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopicThreshold = 0
	cfg.EngagementWeight = 1
	cfg.QualityWeight = 0
	cfg.StalenessScale = 1.0 / 1024

	eng := researchtest.NewStaticEngagement()
	s, clock := newTestSystem(cfg, eng)
	openGate(s)
	now := clock.Now()

	engaged := topic("engaged")
	engaged.LastResearched = &now
	eng.Set(engaged.Id, research.EngagementStats{ManualReads: 5})

	stale := topic("stale")
	last := now.Add(-512 * time.Second)
	stale.LastResearched = &last

	for _, input := range [][]*entity.Topic{{engaged, stale}, {stale, engaged}} {
		got := s.EvaluateTopics(context.Background(), uuid.New(), input)
		require.Len(t, got, 2)
		assert.Equal(t, got[0].Score, got[1].Score)
		assert.Equal(t, "engaged", got[0].Topic.Name)
	}
}

func TestEvaluateTopics_Idempotent(t *testing.T) {
	eng := researchtest.NewStaticEngagement()
	s, clock := newTestSystem(DefaultConfig(), eng)
	openGate(s)

	var topics []*entity.Topic
	for i, age := range []time.Duration{0, time.Hour, 3 * time.Hour, 5 * time.Hour} {
		tp := topic(string(rune('a' + i)))
		if age > 0 {
			last := clock.Now().Add(-age)
			tp.LastResearched = &last
		}
		eng.Set(tp.Id, research.EngagementStats{ManualReads: int64(i), FindingsTotal: 4, FindingsEngaged: int64(i)})
		topics = append(topics, tp)
	}

	owner := uuid.New()
	first := s.EvaluateTopics(context.Background(), owner, topics)
	second := s.EvaluateTopics(context.Background(), owner, topics)
	assert.Equal(t, first, second)
}

func TestEvaluateTopics_EngagementErrorIsNeutral(t *testing.T) {
	eng := researchtest.NewStaticEngagement()
	s, _ := newTestSystem(DefaultConfig(), eng)
	openGate(s)

	broken := topic("broken")
	eng.Fail(broken.Id, errors.New("engagement store down"))
	ok := topic("ok")

	got := s.EvaluateTopics(context.Background(), uuid.New(), []*entity.Topic{broken, ok})

	require.Len(t, got, 2)
	for _, ts := range got {
		assert.Equal(t, 0.0, ts.Engagement)
		assert.Equal(t, 0.5, ts.SuccessRate)
	}
}

func TestRankTopics_IgnoresGates(t *testing.T) {
	s, clock := newTestSystem(DefaultConfig(), nil)
	now := clock.Now()
	tp := topic("just researched")
	tp.LastResearched = &now

	got := s.RankTopics(context.Background(), uuid.New(), []*entity.Topic{tp})

	require.Len(t, got, 1)
	assert.Less(t, got[0].Score, DefaultConfig().TopicThreshold)
}

func TestSetConfig_RejectsInvalid(t *testing.T) {
	s, _ := newTestSystem(DefaultConfig(), nil)
	cfg := DefaultConfig()
	cfg.BoredomRate = -1

	assert.Error(t, s.SetConfig(cfg))
	assert.Equal(t, DefaultConfig().BoredomRate, s.Config().BoredomRate)
}
