// Package motivation implements the drive model that decides whether the
// engine feels like researching at all, and which topics it wants most.
package motivation

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/research"

	"github.com/google/uuid"
)

const logModule = "Motivation"

// DriveState holds the four drives, each kept within [0,1].
type DriveState struct {
	Boredom      float64   `json:"boredom"`
	Curiosity    float64   `json:"curiosity"`
	Tiredness    float64   `json:"tiredness"`
	Satisfaction float64   `json:"satisfaction"`
	LastTick     time.Time `json:"last_tick"`
}

func (d DriveState) Impetus() float64 {
	return d.Boredom + d.Curiosity + 0.5*d.Satisfaction - d.Tiredness
}

func (d DriveState) clamped() DriveState {
	d.Boredom = clamp(d.Boredom)
	d.Curiosity = clamp(d.Curiosity)
	d.Tiredness = clamp(d.Tiredness)
	d.Satisfaction = clamp(d.Satisfaction)
	return d
}

// TopicScore is one admitted topic and the parts of its motivation.
type TopicScore struct {
	Topic       *entity.Topic
	Score       float64
	Staleness   float64
	Engagement  float64
	SuccessRate float64
}

type System struct {
	mu         sync.Mutex
	state      DriveState
	config     atomic.Pointer[Config]
	engagement research.EngagementReader
	logger     logger.ILogger
	now        func() time.Time
}

func NewSystem(cfg Config, engagement research.EngagementReader, log logger.ILogger) *System {
	return NewSystemWithClock(cfg, engagement, log, time.Now)
}

func NewSystemWithClock(cfg Config, engagement research.EngagementReader, log logger.ILogger, now func() time.Time) *System {
	s := &System{
		engagement: engagement,
		logger:     log,
		now:        now,
	}
	s.config.Store(&cfg)
	s.state.LastTick = now()
	return s
}

func (s *System) Config() Config {
	return *s.config.Load()
}

// SetConfig swaps the configuration atomically; drive values are untouched.
func (s *System) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.config.Store(&cfg)
	s.logger.Info(logModule, "Configuration updated", map[string]interface{}{
		"global_threshold": cfg.GlobalThreshold,
		"topic_threshold":  cfg.TopicThreshold,
	})
	return nil
}

func (s *System) State() DriveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState replaces the drives, clamping every value. LastTick is kept when
// the given one is zero.
func (s *System) SetState(d DriveState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.LastTick.IsZero() {
		d.LastTick = s.state.LastTick
	}
	s.state = d.clamped()
}

// Tick advances the drives by the wall time elapsed since the last tick.
func (s *System) Tick() {
	cfg := s.Config()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	dt := now.Sub(s.state.LastTick).Seconds()
	if dt < 0 {
		dt = 0
	}

	s.state.Boredom += dt * cfg.BoredomRate
	s.state.Curiosity -= dt * cfg.CuriosityDecay
	s.state.Tiredness -= dt * cfg.TirednessDecay
	s.state.Satisfaction -= dt * cfg.SatisfactionDecay
	s.state = s.state.clamped()
	s.state.LastTick = now
}

func (s *System) OnUserActivity() {
	cfg := s.Config()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Curiosity += cfg.ActivityCuriosityBoost
	s.state.Boredom -= cfg.ActivityBoredomRelief
	s.state = s.state.clamped()
}

// OnResearchCompleted rewards good research: high quality tires less and
// satisfies more than low quality.
func (s *System) OnResearchCompleted(quality float64) {
	q := clamp(quality)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Tiredness += 0.4 - 0.2*q
	s.state.Satisfaction += 0.8 * q
	s.state.Curiosity -= 0.1 + 0.3*q
	s.state.Boredom -= 0.4
	s.state = s.state.clamped()
}

func (s *System) Impetus() float64 {
	return s.State().Impetus()
}

func (s *System) ShouldResearch() bool {
	return s.Impetus() >= s.Config().GlobalThreshold
}

// EvaluateTopics returns the topics worth researching now, most motivated
// first. Nothing is admitted while the global gate is closed.
func (s *System) EvaluateTopics(ctx context.Context, ownerID uuid.UUID, topics []*entity.Topic) []TopicScore {
	if !s.ShouldResearch() {
		s.logger.Debug(logModule, "Global gate closed", map[string]interface{}{
			"owner_id": ownerID.String(),
			"impetus":  s.Impetus(),
		})
		return nil
	}
	return s.rank(ctx, ownerID, topics, true)
}

// RankTopics scores every eligible topic without applying either gate. Used
// for manual triggers.
func (s *System) RankTopics(ctx context.Context, ownerID uuid.UUID, topics []*entity.Topic) []TopicScore {
	return s.rank(ctx, ownerID, topics, false)
}

func (s *System) rank(ctx context.Context, ownerID uuid.UUID, topics []*entity.Topic, gate bool) []TopicScore {
	cfg := s.Config()
	now := s.now()

	scored := make([]TopicScore, 0, len(topics))
	for _, t := range topics {
		if !eligible(t, now) {
			continue
		}
		ts := s.score(ctx, ownerID, t, cfg, now)
		if gate && ts.Score < cfg.TopicThreshold {
			continue
		}
		scored = append(scored, ts)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Engagement > scored[j].Engagement
	})
	return scored
}

func eligible(t *entity.Topic, now time.Time) bool {
	return t != nil &&
		t.IsActiveResearch &&
		t.ExpansionStatus == entity.ExpansionStatusActive &&
		!t.InBackoff(now)
}

func (s *System) score(ctx context.Context, ownerID uuid.UUID, t *entity.Topic, cfg Config, now time.Time) TopicScore {
	elapsed := cfg.NeverResearchedElapsed.Seconds()
	if t.LastResearched != nil {
		elapsed = now.Sub(*t.LastResearched).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
	}
	coefficient := t.StalenessCoefficient
	if coefficient <= 0 {
		coefficient = 1
	}
	staleness := elapsed * coefficient * cfg.StalenessScale

	engagement, success := 0.0, neutralSuccessRate
	if s.engagement != nil {
		stats, err := s.engagement.GetEngagementStats(ctx, t.Id)
		if err != nil {
			s.logger.Warn(logModule, "Engagement unavailable, using neutral defaults", map[string]interface{}{
				"owner_id": ownerID.String(),
				"topic_id": t.Id.String(),
				"error":    err.Error(),
			})
		} else {
			engagement = EngagementScore(stats, cfg.Engagement)
			success = SuccessRate(stats)
		}
	}

	return TopicScore{
		Topic:       t,
		Score:       staleness + engagement*cfg.EngagementWeight + success*cfg.QualityWeight,
		Staleness:   staleness,
		Engagement:  engagement,
		SuccessRate: success,
	}
}
