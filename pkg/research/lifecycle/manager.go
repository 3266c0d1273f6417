// Package lifecycle governs auto-discovered topics: it widens expansion for
// engaged topics, pauses cold ones behind a backoff window and eventually
// retires topics that stay paused.
package lifecycle

import (
	"context"
	"math"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/motivation"

	"github.com/google/uuid"
)

const logModule = "Lifecycle"

type Config struct {
	Lookback           time.Duration
	EngagementEpsilon  float64
	PromotionThreshold float64
	Backoff            time.Duration
	BackoffMax         time.Duration
	Exponential        bool
	RetirementTTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		Lookback:           14 * 24 * time.Hour,
		EngagementEpsilon:  1e-3,
		PromotionThreshold: 0.3,
		Backoff:            24 * time.Hour,
		BackoffMax:         14 * 24 * time.Hour,
		Exponential:        true,
		RetirementTTL:      30 * 24 * time.Hour,
	}
}

type TransitionKind string

const (
	ChildrenEnabled TransitionKind = "children_enabled"
	Paused          TransitionKind = "paused"
	Reactivated     TransitionKind = "reactivated"
	Retired         TransitionKind = "retired"
)

type Transition struct {
	TopicID uuid.UUID              `json:"topic_id"`
	OwnerID uuid.UUID              `json:"owner_id"`
	Name    string                 `json:"name"`
	Kind    TransitionKind         `json:"kind"`
	From    entity.ExpansionStatus `json:"from"`
	To      entity.ExpansionStatus `json:"to"`
}

type Report struct {
	Evaluated   int
	Transitions []Transition
}

func (r Report) Count(kind TransitionKind) int {
	n := 0
	for _, t := range r.Transitions {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

type Manager struct {
	cfg        Config
	engagement research.EngagementReader
	weights    motivation.EngagementWeights
	logger     logger.ILogger
	now        func() time.Time
}

func NewManager(cfg Config, engagement research.EngagementReader, weights motivation.EngagementWeights, log logger.ILogger) *Manager {
	return NewManagerWithClock(cfg, engagement, weights, log, time.Now)
}

func NewManagerWithClock(cfg Config, engagement research.EngagementReader, weights motivation.EngagementWeights, log logger.ILogger, now func() time.Time) *Manager {
	return &Manager{
		cfg:        cfg,
		engagement: engagement,
		weights:    weights,
		logger:     log,
		now:        now,
	}
}

func (m *Manager) Config() Config {
	return m.cfg
}

// Evaluate applies one round of transitions to topics in place. Callers
// persist the mutated topics.
func (m *Manager) Evaluate(ctx context.Context, topics []*entity.Topic) Report {
	now := m.now()
	report := Report{}

	for _, t := range topics {
		if t == nil {
			continue
		}
		report.Evaluated++
		previousEval := t.LastEvaluatedAt
		report.Transitions = append(report.Transitions, m.evaluateOne(ctx, t, previousEval, now)...)
		t.LastEvaluatedAt = now
	}

	if len(report.Transitions) > 0 {
		m.logger.Info(logModule, "Lifecycle transitions applied", map[string]interface{}{
			"evaluated":        report.Evaluated,
			"paused":           report.Count(Paused),
			"retired":          report.Count(Retired),
			"reactivated":      report.Count(Reactivated),
			"children_enabled": report.Count(ChildrenEnabled),
		})
	}
	return report
}

func (m *Manager) evaluateOne(ctx context.Context, t *entity.Topic, previousEval, now time.Time) []Transition {
	if t.IsRoot() || t.ExpansionStatus == entity.ExpansionStatusRetired {
		return nil
	}

	stats, known := m.stats(ctx, t)
	score := motivation.EngagementScore(stats, m.weights)

	var out []Transition
	switch t.ExpansionStatus {
	case entity.ExpansionStatusActive:
		if known && m.isCold(t, stats, now) && score <= m.cfg.EngagementEpsilon {
			out = append(out, m.pause(t, now))
			return out
		}
	case entity.ExpansionStatusPaused:
		if !t.InBackoff(now) && score >= m.cfg.PromotionThreshold {
			out = append(out, m.reactivate(t))
		} else {
			if m.expired(t, previousEval, now) {
				out = append(out, m.retire(t))
			}
			return out
		}
	}

	if !t.ChildExpansionEnabled && score >= m.cfg.PromotionThreshold {
		t.ChildExpansionEnabled = true
		out = append(out, transition(t, ChildrenEnabled, t.ExpansionStatus))
	}
	return out
}

func (m *Manager) stats(ctx context.Context, t *entity.Topic) (research.EngagementStats, bool) {
	if m.engagement == nil {
		return research.EngagementStats{}, true
	}
	stats, err := m.engagement.GetEngagementStats(ctx, t.Id)
	if err != nil {
		m.logger.Warn(logModule, "Engagement unavailable, skipping pause check", map[string]interface{}{
			"topic_id": t.Id.String(),
			"error":    err.Error(),
		})
		return research.EngagementStats{}, false
	}
	return stats, true
}

// isCold reports whether no read, bookmark or integration happened for the
// whole lookback window. Clicks and activations do not count. Young topics get
// the full window from their creation.
func (m *Manager) isCold(t *entity.Topic, stats research.EngagementStats, now time.Time) bool {
	reference := t.CreatedAt
	if stats.LastReadAt != nil && stats.LastReadAt.After(reference) {
		reference = *stats.LastReadAt
	}
	return now.Sub(reference) > m.cfg.Lookback
}

func (m *Manager) expired(t *entity.Topic, previousEval, now time.Time) bool {
	if t.PausedAt != nil && now.Sub(*t.PausedAt) >= m.cfg.RetirementTTL {
		return true
	}
	return !previousEval.IsZero() && now.Sub(previousEval) >= m.cfg.RetirementTTL
}

// BackoffFor returns the backoff applied on the given pause number (0-based).
func (m *Manager) BackoffFor(pauseCount int) time.Duration {
	d := m.cfg.Backoff
	if m.cfg.Exponential && pauseCount > 0 {
		factor := math.Pow(2, float64(pauseCount))
		scaled := float64(d) * factor
		if scaled > float64(math.MaxInt64) {
			d = time.Duration(math.MaxInt64)
		} else {
			d = time.Duration(scaled)
		}
	}
	if m.cfg.BackoffMax > 0 && d > m.cfg.BackoffMax {
		d = m.cfg.BackoffMax
	}
	return d
}

func (m *Manager) pause(t *entity.Topic, now time.Time) Transition {
	until := now.Add(m.BackoffFor(t.PauseCount))
	pausedAt := now

	t.ExpansionStatus = entity.ExpansionStatusPaused
	t.IsActiveResearch = false
	t.LastBackoffUntil = &until
	t.PausedAt = &pausedAt
	t.PauseCount++

	m.logger.Info(logModule, "Topic paused", map[string]interface{}{
		"topic_id":      t.Id.String(),
		"name":          t.Name,
		"backoff_until": until,
		"pause_count":   t.PauseCount,
	})
	return Transition{
		TopicID: t.Id,
		OwnerID: t.OwnerId,
		Name:    t.Name,
		Kind:    Paused,
		From:    entity.ExpansionStatusActive,
		To:      entity.ExpansionStatusPaused,
	}
}

func (m *Manager) reactivate(t *entity.Topic) Transition {
	t.ExpansionStatus = entity.ExpansionStatusActive
	t.IsActiveResearch = true
	t.PausedAt = nil

	m.logger.Info(logModule, "Topic reactivated", map[string]interface{}{
		"topic_id": t.Id.String(),
		"name":     t.Name,
	})
	return Transition{
		TopicID: t.Id,
		OwnerID: t.OwnerId,
		Name:    t.Name,
		Kind:    Reactivated,
		From:    entity.ExpansionStatusPaused,
		To:      entity.ExpansionStatusActive,
	}
}

func (m *Manager) retire(t *entity.Topic) Transition {
	t.ExpansionStatus = entity.ExpansionStatusRetired
	t.IsActiveResearch = false

	m.logger.Info(logModule, "Topic retired", map[string]interface{}{
		"topic_id": t.Id.String(),
		"name":     t.Name,
	})
	return Transition{
		TopicID: t.Id,
		OwnerID: t.OwnerId,
		Name:    t.Name,
		Kind:    Retired,
		From:    entity.ExpansionStatusPaused,
		To:      entity.ExpansionStatusRetired,
	}
}

func transition(t *entity.Topic, kind TransitionKind, status entity.ExpansionStatus) Transition {
	return Transition{
		TopicID: t.Id,
		OwnerID: t.OwnerId,
		Name:    t.Name,
		Kind:    kind,
		From:    status,
		To:      status,
	}
}
