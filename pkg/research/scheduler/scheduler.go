// Package scheduler owns the periodic research loop. Each cycle ticks the
// drives, researches admitted topics per owner, expands eligible roots into
// new topics and finishes with a lifecycle pass over the owner's topics.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/events"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/lifecycle"
	"ai-research-be/pkg/research/motivation"
	"ai-research-be/pkg/research/pipeline"

	"github.com/google/uuid"
)

const logModule = "Scheduler"

const cycleLeaseKey = "research:cycle"

type Researcher interface {
	Run(ctx context.Context, topic *entity.Topic) (pipeline.Run, error)
}

type Expander interface {
	GenerateCandidates(ctx context.Context, ownerID uuid.UUID, root *entity.Topic) []research.ExpansionCandidate
}

type LifecycleEvaluator interface {
	Evaluate(ctx context.Context, topics []*entity.Topic) lifecycle.Report
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Locker guards a cycle across processes. ok is false when another holder
// owns the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

type Deps struct {
	Drives     *motivation.System
	Store      research.Persistence
	Researcher Researcher
	Expander   Expander
	Lifecycle  LifecycleEvaluator
	Publisher  EventPublisher
	Locker     Locker
	Logger     logger.ILogger
	Now        func() time.Time
}

type Status struct {
	Enabled    bool                  `json:"enabled"`
	Running    bool                  `json:"running"`
	Interval   string                `json:"interval"`
	EngineType string                `json:"engine_type"`
	Drives     motivation.DriveState `json:"drives"`
	Impetus    float64               `json:"impetus"`
	LastCycle  *CycleReport          `json:"last_cycle,omitempty"`
}

type Scheduler struct {
	cfg atomic.Pointer[Config]

	drives     *motivation.System
	store      research.Persistence
	researcher Researcher
	expander   Expander
	lifecycle  LifecycleEvaluator
	publisher  EventPublisher
	locker     Locker
	logger     logger.ILogger
	now        func() time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc

	cycleMu   sync.Mutex
	ownersMu  sync.Mutex
	busy      map[uuid.UUID]bool
	lastMu    sync.RWMutex
	lastCycle *CycleReport
}

func New(cfg Config, deps Deps) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Scheduler{
		drives:     deps.Drives,
		store:      deps.Store,
		researcher: deps.Researcher,
		expander:   deps.Expander,
		lifecycle:  deps.Lifecycle,
		publisher:  deps.Publisher,
		locker:     deps.Locker,
		logger:     deps.Logger,
		now:        deps.Now,
		busy:       make(map[uuid.UUID]bool),
	}
	s.cfg.Store(&cfg)
	return s, nil
}

func (s *Scheduler) Config() Config {
	return *s.cfg.Load()
}

// SetConfig swaps the configuration. Budgets and pool widths apply from the
// next cycle, the interval from the next wait.
func (s *Scheduler) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg.Store(&cfg)
	s.logger.Info(logModule, "Configuration updated", map[string]interface{}{
		"interval":         cfg.Interval.String(),
		"research_workers": cfg.ResearchWorkers,
		"expansion_budget": cfg.PerRootExpansionBudget,
		"max_depth":        cfg.MaxExpansionDepth,
	})
	return nil
}

func (s *Scheduler) Drives() *motivation.System {
	return s.drives
}

func (s *Scheduler) Status() Status {
	cfg := s.Config()
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	st := Status{
		Enabled:    cfg.Enabled,
		Running:    running,
		Interval:   cfg.Interval.String(),
		EngineType: cfg.EngineType,
		Drives:     s.drives.State(),
		Impetus:    s.drives.Impetus(),
	}
	s.lastMu.RLock()
	if s.lastCycle != nil {
		last := *s.lastCycle
		st.LastCycle = &last
	}
	s.lastMu.RUnlock()
	return st
}

// Start launches the loop. It fails when disabled or already running.
func (s *Scheduler) Start() error {
	if !s.Config().Enabled {
		return research.ErrSchedulerDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return research.ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.cancel = cancel
	s.running = true

	go s.loop(ctx, s.stop, s.done)

	s.logger.Info(logModule, "Scheduler started", map[string]interface{}{
		"interval": s.Config().Interval.String(),
	})
	return nil
}

// Stop stops admitting topics and waits for in-flight runs. When ctx expires
// first, in-flight runs are cancelled and Stop still waits for them to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return research.ErrSchedulerStopped
	}
	stop, done, cancel := s.stop, s.done, s.cancel
	s.running = false
	s.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn(logModule, "Shutdown timeout reached, cancelling in-flight research", nil)
		cancel()
		<-done
	}
	cancel()

	s.logger.Info(logModule, "Scheduler stopped", nil)
	return nil
}

func (s *Scheduler) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil && err != research.ErrSchedulerStopped {
		return err
	}
	return s.Start()
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		timer := time.NewTimer(s.Config().Interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		s.runCycle(ctx, stop)
	}
}

// RunCycle runs one full cycle now, subject to the drive gate.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	return s.runCycle(ctx, nil)
}

// TriggerOwner researches one owner immediately. The drive gate and topic
// threshold are bypassed; the pipeline, expansion and lifecycle all run.
func (s *Scheduler) TriggerOwner(ctx context.Context, ownerID uuid.UUID) (CycleReport, error) {
	cfg := s.Config()
	report := s.newReport(true)

	s.drives.Tick()
	report.Impetus = s.drives.Impetus()

	pools := newPools(cfg)
	owner, err := s.runOwner(ctx, cfg, pools, ownerID, true, nil)
	report.Owners = append(report.Owners, owner)
	report.FinishedAt = s.now()
	if err != nil {
		return report, err
	}

	s.logger.Info(logModule, "Manual research trigger finished", map[string]interface{}{
		"owner_id":   ownerID.String(),
		"researched": report.TopicsResearched(),
		"stored":     report.FindingsStored(),
		"expansions": report.ExpansionsCreated(),
	})
	return report, nil
}

func (s *Scheduler) newReport(manual bool) CycleReport {
	return CycleReport{
		ID:        uuid.New(),
		Manual:    manual,
		StartedAt: s.now(),
	}
}

func (s *Scheduler) runCycle(ctx context.Context, stop <-chan struct{}) CycleReport {
	report := s.newReport(false)
	if !s.cycleMu.TryLock() {
		s.logger.Warn(logModule, "Previous cycle still running, skipping", nil)
		report.FinishedAt = s.now()
		return report
	}
	defer s.cycleMu.Unlock()

	cfg := s.Config()
	s.drives.Tick()
	report.Impetus = s.drives.Impetus()
	impetusGauge.Set(report.Impetus)

	if !s.drives.ShouldResearch() {
		report.Gated = true
		report.FinishedAt = s.now()
		cyclesTotal.WithLabelValues("gated").Inc()
		s.logger.Debug(logModule, "Drive gate closed, skipping cycle", map[string]interface{}{
			"impetus": report.Impetus,
		})
		return report
	}

	release, ok := s.acquireLease(ctx, cfg)
	if !ok {
		report.LeaseHeld = true
		report.FinishedAt = s.now()
		cyclesTotal.WithLabelValues("lease_held").Inc()
		return report
	}
	defer release()

	owners, err := s.store.ListOwners(ctx)
	if err != nil {
		s.logger.Error(logModule, "Failed to list owners", map[string]interface{}{"error": err.Error()})
		report.FinishedAt = s.now()
		cyclesTotal.WithLabelValues("failed").Inc()
		return report
	}

	pools := newPools(cfg)
	for _, ownerID := range owners {
		if stopped(stop) || ctx.Err() != nil {
			break
		}
		owner, err := s.runOwner(ctx, cfg, pools, ownerID, false, stop)
		if err != nil {
			s.logger.Warn(logModule, "Owner skipped", map[string]interface{}{
				"owner_id": ownerID.String(),
				"error":    err.Error(),
			})
		}
		report.Owners = append(report.Owners, owner)
	}

	report.FinishedAt = s.now()
	cyclesTotal.WithLabelValues("completed").Inc()
	cycleDuration.Observe(report.Duration().Seconds())
	s.publish(events.NewResearchCycleCompleted(report.ID, len(report.Owners), report.TopicsResearched(),
		report.FindingsStored(), report.ExpansionsCreated(), report.Duration()))

	s.lastMu.Lock()
	s.lastCycle = &report
	s.lastMu.Unlock()

	s.logger.Info(logModule, "Research cycle finished", map[string]interface{}{
		"cycle_id":   report.ID.String(),
		"owners":     len(report.Owners),
		"skipped":    report.OwnersSkipped(),
		"researched": report.TopicsResearched(),
		"stored":     report.FindingsStored(),
		"expansions": report.ExpansionsCreated(),
		"duration":   report.Duration().String(),
	})
	return report
}

// acquireLease fails open when the locker itself errors; a broken lock
// backend must not stop research on a single instance.
func (s *Scheduler) acquireLease(ctx context.Context, cfg Config) (func(), bool) {
	if s.locker == nil {
		return func() {}, true
	}
	unlock, ok, err := s.locker.TryLock(ctx, cycleLeaseKey, cfg.LeaseTTL)
	if err != nil {
		s.logger.Warn(logModule, "Cycle lease unavailable, running without it", map[string]interface{}{
			"error": err.Error(),
		})
		return func() {}, true
	}
	if !ok {
		s.logger.Info(logModule, "Cycle lease held by another instance", nil)
		return nil, false
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlock(rctx); err != nil {
			s.logger.Warn(logModule, "Failed to release cycle lease", map[string]interface{}{"error": err.Error()})
		}
	}, true
}

func (s *Scheduler) publish(ev events.Event) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(logModule, "Failed to publish event", map[string]interface{}{
			"event": ev.EventType(),
			"error": err.Error(),
		})
	}
}

func stopped(stop <-chan struct{}) bool {
	if stop == nil {
		return false
	}
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
