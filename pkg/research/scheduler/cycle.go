package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"ai-research-be/internal/entity"
	"ai-research-be/pkg/events"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/lifecycle"
	"ai-research-be/pkg/research/motivation"
	"ai-research-be/pkg/research/pipeline"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// pools are scoped to one cycle. Roots and new expansions share the research
// pool; candidate generation has its own.
type pools struct {
	research  *semaphore.Weighted
	expansion *semaphore.Weighted
}

func newPools(cfg Config) pools {
	return pools{
		research:  semaphore.NewWeighted(int64(cfg.ResearchWorkers)),
		expansion: semaphore.NewWeighted(int64(cfg.ExpansionWorkers)),
	}
}

type topicRun struct {
	topic *entity.Topic
	run   pipeline.Run
	err   error
}

func (r topicRun) report() TopicReport {
	tr := TopicReport{
		TopicID:   r.topic.Id,
		Name:      r.topic.Name,
		Expansion: r.topic.IsExpansion,
		Outcome:   r.run.Outcome,
		Quality:   r.run.Quality(),
	}
	if r.err != nil {
		tr.Outcome = pipeline.OutcomeFailed
		tr.Error = r.err.Error()
	}
	return tr
}

func (s *Scheduler) claimOwner(id uuid.UUID) bool {
	s.ownersMu.Lock()
	defer s.ownersMu.Unlock()
	if s.busy[id] {
		return false
	}
	s.busy[id] = true
	return true
}

func (s *Scheduler) releaseOwner(id uuid.UUID) {
	s.ownersMu.Lock()
	defer s.ownersMu.Unlock()
	delete(s.busy, id)
}

// runOwner runs the research, expansion and lifecycle steps for one owner.
// An error means the owner was skipped or cut short; it never stops the cycle.
func (s *Scheduler) runOwner(ctx context.Context, cfg Config, p pools, ownerID uuid.UUID, manual bool, stop <-chan struct{}) (OwnerReport, error) {
	report := OwnerReport{OwnerID: ownerID}
	if !s.claimOwner(ownerID) {
		report.Skipped = true
		report.SkipReason = "busy"
		return report, research.ErrOwnerBusy
	}
	defer s.releaseOwner(ownerID)

	topics, err := s.store.GetActiveTopics(ctx, ownerID)
	if err != nil {
		report.Skipped = true
		report.SkipReason = "persistence"
		return report, fmt.Errorf("load active topics: %w", err)
	}

	var scores []motivation.TopicScore
	if manual {
		scores = s.drives.RankTopics(ctx, ownerID, topics)
	} else {
		scores = s.drives.EvaluateTopics(ctx, ownerID, topics)
	}
	if len(scores) == 0 {
		report.Skipped = true
		report.SkipReason = "no topic admitted"
		return report, nil
	}
	report.Admitted = len(scores)

	admitted := make([]*entity.Topic, len(scores))
	for i, sc := range scores {
		admitted[i] = sc.Topic
	}

	runs := s.researchAll(ctx, cfg, p, admitted, stop)
	for _, r := range runs {
		report.Researched = append(report.Researched, r.report())
	}

	created := s.expand(ctx, cfg, p, ownerID, runs, stop)
	var fresh []*entity.Topic
	for _, t := range created {
		report.Expansions = append(report.Expansions, ExpansionReport{
			ParentID: derefUUID(t.ParentId),
			TopicID:  t.Id,
			Name:     t.Name,
			Depth:    t.ExpansionDepth,
			Active:   t.IsActiveResearch,
		})
		if t.IsActiveResearch {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) > 0 {
		for _, r := range s.researchAll(ctx, cfg, p, fresh, stop) {
			report.Researched = append(report.Researched, r.report())
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	all, err := s.store.GetAllTopics(ctx, ownerID)
	if err != nil {
		return report, fmt.Errorf("load topics for lifecycle: %w", err)
	}
	lc := s.lifecycle.Evaluate(ctx, all)
	if err := s.store.SaveTopics(ctx, ownerID, all); err != nil {
		return report, fmt.Errorf("save topics: %w", err)
	}
	report.Lifecycle = lc.Transitions
	for _, tr := range lc.Transitions {
		transitionsTotal.WithLabelValues(string(tr.Kind)).Inc()
		s.publish(events.NewTopicTransition(transitionEvent(tr.Kind), tr.OwnerID, tr.TopicID, tr.Name, string(tr.From), string(tr.To)))
	}
	return report, nil
}

func transitionEvent(kind lifecycle.TransitionKind) string {
	switch kind {
	case lifecycle.Paused:
		return events.TopicPaused
	case lifecycle.Reactivated:
		return events.TopicReactivated
	case lifecycle.Retired:
		return events.TopicRetired
	default:
		return events.TopicChildrenEnabled
	}
}

// researchAll runs topics through the research pool. Topics not yet started
// when stop closes are left out of the result.
func (s *Scheduler) researchAll(ctx context.Context, cfg Config, p pools, topics []*entity.Topic, stop <-chan struct{}) []topicRun {
	results := make([]topicRun, len(topics))
	launched := 0

	var wg sync.WaitGroup
	for i, t := range topics {
		if stopped(stop) {
			break
		}
		if err := p.research.Acquire(ctx, 1); err != nil {
			break
		}
		launched = i + 1
		wg.Add(1)
		go func(i int, t *entity.Topic) {
			defer wg.Done()
			defer p.research.Release(1)
			results[i] = s.researchOne(ctx, cfg, t)
		}(i, t)
	}
	wg.Wait()
	return results[:launched]
}

func (s *Scheduler) researchOne(ctx context.Context, cfg Config, t *entity.Topic) (res topicRun) {
	topic := t.Clone()
	res.topic = topic
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("panic: %v", r)
			res.run.Outcome = pipeline.OutcomeFailed
			s.logger.Error(logModule, "Topic research panicked", map[string]interface{}{
				"owner_id": topic.OwnerId.String(),
				"topic_id": topic.Id.String(),
				"error":    res.err.Error(),
			})
		}
		topicRunsTotal.WithLabelValues(string(res.report().Outcome), topicKind(topic.IsExpansion)).Inc()
	}()

	runCtx := ctx
	if cfg.TopicTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.TopicTimeout)
		defer cancel()
	}

	res.run, res.err = s.researcher.Run(runCtx, topic)
	if res.err != nil {
		return res
	}
	if res.run.Completed() {
		s.drives.OnResearchCompleted(res.run.Quality())
	}
	if res.run.Outcome == pipeline.OutcomeStored && res.run.Finding != nil {
		s.publish(events.NewFindingStored(topic.OwnerId, topic.Id, res.run.Finding.Id, topic.Name, res.run.Quality()))
	}
	return res
}

func (s *Scheduler) expandable(cfg Config, t *entity.Topic) bool {
	return t.ExpansionDepth < cfg.MaxExpansionDepth &&
		t.ChildExpansionEnabled &&
		t.IsActiveResearch &&
		t.ExpansionStatus == entity.ExpansionStatusActive &&
		!t.InBackoff(s.now())
}

func (s *Scheduler) expand(ctx context.Context, cfg Config, p pools, ownerID uuid.UUID, runs []topicRun, stop <-chan struct{}) []*entity.Topic {
	if cfg.PerRootExpansionBudget == 0 {
		return nil
	}

	var parents []*entity.Topic
	for _, r := range runs {
		if r.err == nil && r.run.Completed() && s.expandable(cfg, r.topic) {
			parents = append(parents, r.topic)
		}
	}
	if len(parents) == 0 {
		return nil
	}

	candidates := make([][]research.ExpansionCandidate, len(parents))
	var wg sync.WaitGroup
	for i, parent := range parents {
		if stopped(stop) {
			break
		}
		if err := p.expansion.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, parent *entity.Topic) {
			defer wg.Done()
			defer p.expansion.Release(1)
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error(logModule, "Candidate generation panicked", map[string]interface{}{
						"topic_id": parent.Id.String(),
						"error":    fmt.Sprint(r),
					})
				}
			}()
			candidates[i] = s.expander.GenerateCandidates(ctx, ownerID, parent)
		}(i, parent)
	}
	wg.Wait()

	// Creation is sequential so the active quota is checked against every
	// topic created before it.
	var created []*entity.Topic
	for i, parent := range parents {
		created = append(created, s.accept(ctx, cfg, ownerID, parent, candidates[i])...)
	}
	return created
}

func (s *Scheduler) accept(ctx context.Context, cfg Config, ownerID uuid.UUID, parent *entity.Topic, candidates []research.ExpansionCandidate) []*entity.Topic {
	var created []*entity.Topic
	for _, c := range candidates {
		if len(created) >= cfg.PerRootExpansionBudget || ctx.Err() != nil {
			break
		}

		active, err := s.store.CanActivateTopic(ctx, ownerID)
		if err != nil {
			s.logger.Warn(logModule, "Active quota check failed, creating inactive", map[string]interface{}{
				"owner_id": ownerID.String(),
				"error":    err.Error(),
			})
			active = false
		}

		parentID := parent.Id
		t, err := s.store.CreateTopic(ctx, ownerID, research.NewTopic{
			Name:        c.Name,
			Description: candidateDescription(parent, c),
			Confidence:  candidateConfidence(c),
			IsExpansion: true,
			Depth:       parent.ExpansionDepth + 1,
			ParentID:    &parentID,
			Active:      active,
		})
		if errors.Is(err, research.ErrDuplicateTopic) {
			continue
		}
		if err != nil {
			s.logger.Warn(logModule, "Failed to create expansion topic", map[string]interface{}{
				"owner_id":  ownerID.String(),
				"parent_id": parent.Id.String(),
				"name":      c.Name,
				"error":     err.Error(),
			})
			continue
		}

		created = append(created, t)
		expansionsTotal.WithLabelValues(strconv.FormatBool(t.IsActiveResearch)).Inc()
		s.publish(events.NewTopicExpanded(ownerID, parent.Id, t.Id, t.Name, t.ExpansionDepth, t.IsActiveResearch))
		s.logger.Info(logModule, "Expansion topic created", map[string]interface{}{
			"owner_id":  ownerID.String(),
			"parent_id": parent.Id.String(),
			"name":      t.Name,
			"source":    string(c.Source),
			"depth":     t.ExpansionDepth,
			"active":    t.IsActiveResearch,
		})
	}
	return created
}

func candidateDescription(parent *entity.Topic, c research.ExpansionCandidate) string {
	if c.Rationale != "" {
		return c.Rationale
	}
	return fmt.Sprintf("Discovered while researching %s", parent.Name)
}

func candidateConfidence(c research.ExpansionCandidate) float64 {
	switch {
	case c.Confidence != nil:
		return *c.Confidence
	case c.Similarity != nil:
		return *c.Similarity
	default:
		return 0
	}
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
