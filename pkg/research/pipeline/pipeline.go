// Package pipeline runs one topic through query generation, source fan-out,
// review, summarization, quality and duplicate gates, and the storage decision.
package pipeline

import (
	"context"
	"sort"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const logModule = "Pipeline"

type Config struct {
	QualityThreshold     float64
	FallbackQualityScore float64
	DedupWindow          int
	SourceTimeout        time.Duration
	SourceResultLimit    int
	SourceWorkers        int
	CompletionTimeout    time.Duration
	// ReviewKeep caps how many raw results survive when review itself fails.
	ReviewKeep int
}

func DefaultConfig() Config {
	return Config{
		QualityThreshold:     0.6,
		FallbackQualityScore: 0.5,
		DedupWindow:          3,
		SourceTimeout:        30 * time.Second,
		SourceResultLimit:    8,
		SourceWorkers:        4,
		CompletionTimeout:    90 * time.Second,
		ReviewKeep:           5,
	}
}

type Pipeline struct {
	cfg     Config
	model   llm.LLMProvider
	sources []research.SearchSource
	store   research.Persistence
	logger  logger.ILogger
	tracer  trace.Tracer
	now     func() time.Time
}

func New(cfg Config, model llm.LLMProvider, sources []research.SearchSource, store research.Persistence, log logger.ILogger) *Pipeline {
	return NewWithClock(cfg, model, sources, store, log, time.Now)
}

func NewWithClock(cfg Config, model llm.LLMProvider, sources []research.SearchSource, store research.Persistence, log logger.ILogger, now func() time.Time) *Pipeline {
	if cfg.SourceWorkers <= 0 {
		cfg.SourceWorkers = 1
	}
	if cfg.ReviewKeep <= 0 {
		cfg.ReviewKeep = 5
	}
	return &Pipeline{
		cfg:     cfg,
		model:   model,
		sources: sources,
		store:   store,
		logger:  log,
		tracer:  otel.Tracer("ai-research-be/pipeline"),
		now:     now,
	}
}

func (p *Pipeline) Config() Config {
	return p.cfg
}

// SourceNames lists the configured sources and whether each is available.
func (p *Pipeline) SourceNames() map[string]bool {
	out := make(map[string]bool, len(p.sources))
	for _, s := range p.sources {
		out[s.Name()] = s.Available()
	}
	return out
}

type stageFunc func(ctx context.Context, t *entity.Topic, run Run) (Run, StageResult, error)

// Run researches one topic. A returned error means the run was abandoned
// before the storage decision; the topic's last_researched is untouched then.
func (p *Pipeline) Run(ctx context.Context, topic *entity.Topic) (Run, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("topic.id", topic.Id.String()),
		attribute.String("topic.name", topic.Name),
	))
	defer span.End()

	run := Run{
		TopicID:   topic.Id,
		OwnerID:   topic.OwnerId,
		TopicName: topic.Name,
		StartedAt: p.now(),
	}

	stages := []struct {
		stage Stage
		fn    stageFunc
	}{
		{StageQueryGeneration, p.generateQuery},
		{StageSourceSelection, p.selectSources},
		{StageSourceFanout, p.fanOut},
		{StageResultReview, p.review},
		{StageEvidenceSummarization, p.summarize},
		{StageQualityAssessment, p.assess},
		{StageDeduplication, p.deduplicate},
		{StageStorageDecision, p.decide},
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return p.abort(span, run, st.stage, err)
		}

		stageCtx, stageSpan := p.tracer.Start(ctx, "pipeline."+string(st.stage))
		started := time.Now()
		next, res, fatal := st.fn(stageCtx, topic, run)
		res.Stage = st.stage
		res.Duration = time.Since(started)
		if res.Err != nil {
			stageSpan.RecordError(res.Err)
		}
		stageSpan.SetAttributes(attribute.String("stage.status", string(res.Status)))
		stageSpan.End()

		run = next.with(res)
		if res.Status == StatusError && fatal == nil {
			p.logger.Warn(logModule, "Stage degraded", map[string]interface{}{
				"topic_id": topic.Id.String(),
				"stage":    string(st.stage),
				"error":    errString(res.Err),
			})
		}
		if fatal != nil {
			return p.abort(span, run, st.stage, fatal)
		}
	}

	run.FinishedAt = p.now()
	span.SetAttributes(
		attribute.String("run.outcome", string(run.Outcome)),
		attribute.Float64("run.quality", run.Quality()),
	)
	p.logger.Info(logModule, "Topic research finished", map[string]interface{}{
		"topic_id": topic.Id.String(),
		"owner_id": topic.OwnerId.String(),
		"outcome":  string(run.Outcome),
		"quality":  run.Quality(),
		"fallback": run.Assessment != nil && run.Assessment.Fallback,
	})
	return run, nil
}

func (p *Pipeline) abort(span trace.Span, run Run, stage Stage, err error) (Run, error) {
	run.Outcome = OutcomeFailed
	run.Err = err
	run.FinishedAt = p.now()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.logger.Error(logModule, "Topic research aborted", map[string]interface{}{
		"topic_id": run.TopicID.String(),
		"owner_id": run.OwnerID.String(),
		"stage":    string(stage),
		"error":    err.Error(),
	})
	return run, err
}

func sortedSources(outcomes []SourceOutcome) []SourceOutcome {
	out := append([]SourceOutcome(nil), outcomes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
