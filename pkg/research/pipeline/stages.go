package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research"

	"golang.org/x/sync/errgroup"
)

const maxQueryLen = 200

func (p *Pipeline) completionCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.CompletionTimeout > 0 {
		return context.WithTimeout(ctx, p.cfg.CompletionTimeout)
	}
	return context.WithCancel(ctx)
}

func (p *Pipeline) generateQuery(ctx context.Context, t *entity.Topic, run Run) (Run, StageResult, error) {
	cctx, cancel := p.completionCtx(ctx)
	defer cancel()

	var out struct {
		Query string `json:"query"`
	}
	err := llm.CompleteJSON(cctx, p.model, queryPrompt(t, p.now()), querySchema, &out)
	query := strings.TrimSpace(out.Query)
	if err == nil && query == "" {
		err = fmt.Errorf("%w: empty query", llm.ErrMalformedOutput)
	}
	if err != nil {
		run.Query = FallbackQuery(t.Name)
		run.QueryFallback = true
		return run, StageResult{Status: StatusError, Err: err, Detail: "fallback query"}, nil
	}

	if r := []rune(query); len(r) > maxQueryLen {
		query = string(r[:maxQueryLen])
	}
	run.Query = query
	return run, StageResult{Status: StatusSuccess, Detail: query}, nil
}

func (p *Pipeline) selectSources(ctx context.Context, t *entity.Topic, run Run) (Run, StageResult, error) {
	var selected []SourceOutcome
	var names []string
	for _, s := range p.sources {
		if s == nil || !s.Available() {
			continue
		}
		selected = append(selected, SourceOutcome{Source: s.Name()})
		names = append(names, s.Name())
	}
	if len(selected) == 0 {
		return run, StageResult{Status: StatusError, Err: research.ErrNoSources}, research.ErrNoSources
	}
	run.Sources = selected
	return run, StageResult{Status: StatusSuccess, Detail: strings.Join(names, ",")}, nil
}

func (p *Pipeline) source(name string) research.SearchSource {
	for _, s := range p.sources {
		if s != nil && s.Name() == name {
			return s
		}
	}
	return nil
}

func (p *Pipeline) fanOut(ctx context.Context, t *entity.Topic, run Run) (Run, StageResult, error) {
	outcomes := make([]SourceOutcome, len(run.Sources))
	copy(outcomes, run.Sources)

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.SourceWorkers)
	for i := range outcomes {
		i := i
		g.Go(func() error {
			src := p.source(outcomes[i].Source)
			if src == nil {
				outcomes[i].Err = fmt.Errorf("source %q not configured", outcomes[i].Source)
				return nil
			}

			sctx := ctx
			if p.cfg.SourceTimeout > 0 {
				var cancel context.CancelFunc
				sctx, cancel = context.WithTimeout(ctx, p.cfg.SourceTimeout)
				defer cancel()
			}
			results, err := src.Search(sctx, run.Query, p.cfg.SourceResultLimit)
			if err != nil {
				outcomes[i].Err = err
				return nil
			}
			if p.cfg.SourceResultLimit > 0 && len(results) > p.cfg.SourceResultLimit {
				results = results[:p.cfg.SourceResultLimit]
			}
			outcomes[i].Results = results
			return nil
		})
	}
	_ = g.Wait()

	run.Sources = outcomes
	if err := ctx.Err(); err != nil {
		return run, StageResult{Status: StatusError, Err: err}, err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			p.logger.Warn(logModule, "Source search failed", map[string]interface{}{
				"topic_id": t.Id.String(),
				"source":   o.Source,
				"error":    o.Err.Error(),
			})
		}
	}
	if failed == len(outcomes) {
		return run, StageResult{Status: StatusError, Err: research.ErrAllSourcesFailed}, research.ErrAllSourcesFailed
	}

	detail := fmt.Sprintf("%d/%d sources answered", len(outcomes)-failed, len(outcomes))
	if failed > 0 {
		return run, StageResult{Status: StatusError, Err: fmt.Errorf("%d source(s) failed", failed), Detail: detail}, nil
	}
	return run, StageResult{Status: StatusSuccess, Detail: detail}, nil
}

func (p *Pipeline) review(ctx context.Context, t *entity.Topic, run Run) (Run, StageResult, error) {
	outcomes := make([]SourceOutcome, len(run.Sources))
	copy(outcomes, run.Sources)
	reviewErrs := make([]error, len(outcomes))

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.SourceWorkers)
	for i := range outcomes {
		i := i
		if outcomes[i].Err != nil {
			continue
		}
		if len(outcomes[i].Results) == 0 {
			outcomes[i].Empty = true
			continue
		}
		g.Go(func() error {
			cctx, cancel := p.completionCtx(ctx)
			defer cancel()

			o := &outcomes[i]
			var out struct {
				Relevant []int `json:"relevant"`
			}
			if err := llm.CompleteJSON(cctx, p.model, reviewPrompt(run.Query, o.Source, o.Results), reviewSchema, &out); err != nil {
				reviewErrs[i] = err
				keep := o.Results
				if len(keep) > p.cfg.ReviewKeep {
					keep = keep[:p.cfg.ReviewKeep]
				}
				o.Reviewed = keep
				return nil
			}

			seen := make(map[int]bool, len(out.Relevant))
			var reviewed []research.SearchResult
			for _, n := range out.Relevant {
				if n < 1 || n > len(o.Results) || seen[n] {
					continue
				}
				seen[n] = true
				reviewed = append(reviewed, o.Results[n-1])
			}
			o.Reviewed = reviewed
			o.Empty = len(reviewed) == 0
			return nil
		})
	}
	_ = g.Wait()
	run.Sources = outcomes

	if err := ctx.Err(); err != nil {
		return run, StageResult{Status: StatusError, Err: err}, err
	}

	var failed []string
	kept := 0
	for i, o := range outcomes {
		if reviewErrs[i] != nil {
			failed = append(failed, o.Source)
		}
		kept += len(o.Reviewed)
	}
	detail := fmt.Sprintf("%d results kept", kept)
	if len(failed) > 0 {
		return run, StageResult{
			Status: StatusError,
			Err:    fmt.Errorf("review failed for %s: %w", strings.Join(failed, ","), firstErr(reviewErrs)),
			Detail: detail,
		}, nil
	}
	return run, StageResult{Status: StatusSuccess, Detail: detail}, nil
}

func (p *Pipeline) summarize(ctx context.Context, t *entity.Topic, run Run) (Run, StageResult, error) {
	outcomes := make([]SourceOutcome, len(run.Sources))
	copy(outcomes, run.Sources)
	errs := make([]error, len(outcomes))

	usable := 0
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.SourceWorkers)
	for i := range outcomes {
		i := i
		if !outcomes[i].usable() {
			continue
		}
		usable++
		g.Go(func() error {
			cctx, cancel := p.completionCtx(ctx)
			defer cancel()

			o := &outcomes[i]
			text, err := p.model.Generate(cctx, summaryPrompt(run.Query, o.Source, o.Reviewed), llm.WithTemperature(0.3))
			if err != nil {
				errs[i] = err
				return nil
			}
			o.Summary = strings.TrimSpace(text)
			return nil
		})
	}
	_ = g.Wait()
	run.Sources = outcomes

	if err := ctx.Err(); err != nil {
		return run, StageResult{Status: StatusError, Err: err}, err
	}
	if usable == 0 {
		return run, StageResult{Status: StatusSkipped, Detail: "no relevant evidence"}, nil
	}
	if err := firstErr(errs); err != nil {
		return run, StageResult{Status: StatusError, Err: err}, nil
	}
	return run, StageResult{Status: StatusSuccess}, nil
}

func (p *Pipeline) assess(ctx context.Context, t *entity.Topic, run Run) (Run, StageResult, error) {
	evidence := buildEvidence(run.Sources)
	if evidence == "" {
		return run, StageResult{Status: StatusSkipped, Detail: "no relevant evidence"}, nil
	}

	cctx, cancel := p.completionCtx(ctx)
	defer cancel()

	var a Assessment
	err := llm.CompleteJSON(cctx, p.model, qualityPrompt(t, run.Query, evidence), qualitySchema, &a)
	if err == nil && a.Overall == nil {
		err = fmt.Errorf("%w: missing overall_quality_score", llm.ErrMalformedOutput)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return run, StageResult{Status: StatusError, Err: ctxErr}, ctxErr
	}
	if err != nil {
		fallback := p.fallbackAssessment(run.Sources)
		run.Assessment = &fallback
		return run, StageResult{Status: StatusError, Err: err, Detail: "fallback assessment"}, nil
	}

	overall := clamp01(*a.Overall)
	a.Overall = &overall
	if strings.TrimSpace(a.Summary) == "" {
		a.Summary = joinSummaries(run.Sources)
	}
	run.Assessment = &a
	return run, StageResult{Status: StatusSuccess, Detail: fmt.Sprintf("quality %.2f", overall)}, nil
}

func (p *Pipeline) fallbackAssessment(sources []SourceOutcome) Assessment {
	score := clamp01(p.cfg.FallbackQualityScore)
	return Assessment{
		Overall:  &score,
		Summary:  joinSummaries(sources),
		Fallback: true,
	}
}

func (p *Pipeline) deduplicate(ctx context.Context, t *entity.Topic, run Run) (Run, StageResult, error) {
	if run.Assessment == nil || run.Quality() < p.cfg.QualityThreshold {
		return run, StageResult{Status: StatusSkipped, Detail: "below quality threshold"}, nil
	}

	previous, err := p.store.GetRecentFindings(ctx, t.Id, p.cfg.DedupWindow)
	if err != nil {
		run.Dedup = &DedupVerdict{}
		return run, StageResult{Status: StatusError, Err: fmt.Errorf("load recent findings: %w", err)}, nil
	}
	if len(previous) == 0 {
		return run, StageResult{Status: StatusSkipped, Detail: "no previous findings"}, nil
	}

	cctx, cancel := p.completionCtx(ctx)
	defer cancel()

	var v DedupVerdict
	if err := llm.CompleteJSON(cctx, p.model, dedupPrompt(run.Assessment.Summary, previous), dedupSchema, &v); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return run, StageResult{Status: StatusError, Err: ctxErr}, ctxErr
		}
		run.Dedup = &DedupVerdict{}
		return run, StageResult{Status: StatusError, Err: err, Detail: "treated as new"}, nil
	}
	v.Similarity = clamp01(v.Similarity)
	run.Dedup = &v
	return run, StageResult{Status: StatusSuccess, Detail: fmt.Sprintf("duplicate=%t similarity=%.2f", v.IsDuplicate, v.Similarity)}, nil
}

func (p *Pipeline) decide(ctx context.Context, t *entity.Topic, run Run) (Run, StageResult, error) {
	now := p.now()
	res := StageResult{Status: StatusSuccess}

	store := run.Assessment != nil && run.Quality() >= p.cfg.QualityThreshold &&
		(run.Dedup == nil || !run.Dedup.IsDuplicate)

	run.Outcome = OutcomeSkipped
	if store {
		finding := buildFinding(t, run, now)
		stored, err := p.store.StoreFinding(ctx, t.Id, finding)
		switch {
		case err != nil:
			res = StageResult{Status: StatusError, Err: fmt.Errorf("store finding: %w", err)}
		case stored:
			run.Outcome = OutcomeStored
			run.Finding = finding
		}
	}
	if res.Detail == "" {
		res.Detail = string(run.Outcome)
	}

	if err := p.store.UpdateTopicLastResearched(ctx, t.Id, now); err != nil {
		p.logger.Warn(logModule, "Failed to update last researched", map[string]interface{}{
			"topic_id": t.Id.String(),
			"error":    err.Error(),
		})
		if res.Err == nil {
			res = StageResult{Status: StatusError, Err: err, Detail: res.Detail}
		}
	} else {
		t.LastResearched = &now
	}
	return run, res, nil
}

func buildFinding(t *entity.Topic, run Run, now time.Time) *entity.Finding {
	a := run.Assessment
	quality := run.Quality()

	var content, formatted strings.Builder
	var urls []string
	seen := make(map[string]bool)
	fmt.Fprintf(&formatted, "## %s\n\n%s\n", t.Name, a.Summary)
	if len(a.KeyInsights) > 0 {
		formatted.WriteString("\n### Key insights\n")
		for _, in := range a.KeyInsights {
			fmt.Fprintf(&formatted, "- %s\n", in)
		}
	}

	formatted.WriteString("\n### Sources\n")
	for _, o := range sortedSources(run.Sources) {
		if !o.usable() {
			continue
		}
		if o.Summary != "" {
			fmt.Fprintf(&content, "[%s] %s\n\n", o.Source, o.Summary)
		}
		for _, r := range o.Reviewed {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			urls = append(urls, r.URL)
			fmt.Fprintf(&formatted, "- [%s](%s) (%s)\n", r.Title, r.URL, o.Source)
		}
	}

	body := strings.TrimSpace(content.String())
	if body == "" {
		body = a.Summary
	}
	return &entity.Finding{
		TopicId:          t.Id,
		OwnerId:          t.OwnerId,
		QualityScore:     &quality,
		Summary:          a.Summary,
		Content:          body,
		FormattedContent: strings.TrimSpace(formatted.String()),
		SourceUrls:       urls,
		KeyInsights:      append([]string(nil), a.KeyInsights...),
		CreatedAt:        now,
	}
}

// buildEvidence prefers per-source summaries and falls back to the reviewed
// results themselves.
func buildEvidence(sources []SourceOutcome) string {
	var b strings.Builder
	for _, o := range sortedSources(sources) {
		if !o.usable() {
			continue
		}
		fmt.Fprintf(&b, "Source: %s\n", o.Source)
		if o.Summary != "" {
			b.WriteString(o.Summary + "\n\n")
			continue
		}
		writeResults(&b, o.Reviewed)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func joinSummaries(sources []SourceOutcome) string {
	var parts []string
	for _, o := range sortedSources(sources) {
		if !o.usable() {
			continue
		}
		if o.Summary != "" {
			parts = append(parts, o.Summary)
			continue
		}
		for _, r := range o.Reviewed {
			parts = append(parts, r.Title)
		}
	}
	return strings.Join(parts, "\n")
}

func firstErr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
