package pipeline

import (
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/pkg/research"

	"github.com/google/uuid"
)

type Stage string

const (
	StageQueryGeneration       Stage = "query_generation"
	StageSourceSelection       Stage = "source_selection"
	StageSourceFanout          Stage = "source_fanout"
	StageResultReview          Stage = "result_review"
	StageEvidenceSummarization Stage = "evidence_summarization"
	StageQualityAssessment     Stage = "quality_assessment"
	StageDeduplication         Stage = "deduplication"
	StageStorageDecision       Stage = "storage_decision"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// StageResult records how one stage ended. An error status does not mean the
// run stopped; most stages degrade to a fallback.
type StageResult struct {
	Stage    Stage         `json:"stage"`
	Status   Status        `json:"status"`
	Err      error         `json:"-"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

type Outcome string

const (
	OutcomeStored  Outcome = "stored"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// SourceOutcome is everything one search source contributed to a run.
type SourceOutcome struct {
	Source   string
	Results  []research.SearchResult
	Err      error
	Reviewed []research.SearchResult
	Empty    bool
	Summary  string
}

func (s SourceOutcome) usable() bool {
	return s.Err == nil && !s.Empty && len(s.Reviewed) > 0
}

// Assessment is the quality verdict over a run's evidence.
type Assessment struct {
	Recency     float64  `json:"recency"`
	Relevance   float64  `json:"relevance"`
	Depth       float64  `json:"depth"`
	Credibility float64  `json:"credibility"`
	Novelty     float64  `json:"novelty"`
	Overall     *float64 `json:"overall_quality_score"`
	Summary     string   `json:"summary"`
	KeyInsights []string `json:"key_insights"`
	Fallback    bool     `json:"-"`
}

func (a Assessment) Quality() float64 {
	if a.Overall == nil {
		return 0
	}
	return *a.Overall
}

type DedupVerdict struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Similarity  float64 `json:"similarity_score"`
}

// Run is the state of one topic's pass through the pipeline. Stages take it
// by value and return the next version.
type Run struct {
	TopicID       uuid.UUID
	OwnerID       uuid.UUID
	TopicName     string
	StartedAt     time.Time
	FinishedAt    time.Time
	Query         string
	QueryFallback bool
	Sources       []SourceOutcome
	Assessment    *Assessment
	Dedup         *DedupVerdict
	Stages        []StageResult
	Outcome       Outcome
	Finding       *entity.Finding
	Err           error
}

func (r Run) Stage(s Stage) (StageResult, bool) {
	for _, sr := range r.Stages {
		if sr.Stage == s {
			return sr, true
		}
	}
	return StageResult{}, false
}

// Quality is the assessed overall quality, 0 before assessment.
func (r Run) Quality() float64 {
	if r.Assessment == nil {
		return 0
	}
	return r.Assessment.Quality()
}

// Completed reports whether the run reached the storage decision.
func (r Run) Completed() bool {
	return r.Outcome == OutcomeStored || r.Outcome == OutcomeSkipped
}

func (r Run) with(res StageResult) Run {
	r.Stages = append(append([]StageResult(nil), r.Stages...), res)
	return r
}
