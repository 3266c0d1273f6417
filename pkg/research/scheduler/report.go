package scheduler

import (
	"time"

	"ai-research-be/pkg/research/lifecycle"
	"ai-research-be/pkg/research/pipeline"

	"github.com/google/uuid"
)

type TopicReport struct {
	TopicID   uuid.UUID        `json:"topic_id"`
	Name      string           `json:"name"`
	Expansion bool             `json:"expansion"`
	Outcome   pipeline.Outcome `json:"outcome"`
	Quality   float64          `json:"quality"`
	Error     string           `json:"error,omitempty"`
}

type ExpansionReport struct {
	ParentID uuid.UUID `json:"parent_id"`
	TopicID  uuid.UUID `json:"topic_id"`
	Name     string    `json:"name"`
	Depth    int       `json:"depth"`
	Active   bool      `json:"active"`
}

// OwnerReport summarizes one owner's share of a cycle.
type OwnerReport struct {
	OwnerID    uuid.UUID              `json:"owner_id"`
	Skipped    bool                   `json:"skipped"`
	SkipReason string                 `json:"skip_reason,omitempty"`
	Admitted   int                    `json:"admitted"`
	Researched []TopicReport          `json:"researched"`
	Expansions []ExpansionReport      `json:"expansions"`
	Lifecycle  []lifecycle.Transition `json:"lifecycle"`
}

func (o OwnerReport) findingsStored() int {
	n := 0
	for _, r := range o.Researched {
		if r.Outcome == pipeline.OutcomeStored {
			n++
		}
	}
	return n
}

type CycleReport struct {
	ID         uuid.UUID     `json:"id"`
	Manual     bool          `json:"manual"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Impetus    float64       `json:"impetus"`
	Gated      bool          `json:"gated"`
	LeaseHeld  bool          `json:"lease_held_elsewhere"`
	Owners     []OwnerReport `json:"owners"`
}

func (r CycleReport) TopicsResearched() int {
	n := 0
	for _, o := range r.Owners {
		n += len(o.Researched)
	}
	return n
}

func (r CycleReport) FindingsStored() int {
	n := 0
	for _, o := range r.Owners {
		n += o.findingsStored()
	}
	return n
}

func (r CycleReport) ExpansionsCreated() int {
	n := 0
	for _, o := range r.Owners {
		n += len(o.Expansions)
	}
	return n
}

func (r CycleReport) OwnersSkipped() int {
	n := 0
	for _, o := range r.Owners {
		if o.Skipped {
			n++
		}
	}
	return n
}

func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
