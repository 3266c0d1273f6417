package scheduler

import (
	"errors"
	"time"
)

const EnginePipeline = "pipeline"

type Config struct {
	Enabled    bool          `json:"enabled"`
	EngineType string        `json:"engine_type"`
	Interval   time.Duration `json:"interval"`

	ResearchWorkers        int `json:"research_workers"`
	ExpansionWorkers       int `json:"expansion_workers"`
	PerRootExpansionBudget int `json:"per_root_expansion_budget"`
	MaxExpansionDepth      int `json:"max_expansion_depth"`

	// TopicTimeout bounds one pipeline run; zero means no limit beyond the
	// per-call timeouts inside the pipeline.
	TopicTimeout time.Duration `json:"topic_timeout"`
	LeaseTTL     time.Duration `json:"lease_ttl"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:                true,
		EngineType:             EnginePipeline,
		Interval:               15 * time.Minute,
		ResearchWorkers:        3,
		ExpansionWorkers:       2,
		PerRootExpansionBudget: 2,
		MaxExpansionDepth:      2,
		TopicTimeout:           10 * time.Minute,
		LeaseTTL:               10 * time.Minute,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return errors.New("interval must be positive")
	case c.ResearchWorkers < 1:
		return errors.New("research_workers must be at least 1")
	case c.ExpansionWorkers < 1:
		return errors.New("expansion_workers must be at least 1")
	case c.PerRootExpansionBudget < 0:
		return errors.New("per_root_expansion_budget must not be negative")
	case c.MaxExpansionDepth < 0:
		return errors.New("max_expansion_depth must not be negative")
	case c.EngineType != EnginePipeline:
		return errors.New("unsupported engine_type " + c.EngineType)
	}
	return nil
}
