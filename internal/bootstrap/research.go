package bootstrap

import (
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/scheduler"
	"ai-research-be/pkg/sources"
)

const bootstrapModule = "Bootstrap"

// newResearchScheduler never fails: an invalid configuration is logged and the
// scheduler is built disabled with defaults, so the API still serves and the
// loop can be enabled later through the config endpoint.
func newResearchScheduler(cfg scheduler.Config, deps scheduler.Deps, log logger.ILogger) *scheduler.Scheduler {
	sched, err := scheduler.New(cfg, deps)
	if err == nil {
		return sched
	}

	log.Error(bootstrapModule, "Invalid research scheduler configuration, scheduler disabled", map[string]interface{}{
		"error":       err.Error(),
		"engine_type": cfg.EngineType,
		"interval":    cfg.Interval.String(),
	})
	return disabledScheduler(deps)
}

func disabledScheduler(deps scheduler.Deps) *scheduler.Scheduler {
	fallback := scheduler.DefaultConfig()
	fallback.Enabled = false
	sched, err := scheduler.New(fallback, deps)
	if err != nil {
		panic("default scheduler config rejected: " + err.Error())
	}
	return sched
}

// buildSources keeps every source it recognizes and logs the rest.
func buildSources(enabled []string, opts map[string]sources.Options, log logger.ILogger) []research.SearchSource {
	var out []research.SearchSource
	for _, name := range enabled {
		built, err := sources.Build([]string{name}, opts)
		if err != nil {
			log.Error(bootstrapModule, "Skipping search source", map[string]interface{}{
				"source": name,
				"error":  err.Error(),
			})
			continue
		}
		out = append(out, built...)
	}
	return out
}
