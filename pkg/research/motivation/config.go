package motivation

import (
	"fmt"
	"time"
)

// EngagementWeights converts raw engagement counts into a single signal.
// Activations weigh the most, passive expansion reads the least.
type EngagementWeights struct {
	ManualRead    float64 `json:"manual_read"`
	ExpansionRead float64 `json:"expansion_read"`
	SourceClick   float64 `json:"source_click"`
	Activation    float64 `json:"activation"`
	Bookmark      float64 `json:"bookmark"`
	Integration   float64 `json:"integration"`
	// Saturation is the weighted total at which the score reaches 0.5.
	Saturation float64 `json:"saturation"`
}

type Config struct {
	BoredomRate       float64 `json:"boredom_rate"`
	CuriosityDecay    float64 `json:"curiosity_decay"`
	TirednessDecay    float64 `json:"tiredness_decay"`
	SatisfactionDecay float64 `json:"satisfaction_decay"`

	GlobalThreshold float64 `json:"global_threshold"`
	TopicThreshold  float64 `json:"topic_threshold"`

	StalenessScale         float64       `json:"staleness_scale"`
	NeverResearchedElapsed time.Duration `json:"never_researched_elapsed"`
	EngagementWeight       float64       `json:"engagement_weight"`
	QualityWeight          float64       `json:"quality_weight"`

	ActivityCuriosityBoost float64 `json:"activity_curiosity_boost"`
	ActivityBoredomRelief  float64 `json:"activity_boredom_relief"`

	Engagement EngagementWeights `json:"engagement"`
}

func DefaultConfig() Config {
	return Config{
		BoredomRate:            0.0005,
		CuriosityDecay:         0.0002,
		TirednessDecay:         0.0003,
		SatisfactionDecay:      0.0002,
		GlobalThreshold:        0.5,
		TopicThreshold:         0.6,
		StalenessScale:         1.0 / 7200.0,
		NeverResearchedElapsed: time.Hour,
		EngagementWeight:       0.4,
		QualityWeight:          0.3,
		ActivityCuriosityBoost: 0.3,
		ActivityBoredomRelief:  0.1,
		Engagement:             DefaultEngagementWeights(),
	}
}

func DefaultEngagementWeights() EngagementWeights {
	return EngagementWeights{
		ManualRead:    1.0,
		ExpansionRead: 0.5,
		SourceClick:   0.3,
		Activation:    2.0,
		Bookmark:      1.0,
		Integration:   1.5,
		Saturation:    5.0,
	}
}

// Validate rejects values that would break the clamping invariants.
func (c Config) Validate() error {
	rates := map[string]float64{
		"boredom_rate":             c.BoredomRate,
		"curiosity_decay":          c.CuriosityDecay,
		"tiredness_decay":          c.TirednessDecay,
		"satisfaction_decay":       c.SatisfactionDecay,
		"staleness_scale":          c.StalenessScale,
		"engagement_weight":        c.EngagementWeight,
		"quality_weight":           c.QualityWeight,
		"activity_curiosity_boost": c.ActivityCuriosityBoost,
		"activity_boredom_relief":  c.ActivityBoredomRelief,
	}
	for name, v := range rates {
		if v < 0 {
			return fmt.Errorf("motivation: %s must be >= 0, got %v", name, v)
		}
	}
	if c.NeverResearchedElapsed < 0 {
		return fmt.Errorf("motivation: never_researched_elapsed must be >= 0")
	}
	if c.Engagement.Saturation <= 0 {
		return fmt.Errorf("motivation: engagement saturation must be > 0")
	}
	return nil
}
