package motivation

import (
	"ai-research-be/pkg/research"
)

const neutralSuccessRate = 0.5

// EngagementScore maps weighted engagement onto [0,1) with a saturating curve,
// so a handful of strong signals count but no topic can run away with the score.
func EngagementScore(stats research.EngagementStats, w EngagementWeights) float64 {
	raw := float64(stats.ManualReads)*w.ManualRead +
		float64(stats.ExpansionReads)*w.ExpansionRead +
		float64(stats.SourceClicks)*w.SourceClick +
		float64(stats.Activations)*w.Activation +
		float64(stats.Bookmarks)*w.Bookmark +
		float64(stats.Integrations)*w.Integration
	if raw <= 0 || w.Saturation <= 0 {
		return 0
	}
	return clamp(raw / (raw + w.Saturation))
}

// SuccessRate is the share of a topic's findings the owner engaged with.
// Topics without findings get the neutral 0.5.
func SuccessRate(stats research.EngagementStats) float64 {
	if stats.FindingsTotal <= 0 {
		return neutralSuccessRate
	}
	return clamp(float64(stats.FindingsEngaged) / float64(stats.FindingsTotal))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
