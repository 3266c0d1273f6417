package memory

import (
	"time"

	"ai-research-be/pkg/research"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// EngagementCache keeps aggregated engagement stats per topic for a short TTL.
// A research cycle reads the same topic's stats from the drive model and the
// lifecycle manager, so a cycle hits the database once per topic.
type EngagementCache struct {
	cache *cache.Cache
}

func NewEngagementCache(ttl time.Duration) *EngagementCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &EngagementCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *EngagementCache) Save(topicID uuid.UUID, stats research.EngagementStats) {
	r.cache.Set(topicID.String(), stats, cache.DefaultExpiration)
}

func (r *EngagementCache) Get(topicID uuid.UUID) (research.EngagementStats, bool) {
	if x, found := r.cache.Get(topicID.String()); found {
		return x.(research.EngagementStats), true
	}
	return research.EngagementStats{}, false
}

func (r *EngagementCache) Delete(topicID uuid.UUID) {
	r.cache.Delete(topicID.String())
}

func (r *EngagementCache) Len() int {
	return r.cache.ItemCount()
}
