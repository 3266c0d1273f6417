package memory

import (
	"testing"
	"time"

	"ai-research-be/pkg/research"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEngagementCache(t *testing.T) {
	c := NewEngagementCache(time.Minute)
	id := uuid.New()

	_, ok := c.Get(id)
	assert.False(t, ok)

	c.Save(id, research.EngagementStats{ManualReads: 3})
	got, ok := c.Get(id)
	assert.True(t, ok)
	assert.Equal(t, int64(3), got.ManualReads)
	assert.Equal(t, 1, c.Len())

	c.Delete(id)
	_, ok = c.Get(id)
	assert.False(t, ok)
}

func TestEngagementCacheExpires(t *testing.T) {
	c := NewEngagementCache(20 * time.Millisecond)
	id := uuid.New()
	c.Save(id, research.EngagementStats{Bookmarks: 1})

	assert.Eventually(t, func() bool {
		_, ok := c.Get(id)
		return !ok
	}, time.Second, 10*time.Millisecond)
}
