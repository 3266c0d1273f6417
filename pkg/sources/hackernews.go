package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"ai-research-be/pkg/research"
)

// HackerNews queries the Algolia HN search API for recent stories.
type HackerNews struct {
	httpSource
	now func() time.Time
}

func NewHackerNews(opts Options) *HackerNews {
	return &HackerNews{httpSource: newHTTPSource(Social, opts), now: time.Now}
}

type hnResponse struct {
	Hits []struct {
		ObjectID  string `json:"objectID"`
		Title     string `json:"title"`
		URL       string `json:"url"`
		StoryText string `json:"story_text"`
		Points    int    `json:"points"`
		CreatedAt string `json:"created_at"`
	} `json:"hits"`
}

func (s *HackerNews) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	since := s.now().Add(-30 * 24 * time.Hour).Unix()

	q := url.Values{}
	q.Set("query", query)
	q.Set("tags", "story")
	q.Set("hitsPerPage", strconv.Itoa(limit))
	q.Set("numericFilters", fmt.Sprintf("created_at_i>%d", since))

	var resp hnResponse
	if err := s.getJSON(ctx, s.baseURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	out := make([]research.SearchResult, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		link := h.URL
		if link == "" {
			link = "https://news.ycombinator.com/item?id=" + h.ObjectID
		}
		snippet := clean(h.StoryText)
		if snippet == "" {
			snippet = fmt.Sprintf("%d points on Hacker News", h.Points)
		}
		out = append(out, research.SearchResult{
			Title:       clean(h.Title),
			URL:         link,
			Snippet:     truncate(snippet, 500),
			PublishedAt: parseTime(time.RFC3339, h.CreatedAt),
		})
	}
	return out, nil
}
