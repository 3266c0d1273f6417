package sources

import (
	"context"
	"net/url"
	"strconv"

	"ai-research-be/pkg/research"
)

// Searxng queries a SearxNG instance through its JSON API.
type Searxng struct {
	httpSource
}

func NewSearxng(opts Options) *Searxng {
	return &Searxng{httpSource: newHTTPSource(Web, opts)}
}

type searxngResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"publishedDate"`
	} `json:"results"`
}

func (s *Searxng) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("time_range", "month")
	q.Set("pageno", strconv.Itoa(1))

	var resp searxngResponse
	if err := s.getJSON(ctx, s.baseURL+"/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	out := make([]research.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		out = append(out, research.SearchResult{
			Title:       clean(r.Title),
			URL:         r.URL,
			Snippet:     truncate(clean(r.Content), 500),
			PublishedAt: parseTime("2006-01-02T15:04:05", r.PublishedDate),
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
