package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"ai-research-be/pkg/research"
)

// Arxiv queries the arXiv Atom API, newest submissions first.
type Arxiv struct {
	httpSource
}

func NewArxiv(opts Options) *Arxiv {
	return &Arxiv{httpSource: newHTTPSource(Academic, opts)}
}

type arxivFeed struct {
	Entries []struct {
		ID        string `xml:"id"`
		Title     string `xml:"title"`
		Summary   string `xml:"summary"`
		Published string `xml:"published"`
		Links     []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
			Type string `xml:"type,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

func (s *Arxiv) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{}
	q.Set("search_query", "all:"+query)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(limit))
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")

	body, err := s.get(ctx, s.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("%s: decode feed: %w", s.name, err)
	}

	out := make([]research.SearchResult, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		link := e.ID
		for _, l := range e.Links {
			if l.Rel == "alternate" || (l.Rel == "" && l.Type == "text/html") {
				link = l.Href
				break
			}
		}
		out = append(out, research.SearchResult{
			Title:       clean(e.Title),
			URL:         link,
			Snippet:     truncate(clean(e.Summary), 800),
			PublishedAt: parseTime(time.RFC3339, e.Published),
		})
	}
	return out, nil
}
