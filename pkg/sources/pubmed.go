package sources

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"ai-research-be/pkg/research"
)

// PubMed runs an E-utilities esearch followed by esummary for the hits.
type PubMed struct {
	httpSource
	apiKey string
}

func NewPubMed(opts Options) *PubMed {
	return &PubMed{httpSource: newHTTPSource(Medical, opts), apiKey: opts.APIKey}
}

type pubmedSearch struct {
	Result struct {
		IDs []string `json:"idlist"`
	} `json:"esearchresult"`
}

// The esummary result map mixes document objects with a "uids" array, so
// documents are decoded one by one.
type pubmedSummary struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedDoc struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	PubDate string `json:"sortpubdate"`
}

func (s *PubMed) params() url.Values {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("retmode", "json")
	if s.apiKey != "" {
		q.Set("api_key", s.apiKey)
	}
	return q
}

func (s *PubMed) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	q := s.params()
	q.Set("term", query)
	q.Set("sort", "pub_date")
	q.Set("retmax", strconv.Itoa(limit))

	var search pubmedSearch
	if err := s.getJSON(ctx, s.baseURL+"/esearch.fcgi?"+q.Encode(), &search); err != nil {
		return nil, err
	}
	if len(search.Result.IDs) == 0 {
		return nil, nil
	}

	q = s.params()
	q.Set("id", strings.Join(search.Result.IDs, ","))
	var summary pubmedSummary
	if err := s.getJSON(ctx, s.baseURL+"/esummary.fcgi?"+q.Encode(), &summary); err != nil {
		return nil, err
	}

	out := make([]research.SearchResult, 0, len(search.Result.IDs))
	for _, id := range search.Result.IDs {
		raw, ok := summary.Result[id]
		if !ok {
			continue
		}
		var doc pubmedDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		out = append(out, research.SearchResult{
			Title:       clean(doc.Title),
			URL:         "https://pubmed.ncbi.nlm.nih.gov/" + id + "/",
			Snippet:     clean(doc.Source),
			PublishedAt: parseTime("2006/01/02 15:04", doc.PubDate),
		})
	}
	return out, nil
}
