// Package sources implements the external search backends the research
// pipeline fans out to. Each source is rate limited and honours the caller's
// deadline.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-research-be/pkg/research"

	"golang.org/x/time/rate"
)

const (
	Web      = "web"
	Academic = "academic"
	Social   = "social"
	Medical  = "medical"
)

const maxBodyBytes = 4 << 20

// Options are shared by every HTTP source.
type Options struct {
	BaseURL       string
	APIKey        string
	RatePerSecond float64
	Client        *http.Client
}

type httpSource struct {
	name    string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPSource(name string, opts Options) httpSource {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return httpSource{
		name:    name,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (s httpSource) Name() string {
	return s.name
}

func (s httpSource) Available() bool {
	return s.baseURL != ""
}

// get waits for the limiter, performs the request and returns the body of a
// 200 response.
func (s httpSource) get(ctx context.Context, url string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", s.name, err)
	}
	req.Header.Set("User-Agent", "ai-research-be/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", s.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", s.name, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func (s httpSource) getJSON(ctx context.Context, url string, out any) error {
	body, err := s.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", s.name, err)
	}
	return nil
}

// Build returns the sources named in enabled, configured from cfg.
func Build(enabled []string, cfg map[string]Options) ([]research.SearchSource, error) {
	var out []research.SearchSource
	for _, name := range enabled {
		opts := cfg[name]
		switch name {
		case Web:
			out = append(out, NewSearxng(opts))
		case Academic:
			out = append(out, NewArxiv(opts))
		case Social:
			out = append(out, NewHackerNews(opts))
		case Medical:
			out = append(out, NewPubMed(opts))
		default:
			return nil, fmt.Errorf("unknown search source %q", name)
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseTime(layout, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return nil
	}
	return &t
}
