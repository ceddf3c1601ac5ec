// Package research holds domain.ResearchProvider implementations and the
// wrappers that protect them.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"salesintel/internal/domain"
)

const (
	maxSearchBodySize = 512 * 1024
	defaultTimeout    = 15 * time.Second
)

// resultsPerDepth is how many search hits feed one research answer.
var resultsPerDepth = map[domain.ResearchDepth]int{
	domain.DepthMedium: 5,
	domain.DepthDeep:   10,
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
		Engine  string `json:"engine"`
	} `json:"results"`
	NumberOfResults int `json:"number_of_results"`
}

// SearXNG researches through a SearXNG metasearch instance.
type SearXNG struct {
	client      *http.Client
	instanceURL string
	logger      *slog.Logger
}

// NewSearXNG creates a provider for the instance at instanceURL. A zero
// timeout uses 15s.
func NewSearXNG(instanceURL string, timeout time.Duration, logger *slog.Logger) *SearXNG {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SearXNG{
		client:      &http.Client{Timeout: timeout},
		instanceURL: strings.TrimRight(instanceURL, "/"),
		logger:      logger,
	}
}

func (s *SearXNG) Name() string { return "searxng" }

// ConductProductResearch runs one search and folds the hits into research
// data: "description" is the best snippet, "results" the raw hits and
// "text" every snippet joined for keyword analysis.
func (s *SearXNG) ConductProductResearch(ctx context.Context, query string, depth domain.ResearchDepth) (*domain.ResearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.instanceURL+"/search", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("pageno", "1")
	if depth == domain.DepthMedium {
		q.Set("time_range", "year")
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewSubSystemError("research", "SearXNG.ConductProductResearch", domain.ErrResearch, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewSubSystemError("research", "SearXNG.ConductProductResearch", domain.ErrResearch,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var sr searxngResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, domain.NewSubSystemError("research", "SearXNG.ConductProductResearch", domain.ErrResearch,
			"parse response: "+err.Error())
	}

	limit := resultsPerDepth[depth]
	if limit == 0 {
		limit = resultsPerDepth[domain.DepthMedium]
	}
	hits := make([]any, 0, limit)
	snippets := make([]string, 0, limit)
	description := ""
	for _, r := range sr.Results {
		if len(hits) >= limit {
			break
		}
		hits = append(hits, map[string]any{"title": r.Title, "url": r.URL, "content": r.Content})
		if r.Content != "" {
			snippets = append(snippets, r.Content)
			if len(r.Content) > len(description) {
				description = r.Content
			}
		}
	}

	s.logger.Debug("searxng research completed", "query", query, "depth", string(depth), "results", len(hits))
	if len(hits) == 0 {
		return &domain.ResearchResult{}, nil
	}
	return &domain.ResearchResult{Data: map[string]any{
		"description": description,
		"results":     hits,
		"text":        strings.Join(snippets, "\n"),
	}}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ domain.ResearchProvider = (*SearXNG)(nil)
