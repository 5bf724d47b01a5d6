package events

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/letsrace/digest/app/cache"
	"github.com/letsrace/digest/app/metrics"
)

// Source fetches the event corpus from the content host: a manifest maps
// categories to per-category JSON files. Losing one category degrades the
// digest; losing the manifest aborts it.
type Source struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	cache      cache.Cache
	cacheTTL   time.Duration
}

func NewSource(baseURL string, httpClient *http.Client, userAgent string, c cache.Cache, cacheTTL time.Duration) *Source {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Source{
		baseURL:    baseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
		cache:      c,
		cacheTTL:   cacheTTL,
	}
}

type manifest struct {
	Type map[string]string `json:"type"`
}

// Load returns the normalized event corpus, serving from cache when a fresh
// copy is available.
func (s *Source) Load(ctx context.Context) ([]Event, error) {
	key := s.cacheKey()

	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err != nil {
			slog.Warn("Event cache read failed", "error", err)
		} else if ok {
			var events []Event
			if err := json.Unmarshal(data, &events); err == nil {
				slog.Debug("Event corpus served from cache", "count", len(events))
				return events, nil
			}
			slog.Warn("Discarding corrupt event cache entry", "key", key)
		}
	}

	events, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(events); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				slog.Warn("Event cache write failed", "error", err)
			}
		}
	}

	return events, nil
}

func (s *Source) fetchAll(ctx context.Context) ([]Event, error) {
	data, err := s.fetch(ctx, s.baseURL+"/data/manifest.json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Type) == 0 {
		return nil, fmt.Errorf("invalid manifest structure: missing type map")
	}

	// Deterministic category order so the concatenated corpus is stable
	// across runs.
	categories := make([]string, 0, len(m.Type))
	for category := range m.Type {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	results := make([][]Event, len(categories))
	var wg sync.WaitGroup
	for i, category := range categories {
		wg.Add(1)
		go func(i int, category, path string) {
			defer wg.Done()

			data, err := s.fetch(ctx, s.baseURL+path)
			if err != nil {
				slog.Warn("Failed to load category file, continuing without it", "category", category, "path", path, "error", err)
				metrics.CategoryFetchFailures.WithLabelValues(category).Inc()
				return
			}

			events, err := DecodeEvents(data)
			if err != nil {
				slog.Warn("Failed to decode category file, continuing without it", "category", category, "path", path, "error", err)
				metrics.CategoryFetchFailures.WithLabelValues(category).Inc()
				return
			}

			results[i] = events
		}(i, category, m.Type[category])
	}
	wg.Wait()

	var all []Event
	for _, events := range results {
		all = append(all, events...)
	}

	slog.Info("Event corpus loaded", "categories", len(categories), "events", len(all))
	return all, nil
}

func (s *Source) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (s *Source) cacheKey() string {
	hash := sha256.Sum256([]byte(s.baseURL))
	return fmt.Sprintf("events:%x", hash[:8])
}
