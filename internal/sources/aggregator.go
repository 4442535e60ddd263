// Package sources acquires joke content from the configured external
// providers, in priority order, isolating each provider's failures.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/store"
)

var ErrAllSourcesExhausted = errors.New("all joke sources exhausted")

// Fetcher retrieves raw joke content from one provider. Implementations
// must honor the context deadline.
type Fetcher interface {
	Fetch(ctx context.Context, src *models.JokeSource) (string, error)
}

// HTTPFetcher is the production fetcher: GET the source endpoint, expect a
// JSON object carrying the joke under "joke" or "content".
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	// Per-attempt deadlines come from the context; the client itself stays
	// unbounded so one aggregator-wide timeout policy applies everywhere.
	return &HTTPFetcher{client: &http.Client{}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src *models.JokeSource) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if src.HasAPIKey() {
		req.Header.Set("X-Api-Key", *src.APIKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("malformed payload: %w", err)
	}
	for _, key := range []string{"joke", "content"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v, nil
		}
	}
	return "", errors.New("malformed payload: no joke field")
}

// Aggregator walks the provider list and returns the first usable joke,
// already materialized as a store row.
type Aggregator struct {
	store   *store.Store
	fetcher Fetcher
	health  *HealthTracker
	timeout time.Duration
}

func NewAggregator(st *store.Store, fetcher Fetcher, health *HealthTracker, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Aggregator{store: st, fetcher: fetcher, health: health, timeout: timeout}
}

// Next tries each source once, in priority order. A failing source gets a
// SourceFailure row and a health mark, then the next source is attempted;
// nothing is shared across attempts beyond that log. The first success
// creates and returns a Joke attributed to the source name without touching
// later sources. Sources whose protocol requires an API key are skipped
// when no key is configured.
func (a *Aggregator) Next(ctx context.Context) (*models.Joke, error) {
	srcs, err := a.store.ListSourcesByPriority(ctx)
	if err != nil {
		return nil, err
	}

	for i := range srcs {
		src := &srcs[i]

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if src.RequiresAPIKey && !src.HasAPIKey() {
			slog.Debug("skipping source without required api key", "source", src.Name)
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
		content, err := a.fetcher.Fetch(attemptCtx, src)
		cancel()

		if err != nil {
			a.recordFailure(ctx, src, err)
			continue
		}

		a.health.MarkSuccess(ctx, src.Name)
		joke, err := a.store.CreateJoke(ctx, content, &src.Name)
		if err != nil {
			return nil, err
		}
		slog.Info("joke fetched", "source", src.Name, "joke_id", joke.ID)
		return joke, nil
	}

	// A request deadline that expired during the last attempt is a timeout,
	// not exhaustion.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrAllSourcesExhausted
}

func (a *Aggregator) recordFailure(ctx context.Context, src *models.JokeSource, cause error) {
	reason := cause.Error()
	slog.Warn("joke source failed", "source", src.Name, "reason", reason)

	if err := a.store.RecordSourceFailure(ctx, src.ID, reason); err != nil {
		slog.Error("failed to persist source failure", "source", src.Name, "error", err)
	}
	a.health.MarkFailure(ctx, src.Name, reason)
}
