package sources

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthTracker keeps per-source success/failure counters in Redis for the
// admin health view. It is observational only: the aggregator still attempts
// every eligible source regardless of its counters. All methods tolerate a
// nil client and become no-ops, so the service runs without Redis.
type HealthTracker struct {
	rdb *redis.Client
}

func NewHealthTracker(rdb *redis.Client) *HealthTracker {
	return &HealthTracker{rdb: rdb}
}

func sourceKey(name, field string) string {
	return "joker:source:" + name + ":" + field
}

func (h *HealthTracker) MarkFailure(ctx context.Context, name, reason string) {
	if h == nil || h.rdb == nil {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	pipe := h.rdb.Pipeline()
	pipe.Incr(ctx, sourceKey(name, "failures"))
	pipe.Set(ctx, sourceKey(name, "last_error"), reason, 0)
	pipe.Set(ctx, sourceKey(name, "last_failure_at"), now, 0)
	_, _ = pipe.Exec(ctx)
}

func (h *HealthTracker) MarkSuccess(ctx context.Context, name string) {
	if h == nil || h.rdb == nil {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	pipe := h.rdb.Pipeline()
	pipe.Incr(ctx, sourceKey(name, "successes"))
	pipe.Set(ctx, sourceKey(name, "last_success_at"), now, 0)
	_, _ = pipe.Exec(ctx)
}

// SourceHealth is one provider's counters as reported to operators.
type SourceHealth struct {
	Name          string `json:"name"`
	Failures      int64  `json:"failures"`
	Successes     int64  `json:"successes"`
	LastError     string `json:"last_error,omitempty"`
	LastFailureAt string `json:"last_failure_at,omitempty"`
	LastSuccessAt string `json:"last_success_at,omitempty"`
}

// Snapshot reads the counters for the given source names. With no Redis it
// returns zeroed entries so the admin view stays shaped the same.
func (h *HealthTracker) Snapshot(ctx context.Context, names []string) []SourceHealth {
	out := make([]SourceHealth, 0, len(names))
	for _, name := range names {
		entry := SourceHealth{Name: name}
		if h != nil && h.rdb != nil {
			entry.Failures, _ = h.rdb.Get(ctx, sourceKey(name, "failures")).Int64()
			entry.Successes, _ = h.rdb.Get(ctx, sourceKey(name, "successes")).Int64()
			entry.LastError, _ = h.rdb.Get(ctx, sourceKey(name, "last_error")).Result()
			entry.LastFailureAt, _ = h.rdb.Get(ctx, sourceKey(name, "last_failure_at")).Result()
			entry.LastSuccessAt, _ = h.rdb.Get(ctx, sourceKey(name, "last_success_at")).Result()
		}
		out = append(out, entry)
	}
	return out
}
