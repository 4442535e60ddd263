package logging_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jokeworks/joker-api/internal/logging"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, slog.LevelDebug, logging.Setup())

	t.Setenv("LOG_LEVEL", "error")
	assert.Equal(t, slog.LevelError, logging.Setup())
}

func TestSetupLevelDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, slog.LevelInfo, logging.Setup())

	t.Setenv("LOG_LEVEL", "loud")
	assert.Equal(t, slog.LevelInfo, logging.Setup())
}

func handle(t *testing.T, h *logging.PGHandler, attrs ...slog.Attr) {
	t.Helper()
	rec := slog.NewRecord(time.Now(), slog.LevelError, "request failed", 0)
	rec.AddAttrs(attrs...)
	require.NoError(t, h.Handle(context.Background(), rec))
}

func TestPGHandlerMapsAttrs(t *testing.T) {
	db := testutil.OpenDB(t)
	h := logging.NewPGHandler(db)

	handle(t, h,
		slog.String("path", "/jokes/random"),
		slog.String("error", "source timeout"),
		slog.Int("latency_ms", 42),
	)
	handle(t, h, slog.Float64("latency_ms", 17.6))
	h.Stop()

	var rows []models.SystemLog
	require.NoError(t, db.Order("latency_ms DESC").Find(&rows).Error)
	require.Len(t, rows, 2)

	assert.Equal(t, 42, rows[0].LatencyMs)
	assert.Equal(t, "/jokes/random", rows[0].Path)
	assert.Equal(t, "source timeout", rows[0].Error)
	assert.Equal(t, "ERROR", rows[0].Level)

	assert.Equal(t, 18, rows[1].LatencyMs)
}

func TestPGHandlerIgnoresBelowError(t *testing.T) {
	h := logging.NewPGHandler(testutil.OpenDB(t))
	defer h.Stop()

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}
