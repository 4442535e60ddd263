package handlers_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jokeworks/joker-api/internal/authz"
	"github.com/jokeworks/joker-api/internal/handlers"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/pipeline"
	"github.com/jokeworks/joker-api/internal/sources"
	"github.com/jokeworks/joker-api/internal/store"
	"github.com/jokeworks/joker-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedFetcher struct {
	content string
	err     error
}

func (f *cannedFetcher) Fetch(ctx context.Context, src *models.JokeSource) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func newApp(t *testing.T, fetcher sources.Fetcher) (*fiber.App, *store.Store) {
	t.Helper()
	st := store.New(testutil.OpenDB(t))
	agg := sources.NewAggregator(st, fetcher, sources.NewHealthTracker(nil), time.Second)
	pl := pipeline.New(st, authz.NewGate(st), agg, nil, 5*time.Second)

	app := fiber.New()
	handler := handlers.NewJokeHandler(pl)
	app.Get("/jokes/random", handler.Serve)
	app.Post("/jokes", handler.Serve)
	return app, st
}

func seedJokeEndpoint(t *testing.T, st *store.Store, formats ...models.FormatType) {
	t.Helper()
	_, err := st.CreateEndpoint(context.Background(), "/jokes/random", models.MethodGet, "", formats)
	require.NoError(t, err)
	require.NoError(t, st.CreateSource(context.Background(), &models.JokeSource{
		Name: "canned", Endpoint: "http://canned.test", Priority: 0,
	}))
}

func TestServeJokeJSON(t *testing.T) {
	app, st := newApp(t, &cannedFetcher{content: "a joke"})
	seedJokeEndpoint(t, st, models.FormatJSON, models.FormatPlainText)

	req := httptest.NewRequest("GET", "/jokes/random?format=JSON", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get(fiber.HeaderContentType))
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"content":"a joke","source":"canned"}`, string(body))
}

func TestServeJokeAcceptHeaderNegotiation(t *testing.T) {
	app, st := newApp(t, &cannedFetcher{content: "a joke"})
	seedJokeEndpoint(t, st, models.FormatJSON, models.FormatPlainText)

	req := httptest.NewRequest("GET", "/jokes/random", nil)
	req.Header.Set("Accept", "text/plain")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/plain")
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "a joke -- canned", string(body))
}

func TestServeJokeAnonymousPostUnauthorized(t *testing.T) {
	app, st := newApp(t, &cannedFetcher{content: "a joke"})
	_, err := st.CreateEndpoint(context.Background(), "/jokes", models.MethodPost, "", nil)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/jokes", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestServeJokeSourcesDown(t *testing.T) {
	app, st := newApp(t, &cannedFetcher{err: errors.New("unexpected status 500")})
	seedJokeEndpoint(t, st, models.FormatJSON)

	req := httptest.NewRequest("GET", "/jokes/random", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestServeJokeUnknownEndpoint(t *testing.T) {
	app, _ := newApp(t, &cannedFetcher{content: "a joke"})

	// Route registered but no catalog row behind it.
	req := httptest.NewRequest("GET", "/jokes/random", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
