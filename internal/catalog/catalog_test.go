package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jokeworks/joker-api/internal/catalog"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/store"
	"github.com/jokeworks/joker-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `{
  "endpoints": [
    {
      "path": "/jokes/random",
      "method": "GET",
      "description": "Serve a random joke",
      "formats": ["JSON", "PLAIN_TEXT", "XML"]
    }
  ],
  "sources": [
    {"name": "primary", "endpoint": "https://primary.test/joke"},
    {"name": "backup", "endpoint": "https://backup.test/joke"},
    {"name": "premium", "endpoint": "https://premium.test/joke", "requires_api_key": true}
  ]
}`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := catalog.Load(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)
	require.Len(t, c.Endpoints, 1)
	assert.Equal(t, "/jokes/random", c.Endpoints[0].Path)
	require.Len(t, c.Sources, 3)
	assert.True(t, c.Sources[2].RequiresAPIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := catalog.Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadRejectsBadCatalog(t *testing.T) {
	cases := map[string]string{
		"no endpoints":     `{"endpoints": [], "sources": []}`,
		"bad method":       `{"endpoints": [{"path": "/x", "method": "PATCH"}]}`,
		"unknown format":   `{"endpoints": [{"path": "/x", "method": "GET", "formats": ["YAML"]}]}`,
		"nameless source":  `{"endpoints": [{"path": "/x", "method": "GET"}], "sources": [{"endpoint": "https://a"}]}`,
		"duplicate source": `{"endpoints": [{"path": "/x", "method": "GET"}], "sources": [{"name": "a", "endpoint": "https://a"}, {"name": "a", "endpoint": "https://b"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Load(writeCatalog(t, body))
			assert.Error(t, err)
		})
	}
}

func TestSeed(t *testing.T) {
	st := store.New(testutil.OpenDB(t))
	ctx := context.Background()

	c, err := catalog.Load(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)
	require.NoError(t, c.Seed(ctx, st))

	ep, err := st.GetEndpoint(ctx, "/jokes/random", models.MethodGet)
	require.NoError(t, err)
	require.Len(t, ep.Formats, 3)
	assert.Equal(t, models.FormatJSON, ep.Formats[0].Format)
	assert.Equal(t, models.FormatPlainText, ep.Formats[1].Format)
	assert.Equal(t, models.FormatXML, ep.Formats[2].Format)

	srcs, err := st.ListSourcesByPriority(ctx)
	require.NoError(t, err)
	require.Len(t, srcs, 3)
	assert.Equal(t, "primary", srcs[0].Name)
	assert.Equal(t, 0, srcs[0].Priority)
	assert.Equal(t, "backup", srcs[1].Name)
	assert.True(t, srcs[2].RequiresAPIKey)
}

func TestSeedIdempotentAndRefreshing(t *testing.T) {
	st := store.New(testutil.OpenDB(t))
	ctx := context.Background()

	c, err := catalog.Load(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)
	require.NoError(t, c.Seed(ctx, st))

	// Operator-set key survives a reseed.
	first, err := st.FirstSource(ctx)
	require.NoError(t, err)
	key := "operator-key"
	require.NoError(t, st.UpdateSourceSettings(ctx, first.ID, &key, nil))

	// Reordered file: backup now leads.
	reordered := `{
  "endpoints": [
    {"path": "/jokes/random", "method": "GET", "formats": ["JSON"]}
  ],
  "sources": [
    {"name": "backup", "endpoint": "https://backup.test/joke"},
    {"name": "primary", "endpoint": "https://primary.test/v2/joke"}
  ]
}`
	c2, err := catalog.Load(writeCatalog(t, reordered))
	require.NoError(t, err)
	require.NoError(t, c2.Seed(ctx, st))

	// No duplicate endpoints; existing bindings untouched.
	ep, err := st.GetEndpoint(ctx, "/jokes/random", models.MethodGet)
	require.NoError(t, err)
	assert.Len(t, ep.Formats, 3)

	srcs, err := st.ListSourcesByPriority(ctx)
	require.NoError(t, err)
	require.Len(t, srcs, 3)
	assert.Equal(t, "backup", srcs[0].Name)
	assert.Equal(t, "primary", srcs[1].Name)
	assert.Equal(t, "https://primary.test/v2/joke", srcs[1].Endpoint)
	assert.True(t, srcs[1].HasAPIKey())
}
