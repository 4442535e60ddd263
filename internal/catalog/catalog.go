// Package catalog loads the operator-managed configuration file that fixes
// the served endpoints, their legal response formats, and the ordered
// provider list. The file is read once at boot and seeded into the store;
// changes take effect on restart, never mid-request.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/store"
)

type EndpointConfig struct {
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Description string   `json:"description"`
	Formats     []string `json:"formats"`
}

type SourceConfig struct {
	Name           string `json:"name"`
	Endpoint       string `json:"endpoint"`
	APIKey         string `json:"api_key,omitempty"`
	RequiresAPIKey bool   `json:"requires_api_key,omitempty"`
}

type Catalog struct {
	Endpoints []EndpointConfig `json:"endpoints"`
	// Sources are in priority order: first entry is tried first.
	Sources []SourceConfig `json:"sources"`
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	if len(c.Endpoints) == 0 {
		return errors.New("catalog defines no endpoints")
	}
	for _, ep := range c.Endpoints {
		if ep.Path == "" {
			return errors.New("catalog endpoint with empty path")
		}
		if !models.HTTPMethod(ep.Method).Valid() {
			return fmt.Errorf("endpoint %s: invalid method %q", ep.Path, ep.Method)
		}
		for _, f := range ep.Formats {
			if _, ok := models.ParseFormatType(f); !ok {
				return fmt.Errorf("endpoint %s: unknown format %q", ep.Path, f)
			}
		}
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.Name == "" || src.Endpoint == "" {
			return errors.New("catalog source needs name and endpoint")
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
	}
	return nil
}

// Seed writes the catalog into the store. Existing endpoints are left
// untouched; existing sources get their priority, endpoint URL and key flag
// refreshed so the file stays authoritative across restarts.
func (c *Catalog) Seed(ctx context.Context, st *store.Store) error {
	for _, ep := range c.Endpoints {
		method := models.HTTPMethod(ep.Method)
		if _, err := st.GetEndpoint(ctx, ep.Path, method); err == nil {
			continue
		} else if !errors.Is(err, store.ErrEndpointNotFound) {
			return err
		}

		formats := make([]models.FormatType, 0, len(ep.Formats))
		for _, f := range ep.Formats {
			ft, _ := models.ParseFormatType(f)
			formats = append(formats, ft)
		}
		if _, err := st.CreateEndpoint(ctx, ep.Path, method, ep.Description, formats); err != nil {
			return fmt.Errorf("seed endpoint %s: %w", ep.Path, err)
		}
	}

	existing, err := st.ListSourcesByPriority(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]models.JokeSource, len(existing))
	for _, src := range existing {
		byName[src.Name] = src
	}

	for i, src := range c.Sources {
		if prev, ok := byName[src.Name]; ok {
			if err := st.DB().WithContext(ctx).Model(&models.JokeSource{}).
				Where("id = ?", prev.ID).
				Updates(map[string]interface{}{
					"endpoint":         src.Endpoint,
					"priority":         i,
					"requires_api_key": src.RequiresAPIKey,
				}).Error; err != nil {
				return fmt.Errorf("seed source %s: %w", src.Name, err)
			}
			continue
		}

		row := models.JokeSource{
			Name:           src.Name,
			Endpoint:       src.Endpoint,
			RequiresAPIKey: src.RequiresAPIKey,
			Priority:       i,
		}
		if src.APIKey != "" {
			key := src.APIKey
			row.APIKey = &key
		}
		if err := st.CreateSource(ctx, &row); err != nil {
			return fmt.Errorf("seed source %s: %w", src.Name, err)
		}
	}
	return nil
}
