package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jokeworks/joker-api/internal/dto"
	"github.com/jokeworks/joker-api/internal/sources"
	"github.com/jokeworks/joker-api/internal/store"
)

// AdminHandler covers joke database status, source settings and health, and
// the audit listing.
type AdminHandler struct {
	store  *store.Store
	health *sources.HealthTracker
}

func NewAdminHandler(st *store.Store, health *sources.HealthTracker) *AdminHandler {
	return &AdminHandler{store: st, health: health}
}

// JokeStatus reports the joke count and last update time.
func (h *AdminHandler) JokeStatus(c *fiber.Ctx) error {
	total, last, err := h.store.JokeStatus(c.UserContext())
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.JokeStatusResponse{TotalJokes: total, LastUpdate: last})
}

// UpdateSourceSettings patches a provider's API key and/or endpoint URL.
// Without an explicit source id, the highest-priority provider is targeted.
func (h *AdminHandler) UpdateSourceSettings(c *fiber.Ctx) error {
	var req dto.UpdateSourceSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.APIKey == nil && req.ServiceURL == nil {
		return c.JSON(dto.UpdateSourceSettingsResponse{
			Success: false, Message: "Nothing to update.",
		})
	}

	id := req.SourceID
	if id == nil {
		first, err := h.store.FirstSource(c.UserContext())
		if err != nil {
			if errors.Is(err, store.ErrSourceNotFound) {
				return c.JSON(dto.UpdateSourceSettingsResponse{
					Success: false, Message: "No joke source found to update.",
				})
			}
			return internalError(c)
		}
		id = &first.ID
	}

	if err := h.store.UpdateSourceSettings(c.UserContext(), *id, req.APIKey, req.ServiceURL); err != nil {
		if errors.Is(err, store.ErrSourceNotFound) {
			return c.JSON(dto.UpdateSourceSettingsResponse{
				Success: false, Message: "No joke source found to update.",
			})
		}
		return internalError(c)
	}
	return c.JSON(dto.UpdateSourceSettingsResponse{
		Success: true, Message: "Joke service settings updated successfully.",
	})
}

// SourceHealth returns the per-provider counters tracked in Redis.
func (h *AdminHandler) SourceHealth(c *fiber.Ctx) error {
	srcs, err := h.store.ListSourcesByPriority(c.UserContext())
	if err != nil {
		return internalError(c)
	}
	names := make([]string, 0, len(srcs))
	for _, s := range srcs {
		names = append(names, s.Name)
	}
	return c.JSON(dto.SourceHealthResponse{
		Sources: h.health.Snapshot(c.UserContext(), names),
	})
}

// ListRequests pages through the audit trail, newest first.
func (h *AdminHandler) ListRequests(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := h.store.ListAuditRecords(c.UserContext(), limit, offset)
	if err != nil {
		return internalError(c)
	}

	resp := dto.AuditListResponse{
		Requests: make([]dto.AuditRecordResponse, 0, len(records)),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}
	for i := range records {
		resp.Requests = append(resp.Requests, dto.NewAuditRecordResponse(&records[i]))
	}
	return c.JSON(resp)
}
