package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jokeworks/joker-api/internal/dto"
	"github.com/jokeworks/joker-api/internal/format"
	"github.com/jokeworks/joker-api/internal/middleware"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/pipeline"
)

// JokeHandler is the inbound adapter for the serve-a-joke operation. The
// same handler backs every catalog-configured joke endpoint; the pipeline
// resolves the endpoint from the request path and method.
type JokeHandler struct {
	pipeline *pipeline.Pipeline
}

func NewJokeHandler(p *pipeline.Pipeline) *JokeHandler {
	return &JokeHandler{pipeline: p}
}

func (h *JokeHandler) Serve(c *fiber.Ctx) error {
	req := pipeline.Request{
		Path:            c.Route().Path,
		Method:          models.HTTPMethod(c.Method()),
		UserID:          middleware.UserID(c),
		RequestedFormat: requestedFormat(c),
	}

	result, err := h.pipeline.Serve(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, pipeline.ErrEndpointNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Unknown endpoint",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Service error",
		})
	}

	switch result.Outcome {
	case models.OutcomeCompleted:
		c.Set(fiber.HeaderContentType, format.ContentType(result.Format))
		return c.Status(fiber.StatusOK).SendString(result.Body)
	case models.OutcomeDenied:
		status := fiber.StatusForbidden
		if result.AuthenticationAbsent {
			status = fiber.StatusUnauthorized
		}
		return c.Status(status).JSON(dto.ErrorResponse{
			Error: true, Message: "Access denied: " + result.Reason,
		})
	case models.OutcomeUnavailable:
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: "No joke source available",
		})
	case models.OutcomeTimeout:
		return c.Status(fiber.StatusGatewayTimeout).JSON(dto.ErrorResponse{
			Error: true, Message: "Request timed out",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Service error",
	})
}

// requestedFormat reads the caller's format preference from ?format=, then
// from the Accept header. Unrecognized values mean "no preference" so the
// endpoint's own binding order decides.
func requestedFormat(c *fiber.Ctx) *models.FormatType {
	if q := c.Query("format"); q != "" {
		if ft, ok := models.ParseFormatType(q); ok {
			return &ft
		}
	}
	if accept := c.Get(fiber.HeaderAccept); accept != "" {
		if ft, ok := models.ParseFormatType(accept); ok {
			return &ft
		}
	}
	return nil
}
