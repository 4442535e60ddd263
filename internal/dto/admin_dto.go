package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/sources"
)

type JokeStatusResponse struct {
	TotalJokes int64      `json:"total_jokes"`
	LastUpdate *time.Time `json:"last_update,omitempty"`
}

type UpdateSourceSettingsRequest struct {
	// SourceID is optional; when absent the highest-priority source is
	// targeted.
	SourceID   *uuid.UUID `json:"source_id,omitempty"`
	APIKey     *string    `json:"api_key,omitempty"`
	ServiceURL *string    `json:"service_url,omitempty"`
}

type UpdateSourceSettingsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SourceHealthResponse struct {
	Sources []sources.SourceHealth `json:"sources"`
}

type AuditRecordResponse struct {
	ID        uuid.UUID          `json:"id"`
	Endpoint  string             `json:"endpoint"`
	Method    models.HTTPMethod  `json:"method"`
	Outcome   models.Outcome     `json:"outcome"`
	Response  *string            `json:"response,omitempty"`
	Format    *models.FormatType `json:"format,omitempty"`
	UserID    *uuid.UUID         `json:"user_id,omitempty"`
	JokeID    *uuid.UUID         `json:"joke_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

func NewAuditRecordResponse(r *models.APIRequest) AuditRecordResponse {
	return AuditRecordResponse{
		ID:        r.ID,
		Endpoint:  r.Endpoint,
		Method:    r.Method,
		Outcome:   r.Outcome,
		Response:  r.Response,
		Format:    r.Format,
		UserID:    r.UserID,
		JokeID:    r.JokeID,
		CreatedAt: r.CreatedAt,
	}
}

type AuditListResponse struct {
	Requests []AuditRecordResponse `json:"requests"`
	Total    int64                 `json:"total"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
