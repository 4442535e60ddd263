package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Outcome is the terminal state a pipeline run reached.
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeDenied      Outcome = "denied"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeError       Outcome = "error"
)

// APIRequest is the immutable audit record written exactly once per pipeline
// run. UserID and JokeID are nullable: anonymous callers and failed runs
// produce rows too. Never updated or deleted in the request path.
type APIRequest struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Endpoint  string         `gorm:"size:255;not null;index" json:"endpoint"`
	Method    HTTPMethod     `gorm:"size:8;not null" json:"method"`
	Outcome   Outcome        `gorm:"size:16;not null;index" json:"outcome"`
	Response  *string        `gorm:"type:text" json:"response,omitempty"`
	Format    *FormatType    `gorm:"size:16" json:"format,omitempty"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	JokeID    *uuid.UUID     `gorm:"type:uuid;index" json:"joke_id,omitempty"`
	Extra     datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"extra,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
