package models

import (
	"time"

	"github.com/google/uuid"
)

// JokeSource is one external provider. Priority is an explicit persisted
// ordering key; the aggregator never relies on table order.
type JokeSource struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Endpoint       string    `gorm:"size:500;not null" json:"endpoint"`
	APIKey         *string   `gorm:"size:255" json:"-"`
	RequiresAPIKey bool      `gorm:"not null;default:false" json:"requires_api_key"`
	Priority       int       `gorm:"not null;index" json:"priority"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasAPIKey is what admin views report instead of the key itself.
func (s *JokeSource) HasAPIKey() bool {
	return s.APIKey != nil && *s.APIKey != ""
}

// SourceFailure is the durable per-source failure log appended by the
// aggregator. One row per failed attempt.
type SourceFailure struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SourceID  uuid.UUID `gorm:"type:uuid;not null;index" json:"source_id"`
	Reason    string    `gorm:"size:500;not null" json:"reason"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
