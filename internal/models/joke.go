package models

import (
	"time"

	"github.com/google/uuid"
)

// Joke is a single piece of sourced content. Rows are immutable once
// created; corrections are new rows.
type Joke struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Source    *string   `gorm:"size:255" json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
