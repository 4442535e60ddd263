package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// HTTPMethod is the closed set of methods the catalog may bind.
type HTTPMethod string

const (
	MethodGet  HTTPMethod = "GET"
	MethodPost HTTPMethod = "POST"
	MethodPut  HTTPMethod = "PUT"
)

func (m HTTPMethod) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut:
		return true
	}
	return false
}

// FormatType selects a response renderer.
type FormatType string

const (
	FormatJSON      FormatType = "JSON"
	FormatXML       FormatType = "XML"
	FormatPlainText FormatType = "PLAIN_TEXT"
)

func (f FormatType) Valid() bool {
	switch f {
	case FormatJSON, FormatXML, FormatPlainText:
		return true
	}
	return false
}

// ParseFormatType maps either an enum literal or a media type to a
// FormatType. ok is false for anything unrecognized.
func ParseFormatType(s string) (FormatType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "JSON", "APPLICATION/JSON":
		return FormatJSON, true
	case "XML", "APPLICATION/XML", "TEXT/XML":
		return FormatXML, true
	case "PLAIN_TEXT", "TEXT", "TEXT/PLAIN":
		return FormatPlainText, true
	}
	return "", false
}

// APIEndpoint is one configured (path, method) pair the service exposes.
// Catalog data, not mutated by the request pipeline.
type APIEndpoint struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Path        string           `gorm:"size:255;not null;uniqueIndex:idx_endpoints_path_method" json:"path"`
	Method      HTTPMethod       `gorm:"size:8;not null;uniqueIndex:idx_endpoints_path_method" json:"method"`
	Description string           `gorm:"size:500" json:"description"`
	Formats     []ResponseFormat `gorm:"foreignKey:EndpointID;constraint:OnDelete:CASCADE" json:"formats"`
	CreatedAt   time.Time        `json:"created_at"`
}

// AdminOnly reports whether the endpoint lives under the administrative
// namespace.
func (e *APIEndpoint) AdminOnly() bool {
	return strings.HasPrefix(e.Path, "/admin/") || e.Path == "/admin"
}

// ResponseFormat binds one legal renderer to an endpoint. Position fixes the
// negotiation fallback order; iteration order of rows is not a contract.
type ResponseFormat struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EndpointID uuid.UUID  `gorm:"type:uuid;not null;index" json:"endpoint_id"`
	Format     FormatType `gorm:"size:16;not null" json:"format"`
	Position   int        `gorm:"not null;default:0" json:"position"`
}
