// Package format renders a joke into the representation negotiated for an
// endpoint.
package format

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jokeworks/joker-api/internal/models"
)

// ErrRender marks a representation the target format cannot express. The
// pipeline recovers from it by degrading to plain text.
var ErrRender = errors.New("render error")

// PlainSeparator sits between content and source label in plain output.
const PlainSeparator = " -- "

// Rendered is the outcome of formatting one joke.
type Rendered struct {
	Body   string
	Format models.FormatType
	// DegradedFrom is set when the negotiated format failed to render and
	// plain text was substituted.
	DegradedFrom *models.FormatType
}

type jsonJoke struct {
	Content string  `json:"content"`
	Source  *string `json:"source"`
}

type xmlJoke struct {
	XMLName xml.Name `xml:"joke"`
	Content string   `xml:"content"`
	Source  string   `xml:"source,omitempty"`
}

// Negotiate selects the response format: the caller's requested format when
// the endpoint binds it, otherwise the endpoint's first binding by position,
// otherwise plain text. Deterministic for a given endpoint configuration.
func Negotiate(ep *models.APIEndpoint, requested *models.FormatType) models.FormatType {
	if requested != nil {
		for _, b := range ep.Formats {
			if b.Format == *requested {
				return *requested
			}
		}
	}
	if len(ep.Formats) > 0 {
		return ep.Formats[0].Format
	}
	return models.FormatPlainText
}

// Render negotiates and renders. A failure in the selected renderer degrades
// to plain text rather than failing the request; the degradation is reported
// through Rendered.DegradedFrom so the audit record can capture it.
func Render(joke *models.Joke, ep *models.APIEndpoint, requested *models.FormatType) Rendered {
	selected := Negotiate(ep, requested)

	body, err := renderAs(joke, selected)
	if err == nil {
		return Rendered{Body: body, Format: selected}
	}

	degraded := selected
	return Rendered{
		Body:         renderPlain(joke),
		Format:       models.FormatPlainText,
		DegradedFrom: &degraded,
	}
}

// RenderAs renders in one specific format with no degradation, for callers
// that need the failure itself.
func RenderAs(joke *models.Joke, ft models.FormatType) (string, error) {
	return renderAs(joke, ft)
}

func renderAs(joke *models.Joke, ft models.FormatType) (string, error) {
	switch ft {
	case models.FormatJSON:
		b, err := json.Marshal(jsonJoke{Content: joke.Content, Source: joke.Source})
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrRender, err)
		}
		return string(b), nil

	case models.FormatXML:
		if err := checkXMLRepresentable(joke.Content); err != nil {
			return "", err
		}
		doc := xmlJoke{Content: joke.Content}
		if joke.Source != nil {
			doc.Source = *joke.Source
		}
		b, err := xml.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrRender, err)
		}
		return string(b), nil

	case models.FormatPlainText:
		return renderPlain(joke), nil
	}
	return "", fmt.Errorf("%w: unknown format %s", ErrRender, ft)
}

func renderPlain(joke *models.Joke) string {
	if joke.Source != nil && *joke.Source != "" {
		return joke.Content + PlainSeparator + *joke.Source
	}
	return joke.Content
}

// checkXMLRepresentable rejects content XML 1.0 cannot carry: invalid UTF-8
// and control characters other than tab, newline and carriage return.
// encoding/xml would silently drop such characters, which breaks the
// re-parse round trip, so they are treated as a render error instead.
func checkXMLRepresentable(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: invalid UTF-8 in content", ErrRender)
	}
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return fmt.Errorf("%w: control character %q not representable in XML", ErrRender, r)
		}
	}
	return nil
}

// ContentType maps a format to its HTTP media type.
func ContentType(ft models.FormatType) string {
	switch ft {
	case models.FormatJSON:
		return "application/json"
	case models.FormatXML:
		return "application/xml"
	default:
		return "text/plain; charset=utf-8"
	}
}
