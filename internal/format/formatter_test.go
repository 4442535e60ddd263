package format_test

import (
	"encoding/xml"
	"testing"

	"github.com/jokeworks/joker-api/internal/format"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func fmtptr(ft models.FormatType) *models.FormatType { return &ft }

func boundEndpoint(formats ...models.FormatType) *models.APIEndpoint {
	ep := &models.APIEndpoint{Path: "/jokes/random", Method: models.MethodGet}
	for i, f := range formats {
		ep.Formats = append(ep.Formats, models.ResponseFormat{Format: f, Position: i})
	}
	return ep
}

func TestNegotiateRequestedAndBound(t *testing.T) {
	ep := boundEndpoint(models.FormatJSON, models.FormatXML)

	assert.Equal(t, models.FormatXML, format.Negotiate(ep, fmtptr(models.FormatXML)))
}

func TestNegotiateRequestedUnbound(t *testing.T) {
	ep := boundEndpoint(models.FormatJSON, models.FormatXML)

	// An unbound request falls back to the endpoint's first binding.
	assert.Equal(t, models.FormatJSON, format.Negotiate(ep, fmtptr(models.FormatPlainText)))
}

func TestNegotiateNoRequestUsesFirstBinding(t *testing.T) {
	ep := boundEndpoint(models.FormatXML, models.FormatJSON)

	assert.Equal(t, models.FormatXML, format.Negotiate(ep, nil))
}

func TestNegotiateNoBindingsDefaultsToPlain(t *testing.T) {
	ep := boundEndpoint()

	assert.Equal(t, models.FormatPlainText, format.Negotiate(ep, nil))
	assert.Equal(t, models.FormatPlainText, format.Negotiate(ep, fmtptr(models.FormatJSON)))
}

func TestRenderJSON(t *testing.T) {
	joke := &models.Joke{Content: "Why did the chicken cross the road?", Source: strptr("S2")}
	ep := boundEndpoint(models.FormatJSON)

	r := format.Render(joke, ep, fmtptr(models.FormatJSON))
	assert.Equal(t, models.FormatJSON, r.Format)
	assert.Nil(t, r.DegradedFrom)
	assert.JSONEq(t, `{"content":"Why did the chicken cross the road?","source":"S2"}`, r.Body)
}

func TestRenderJSONNullSource(t *testing.T) {
	joke := &models.Joke{Content: "orphan joke"}

	body, err := format.RenderAs(joke, models.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"orphan joke","source":null}`, body)
}

func TestRenderPlainText(t *testing.T) {
	joke := &models.Joke{Content: "setup... punchline", Source: strptr("catalog")}

	body, err := format.RenderAs(joke, models.FormatPlainText)
	require.NoError(t, err)
	assert.Equal(t, "setup... punchline -- catalog", body)

	joke.Source = nil
	body, err = format.RenderAs(joke, models.FormatPlainText)
	require.NoError(t, err)
	assert.Equal(t, "setup... punchline", body)
}

func TestRenderXMLEscapesAndRoundTrips(t *testing.T) {
	joke := &models.Joke{Content: `1 < 2 && "quotes"`, Source: strptr("escape-test")}

	body, err := format.RenderAs(joke, models.FormatXML)
	require.NoError(t, err)
	assert.Contains(t, body, "&lt;")
	assert.Contains(t, body, "&amp;")

	var parsed struct {
		XMLName xml.Name `xml:"joke"`
		Content string   `xml:"content"`
		Source  string   `xml:"source"`
	}
	require.NoError(t, xml.Unmarshal([]byte(body), &parsed))
	assert.Equal(t, joke.Content, parsed.Content)
	assert.Equal(t, "escape-test", parsed.Source)
}

func TestRenderIdempotent(t *testing.T) {
	joke := &models.Joke{Content: "same in, same out", Source: strptr("s")}
	ep := boundEndpoint(models.FormatJSON, models.FormatXML, models.FormatPlainText)

	for _, ft := range []models.FormatType{models.FormatJSON, models.FormatXML, models.FormatPlainText} {
		first := format.Render(joke, ep, fmtptr(ft))
		second := format.Render(joke, ep, fmtptr(ft))
		assert.Equal(t, first.Body, second.Body)
		assert.Equal(t, first.Format, second.Format)
	}
}

func TestRenderXMLControlCharDegradesToPlain(t *testing.T) {
	joke := &models.Joke{Content: "beep \x07 boop", Source: strptr("noisy")}
	ep := boundEndpoint(models.FormatXML)

	r := format.Render(joke, ep, fmtptr(models.FormatXML))
	assert.Equal(t, models.FormatPlainText, r.Format)
	require.NotNil(t, r.DegradedFrom)
	assert.Equal(t, models.FormatXML, *r.DegradedFrom)
	assert.Equal(t, "beep \x07 boop -- noisy", r.Body)
}

func TestRenderAsXMLInvalidUTF8(t *testing.T) {
	joke := &models.Joke{Content: "bad \xff byte"}

	_, err := format.RenderAs(joke, models.FormatXML)
	assert.ErrorIs(t, err, format.ErrRender)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", format.ContentType(models.FormatJSON))
	assert.Equal(t, "application/xml", format.ContentType(models.FormatXML))
	assert.Equal(t, "text/plain; charset=utf-8", format.ContentType(models.FormatPlainText))
}
