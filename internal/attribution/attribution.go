// Package attribution builds the §4.4 source metadata and the dual-shape
// tool response envelope (one text block plus a machine-readable structured
// map), carried with every tool result.
package attribution

import (
	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/toolerr"
)

// Product identifies which upstream product a call targeted; provider,
// license and credit line are looked up from this closed set of constants.
type Product string

const (
	ProductForecast        Product = "forecast"
	ProductNowcast         Product = "nowcast"
	ProductAirQuality      Product = "air_quality"
	ProductMarine          Product = "marine"
	ProductRecentObserved  Product = "recent_observations"
)

const (
	providerName = "Norwegian Meteorological Institute"
	licenseURI   = "https://creativecommons.org/licenses/by/4.0/"
	creditLine   = "Weather data from MET Norway"
)

var productLabel = map[Product]string{
	ProductForecast:       "Locationforecast 2.0",
	ProductNowcast:        "Nowcast 2.0",
	ProductAirQuality:     "Air Quality Forecast",
	ProductMarine:         "Ocean Forecast",
	ProductRecentObserved: "Frost Observations",
}

// SourceMetadata builds the §3 source metadata for a successful data-tool
// result. Calling it twice with the same (product, cache) yields
// structurally equal metadata (§8 round-trip property).
func SourceMetadata(product Product, cache models.CacheMeta) models.SourceMeta {
	return models.SourceMeta{
		Provider:   providerName,
		Product:    productLabel[product],
		LicenseURI: licenseURI,
		CreditLine: creditLine,
		Cached:     cache.Cached,
		AgeSeconds: cache.AgeSeconds,
	}
}

// Envelope is the dual-shape tool response: one text block plus a
// machine-readable structured payload, matching the wire shape the
// transport layer serialises.
type Envelope struct {
	Content    []ContentBlock `json:"content"`
	Structured map[string]any `json:"structured"`
	IsError    bool           `json:"isError,omitempty"`
}

// ContentBlock is a single element of the content array; only "text" blocks
// are produced by this server.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// BuildToolResponse returns the dual-shape envelope for a successful call.
// structured must already contain a "source" field for data tools; the
// resolver and composite tools supply their own domain-appropriate variant
// (e.g. "matches", "verdict") instead.
func BuildToolResponse(structured map[string]any, text string) Envelope {
	if text == "" {
		text = "(no summary)"
	}
	return Envelope{
		Content:    []ContentBlock{{Type: "text", Text: text}},
		Structured: structured,
	}
}

// BuildErrorResponse returns the error envelope: text summary is the error
// message optionally suffixed with a retry-after note; structured carries
// {"error": record}; attribution/source metadata is never included.
func BuildErrorResponse(err *toolerr.Error) Envelope {
	return Envelope{
		Content: []ContentBlock{{Type: "text", Text: toolerr.SummaryText(err.Record)}},
		Structured: map[string]any{
			"error": err.Record,
		},
		IsError: true,
	}
}
