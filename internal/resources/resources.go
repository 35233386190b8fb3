// Package resources implements the static catalogs and prompt templates of
// C13: a license document, a product catalog, a units document, example
// payloads by language tag, a gazetteer license, and a gazetteer info
// document whose record count/build date come from the live store. Grounded
// on the pack's MCP resource registry shape (BaSui01-agentflow
// agent/protocol/mcp/server.go's URI-keyed Resource map), simplified to the
// read-only, non-subscribable set this server actually needs.
package resources

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kjstillabower/weathertools/internal/gazetteer"
)

// Resource is one static or computed document served by URI.
type Resource struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Text     string `json:"text"`
}

// gazetteerInfo is the subset of *gazetteer.Store the catalog depends on,
// narrowed to an interface so tests can supply a fake record count.
type gazetteerInfo interface {
	Stat() (count int, err error)
}

// Catalog serves the fixed resource set plus the one dynamic entry
// (gazetteer info) that reflects the currently-open store.
type Catalog struct {
	gazetteer gazetteerInfo
	buildDate string

	mu     sync.Mutex
	static map[string]Resource
	order  []string
}

// NewCatalog builds the static catalog. gz may be nil: the gazetteer-info
// resource then reports zero records, matching "the transport is
// responsible for continuing without the resolver tool" when the gazetteer
// file is absent (§4.11).
func NewCatalog(gz gazetteerInfo, buildDate string) *Catalog {
	c := &Catalog{gazetteer: gz, buildDate: buildDate, static: make(map[string]Resource)}
	for _, r := range staticResources() {
		c.register(r)
	}
	for _, lang := range []string{"en", "no"} {
		c.register(exampleResource(lang))
	}
	return c
}

func (c *Catalog) register(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.static[r.URI]; !exists {
		c.order = append(c.order, r.URI)
	}
	c.static[r.URI] = r
}

// List returns every resource in registration order, computing the dynamic
// gazetteer-info entry fresh each call.
func (c *Catalog) List(ctx context.Context) []Resource {
	c.mu.Lock()
	order := append([]string(nil), c.order...)
	static := make(map[string]Resource, len(c.static))
	for k, v := range c.static {
		static[k] = v
	}
	c.mu.Unlock()

	out := make([]Resource, 0, len(order)+1)
	for _, uri := range order {
		out = append(out, static[uri])
	}
	out = append(out, c.gazetteerInfoResource())
	return out
}

// Get returns the resource for uri, computing the gazetteer-info document
// live. Returns false when uri is unknown.
func (c *Catalog) Get(ctx context.Context, uri string) (Resource, bool) {
	if uri == gazetteerInfoURI {
		return c.gazetteerInfoResource(), true
	}
	c.mu.Lock()
	r, ok := c.static[uri]
	c.mu.Unlock()
	return r, ok
}

const gazetteerInfoURI = "weather://gazetteer/info"

func (c *Catalog) gazetteerInfoResource() Resource {
	count := 0
	if c.gazetteer != nil {
		if n, err := c.gazetteer.Stat(); err == nil {
			count = n
		}
	}
	return Resource{
		URI:      gazetteerInfoURI,
		Name:     "Gazetteer info",
		MIMEType: "application/json",
		Text: fmt.Sprintf(`{"recordCount":%d,"buildDate":%q}`, count,
			firstNonEmpty(c.buildDate, "unknown")),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func staticResources() []Resource {
	return []Resource{
		{
			URI:      "weather://license",
			Name:     "Data license",
			MIMEType: "text/plain",
			Text:     "Weather data is provided under the Creative Commons Attribution 4.0 International license (CC BY 4.0). See https://creativecommons.org/licenses/by/4.0/.",
		},
		{
			URI:      "weather://products",
			Name:     "Product catalog",
			MIMEType: "application/json",
			Text:     productCatalogJSON(),
		},
		{
			URI:      "weather://units",
			Name:     "Units reference",
			MIMEType: "application/json",
			Text:     `{"airTemperatureC":"degrees Celsius","windSpeedMs":"metres per second","windDirectionDeg":"degrees from north","precipitationMmH":"millimetres per hour","humidityPct":"percent","cloudCoverPct":"percent","waveHeightM":"metres","currentSpeedMs":"metres per second","aqi":"sub-index, dimensionless"}`,
		},
		{
			URI:      "weather://gazetteer/license",
			Name:     "Gazetteer license",
			MIMEType: "text/plain",
			Text:     "The gazetteer place-name index is distributed under the Norwegian Licence for Open Government Data (NLOD) 2.0.",
		},
	}
}

func productCatalogJSON() string {
	type product struct {
		Tool    string `json:"tool"`
		Product string `json:"product"`
	}
	products := []product{
		{"weather.get_forecast", "Locationforecast 2.0"},
		{"weather.get_nowcast", "Nowcast 2.0"},
		{"weather.get_air_quality", "Air Quality Forecast"},
		{"weather.get_marine", "Ocean Forecast"},
		{"weather.get_recent_observations", "Frost Observations"},
		{"weather.assess_activity_window", "Composite: forecast + activity profile"},
		{"weather.assess_route_risk", "Composite: marine + vessel thresholds"},
		{"places.resolve_name", "Local gazetteer resolver"},
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Tool < products[j].Tool })
	out := "["
	for i, p := range products {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"tool":%q,"product":%q}`, p.Tool, p.Product)
	}
	return out + "]"
}

func exampleResource(lang string) Resource {
	var text string
	switch lang {
	case "no":
		text = `{"summary":"24 timer med vær i Oslo: mildt og lite vind.","language":"no"}`
	default:
		text = `{"summary":"24 hours of weather in Oslo: mild and light wind.","language":"en"}`
	}
	return Resource{
		URI:      fmt.Sprintf("weather://examples/%s", lang),
		Name:     fmt.Sprintf("Example payload (%s)", lang),
		MIMEType: "application/json",
		Text:     text,
	}
}

// BuildDateNow formats now as the gazetteer-info fallback build date when
// the ETL-produced file carries none of its own.
func BuildDateNow(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}
