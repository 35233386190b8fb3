// Package coverage implements the rectangular geo-fences and time-window
// resolution described in §4.3. Fence membership is a pure inclusive test;
// window resolution turns a preset or absolute input into a concrete
// [from, to] interval in UTC.
package coverage

import (
	"fmt"
	"time"

	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/toolerr"
)

// Fence is a union of rectangular lat/lon bounds.
type Fence struct {
	Name string
	Rects []Rect
}

// Rect is one inclusive lat/lon rectangle.
type Rect struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (r Rect) contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// Contains reports whether (lat, lon) falls within any rectangle of the fence.
func (f Fence) Contains(lat, lon float64) bool {
	for _, r := range f.Rects {
		if r.contains(lat, lon) {
			return true
		}
	}
	return false
}

// Nordic, Domestic and Coastal are the three product fences from §4.3.
var (
	Nordic = Fence{
		Name:  "Nordic",
		Rects: []Rect{{MinLat: 55, MaxLat: 72, MinLon: 4, MaxLon: 32}},
	}
	Domestic = Fence{
		Name:  "Domestic",
		Rects: []Rect{{MinLat: 58, MaxLat: 71, MinLon: 4, MaxLon: 31}},
	}
	Coastal = Fence{
		Name: "Coastal",
		Rects: []Rect{
			{MinLat: 59, MaxLat: 60.5, MinLon: 10, MaxLon: 11.5},
			{MinLat: 58, MaxLat: 63, MinLon: 4.5, MaxLon: 8},
		},
	}
)

// ValidateCoordinates rejects out-of-range lat/lon with INVALID_INPUT.
func ValidateCoordinates(c models.Coordinate) error {
	if c.Lat < -90 || c.Lat > 90 {
		return toolerr.Invalid("latitude %.6f out of range [-90,90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return toolerr.Invalid("longitude %.6f out of range [-180,180]", c.Lon)
	}
	if c.Altitude != nil && (*c.Altitude < -500 || *c.Altitude > 9000) {
		return toolerr.Invalid("altitude %.1f out of range [-500,9000]", *c.Altitude)
	}
	return nil
}

// RequireFence validates coordinates and then checks membership in fence,
// returning OUT_OF_COVERAGE naming the fence's bounds when outside.
func RequireFence(c models.Coordinate, fence Fence) error {
	if err := ValidateCoordinates(c); err != nil {
		return err
	}
	if !fence.Contains(c.Lat, c.Lon) {
		loc := c
		return toolerr.OutOfCoverage(fmt.Sprintf("location (%.4f, %.4f) is outside %s coverage", c.Lat, c.Lon, fence.Name), &loc)
	}
	return nil
}

// productCap is the maximum window duration per product per §3.
var productCap = map[string]time.Duration{
	"nowcast":             2 * time.Hour,
	"marine":              48 * time.Hour,
	"recent_observations": 7 * 24 * time.Hour,
}

// ResolveTimeWindow resolves tw against now into an absolute UTC interval.
// With no input, defaults to [now, now+48h]. product, if non-empty, enforces
// the product-specific duration cap from §3.
func ResolveTimeWindow(tw *models.TimeWindowInput, now time.Time, product string) (models.TimeWindow, error) {
	now = now.UTC()
	var out models.TimeWindow

	switch {
	case tw == nil:
		out = models.TimeWindow{From: now, To: now.Add(48 * time.Hour)}
	case tw.Preset != "":
		d, ok := presetDuration(tw.Preset)
		if !ok {
			return models.TimeWindow{}, toolerr.Invalid("unknown time window preset %q", tw.Preset)
		}
		out = models.TimeWindow{From: now, To: now.Add(d)}
	case tw.From != nil && tw.To != nil:
		from, to := tw.From.UTC(), tw.To.UTC()
		if !from.Before(to) {
			return models.TimeWindow{}, toolerr.Invalid("time window 'from' must be before 'to'")
		}
		out = models.TimeWindow{From: from, To: to}
	default:
		out = models.TimeWindow{From: now, To: now.Add(48 * time.Hour)}
	}

	if cap, ok := productCap[product]; ok {
		if out.To.Sub(out.From) > cap {
			return models.TimeWindow{}, toolerr.Invalid("%s time window exceeds maximum duration of %s", product, cap)
		}
	}
	if !out.From.Before(out.To) && !out.From.Equal(out.To) {
		return models.TimeWindow{}, toolerr.Invalid("time window 'from' must not be after 'to'")
	}
	return out, nil
}

func presetDuration(p models.Preset) (time.Duration, bool) {
	switch p {
	case models.PresetNext24h:
		return 24 * time.Hour, true
	case models.PresetNext48h:
		return 48 * time.Hour, true
	case models.PresetNext7d:
		return 7 * 24 * time.Hour, true
	case models.PresetFullAvailable:
		return 240 * time.Hour, true
	}
	return 0, false
}
