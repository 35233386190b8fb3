package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kjstillabower/weathertools/internal/attribution"
	"github.com/kjstillabower/weathertools/internal/coverage"
	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/toolerr"
	"github.com/kjstillabower/weathertools/internal/upstream"
	"github.com/kjstillabower/weathertools/internal/upstream/proxyclient"
	"github.com/kjstillabower/weathertools/internal/validation"
)

// AirQualityTool implements weather.get_air_quality (§4.9: Domestic fence).
type AirQualityTool struct {
	Proxy *proxyclient.Client
}

func (t *AirQualityTool) Name() string { return "weather.get_air_quality" }

func (t *AirQualityTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	var in dataToolInput
	if err := decodeInput(raw, &in); err != nil {
		return attribution.BuildErrorResponse(err)
	}
	loc, err := requireLocation(in.Location)
	if err != nil {
		return attribution.BuildErrorResponse(err)
	}
	if err := coverage.RequireFence(loc, coverage.Domestic); err != nil {
		return attribution.BuildErrorResponse(err.(*toolerr.Error))
	}
	lang, verr := validation.ValidateLanguage(in.Language)
	if verr != nil {
		return attribution.BuildErrorResponse(toolerr.Invalid("%v", verr))
	}

	window, werr := coverage.ResolveTimeWindow(in.TimeWindow, time.Now(), "air_quality")
	if werr != nil {
		return attribution.BuildErrorResponse(werr.(*toolerr.Error))
	}

	path := fmt.Sprintf("/air-quality?lat=%.6f&lon=%.6f&from=%s&to=%s",
		loc.Lat, loc.Lon, window.From.Format(time.RFC3339), window.To.Format(time.RFC3339))

	res, ferr := t.Proxy.Fetch(ctx, path, upstream.Options{Coalesce: true})
	if ferr != nil {
		if te, ok := toolerr.AsToolError(ferr); ok {
			return attribution.BuildErrorResponse(te)
		}
		return attribution.BuildErrorResponse(toolerr.Wrap(ferr))
	}

	raws, perr := parseAirQualityResponse(res.Data)
	if perr != nil {
		return attribution.BuildErrorResponse(perr.(*toolerr.Error))
	}

	points := make([]models.AirQualityPoint, 0, len(raws))
	for _, r := range raws {
		name, max := dominantPollutant(r.SubIndices)
		points = append(points, models.AirQualityPoint{
			Time:              r.Time,
			Category:          aqiCategory(max),
			AQI:                max,
			DominantPollutant: name,
			PollutantConcUgM3: r.ConcUgM3,
			Advice:            aqiAdvice[aqiCategory(max)],
		})
	}
	points = decimate3h(points, in.Resolution)

	source := attributionSource(attribution.ProductAirQuality, res.Cache)
	structured := map[string]any{
		"points":     points,
		"timeWindow": window,
		"source":     source,
		"language":   lang,
	}
	summary := fmt.Sprintf("Air quality forecast for %d hour(s) starting %s.", len(points), window.From.Format("Jan 2 15:04 MST"))
	return attribution.BuildToolResponse(structured, summary)
}

// decimate3h is the air-quality analogue of decimate: same "3hourly" keep
// rule, specialised to AirQualityPoint since Go generics are not used
// elsewhere in this codebase's point-decimation helpers.
func decimate3h(points []models.AirQualityPoint, resolution string) []models.AirQualityPoint {
	if resolution != "3hourly" {
		return points
	}
	out := make([]models.AirQualityPoint, 0, (len(points)+2)/3)
	for i, p := range points {
		if i%3 == 0 {
			out = append(out, p)
		}
	}
	return out
}
