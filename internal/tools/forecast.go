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

// ForecastTool implements weather.get_forecast (§4.9, no fence requirement).
type ForecastTool struct {
	Proxy *proxyclient.Client
}

func (t *ForecastTool) Name() string { return "weather.get_forecast" }

func (t *ForecastTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	var in dataToolInput
	if err := decodeInput(raw, &in); err != nil {
		return attribution.BuildErrorResponse(err)
	}
	loc, err := requireLocation(in.Location)
	if err != nil {
		return attribution.BuildErrorResponse(err)
	}
	if err := coverage.ValidateCoordinates(loc); err != nil {
		return attribution.BuildErrorResponse(err.(*toolerr.Error))
	}
	lang, verr := validation.ValidateLanguage(in.Language)
	if verr != nil {
		return attribution.BuildErrorResponse(toolerr.Invalid("%v", verr))
	}

	window, werr := coverage.ResolveTimeWindow(in.TimeWindow, time.Now(), "forecast")
	if werr != nil {
		return attribution.BuildErrorResponse(werr.(*toolerr.Error))
	}

	path := fmt.Sprintf("/forecast?lat=%.6f&lon=%.6f&from=%s&to=%s",
		loc.Lat, loc.Lon, window.From.Format(time.RFC3339), window.To.Format(time.RFC3339))

	res, ferr := t.Proxy.Fetch(ctx, path, upstream.Options{Coalesce: true})
	if ferr != nil {
		if te, ok := toolerr.AsToolError(ferr); ok {
			return attribution.BuildErrorResponse(te)
		}
		return attribution.BuildErrorResponse(toolerr.Wrap(ferr))
	}

	points, perr := parseMetTimeseries(res.Data)
	if perr != nil {
		return attribution.BuildErrorResponse(perr.(*toolerr.Error))
	}
	points = decimate(points, in.Resolution)

	source := attributionSource(attribution.ProductForecast, res.Cache)
	structured := map[string]any{
		"points":     points,
		"timeWindow": window,
		"source":     source,
		"language":   lang,
	}
	summary := fmt.Sprintf("Forecast for %d hour(s) starting %s.", len(points), window.From.Format("Jan 2 15:04 MST"))
	return attribution.BuildToolResponse(structured, summary)
}

func attributionSource(product attribution.Product, cache models.CacheMeta) models.SourceMeta {
	return attribution.SourceMetadata(product, cache)
}
