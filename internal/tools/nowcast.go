package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kjstillabower/weathertools/internal/attribution"
	"github.com/kjstillabower/weathertools/internal/coverage"
	"github.com/kjstillabower/weathertools/internal/toolerr"
	"github.com/kjstillabower/weathertools/internal/upstream"
	"github.com/kjstillabower/weathertools/internal/upstream/proxyclient"
	"github.com/kjstillabower/weathertools/internal/validation"
)

// NowcastTool implements weather.get_nowcast (§4.9: Nordic fence, 2h window cap).
type NowcastTool struct {
	Proxy *proxyclient.Client
}

func (t *NowcastTool) Name() string { return "weather.get_nowcast" }

func (t *NowcastTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	var in dataToolInput
	if err := decodeInput(raw, &in); err != nil {
		return attribution.BuildErrorResponse(err)
	}
	loc, err := requireLocation(in.Location)
	if err != nil {
		return attribution.BuildErrorResponse(err)
	}
	if err := coverage.RequireFence(loc, coverage.Nordic); err != nil {
		return attribution.BuildErrorResponse(err.(*toolerr.Error))
	}
	lang, verr := validation.ValidateLanguage(in.Language)
	if verr != nil {
		return attribution.BuildErrorResponse(toolerr.Invalid("%v", verr))
	}

	window, werr := coverage.ResolveTimeWindow(in.TimeWindow, time.Now(), "nowcast")
	if werr != nil {
		return attribution.BuildErrorResponse(werr.(*toolerr.Error))
	}

	path := fmt.Sprintf("/nowcast?lat=%.6f&lon=%.6f&from=%s&to=%s",
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
	for i := range points {
		rate := 0.0
		if points[i].PrecipitationMmH != nil {
			rate = *points[i].PrecipitationMmH
		}
		points[i].PrecipitationClass = precipitationClass(rate)
	}

	source := attributionSource(attribution.ProductNowcast, res.Cache)
	structured := map[string]any{
		"points":     points,
		"timeWindow": window,
		"source":     source,
		"language":   lang,
	}
	summary := fmt.Sprintf("Nowcast for the next %d minute-resolution point(s) from %s.", len(points), window.From.Format("15:04 MST"))
	return attribution.BuildToolResponse(structured, summary)
}
