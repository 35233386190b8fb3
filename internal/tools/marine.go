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
)

// MarineTool implements weather.get_marine (§4.9: Coastal fence, 48h cap).
type MarineTool struct {
	Proxy *proxyclient.Client
}

func (t *MarineTool) Name() string { return "weather.get_marine" }

func (t *MarineTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	var in dataToolInput
	if err := decodeInput(raw, &in); err != nil {
		return attribution.BuildErrorResponse(err)
	}
	loc, err := requireLocation(in.Location)
	if err != nil {
		return attribution.BuildErrorResponse(err)
	}
	if err := coverage.RequireFence(loc, coverage.Coastal); err != nil {
		return attribution.BuildErrorResponse(err.(*toolerr.Error))
	}

	vessel := in.VesselType
	if vessel == "" {
		vessel = "motorboat"
	}
	if _, ok := marineThresholds[vessel]; !ok {
		return attribution.BuildErrorResponse(toolerr.Invalid("unknown vesselType %q", vessel))
	}

	window, werr := coverage.ResolveTimeWindow(in.TimeWindow, time.Now(), "marine")
	if werr != nil {
		return attribution.BuildErrorResponse(werr.(*toolerr.Error))
	}

	points, cache, ferr := t.fetchMarinePoints(ctx, loc, window, vessel)
	if ferr != nil {
		return attribution.BuildErrorResponse(ferr)
	}

	source := attributionSource(attribution.ProductMarine, cache)
	structured := map[string]any{
		"points":     points,
		"timeWindow": window,
		"vesselType": vessel,
		"source":     source,
	}
	summary := fmt.Sprintf("Marine conditions for %s, %d hour(s) starting %s.", vessel, len(points), window.From.Format("Jan 2 15:04 MST"))
	return attribution.BuildToolResponse(structured, summary)
}

// fetchMarinePoints performs the upstream call and classification; split out
// so assess_route_risk's sub-calls (via the registry) and this tool share
// one code path for the actual fetch+classify work.
func (t *MarineTool) fetchMarinePoints(ctx context.Context, loc models.Coordinate, window models.TimeWindow, vessel string) ([]models.MarinePoint, models.CacheMeta, *toolerr.Error) {
	path := fmt.Sprintf("/marine?lat=%.6f&lon=%.6f&from=%s&to=%s",
		loc.Lat, loc.Lon, window.From.Format(time.RFC3339), window.To.Format(time.RFC3339))

	res, ferr := t.Proxy.Fetch(ctx, path, upstream.Options{Coalesce: true})
	if ferr != nil {
		if te, ok := toolerr.AsToolError(ferr); ok {
			return nil, models.CacheMeta{}, te
		}
		return nil, models.CacheMeta{}, toolerr.Wrap(ferr)
	}

	raws, perr := parseMarineResponse(res.Data)
	if perr != nil {
		return nil, models.CacheMeta{}, perr.(*toolerr.Error)
	}

	points := make([]models.MarinePoint, 0, len(raws))
	for _, r := range raws {
		risk := marineRisk(vessel, r.WaveHeightM, r.CurrentSpeedMS)
		points = append(points, models.MarinePoint{
			Time:             r.Time,
			WaveHeightM:      r.WaveHeightM,
			WaveDirectionDeg: r.WaveDirectionDeg,
			WaterTempC:       r.WaterTempC,
			CurrentSpeedMS:   r.CurrentSpeedMS,
			CurrentDirDeg:    r.CurrentDirDeg,
			Risk:             risk,
			Note:             marineNote(risk),
		})
	}
	return points, res.Cache, nil
}

func marineNote(risk models.RiskLevel) string {
	switch risk {
	case models.RiskExtreme:
		return "Conditions exceed safe limits for this vessel type; do not depart."
	case models.RiskHigh:
		return "Conditions are hazardous; only experienced crews should proceed with caution."
	case models.RiskModerate:
		return "Conditions require caution and an experienced crew."
	default:
		return ""
	}
}
