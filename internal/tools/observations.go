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
	"github.com/kjstillabower/weathertools/internal/upstream/stationsclient"
)

const stationSearchRadiusKm = 50

// ObservationsTool implements weather.get_recent_observations (§4.9: 7-day
// cap, station-mode single call vs. coordinate-mode two-call flow).
type ObservationsTool struct {
	Stations *stationsclient.Client
}

func (t *ObservationsTool) Name() string { return "weather.get_recent_observations" }

func (t *ObservationsTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	var in dataToolInput
	if err := decodeInput(raw, &in); err != nil {
		return attribution.BuildErrorResponse(err)
	}
	if in.StationID == "" && in.Location == nil {
		return attribution.BuildErrorResponse(toolerr.Invalid("either stationId or location is required"))
	}

	window, werr := coverage.ResolveTimeWindow(in.TimeWindow, time.Now(), "recent_observations")
	if werr != nil {
		return attribution.BuildErrorResponse(werr.(*toolerr.Error))
	}

	stationID := in.StationID
	if stationID == "" {
		loc, err := requireLocation(in.Location)
		if err != nil {
			return attribution.BuildErrorResponse(err)
		}
		if err := coverage.ValidateCoordinates(loc); err != nil {
			return attribution.BuildErrorResponse(err.(*toolerr.Error))
		}
		id, serr := t.nearestStation(ctx, loc)
		if serr != nil {
			return attribution.BuildErrorResponse(serr)
		}
		stationID = id
	}

	path := fmt.Sprintf("/observations?stationId=%s&from=%s&to=%s",
		stationID, window.From.Format(time.RFC3339), window.To.Format(time.RFC3339))
	res, ferr := t.Stations.Fetch(ctx, path, upstream.Options{})
	if ferr != nil {
		if te, ok := toolerr.AsToolError(ferr); ok {
			return attribution.BuildErrorResponse(te)
		}
		return attribution.BuildErrorResponse(toolerr.Wrap(ferr))
	}

	points, perr := parseObservationsResponse(res.Data)
	if perr != nil {
		return attribution.BuildErrorResponse(perr.(*toolerr.Error))
	}

	source := attributionSource(attribution.ProductRecentObserved, res.Cache)
	structured := map[string]any{
		"points":     points,
		"timeWindow": window,
		"stationId":  stationID,
		"source":     source,
	}
	summary := fmt.Sprintf("Recent observations from station %s: %d record(s) starting %s.", stationID, len(points), window.From.Format("Jan 2 15:04 MST"))
	return attribution.BuildToolResponse(structured, summary)
}

// nearestStation finds the closest reporting station within
// stationSearchRadiusKm of loc, returning OUT_OF_COVERAGE if none exist.
func (t *ObservationsTool) nearestStation(ctx context.Context, loc models.Coordinate) (string, *toolerr.Error) {
	path := fmt.Sprintf("/stations?lat=%.6f&lon=%.6f&radiusKm=%d", loc.Lat, loc.Lon, stationSearchRadiusKm)
	res, err := t.Stations.Fetch(ctx, path, upstream.Options{})
	if err != nil {
		if te, ok := toolerr.AsToolError(err); ok {
			return "", te
		}
		return "", toolerr.Wrap(err)
	}
	ids, perr := parseStationsResponse(res.Data)
	if perr != nil {
		return "", perr.(*toolerr.Error)
	}
	if len(ids) == 0 {
		return "", toolerr.OutOfCoverage(
			fmt.Sprintf("no observation stations within %dkm of (%.4f, %.4f)", stationSearchRadiusKm, loc.Lat, loc.Lon), &loc)
	}
	return ids[0], nil
}
