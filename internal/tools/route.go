package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kjstillabower/weathertools/internal/attribution"
	"github.com/kjstillabower/weathertools/internal/coverage"
	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/toolerr"
)

const maxSampledWaypoints = 5

type routeInput struct {
	Route      []models.Coordinate     `json:"route"`
	VesselType string                  `json:"vesselType,omitempty"`
	TimeWindow *models.TimeWindowInput `json:"timeWindow,omitempty"`
	Language   string                  `json:"language,omitempty"`
}

// waypointAssessment is one sampled waypoint's rolled-up marine risk.
type waypointAssessment struct {
	Index         int               `json:"index"`
	Location      models.Coordinate `json:"location"`
	MaxRisk       models.RiskLevel  `json:"maxRisk"`
	HighRiskHours int               `json:"highRiskHours"`
}

// hotspot is a (waypoint, time) pair crossing the high-risk threshold.
type hotspot struct {
	WaypointIndex  int               `json:"waypointIndex"`
	Location       models.Coordinate `json:"location"`
	Time           time.Time         `json:"time"`
	WaveHeightM    float64           `json:"waveHeightM"`
	CurrentSpeedMS float64           `json:"currentSpeedMs"`
	Risk           models.RiskLevel  `json:"risk"`
	Note           string            `json:"note"`
}

// RouteTool implements weather.assess_route_risk (§4.10): it calls
// weather.get_marine through the shared registry once per sampled waypoint,
// sequentially, per §5's "composite tools suspend once per sub-call... may
// invoke sequentially" and §9's sampling-determinism note.
type RouteTool struct {
	Registry *Registry
}

func (t *RouteTool) Name() string { return "weather.assess_route_risk" }

func (t *RouteTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	var in routeInput
	if err := decodeInput(raw, &in); err != nil {
		return attribution.BuildErrorResponse(err)
	}
	if len(in.Route) < 2 {
		return attribution.BuildErrorResponse(toolerr.Invalid("route must contain at least 2 waypoints"))
	}
	vessel := in.VesselType
	if vessel == "" {
		vessel = "motorboat"
	}
	if _, ok := marineThresholds[vessel]; !ok {
		return attribution.BuildErrorResponse(toolerr.Invalid("unknown vesselType %q", vessel))
	}

	// The timeWindow is resolved once, up front, against the tool's own
	// input, rather than taken from any one waypoint's sub-call response:
	// every sampled waypoint is assessed over the same window.
	window, werr := coverage.ResolveTimeWindow(in.TimeWindow, time.Now(), "marine")
	if werr != nil {
		return attribution.BuildErrorResponse(werr.(*toolerr.Error))
	}

	sampled := sampleWaypoints(in.Route, maxSampledWaypoints)

	var assessments []waypointAssessment
	var hotspots []hotspot
	for _, idx := range sampled {
		loc := in.Route[idx]
		req, merr := json.Marshal(dataToolInput{Location: &loc, TimeWindow: in.TimeWindow, VesselType: vessel})
		if merr != nil {
			return attribution.BuildErrorResponse(toolerr.Internal("build marine sub-request: %v", merr))
		}
		env := t.Registry.Dispatch(ctx, "weather.get_marine", req)
		if env.IsError {
			return env
		}
		points, _ := env.Structured["points"].([]models.MarinePoint)

		maxRisk := models.RiskLow
		highHours := 0
		for _, p := range points {
			if models.RiskRank(p.Risk) > models.RiskRank(maxRisk) {
				maxRisk = p.Risk
			}
			if models.RiskRank(p.Risk) >= models.RiskRank(models.RiskHigh) {
				highHours++
				hotspots = append(hotspots, hotspot{
					WaypointIndex:  idx,
					Location:       loc,
					Time:           p.Time,
					WaveHeightM:    p.WaveHeightM,
					CurrentSpeedMS: p.CurrentSpeedMS,
					Risk:           p.Risk,
					Note:           p.Note,
				})
			}
		}
		assessments = append(assessments, waypointAssessment{
			Index:         idx,
			Location:      loc,
			MaxRisk:       maxRisk,
			HighRiskHours: highHours,
		})
	}

	verdict := rollUpVerdict(assessments)
	sortHotspots(hotspots)

	structured := map[string]any{
		"waypoints":  assessments,
		"hotspots":   hotspots,
		"verdict":    verdict,
		"timeWindow": window,
		"vesselType": vessel,
	}
	summary := fmt.Sprintf("Route risk verdict: %s. %d waypoint(s) assessed, %d hotspot(s). %s",
		verdict, len(assessments), len(hotspots), recommendation(verdict, vessel))
	return attribution.BuildToolResponse(structured, summary)
}

// sampleWaypoints chooses at most max indices from [0, n), always including
// 0 and n-1; for n>max the remaining indices are chosen by even stride.
func sampleWaypoints(route []models.Coordinate, max int) []int {
	n := len(route)
	if n <= max {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, 0, max)
	idx = append(idx, 0)
	inner := max - 2
	for k := 1; k <= inner; k++ {
		pos := k * (n - 1) / (max - 1)
		idx = append(idx, pos)
	}
	idx = append(idx, n-1)
	return idx
}

// rollUpVerdict implements the §4.10 step 4 rollup rules in priority order.
func rollUpVerdict(assessments []waypointAssessment) models.Verdict {
	extremeCount, highCount, moderateCount := 0, 0, 0
	for _, a := range assessments {
		switch a.MaxRisk {
		case models.RiskExtreme:
			extremeCount++
		case models.RiskHigh:
			highCount++
		case models.RiskModerate:
			moderateCount++
		}
	}
	switch {
	case extremeCount > 0:
		return models.VerdictExtreme
	case highCount >= 2:
		return models.VerdictDangerous
	case highCount > 0:
		return models.VerdictCaution
	case moderateCount > 0:
		return models.VerdictCaution
	default:
		return models.VerdictSafe
	}
}

// sortHotspots orders by (risk desc, time asc, waypoint index asc) per §9.
func sortHotspots(hotspots []hotspot) {
	sort.SliceStable(hotspots, func(i, j int) bool {
		ri, rj := models.RiskRank(hotspots[i].Risk), models.RiskRank(hotspots[j].Risk)
		if ri != rj {
			return ri > rj
		}
		if !hotspots[i].Time.Equal(hotspots[j].Time) {
			return hotspots[i].Time.Before(hotspots[j].Time)
		}
		return hotspots[i].WaypointIndex < hotspots[j].WaypointIndex
	})
}

func recommendation(verdict models.Verdict, vessel string) string {
	switch verdict {
	case models.VerdictExtreme:
		return fmt.Sprintf("Do not attempt this route with a %s; conditions exceed safe limits at one or more waypoints.", vessel)
	case models.VerdictDangerous:
		return fmt.Sprintf("Postpone departure; multiple waypoints carry high risk for a %s.", vessel)
	case models.VerdictCaution:
		return fmt.Sprintf("Proceed only with an experienced crew and a %s suited to moderate-to-high conditions.", vessel)
	default:
		return fmt.Sprintf("Conditions along this route are within normal limits for a %s.", vessel)
	}
}
