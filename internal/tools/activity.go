package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kjstillabower/weathertools/internal/attribution"
	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/toolerr"
)

// activityProfile is one built-in threshold triple for the activity scorer.
type activityProfile struct {
	MinTemp         float64
	MaxTemp         float64
	MaxWind         float64
	AvoidRain       bool
	AvoidHeavyRain  bool
}

// activityProfiles is the §4.10 built-in table.
var activityProfiles = map[string]activityProfile{
	"running":         {MinTemp: 5, MaxTemp: 20, MaxWind: 10, AvoidHeavyRain: true},
	"cycling":         {MinTemp: 8, MaxTemp: 25, MaxWind: 12, AvoidHeavyRain: true},
	"hiking":          {MinTemp: 5, MaxTemp: 25, MaxWind: 15},
	"kids_playground": {MinTemp: 10, MaxTemp: 28, MaxWind: 8, AvoidHeavyRain: true},
	"commuting":       {MinTemp: -10, MaxTemp: 35, MaxWind: 20},
}

// customActivityProfile is the permissive default triple for activity "custom".
var customActivityProfile = activityProfile{MinTemp: -20, MaxTemp: 40, MaxWind: 30}

// activityPreferences are the optional field-wise overrides over a profile.
type activityPreferences struct {
	MinTemp        *float64 `json:"minTemp,omitempty"`
	MaxTemp        *float64 `json:"maxTemp,omitempty"`
	MaxWind        *float64 `json:"maxWind,omitempty"`
	AvoidRain      *bool    `json:"avoidRain,omitempty"`
	AvoidHeavyRain *bool    `json:"avoidHeavyRain,omitempty"`
}

func (p activityPreferences) apply(profile activityProfile) activityProfile {
	if p.MinTemp != nil {
		profile.MinTemp = *p.MinTemp
	}
	if p.MaxTemp != nil {
		profile.MaxTemp = *p.MaxTemp
	}
	if p.MaxWind != nil {
		profile.MaxWind = *p.MaxWind
	}
	if p.AvoidRain != nil {
		profile.AvoidRain = *p.AvoidRain
	}
	if p.AvoidHeavyRain != nil {
		profile.AvoidHeavyRain = *p.AvoidHeavyRain
	}
	return profile
}

type activityInput struct {
	Location     *models.Coordinate      `json:"location,omitempty"`
	ActivityType string                  `json:"activityType,omitempty"`
	TimeWindow   *models.TimeWindowInput `json:"timeWindow,omitempty"`
	Preferences  activityPreferences     `json:"preferences,omitempty"`
	Language     string                  `json:"language,omitempty"`
}

// ActivityTool implements weather.assess_activity_window (§4.10): it calls
// weather.get_forecast through the shared registry so the tool wrapper's
// instrumentation applies uniformly to the inner call (§9 design note).
type ActivityTool struct {
	Registry *Registry
}

func (t *ActivityTool) Name() string { return "weather.assess_activity_window" }

func (t *ActivityTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	var in activityInput
	if err := decodeInput(raw, &in); err != nil {
		return attribution.BuildErrorResponse(err)
	}
	loc, err := requireLocation(in.Location)
	if err != nil {
		return attribution.BuildErrorResponse(err)
	}

	base, ok := activityProfiles[in.ActivityType]
	if !ok {
		if in.ActivityType != "" && in.ActivityType != "custom" {
			return attribution.BuildErrorResponse(toolerr.Invalid("unknown activityType %q", in.ActivityType))
		}
		base = customActivityProfile
	}
	profile := in.Preferences.apply(base)

	forecastReq, merr := json.Marshal(dataToolInput{Location: &loc, TimeWindow: in.TimeWindow, Language: in.Language})
	if merr != nil {
		return attribution.BuildErrorResponse(toolerr.Internal("build forecast sub-request: %v", merr))
	}
	forecastEnv := t.Registry.Dispatch(ctx, "weather.get_forecast", forecastReq)
	if forecastEnv.IsError {
		return forecastEnv
	}
	points, _ := forecastEnv.Structured["points"].([]models.WeatherPoint)
	window, _ := forecastEnv.Structured["timeWindow"].(models.TimeWindow)

	slots := make([]models.ComfortSlot, 0, len(points))
	for _, p := range points {
		rate := 0.0
		if p.PrecipitationMmH != nil {
			rate = *p.PrecipitationMmH
		}
		tempOK := p.AirTemperatureC >= profile.MinTemp && p.AirTemperatureC <= profile.MaxTemp
		windOK := p.WindSpeedMS <= profile.MaxWind
		precipOK := true
		if profile.AvoidRain && rate != 0 {
			precipOK = false
		}
		if profile.AvoidHeavyRain && rate >= 2.5 {
			precipOK = false
		}

		violations := 0
		var reasons []string
		if !tempOK {
			violations++
			reasons = append(reasons, fmt.Sprintf("temperature %.1f°C outside [%.1f,%.1f]", p.AirTemperatureC, profile.MinTemp, profile.MaxTemp))
		}
		if !windOK {
			violations++
			reasons = append(reasons, fmt.Sprintf("wind %.1f m/s exceeds %.1f", p.WindSpeedMS, profile.MaxWind))
		}
		if !precipOK {
			violations++
			reasons = append(reasons, fmt.Sprintf("precipitation %.1f mm exceeds allowance", rate))
		}

		score := models.ComfortGood
		switch {
		case violations == 1:
			score = models.ComfortOK
		case violations >= 2:
			score = models.ComfortPoor
		}
		reason := "within thresholds"
		if len(reasons) > 0 {
			reason = joinReasons(reasons)
		}
		slots = append(slots, models.ComfortSlot{
			Time:             p.Time,
			Score:            score,
			TemperatureOK:    tempOK,
			WindOK:           windOK,
			PrecipitationOK:  precipOK,
			Reason:           reason,
			TemperatureC:     p.AirTemperatureC,
			WindSpeedMS:      p.WindSpeedMS,
			PrecipitationMmH: rate,
		})
	}

	bestWindows := bestGoodWindows(slots, 3)

	structured := map[string]any{
		"slots":       slots,
		"bestWindows": bestWindows,
		"timeWindow":  window,
		"activity":    in.ActivityType,
	}
	summary := fmt.Sprintf("%d of %d hour(s) are good for %s; %d best window(s) found.", countGood(slots), len(slots), defaultActivityName(in.ActivityType), len(bestWindows))
	return attribution.BuildToolResponse(structured, summary)
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}

func countGood(slots []models.ComfortSlot) int {
	n := 0
	for _, s := range slots {
		if s.Score == models.ComfortGood {
			n++
		}
	}
	return n
}

func defaultActivityName(a string) string {
	if a == "" {
		return "custom"
	}
	return a
}

// activityWindow is one maximal run of consecutive good slots, reported in
// the summary and structured output as {start,end,durationHours}.
type activityWindow struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationHours int       `json:"durationHours"`
}

// bestGoodWindows finds maximal runs of length >= 2 of consecutive good
// slots and returns up to max of them, in chronological order.
func bestGoodWindows(slots []models.ComfortSlot, max int) []activityWindow {
	var windows []activityWindow
	i := 0
	for i < len(slots) {
		if slots[i].Score != models.ComfortGood {
			i++
			continue
		}
		j := i
		for j < len(slots) && slots[j].Score == models.ComfortGood {
			j++
		}
		runLen := j - i
		if runLen >= 2 {
			windows = append(windows, activityWindow{
				Start:         slots[i].Time,
				End:           slots[j-1].Time,
				DurationHours: runLen,
			})
		}
		i = j
	}
	if len(windows) > max {
		windows = windows[:max]
	}
	return windows
}
