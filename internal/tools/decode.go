package tools

import (
	"encoding/json"
	"time"

	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/toolerr"
)

// metTimeseries is the wire shape shared by the forecast and nowcast
// products, modelled on MET Norway's Locationforecast/Nowcast compact
// format: one "properties.timeseries[]" array of {time, data}.
type metTimeseries struct {
	Properties struct {
		Timeseries []metInstant `json:"timeseries"`
	} `json:"properties"`
}

type metInstant struct {
	Time time.Time `json:"time"`
	Data struct {
		Instant struct {
			Details struct {
				AirTemperature    float64  `json:"air_temperature"`
				WindSpeed         float64  `json:"wind_speed"`
				WindFromDirection *float64 `json:"wind_from_direction,omitempty"`
				RelativeHumidity  *float64 `json:"relative_humidity,omitempty"`
				CloudAreaFraction *float64 `json:"cloud_area_fraction,omitempty"`
				PrecipitationRate *float64 `json:"precipitation_rate,omitempty"`
			} `json:"details"`
		} `json:"instant"`
		Next1Hours *struct {
			Summary struct {
				SymbolCode string `json:"symbol_code"`
			} `json:"summary"`
			Details struct {
				PrecipitationAmount *float64 `json:"precipitation_amount,omitempty"`
				ProbabilityOfPrecip *float64 `json:"probability_of_precipitation,omitempty"`
			} `json:"details"`
		} `json:"next_1_hours,omitempty"`
	} `json:"data"`
}

// parseMetTimeseries decodes body into normalised weather points. The symbol
// code is read from next_1_hours when that block is present and left empty
// otherwise (nowcast responses usually carry none; only instant fields are
// load-bearing there).
func parseMetTimeseries(body []byte) ([]models.WeatherPoint, error) {
	var parsed metTimeseries
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, toolerr.Unavailable("parse upstream response: %v", err)
	}
	points := make([]models.WeatherPoint, 0, len(parsed.Properties.Timeseries))
	for _, ts := range parsed.Properties.Timeseries {
		p := models.WeatherPoint{
			Time:             ts.Time,
			AirTemperatureC:  ts.Data.Instant.Details.AirTemperature,
			WindSpeedMS:      ts.Data.Instant.Details.WindSpeed,
			WindDirectionDeg: ts.Data.Instant.Details.WindFromDirection,
			HumidityPct:      ts.Data.Instant.Details.RelativeHumidity,
			CloudCoverPct:    ts.Data.Instant.Details.CloudAreaFraction,
		}
		if ts.Data.Instant.Details.PrecipitationRate != nil {
			p.PrecipitationMmH = ts.Data.Instant.Details.PrecipitationRate
		}
		if ts.Data.Next1Hours != nil {
			p.SymbolCode = ts.Data.Next1Hours.Summary.SymbolCode
			if p.PrecipitationMmH == nil {
				p.PrecipitationMmH = ts.Data.Next1Hours.Details.PrecipitationAmount
			}
		}
		points = append(points, p)
	}
	return points, nil
}

// decimate keeps every third sample when resolution is "3hourly"; any other
// value (including empty, meaning "hourly") is a no-op.
func decimate(points []models.WeatherPoint, resolution string) []models.WeatherPoint {
	if resolution != "3hourly" {
		return points
	}
	out := make([]models.WeatherPoint, 0, (len(points)+2)/3)
	for i, p := range points {
		if i%3 == 0 {
			out = append(out, p)
		}
	}
	return out
}

// marineResponse is the wire shape for the ocean-forecast product.
type marineResponse struct {
	Properties struct {
		Timeseries []struct {
			Time time.Time `json:"time"`
			Data struct {
				Instant struct {
					Details struct {
						WaveHeightM      float64 `json:"sea_surface_wave_height"`
						WaveDirectionDeg float64 `json:"sea_surface_wave_from_direction"`
						WaterTempC       float64 `json:"sea_water_temperature"`
						CurrentSpeedMS   float64 `json:"sea_water_speed"`
						CurrentDirDeg    float64 `json:"sea_water_to_direction"`
					} `json:"details"`
				} `json:"instant"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"properties"`
}

func parseMarineResponse(body []byte) ([]rawMarinePoint, error) {
	var parsed marineResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, toolerr.Unavailable("parse upstream response: %v", err)
	}
	out := make([]rawMarinePoint, 0, len(parsed.Properties.Timeseries))
	for _, ts := range parsed.Properties.Timeseries {
		out = append(out, rawMarinePoint{
			Time:             ts.Time,
			WaveHeightM:      ts.Data.Instant.Details.WaveHeightM,
			WaveDirectionDeg: ts.Data.Instant.Details.WaveDirectionDeg,
			WaterTempC:       ts.Data.Instant.Details.WaterTempC,
			CurrentSpeedMS:   ts.Data.Instant.Details.CurrentSpeedMS,
			CurrentDirDeg:    ts.Data.Instant.Details.CurrentDirDeg,
		})
	}
	return out, nil
}

type rawMarinePoint struct {
	Time             time.Time
	WaveHeightM      float64
	WaveDirectionDeg float64
	WaterTempC       float64
	CurrentSpeedMS   float64
	CurrentDirDeg    float64
}

// airQualityResponse is the wire shape for the air-quality product: one
// entry per hour with per-pollutant sub-indices in [0,5].
type airQualityResponse struct {
	Properties struct {
		Timeseries []struct {
			Time       time.Time          `json:"time"`
			SubIndices map[string]float64 `json:"pollutant_sub_indices"`
			ConcUgM3   map[string]float64 `json:"pollutant_concentrations_ugm3,omitempty"`
		} `json:"timeseries"`
	} `json:"properties"`
}

func parseAirQualityResponse(body []byte) ([]rawAirQualityPoint, error) {
	var parsed airQualityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, toolerr.Unavailable("parse upstream response: %v", err)
	}
	out := make([]rawAirQualityPoint, 0, len(parsed.Properties.Timeseries))
	for _, ts := range parsed.Properties.Timeseries {
		out = append(out, rawAirQualityPoint{Time: ts.Time, SubIndices: ts.SubIndices, ConcUgM3: ts.ConcUgM3})
	}
	return out, nil
}

type rawAirQualityPoint struct {
	Time       time.Time
	SubIndices map[string]float64
	ConcUgM3   map[string]float64
}

// stationsResponse is the wire shape for the stations lookup used by
// coordinate-mode recent-observations.
type stationsResponse struct {
	Stations []struct {
		ID         string  `json:"id"`
		DistanceKm float64 `json:"distanceKm"`
	} `json:"stations"`
}

func parseStationsResponse(body []byte) ([]string, error) {
	var parsed stationsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, toolerr.Unavailable("parse upstream response: %v", err)
	}
	ids := make([]string, 0, len(parsed.Stations))
	for _, s := range parsed.Stations {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// observationsResponse is the wire shape for the stations observations call,
// modelled on the Frost API's flattened element list.
type observationsResponse struct {
	Observations []struct {
		Time     time.Time `json:"referenceTime"`
		Elements []struct {
			ID    string  `json:"elementId"`
			Value float64 `json:"value"`
		} `json:"observations"`
	} `json:"data"`
}

func parseObservationsResponse(body []byte) ([]models.WeatherPoint, error) {
	var parsed observationsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, toolerr.Unavailable("parse upstream response: %v", err)
	}
	out := make([]models.WeatherPoint, 0, len(parsed.Observations))
	for _, obs := range parsed.Observations {
		p := models.WeatherPoint{Time: obs.Time}
		for _, el := range obs.Elements {
			v := el.Value
			switch el.ID {
			case "air_temperature":
				p.AirTemperatureC = v
			case "wind_speed":
				p.WindSpeedMS = v
			case "wind_from_direction":
				p.WindDirectionDeg = &v
			case "sum(precipitation_amount PT1H)":
				p.PrecipitationMmH = &v
			case "relative_humidity":
				p.HumidityPct = &v
			case "cloud_area_fraction":
				p.CloudCoverPct = &v
			}
		}
		out = append(out, p)
	}
	return out, nil
}
