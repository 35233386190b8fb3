package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/kjstillabower/weathertools/internal/models"
)

func marineFixtureWave(wave float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(fmt.Sprintf(`{"properties":{"timeseries":[
			{"time":"2026-07-31T00:00:00Z","data":{"instant":{"details":{
				"sea_surface_wave_height": %v,
				"sea_surface_wave_from_direction": 100,
				"sea_water_temperature": 12,
				"sea_water_speed": 0.1,
				"sea_water_to_direction": 50
			}}}}
		]}}`, wave)))
	}
}

func TestMarineToolRiskClassification(t *testing.T) {
	tool := &MarineTool{Proxy: newTestProxyClient(t, marineFixtureWave(1.0))}
	raw, _ := json.Marshal(dataToolInput{Location: &models.Coordinate{Lat: 59.2, Lon: 10.5}, VesselType: "kayak"})
	env := tool.Call(context.Background(), raw)
	if env.IsError {
		t.Fatalf("unexpected error: %+v", env.Structured)
	}
	points := env.Structured["points"].([]models.MarinePoint)
	if len(points) != 1 || points[0].Risk != models.RiskHigh {
		t.Fatalf("points = %+v", points)
	}
}

func TestMarineToolUnknownVessel(t *testing.T) {
	tool := &MarineTool{Proxy: newTestProxyClient(t, marineFixtureWave(1.0))}
	raw, _ := json.Marshal(dataToolInput{Location: &models.Coordinate{Lat: 59.2, Lon: 10.5}, VesselType: "submarine"})
	env := tool.Call(context.Background(), raw)
	if !env.IsError {
		t.Fatal("expected error for unknown vessel type")
	}
}

func TestMarineToolOutOfCoverage(t *testing.T) {
	tool := &MarineTool{Proxy: newTestProxyClient(t, marineFixtureWave(1.0))}
	raw, _ := json.Marshal(dataToolInput{Location: &models.Coordinate{Lat: 1.0, Lon: 1.0}, VesselType: "motorboat"})
	env := tool.Call(context.Background(), raw)
	if !env.IsError {
		t.Fatal("expected error envelope for out-of-coverage location")
	}
	rec := env.Structured["error"].(models.ErrorRecord)
	if rec.Code != models.ErrOutOfCoverage {
		t.Errorf("code = %v, want OUT_OF_COVERAGE", rec.Code)
	}
}
