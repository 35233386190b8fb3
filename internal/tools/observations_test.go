package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/upstream/stationsclient"
)

func newTestStationsClient(t *testing.T, handler http.HandlerFunc) *stationsclient.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := stationsclient.New(stationsclient.Config{BaseURL: server.URL, ClientID: "test-client"}, nil)
	if err != nil {
		t.Fatalf("stationsclient.New: %v", err)
	}
	return c
}

func TestObservationsToolStationMode(t *testing.T) {
	tool := &ObservationsTool{Stations: newTestStationsClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[{"referenceTime":"2026-07-31T00:00:00Z","observations":[{"elementId":"air_temperature","value":8.0}]}]}`))
	})}
	raw, _ := json.Marshal(dataToolInput{StationID: "SN18700"})
	env := tool.Call(context.Background(), raw)
	if env.IsError {
		t.Fatalf("unexpected error: %+v", env.Structured)
	}
	points := env.Structured["points"].([]models.WeatherPoint)
	if len(points) != 1 || points[0].AirTemperatureC != 8.0 {
		t.Fatalf("points = %+v", points)
	}
}

func TestObservationsToolCoordinateModeTwoCalls(t *testing.T) {
	var calls []string
	tool := &ObservationsTool{Stations: newTestStationsClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		w.WriteHeader(http.StatusOK)
		if strings.Contains(r.URL.Path, "stations") {
			_, _ = w.Write([]byte(`{"stations":[{"id":"SN18700","distanceKm":2.0}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"referenceTime":"2026-07-31T00:00:00Z","observations":[{"elementId":"air_temperature","value":8.0}]}]}`))
	})}
	raw, _ := json.Marshal(dataToolInput{Location: &models.Coordinate{Lat: 60.0, Lon: 5.0}})
	env := tool.Call(context.Background(), raw)
	if env.IsError {
		t.Fatalf("unexpected error: %+v", env.Structured)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 upstream calls (stations then observations), got %d: %v", len(calls), calls)
	}
	if env.Structured["stationId"] != "SN18700" {
		t.Errorf("stationId = %v, want SN18700", env.Structured["stationId"])
	}
}

func TestObservationsToolNoStationsInRadius(t *testing.T) {
	tool := &ObservationsTool{Stations: newTestStationsClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"stations":[]}`))
	})}
	raw, _ := json.Marshal(dataToolInput{Location: &models.Coordinate{Lat: 60.0, Lon: 5.0}})
	env := tool.Call(context.Background(), raw)
	if !env.IsError {
		t.Fatal("expected error envelope for no stations in radius")
	}
	rec := env.Structured["error"].(models.ErrorRecord)
	if rec.Code != models.ErrOutOfCoverage {
		t.Errorf("code = %v, want OUT_OF_COVERAGE", rec.Code)
	}
}

func TestObservationsToolMissingLocationAndStation(t *testing.T) {
	tool := &ObservationsTool{Stations: newTestStationsClient(t, func(w http.ResponseWriter, r *http.Request) {})}
	raw, _ := json.Marshal(dataToolInput{})
	env := tool.Call(context.Background(), raw)
	if !env.IsError {
		t.Fatal("expected error envelope when neither stationId nor location is given")
	}
}
