package tools

import (
	"testing"

	"github.com/kjstillabower/weathertools/internal/models"
)

func TestPrecipitationClass(t *testing.T) {
	cases := []struct {
		rate float64
		want string
	}{
		{0, "none"},
		{-1, "none"},
		{1.0, "light"},
		{2.4999, "light"},
		{2.5, "moderate"},
		{9.999, "moderate"},
		{10, "heavy"},
		{25, "heavy"},
	}
	for _, c := range cases {
		if got := precipitationClass(c.rate); got != c.want {
			t.Errorf("precipitationClass(%v) = %q, want %q", c.rate, got, c.want)
		}
	}
}

func TestAQICategory(t *testing.T) {
	cases := []struct {
		sub  float64
		want models.AQICategory
	}{
		{0.5, models.AQIGood},
		{1, models.AQIGood},
		{1.5, models.AQIFair},
		{2, models.AQIFair},
		{2.5, models.AQIModerate},
		{3, models.AQIModerate},
		{3.5, models.AQIPoor},
		{4, models.AQIPoor},
		{4.5, models.AQIVeryPoor},
	}
	for _, c := range cases {
		if got := aqiCategory(c.sub); got != c.want {
			t.Errorf("aqiCategory(%v) = %q, want %q", c.sub, got, c.want)
		}
	}
}

func TestDominantPollutantTieBreak(t *testing.T) {
	got, val := dominantPollutant(map[string]float64{"pm10": 2.0, "no2": 2.0, "o3": 1.0})
	if got != "no2" || val != 2.0 {
		t.Errorf("dominantPollutant = (%q, %v), want (\"no2\", 2.0)", got, val)
	}
}

func TestDominantPollutantStrictMax(t *testing.T) {
	got, val := dominantPollutant(map[string]float64{"pm10": 1.0, "no2": 3.5})
	if got != "no2" || val != 3.5 {
		t.Errorf("dominantPollutant = (%q, %v), want (\"no2\", 3.5)", got, val)
	}
}

func TestMarineRiskBoundaries(t *testing.T) {
	// kayak: low 0.3/0.5, moderate 0.5/1.0, high 0.8/1.5
	cases := []struct {
		wave, current float64
		want          models.RiskLevel
	}{
		{0.0, 0.0, models.RiskLow},
		{0.3, 0.0, models.RiskLow},      // exactly at low bound triggers low tier
		{0.5, 0.0, models.RiskModerate}, // exactly at moderate bound triggers moderate tier
		{0.8, 0.0, models.RiskHigh},     // exactly at high bound, current unaffected, triggers high tier
		{0.0, 1.5, models.RiskHigh},     // current alone at high bound also triggers high tier
		{1.0, 0.0, models.RiskHigh},     // wave past high bound, current clear, still high (not extreme)
		{0.8, 1.5, models.RiskExtreme},  // both wave and current at/past high bound triggers extreme
	}
	for _, c := range cases {
		if got := marineRisk("kayak", c.wave, c.current); got != c.want {
			t.Errorf("marineRisk(kayak, %v, %v) = %q, want %q", c.wave, c.current, got, c.want)
		}
	}
}

func TestMarineRiskUnknownVesselDefaultsToMotorboat(t *testing.T) {
	if got := marineRisk("submarine", 0.8, 0); got != marineRisk("motorboat", 0.8, 0) {
		t.Errorf("unknown vessel did not fall back to motorboat thresholds")
	}
}
