package tools

import "github.com/kjstillabower/weathertools/internal/models"

// precipitationClass implements the §4.9 step 6 nowcast thresholds.
func precipitationClass(rateMmH float64) string {
	switch {
	case rateMmH <= 0:
		return "none"
	case rateMmH < 2.5:
		return "light"
	case rateMmH < 10:
		return "moderate"
	default:
		return "heavy"
	}
}

// aqiCategory maps a numeric sub-index to its §4.9 category.
func aqiCategory(subIndex float64) models.AQICategory {
	switch {
	case subIndex <= 1:
		return models.AQIGood
	case subIndex <= 2:
		return models.AQIFair
	case subIndex <= 3:
		return models.AQIModerate
	case subIndex <= 4:
		return models.AQIPoor
	default:
		return models.AQIVeryPoor
	}
}

var aqiAdvice = map[models.AQICategory]string{
	models.AQIGood:     "Air quality is good. Enjoy outdoor activities as usual.",
	models.AQIFair:     "Air quality is fair. Unusually sensitive individuals should consider limiting prolonged exertion outdoors.",
	models.AQIModerate: "Air quality is moderate. Sensitive groups should reduce prolonged or heavy outdoor exertion.",
	models.AQIPoor:     "Air quality is poor. Everyone should reduce prolonged or heavy outdoor exertion.",
	models.AQIVeryPoor: "Air quality is very poor. Avoid outdoor exertion; sensitive groups should stay indoors.",
}

// dominantPollutant returns the name of the pollutant with the highest
// sub-index, and its value. Deterministic tie-break: lexicographically
// smallest name wins.
func dominantPollutant(subIndices map[string]float64) (string, float64) {
	var name string
	var max float64
	first := true
	for k, v := range subIndices {
		if first || v > max || (v == max && k < name) {
			name, max = k, v
			first = false
		}
	}
	return name, max
}

// marineThreshold is one vessel's (low, moderate, high) boundary pair of
// (wave height m, current speed m/s).
type marineThreshold struct {
	LowWave, LowCurrent   float64
	ModWave, ModCurrent   float64
	HighWave, HighCurrent float64
}

// marineThresholds is the §4.9 step 6 vessel table.
var marineThresholds = map[string]marineThreshold{
	"kayak":          {0.3, 0.5, 0.5, 1.0, 0.8, 1.5},
	"small_sailboat": {0.5, 1.0, 1.0, 2.0, 1.5, 3.0},
	"motorboat":      {0.8, 1.5, 1.5, 2.5, 2.0, 4.0},
	"ship":           {2.0, 3.0, 3.5, 5.0, 5.0, 7.0},
}

// marineRisk classifies one point against vessel's thresholds: the first
// bound either wave height or current speed crosses determines the tier, so
// a value sitting exactly at a bound triggers that bound's own tier rather
// than the next one up. The table only carries three named bounds for four
// tiers; extreme is reached when both wave height and current speed cross
// the high bound at once, rather than by either parameter alone.
func marineRisk(vessel string, waveM, currentMS float64) models.RiskLevel {
	t, ok := marineThresholds[vessel]
	if !ok {
		t = marineThresholds["motorboat"]
	}
	switch {
	case waveM >= t.HighWave && currentMS >= t.HighCurrent:
		return models.RiskExtreme
	case waveM >= t.HighWave || currentMS >= t.HighCurrent:
		return models.RiskHigh
	case waveM >= t.ModWave || currentMS >= t.ModCurrent:
		return models.RiskModerate
	case waveM >= t.LowWave || currentMS >= t.LowCurrent:
		return models.RiskLow
	default:
		return models.RiskLow
	}
}
