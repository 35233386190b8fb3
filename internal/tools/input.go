package tools

import (
	"encoding/json"

	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/toolerr"
)

// dataToolInput is the common input shape for the five weather data tools
// (§4.9); fields unused by a given tool are simply ignored by its body.
type dataToolInput struct {
	Location   *models.Coordinate     `json:"location,omitempty"`
	StationID  string                 `json:"stationId,omitempty"`
	TimeWindow *models.TimeWindowInput `json:"timeWindow,omitempty"`
	Resolution string                 `json:"resolution,omitempty"`
	Language   string                 `json:"language,omitempty"`
	VesselType string                 `json:"vesselType,omitempty"`
}

func decodeInput(raw json.RawMessage, v any) *toolerr.Error {
	if err := json.Unmarshal(raw, v); err != nil {
		return toolerr.Invalid("malformed input: %v", err)
	}
	return nil
}

func requireLocation(in *models.Coordinate) (models.Coordinate, *toolerr.Error) {
	if in == nil {
		return models.Coordinate{}, toolerr.Invalid("location is required")
	}
	return *in, nil
}
