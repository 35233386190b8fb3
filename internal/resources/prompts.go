package resources

import "strings"

// PromptArgument describes one named input a prompt template accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Prompt is a named template text with placeholders of the form {{name}},
// substituted by Render.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments"`
	Template    string           `json:"-"`
}

// Prompts is the fixed set of prompt templates offered alongside the tool
// surface, each steering a client toward one or two of the eight tools.
func Prompts() []Prompt {
	return []Prompt{
		{
			Name:        "plan_outdoor_activity",
			Description: "Find a good time window for an outdoor activity at a location.",
			Arguments: []PromptArgument{
				{Name: "location", Description: "Place name or coordinate", Required: true},
				{Name: "activity", Description: "One of the supported activity types", Required: true},
			},
			Template: "Use places.resolve_name to locate {{location}}, then call " +
				"weather.assess_activity_window for activityType={{activity}} over the " +
				"next 48 hours and report the best windows.",
		},
		{
			Name:        "check_marine_trip",
			Description: "Assess route risk for a boat trip.",
			Arguments: []PromptArgument{
				{Name: "route", Description: "Ordered list of waypoints", Required: true},
				{Name: "vessel", Description: "Vessel type", Required: true},
			},
			Template: "Call weather.assess_route_risk with route={{route}} and " +
				"vesselType={{vessel}}, and summarise the trip verdict and any hotspots.",
		},
		{
			Name:        "morning_briefing",
			Description: "Summarise tomorrow's forecast and air quality for a location.",
			Arguments: []PromptArgument{
				{Name: "location", Description: "Place name or coordinate", Required: true},
			},
			Template: "Resolve {{location}} with places.resolve_name, then call both " +
				"weather.get_forecast and weather.get_air_quality for the next 24 hours " +
				"and combine them into one briefing.",
		},
	}
}

// Render substitutes {{name}} placeholders in p.Template with args, leaving
// any unmatched placeholder untouched rather than erroring — callers decide
// whether a partially-rendered prompt is acceptable.
func Render(p Prompt, args map[string]string) string {
	out := p.Template
	for _, a := range p.Arguments {
		v, ok := args[a.Name]
		if !ok {
			continue
		}
		out = strings.ReplaceAll(out, "{{"+a.Name+"}}", v)
	}
	return out
}
