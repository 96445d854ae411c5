// Package classify maps raw readings to qualitative labels.
// Every classifier is total: unrecognized input degrades to a neutral label.
package classify

import "strings"

// PressureTrend is the qualitative pressure band.
type PressureTrend string

const (
	PressureLow    PressureTrend = "Low"
	PressureNormal PressureTrend = "Normal"
	PressureHigh   PressureTrend = "High"
)

// PressureTrendOf classifies sea-level pressure in millibars. 1000 and 1020 are Normal.
func PressureTrendOf(pressureMb float64) PressureTrend {
	switch {
	case pressureMb > 1020:
		return PressureHigh
	case pressureMb < 1000:
		return PressureLow
	default:
		return PressureNormal
	}
}

// UVRisk is the exposure band for a UV index.
type UVRisk string

const (
	UVLow      UVRisk = "Low"
	UVModerate UVRisk = "Moderate"
	UVHigh     UVRisk = "High"
	UVVeryHigh UVRisk = "Very High"
	UVExtreme  UVRisk = "Extreme"
)

// UVRiskOf classifies a UV index. Upper band edges are inclusive.
func UVRiskOf(index float64) UVRisk {
	switch {
	case index <= 2:
		return UVLow
	case index <= 5:
		return UVModerate
	case index <= 7:
		return UVHigh
	case index <= 10:
		return UVVeryHigh
	default:
		return UVExtreme
	}
}

// AirQuality is the label for a US EPA index.
type AirQuality string

const (
	AirGood               AirQuality = "Good"
	AirModerate           AirQuality = "Moderate"
	AirUnhealthySensitive AirQuality = "Unhealthy for Sensitive"
	AirUnhealthy          AirQuality = "Unhealthy"
	AirVeryUnhealthy      AirQuality = "Very Unhealthy"
	AirHazardous          AirQuality = "Hazardous"
	AirUnknown            AirQuality = "Unknown"
)

var airQualityLabels = [...]AirQuality{
	AirGood,
	AirModerate,
	AirUnhealthySensitive,
	AirUnhealthy,
	AirVeryUnhealthy,
	AirHazardous,
}

// AirQualityLabel maps a US EPA index (1..6) to its label; anything else is Unknown.
func AirQualityLabel(epaIndex int) AirQuality {
	if epaIndex < 1 || epaIndex > len(airQualityLabels) {
		return AirUnknown
	}
	return airQualityLabels[epaIndex-1]
}

// DefaultMoonSymbol is shown for phase names the provider may add later.
const DefaultMoonSymbol = "🌙"

var moonPhaseSymbols = map[string]string{
	"New Moon":        "🌑",
	"Waxing Crescent": "🌒",
	"First Quarter":   "🌓",
	"Waxing Gibbous":  "🌔",
	"Full Moon":       "🌕",
	"Waning Gibbous":  "🌖",
	"Last Quarter":    "🌗",
	"Waning Crescent": "🌘",
}

// MoonPhaseSymbol looks up the glyph for an exact phase name.
func MoonPhaseSymbol(phaseName string) string {
	if s, ok := moonPhaseSymbols[phaseName]; ok {
		return s
	}
	return DefaultMoonSymbol
}

// Background is the dashboard backdrop chosen from the current condition.
type Background string

const (
	BackgroundNone         Background = ""
	BackgroundClear        Background = "clear"
	BackgroundClouds       Background = "clouds"
	BackgroundRain         Background = "rain"
	BackgroundSnow         Background = "snow"
	BackgroundThunderstorm Background = "thunderstorm"
	BackgroundMist         Background = "mist"
)

// backgroundRules is evaluated in order; the first keyword hit wins.
var backgroundRules = []struct {
	keywords []string
	bg       Background
}{
	{[]string{"clear", "sunny"}, BackgroundClear},
	{[]string{"cloud"}, BackgroundClouds},
	{[]string{"rain", "drizzle"}, BackgroundRain},
	{[]string{"snow"}, BackgroundSnow},
	{[]string{"thunder", "storm"}, BackgroundThunderstorm},
	{[]string{"mist", "fog"}, BackgroundMist},
}

// BackgroundOf picks a backdrop by case-insensitive keyword match on the condition text.
func BackgroundOf(condition string) Background {
	c := strings.ToLower(condition)
	for _, rule := range backgroundRules {
		for _, kw := range rule.keywords {
			if strings.Contains(c, kw) {
				return rule.bg
			}
		}
	}
	return BackgroundNone
}
