// Package insights turns current conditions and the daily series into short advisories.
//
// Rules run in a fixed order and each appends at most one insight. Comparisons use
// canonical units (Celsius, km/h); conversion happens only when text is rendered.
// Generate never returns an empty list.
package insights

import (
	"fmt"
	"math"

	"github.com/kjstillabower/weatherx-dashboard/internal/models"
	"github.com/kjstillabower/weatherx-dashboard/internal/units"
)

// Rule thresholds.
const (
	TrendThresholdC     = 5.0
	RainChanceThreshold = 50
	HighUVThreshold     = 6.0
	WindAdvisoryKph     = 40.0
	HighHumidityPct     = 70
	LowHumidityPct      = 30
	ReducedVisibilityKm = 5.0
	IdealMinTempC       = 18.0
	IdealMaxTempC       = 25.0
	IdealMaxCloudPct    = 40
)

// Titles double as stable identifiers for metrics.
const (
	TitleWarming    = "Warming Trend"
	TitleCooling    = "Cooling Trend"
	TitleRain       = "Rain Expected"
	TitleHighUV     = "High UV Index"
	TitleWindy      = "Windy Conditions"
	TitleHighHumid  = "High Humidity"
	TitleLowHumid   = "Low Humidity"
	TitleVisibility = "Reduced Visibility"
	TitlePerfect    = "Perfect Weather"
	TitleStable     = "Stable Conditions"
)

type rule func(c models.Current, days []models.ForecastDay, conv units.Converter) (models.Insight, bool)

var rules = []rule{
	temperatureTrend,
	rainOutlook,
	highUV,
	windAdvisory,
	humidityComfort,
	visibility,
	idealConditions,
}

// Generate evaluates every rule against one preference snapshot.
func Generate(current models.Current, days []models.ForecastDay, pref models.UnitPreference) []models.Insight {
	conv := units.For(pref)
	out := make([]models.Insight, 0, len(rules))
	for _, r := range rules {
		if in, ok := r(current, days, conv); ok {
			out = append(out, in)
		}
	}
	if len(out) == 0 {
		out = append(out, models.Insight{
			Icon:        "✅",
			Title:       TitleStable,
			Description: "Weather conditions are stable with no significant changes expected.",
		})
	}
	return out
}

func temperatureTrend(_ models.Current, days []models.ForecastDay, conv units.Converter) (models.Insight, bool) {
	if len(days) == 0 {
		return models.Insight{}, false
	}
	delta := days[len(days)-1].Day.AvgTempC - days[0].Day.AvgTempC
	if math.Abs(delta) <= TrendThresholdC {
		return models.Insight{}, false
	}
	magnitude := units.Round(math.Abs(conv.TemperatureDelta(delta)))
	if delta > 0 {
		return models.Insight{
			Icon:        "🔥",
			Title:       TitleWarming,
			Description: fmt.Sprintf("Temperature will rise by %d%s over the next %d days.", magnitude, conv.TemperatureUnit(), len(days)),
		}, true
	}
	return models.Insight{
		Icon:        "❄️",
		Title:       TitleCooling,
		Description: fmt.Sprintf("Temperature will drop by %d%s over the next %d days.", magnitude, conv.TemperatureUnit(), len(days)),
	}, true
}

func rainOutlook(_ models.Current, days []models.ForecastDay, _ units.Converter) (models.Insight, bool) {
	rainy := 0
	for _, d := range days {
		if d.Day.DailyChanceOfRain > RainChanceThreshold {
			rainy++
		}
	}
	if rainy == 0 {
		return models.Insight{}, false
	}
	return models.Insight{
		Icon:        "🌧️",
		Title:       TitleRain,
		Description: fmt.Sprintf("Expect rain on %d of the next %d days. Don't forget your umbrella!", rainy, len(days)),
	}, true
}

func highUV(c models.Current, _ []models.ForecastDay, _ units.Converter) (models.Insight, bool) {
	if c.UV < HighUVThreshold {
		return models.Insight{}, false
	}
	return models.Insight{
		Icon:        "☀️",
		Title:       TitleHighUV,
		Description: fmt.Sprintf("UV index is %s. Wear sunscreen and protective clothing when outdoors.", formatReading(c.UV)),
	}, true
}

func windAdvisory(_ models.Current, days []models.ForecastDay, conv units.Converter) (models.Insight, bool) {
	if len(days) == 0 {
		return models.Insight{}, false
	}
	maxWind := days[0].Day.MaxWindKph
	for _, d := range days[1:] {
		maxWind = math.Max(maxWind, d.Day.MaxWindKph)
	}
	if maxWind <= WindAdvisoryKph {
		return models.Insight{}, false
	}
	return models.Insight{
		Icon:        "💨",
		Title:       TitleWindy,
		Description: fmt.Sprintf("Wind speeds may reach %d %s. Secure loose outdoor items.", conv.DisplayWind(maxWind), conv.WindUnit()),
	}, true
}

func humidityComfort(c models.Current, _ []models.ForecastDay, _ units.Converter) (models.Insight, bool) {
	switch {
	case c.Humidity > HighHumidityPct:
		return models.Insight{
			Icon:        "💧",
			Title:       TitleHighHumid,
			Description: fmt.Sprintf("Humidity is %d%%. It may feel more uncomfortable than the actual temperature suggests.", c.Humidity),
		}, true
	case c.Humidity < LowHumidityPct:
		return models.Insight{
			Icon:        "🏜️",
			Title:       TitleLowHumid,
			Description: fmt.Sprintf("Humidity is %d%%. Stay hydrated and consider using a humidifier.", c.Humidity),
		}, true
	}
	return models.Insight{}, false
}

func visibility(c models.Current, _ []models.ForecastDay, _ units.Converter) (models.Insight, bool) {
	if c.VisKm >= ReducedVisibilityKm {
		return models.Insight{}, false
	}
	return models.Insight{
		Icon:        "🌫️",
		Title:       TitleVisibility,
		Description: fmt.Sprintf("Visibility is only %s km. Drive carefully and use headlights.", formatReading(c.VisKm)),
	}, true
}

func idealConditions(c models.Current, _ []models.ForecastDay, _ units.Converter) (models.Insight, bool) {
	if c.TempC < IdealMinTempC || c.TempC > IdealMaxTempC || c.Cloud >= IdealMaxCloudPct || c.PrecipMm != 0 {
		return models.Insight{}, false
	}
	return models.Insight{
		Icon:        "🌟",
		Title:       TitlePerfect,
		Description: "Conditions are ideal for outdoor activities. Enjoy the beautiful day!",
	}, true
}

// formatReading prints a raw provider reading the way it arrived: 7 not 7.0, 2.5 as 2.5.
func formatReading(v float64) string {
	return fmt.Sprintf("%g", v)
}
