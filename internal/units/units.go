// Package units converts canonical readings (Celsius, km/h) into display units.
// Every function is pure; rounding is applied only through Round.
package units

import (
	"math"

	"github.com/kjstillabower/weatherx-dashboard/internal/models"
)

const kphToMph = 0.621371

// ConvertTemperature returns celsius unchanged when useCelsius, else Fahrenheit.
func ConvertTemperature(celsius float64, useCelsius bool) float64 {
	if useCelsius {
		return celsius
	}
	return celsius*9/5 + 32
}

// ConvertTemperatureDelta converts a temperature difference. Differences scale but carry no offset.
func ConvertTemperatureDelta(delta float64, useCelsius bool) float64 {
	if useCelsius {
		return delta
	}
	return delta * 9 / 5
}

// ConvertWindSpeed returns kph unchanged unless useMph.
func ConvertWindSpeed(kph float64, useMph bool) float64 {
	if !useMph {
		return kph
	}
	return kph * kphToMph
}

// TemperatureUnitSymbol returns "°C" or "°F".
func TemperatureUnitSymbol(useCelsius bool) string {
	if useCelsius {
		return "°C"
	}
	return "°F"
}

// WindUnitSymbol returns "mph" or "km/h".
func WindUnitSymbol(useMph bool) string {
	if useMph {
		return "mph"
	}
	return "km/h"
}

// Round is the single display rounding rule: nearest integer, halves away from zero.
func Round(v float64) int {
	return int(math.Round(v))
}

// Converter binds a preference snapshot so a render pass cannot mix units.
type Converter struct {
	pref models.UnitPreference
}

// For returns a Converter for the given snapshot.
func For(pref models.UnitPreference) Converter {
	return Converter{pref: pref}
}

// Preference returns the bound snapshot.
func (c Converter) Preference() models.UnitPreference { return c.pref }

func (c Converter) Temperature(celsius float64) float64 {
	return ConvertTemperature(celsius, c.pref.UseCelsius)
}

func (c Converter) TemperatureDelta(delta float64) float64 {
	return ConvertTemperatureDelta(delta, c.pref.UseCelsius)
}

func (c Converter) Wind(kph float64) float64 {
	return ConvertWindSpeed(kph, c.pref.UseMph)
}

// DisplayTemperature converts and rounds.
func (c Converter) DisplayTemperature(celsius float64) int {
	return Round(c.Temperature(celsius))
}

// DisplayWind converts and rounds.
func (c Converter) DisplayWind(kph float64) int {
	return Round(c.Wind(kph))
}

func (c Converter) TemperatureUnit() string { return TemperatureUnitSymbol(c.pref.UseCelsius) }

func (c Converter) WindUnit() string { return WindUnitSymbol(c.pref.UseMph) }
