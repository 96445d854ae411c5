package models

import "time"

const (
	TempUnitCelsius    = "celsius"
	TempUnitFahrenheit = "fahrenheit"
	WindUnitKph        = "kph"
	WindUnitMph        = "mph"
	ThemeDark          = "dark"
	ThemeLight         = "light"
)

// RefreshIntervals are the auto-refresh periods a user may pick.
var RefreshIntervals = []time.Duration{
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
}

// ValidRefreshInterval reports whether d is one of RefreshIntervals.
func ValidRefreshInterval(d time.Duration) bool {
	for _, v := range RefreshIntervals {
		if d == v {
			return true
		}
	}
	return false
}

// Preferences are the per-user display and refresh settings.
type Preferences struct {
	TempUnit       string `json:"tempUnit" validate:"required,oneof=celsius fahrenheit"`
	WindUnit       string `json:"windUnit" validate:"required,oneof=kph mph"`
	Theme          string `json:"theme" validate:"required,oneof=dark light"`
	AutoRefresh    bool   `json:"autoRefresh"`
	Notifications  bool   `json:"notifications"`
	RefreshMinutes int    `json:"refreshMinutes" validate:"required,oneof=5 10 15 30 60"`
}

// DefaultPreferences is what a new session starts with.
func DefaultPreferences(refresh time.Duration) Preferences {
	if !ValidRefreshInterval(refresh) {
		refresh = 10 * time.Minute
	}
	return Preferences{
		TempUnit:       TempUnitCelsius,
		WindUnit:       WindUnitKph,
		Theme:          ThemeDark,
		RefreshMinutes: int(refresh / time.Minute),
	}
}

// Units is the conversion snapshot for one render pass.
func (p Preferences) Units() UnitPreference {
	return UnitPreference{
		UseCelsius: p.TempUnit != TempUnitFahrenheit,
		UseMph:     p.WindUnit == WindUnitMph,
	}
}

func (p Preferences) RefreshInterval() time.Duration {
	return time.Duration(p.RefreshMinutes) * time.Minute
}
