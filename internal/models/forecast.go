package models

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload marks a payload missing the current, location or forecast block.
var ErrInvalidPayload = errors.New("invalid weather data received")

// ForecastPayload is the decoded forecast.json response for one query.
// Field names follow the provider's JSON so the payload can be decoded directly.
type ForecastPayload struct {
	Location *Location      `json:"location,omitempty"`
	Current  *Current       `json:"current,omitempty"`
	Forecast *Forecast      `json:"forecast,omitempty"`
	Alerts   *Alerts        `json:"alerts,omitempty"`
	Error    *ProviderError `json:"error,omitempty"`
}

// Location describes the place the provider resolved the query to.
type Location struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	TzID      string  `json:"tz_id"`
	LocalTime string  `json:"localtime"` // "2006-01-02 15:04" in the location's zone
}

// Condition is the provider's condition text and icon.
type Condition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

// AirQuality holds the subset of air quality fields the dashboard reads.
type AirQuality struct {
	USEPAIndex int     `json:"us-epa-index"`
	PM25       float64 `json:"pm2_5"`
	PM10       float64 `json:"pm10"`
}

// Current is the instantaneous reading. Canonical units: Celsius, km/h, mb, km, mm.
type Current struct {
	LastUpdated string      `json:"last_updated"`
	TempC       float64     `json:"temp_c"`
	FeelsLikeC  float64     `json:"feelslike_c"`
	Humidity    int         `json:"humidity"`
	WindKph     float64     `json:"wind_kph"`
	WindDir     string      `json:"wind_dir"`
	PressureMb  float64     `json:"pressure_mb"`
	VisKm       float64     `json:"vis_km"`
	Cloud       int         `json:"cloud"`
	UV          float64     `json:"uv"`
	PrecipMm    float64     `json:"precip_mm"`
	DewPointC   float64     `json:"dewpoint_c"`
	Condition   Condition   `json:"condition"`
	AirQuality  *AirQuality `json:"air_quality,omitempty"`
}

// Forecast wraps the ordered daily series.
type Forecast struct {
	ForecastDay []ForecastDay `json:"forecastday"`
}

// ForecastDay is one entry of the daily series.
type ForecastDay struct {
	Date  string `json:"date"` // "2006-01-02"
	Day   Day    `json:"day"`
	Astro Astro  `json:"astro"`
	Hour  []Hour `json:"hour"`
}

// Day holds the daily aggregates.
type Day struct {
	MaxTempC          float64   `json:"maxtemp_c"`
	MinTempC          float64   `json:"mintemp_c"`
	AvgTempC          float64   `json:"avgtemp_c"`
	MaxWindKph        float64   `json:"maxwind_kph"`
	TotalPrecipMm     float64   `json:"totalprecip_mm"`
	AvgHumidity       float64   `json:"avghumidity"`
	DailyChanceOfRain int       `json:"daily_chance_of_rain"`
	Condition         Condition `json:"condition"`
}

// Astro holds sun and moon times as "hh:mm AM" strings.
type Astro struct {
	Sunrise   string `json:"sunrise"`
	Sunset    string `json:"sunset"`
	Moonrise  string `json:"moonrise"`
	Moonset   string `json:"moonset"`
	MoonPhase string `json:"moon_phase"`
}

// Hour is one entry of a day's hourly series.
type Hour struct {
	Time         string    `json:"time"` // "2006-01-02 15:04"
	TempC        float64   `json:"temp_c"`
	Humidity     int       `json:"humidity"`
	WindKph      float64   `json:"wind_kph"`
	ChanceOfRain int       `json:"chance_of_rain"`
	Condition    Condition `json:"condition"`
}

// Alerts wraps the optional alert list.
type Alerts struct {
	Alert []Alert `json:"alert"`
}

// Alert is a provider-issued weather alert.
type Alert struct {
	Headline  string `json:"headline"`
	Severity  string `json:"severity"`
	Desc      string `json:"desc"`
	Effective string `json:"effective"`
}

// ProviderError is the in-payload error object the provider returns alongside 4xx responses.
type ProviderError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Days returns the daily series, or nil when the forecast block is absent.
func (p ForecastPayload) Days() []ForecastDay {
	if p.Forecast == nil {
		return nil
	}
	return p.Forecast.ForecastDay
}

// Validate performs the structural checks every consumer relies on.
func (p ForecastPayload) Validate() error {
	switch {
	case p.Current == nil:
		return fmt.Errorf("%w: missing current", ErrInvalidPayload)
	case p.Location == nil:
		return fmt.Errorf("%w: missing location", ErrInvalidPayload)
	case p.Forecast == nil:
		return fmt.Errorf("%w: missing forecast", ErrInvalidPayload)
	}
	return nil
}
