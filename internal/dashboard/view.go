package dashboard

import (
	"github.com/kjstillabower/weatherx-dashboard/internal/astro"
	"github.com/kjstillabower/weatherx-dashboard/internal/classify"
	"github.com/kjstillabower/weatherx-dashboard/internal/models"
)

// View is the presentation-ready dashboard for one payload and one preference snapshot.
type View struct {
	Units      Units               `json:"units"`
	Location   LocationCard        `json:"location"`
	Main       MainCard            `json:"main"`
	Stats      Stats               `json:"stats"`
	Hourly     []HourlyCard        `json:"hourly"`
	Daily      []DailyCard         `json:"daily"`
	SunMoon    SunMoonCard         `json:"sunMoon"`
	Alerts     []AlertCard         `json:"alerts"`
	AirQuality *AirQualityCard     `json:"airQuality,omitempty"`
	Charts     Charts              `json:"charts"`
	Insights   []models.Insight    `json:"insights"`
	Background classify.Background `json:"background"`
}

// Units echoes the snapshot and its symbols.
type Units struct {
	models.UnitPreference
	Temperature string `json:"temperature"`
	Wind        string `json:"wind"`
}

type LocationCard struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
	LocalTime string  `json:"localTime"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

type MainCard struct {
	Temperature int    `json:"temperature"`
	FeelsLike   int    `json:"feelsLike"`
	High        int    `json:"high"`
	Low         int    `json:"low"`
	Condition   string `json:"condition"`
	IconURL     string `json:"iconUrl,omitempty"`
	Updated     string `json:"updated"`
}

type Stats struct {
	Humidity        int                    `json:"humidity"`
	Wind            int                    `json:"wind"`
	WindDir         string                 `json:"windDir"`
	Pressure        int                    `json:"pressure"`
	PressureTrend   classify.PressureTrend `json:"pressureTrend"`
	VisibilityKm    float64                `json:"visibilityKm"`
	Cloud           int                    `json:"cloud"`
	UV              float64                `json:"uv"`
	UVRisk          classify.UVRisk        `json:"uvRisk"`
	PrecipitationMm float64                `json:"precipitationMm"`
	ChanceOfRain    int                    `json:"chanceOfRain"`
	DewPoint        int                    `json:"dewPoint"`
}

type HourlyCard struct {
	Time         string `json:"time"`
	Temperature  int    `json:"temperature"`
	Condition    string `json:"condition"`
	IconURL      string `json:"iconUrl,omitempty"`
	Humidity     int    `json:"humidity"`
	Wind         int    `json:"wind"`
	ChanceOfRain int    `json:"chanceOfRain"`
}

type DailyCard struct {
	Label        string `json:"label"`
	Date         string `json:"date"`
	High         int    `json:"high"`
	Low          int    `json:"low"`
	Condition    string `json:"condition"`
	IconURL      string `json:"iconUrl,omitempty"`
	ChanceOfRain int    `json:"chanceOfRain"`
	Humidity     int    `json:"humidity"`
	Wind         int    `json:"wind"`
}

// SunMoonCard carries the astronomy strings and the derived sun position.
// Indeterminate is set, and SolarNoon/Sun left empty, when sunrise or sunset is unparseable.
type SunMoonCard struct {
	Sunrise       string     `json:"sunrise"`
	Sunset        string     `json:"sunset"`
	Moonrise      string     `json:"moonrise"`
	Moonset       string     `json:"moonset"`
	MoonPhase     string     `json:"moonPhase"`
	MoonSymbol    string     `json:"moonSymbol"`
	SolarNoon     string     `json:"solarNoon,omitempty"`
	Sun           *SunMarker `json:"sun,omitempty"`
	Indeterminate bool       `json:"indeterminate,omitempty"`
}

// SunMarker is the sun's arc position and its point on the arc.
type SunMarker struct {
	astro.ArcPosition
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type AlertCard struct {
	Headline  string `json:"headline"`
	Severity  string `json:"severity"`
	Desc      string `json:"desc"`
	Effective string `json:"effective"`
}

type AirQualityCard struct {
	Index int                 `json:"index"`
	Label classify.AirQuality `json:"label"`
}

// Charts holds the per-day series behind the four dashboard charts.
type Charts struct {
	Labels          []string         `json:"labels"`
	AvgTemperature  []int            `json:"avgTemperature"`
	MaxTemperature  []int            `json:"maxTemperature"`
	MinTemperature  []int            `json:"minTemperature"`
	Humidity        []float64        `json:"humidity"`
	PrecipitationMm []float64        `json:"precipitationMm"`
	Wind            []int            `json:"wind"`
	Conditions      []ConditionCount `json:"conditions"`
}

// ConditionCount is one slice of the condition chart, in first-seen order.
type ConditionCount struct {
	Condition string `json:"condition"`
	Count     int    `json:"count"`
}
