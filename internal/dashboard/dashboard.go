// Package dashboard assembles the presentation-ready View from a forecast payload
// and a unit-preference snapshot. It is the only caller of the core packages
// (units, classify, astro, insights) and performs no I/O.
package dashboard

import (
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kjstillabower/weatherx-dashboard/internal/astro"
	"github.com/kjstillabower/weatherx-dashboard/internal/classify"
	"github.com/kjstillabower/weatherx-dashboard/internal/insights"
	"github.com/kjstillabower/weatherx-dashboard/internal/models"
	"github.com/kjstillabower/weatherx-dashboard/internal/units"
)

// ErrInvalidPayload is returned when current, location or forecast is missing.
var ErrInvalidPayload = models.ErrInvalidPayload

const (
	// DefaultArcRadius is the sun arc radius used when none is configured.
	DefaultArcRadius = 120.0
	// nextDayHours is how many of tomorrow's hours follow today's in the hourly strip.
	nextDayHours = 12

	providerTimeLayout = "2006-01-02 15:04"
	providerDateLayout = "2006-01-02"
	clockLayout        = "03:04 PM"
	dayLabelLayout     = "Mon"
	shortDateLayout    = "Jan 2"
	longDateLayout     = "Mon, Jan 2"
	placeholderTime    = "--:--"
	placeholderDate    = "--"
)

// Builder renders Views. The clock stands in for the location's local time when
// the payload does not carry a parseable one.
type Builder struct {
	clock     clockwork.Clock
	arcRadius float64
}

// NewBuilder returns a Builder. A nil clock uses real time; a non-positive radius uses DefaultArcRadius.
func NewBuilder(clock clockwork.Clock, arcRadius float64) *Builder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if arcRadius <= 0 {
		arcRadius = DefaultArcRadius
	}
	return &Builder{clock: clock, arcRadius: arcRadius}
}

// Build renders every card with one preference snapshot.
func (b *Builder) Build(p models.ForecastPayload, pref models.UnitPreference) (View, error) {
	if err := p.Validate(); err != nil {
		return View{}, err
	}
	conv := units.For(pref)
	days := p.Days()
	cur := *p.Current
	localNow := b.localNow(*p.Location)

	v := View{
		Units: Units{
			UnitPreference: pref,
			Temperature:    conv.TemperatureUnit(),
			Wind:           conv.WindUnit(),
		},
		Location:   locationCard(*p.Location),
		Main:       mainCard(cur, days, conv),
		Stats:      stats(cur, days, conv),
		Hourly:     hourly(days, conv),
		Daily:      daily(days, conv),
		Alerts:     alerts(p.Alerts),
		AirQuality: airQuality(cur.AirQuality),
		Charts:     charts(days, conv),
		Insights:   insights.Generate(cur, days, pref),
		Background: classify.BackgroundOf(cur.Condition.Text),
	}
	if len(days) > 0 {
		v.SunMoon = b.sunMoon(days[0].Astro, localNow)
	}
	return v, nil
}

// localNow resolves the location's current wall-clock time in its own zone.
func (b *Builder) localNow(l models.Location) time.Time {
	zone := time.UTC
	if l.TzID != "" {
		if z, err := time.LoadLocation(l.TzID); err == nil {
			zone = z
		}
	}
	if t, err := time.ParseInLocation(providerTimeLayout, l.LocalTime, zone); err == nil {
		return t
	}
	return b.clock.Now().In(zone)
}

func locationCard(l models.Location) LocationCard {
	tz := l.TzID
	if i := strings.LastIndex(tz, "/"); i >= 0 {
		tz = tz[i+1:]
	}
	return LocationCard{
		Name:      l.Name,
		Country:   l.Country,
		Timezone:  tz,
		LocalTime: formatClock(l.LocalTime),
		Lat:       l.Lat,
		Lon:       l.Lon,
	}
}

func mainCard(c models.Current, days []models.ForecastDay, conv units.Converter) MainCard {
	m := MainCard{
		Temperature: conv.DisplayTemperature(c.TempC),
		FeelsLike:   conv.DisplayTemperature(c.FeelsLikeC),
		Condition:   c.Condition.Text,
		IconURL:     iconURL(strings.Replace(c.Condition.Icon, "64x64", "128x128", 1)),
		Updated:     formatClock(c.LastUpdated),
	}
	if len(days) > 0 {
		m.High = conv.DisplayTemperature(days[0].Day.MaxTempC)
		m.Low = conv.DisplayTemperature(days[0].Day.MinTempC)
	}
	return m
}

func stats(c models.Current, days []models.ForecastDay, conv units.Converter) Stats {
	s := Stats{
		Humidity:        c.Humidity,
		Wind:            conv.DisplayWind(c.WindKph),
		WindDir:         c.WindDir,
		Pressure:        units.Round(c.PressureMb),
		PressureTrend:   classify.PressureTrendOf(c.PressureMb),
		VisibilityKm:    c.VisKm,
		Cloud:           c.Cloud,
		UV:              c.UV,
		UVRisk:          classify.UVRiskOf(c.UV),
		PrecipitationMm: c.PrecipMm,
		DewPoint:        conv.DisplayTemperature(c.DewPointC),
	}
	if len(days) > 0 {
		s.ChanceOfRain = days[0].Day.DailyChanceOfRain
	}
	return s
}

// hourly shows all of today's hours followed by the first twelve of tomorrow.
// Fewer than two days yields no strip.
func hourly(days []models.ForecastDay, conv units.Converter) []HourlyCard {
	if len(days) < 2 {
		return []HourlyCard{}
	}
	next := days[1].Hour
	if len(next) > nextDayHours {
		next = next[:nextDayHours]
	}
	hours := make([]models.Hour, 0, len(days[0].Hour)+len(next))
	hours = append(hours, days[0].Hour...)
	hours = append(hours, next...)

	cards := make([]HourlyCard, len(hours))
	for i, h := range hours {
		cards[i] = HourlyCard{
			Time:         formatClock(h.Time),
			Temperature:  conv.DisplayTemperature(h.TempC),
			Condition:    h.Condition.Text,
			IconURL:      iconURL(h.Condition.Icon),
			Humidity:     h.Humidity,
			Wind:         conv.DisplayWind(h.WindKph),
			ChanceOfRain: h.ChanceOfRain,
		}
	}
	return cards
}

func daily(days []models.ForecastDay, conv units.Converter) []DailyCard {
	cards := make([]DailyCard, len(days))
	for i, d := range days {
		label, date := placeholderDate, placeholderDate
		if t, err := time.Parse(providerDateLayout, d.Date); err == nil {
			label = t.Format(dayLabelLayout)
			date = t.Format(shortDateLayout)
		}
		if i == 0 {
			label = "Today"
		}
		cards[i] = DailyCard{
			Label:        label,
			Date:         date,
			High:         conv.DisplayTemperature(d.Day.MaxTempC),
			Low:          conv.DisplayTemperature(d.Day.MinTempC),
			Condition:    d.Day.Condition.Text,
			IconURL:      iconURL(d.Day.Condition.Icon),
			ChanceOfRain: d.Day.DailyChanceOfRain,
			Humidity:     units.Round(d.Day.AvgHumidity),
			Wind:         conv.DisplayWind(d.Day.MaxWindKph),
		}
	}
	return cards
}

func (b *Builder) sunMoon(a models.Astro, localNow time.Time) SunMoonCard {
	card := SunMoonCard{
		Sunrise:    a.Sunrise,
		Sunset:     a.Sunset,
		Moonrise:   a.Moonrise,
		Moonset:    a.Moonset,
		MoonPhase:  a.MoonPhase,
		MoonSymbol: classify.MoonPhaseSymbol(a.MoonPhase),
	}
	sun, err := astro.Sun(a.Sunrise, a.Sunset, localNow)
	if err != nil {
		card.Indeterminate = true
		return card
	}
	card.SolarNoon = sun.SolarNoon.Format(clockLayout)
	marker := &SunMarker{ArcPosition: sun.Arc}
	if sun.Arc.Visible {
		marker.X, marker.Y = astro.ArcPoint(sun.Arc.Percentage, b.arcRadius)
	}
	card.Sun = marker
	return card
}

func alerts(a *models.Alerts) []AlertCard {
	if a == nil {
		return []AlertCard{}
	}
	cards := make([]AlertCard, len(a.Alert))
	for i, al := range a.Alert {
		effective := placeholderDate
		if t, err := time.Parse(time.RFC3339, al.Effective); err == nil {
			effective = t.Format(longDateLayout)
		}
		cards[i] = AlertCard{
			Headline:  al.Headline,
			Severity:  al.Severity,
			Desc:      al.Desc,
			Effective: effective,
		}
	}
	return cards
}

func airQuality(aq *models.AirQuality) *AirQualityCard {
	if aq == nil {
		return nil
	}
	return &AirQualityCard{
		Index: aq.USEPAIndex,
		Label: classify.AirQualityLabel(aq.USEPAIndex),
	}
}

func charts(days []models.ForecastDay, conv units.Converter) Charts {
	c := Charts{
		Labels:          make([]string, len(days)),
		AvgTemperature:  make([]int, len(days)),
		MaxTemperature:  make([]int, len(days)),
		MinTemperature:  make([]int, len(days)),
		Humidity:        make([]float64, len(days)),
		PrecipitationMm: make([]float64, len(days)),
		Wind:            make([]int, len(days)),
		Conditions:      []ConditionCount{},
	}
	seen := make(map[string]int)
	for i, d := range days {
		c.Labels[i] = placeholderDate
		if t, err := time.Parse(providerDateLayout, d.Date); err == nil {
			c.Labels[i] = t.Format(shortDateLayout)
		}
		c.AvgTemperature[i] = conv.DisplayTemperature(d.Day.AvgTempC)
		c.MaxTemperature[i] = conv.DisplayTemperature(d.Day.MaxTempC)
		c.MinTemperature[i] = conv.DisplayTemperature(d.Day.MinTempC)
		c.Humidity[i] = d.Day.AvgHumidity
		c.PrecipitationMm[i] = d.Day.TotalPrecipMm
		c.Wind[i] = conv.DisplayWind(d.Day.MaxWindKph)

		cond := d.Day.Condition.Text
		if idx, ok := seen[cond]; ok {
			c.Conditions[idx].Count++
			continue
		}
		seen[cond] = len(c.Conditions)
		c.Conditions = append(c.Conditions, ConditionCount{Condition: cond, Count: 1})
	}
	return c
}

// formatClock renders a provider "2006-01-02 15:04" stamp as "03:04 PM".
func formatClock(stamp string) string {
	t, err := time.Parse(providerTimeLayout, stamp)
	if err != nil {
		return placeholderTime
	}
	return t.Format(clockLayout)
}

// iconURL makes the provider's protocol-relative icon path absolute.
func iconURL(icon string) string {
	if icon == "" {
		return ""
	}
	if strings.HasPrefix(icon, "//") {
		return "https:" + icon
	}
	return icon
}
