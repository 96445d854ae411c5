// Package astro parses provider clock strings and derives solar noon and the
// sun's position along the daylight arc.
package astro

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	// ErrParse is returned for clock strings that are not "H:MM AM" or "H:MM PM".
	ErrParse = errors.New("astro: unparseable clock time")
	// ErrIndeterminate is returned when sunrise or sunset could not be parsed.
	ErrIndeterminate = errors.New("astro: sun position indeterminate")
)

// clock anchors ParseClockTime to "today". Tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// ParseClockTime parses "H:MM AM"/"H:MM PM" anchored to the current local date.
func ParseClockTime(text string) (time.Time, error) {
	return ParseClockTimeOn(text, clock.Now())
}

// ParseClockTimeOn parses "H:MM AM"/"H:MM PM" anchored to the calendar date and zone of day.
// Only the time of day is meaningful; seconds are zero.
func ParseClockTimeOn(text string, day time.Time) (time.Time, error) {
	hour, minute, err := parseClock(text)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location()), nil
}

func parseClock(text string) (int, int, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrParse, text)
	}
	hm, period := fields[0], strings.ToUpper(fields[1])
	hs, ms, ok := strings.Cut(hm, ":")
	if !ok || len(ms) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrParse, text)
	}
	hour, err := strconv.Atoi(hs)
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrParse, text)
	}
	minute, err := strconv.Atoi(ms)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrParse, text)
	}
	switch period {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrParse, text)
	}
	return hour, minute, nil
}

// SolarNoon is the midpoint between sunrise and sunset.
func SolarNoon(sunrise, sunset time.Time) time.Time {
	return sunrise.Add(sunset.Sub(sunrise) / 2)
}

// ArcPosition is the sun's progress across the daylight arc.
// Percentage is meaningful only when Visible.
type ArcPosition struct {
	Percentage float64 `json:"percentage"`
	Visible    bool    `json:"visible"`
}

// SunArcPosition places now on the [sunrise, sunset] interval as a 0..100 percentage.
func SunArcPosition(sunrise, sunset, now time.Time) ArcPosition {
	total := sunset.Sub(sunrise)
	elapsed := now.Sub(sunrise)
	if total <= 0 || elapsed < 0 || elapsed > total {
		return ArcPosition{}
	}
	return ArcPosition{
		Percentage: float64(elapsed) / float64(total) * 100,
		Visible:    true,
	}
}

// ArcPoint maps a percentage to a point on a semicircle of the given radius.
// 0% is (0, -r), 50% is (r, 0) and 100% is (0, r).
func ArcPoint(percentage, radius float64) (x, y float64) {
	angle := percentage / 100 * 180
	rad := (angle - 90) * math.Pi / 180
	return radius * math.Cos(rad), radius * math.Sin(rad)
}

// SunState is everything the sun/moon card derives from one day's astronomy.
type SunState struct {
	Sunrise   time.Time
	Sunset    time.Time
	SolarNoon time.Time
	Arc       ArcPosition
}

// Sun parses sunrise and sunset on now's calendar date and derives noon and arc position.
// Returns ErrIndeterminate when either time is unparseable.
func Sun(sunriseText, sunsetText string, now time.Time) (SunState, error) {
	sunrise, err := ParseClockTimeOn(sunriseText, now)
	if err != nil {
		return SunState{}, fmt.Errorf("%w: sunrise: %w", ErrIndeterminate, err)
	}
	sunset, err := ParseClockTimeOn(sunsetText, now)
	if err != nil {
		return SunState{}, fmt.Errorf("%w: sunset: %w", ErrIndeterminate, err)
	}
	return SunState{
		Sunrise:   sunrise,
		Sunset:    sunset,
		SolarNoon: SolarNoon(sunrise, sunset),
		Arc:       SunArcPosition(sunrise, sunset, now),
	}, nil
}
