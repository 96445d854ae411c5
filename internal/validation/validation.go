// Package validation checks user input before it reaches the weather provider or
// the account store.
package validation

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

const (
	QueryMinLen = 2
	QueryMaxLen = 100
)

var (
	ErrLocationEmpty        = errors.New("location is required")
	ErrLocationTooShort     = errors.New("location too short")
	ErrLocationTooLong      = errors.New("location too long")
	ErrLocationInvalidChars = errors.New("location contains invalid characters")
	ErrCoordinatesRange     = errors.New("coordinates out of range")
)

// ValidateLocation trims the input, enforces length bounds (minLen, maxLen in runes),
// and restricts to letters, digits, space, comma and hyphen.
func ValidateLocation(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrLocationEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrLocationTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrLocationTooLong
	}
	for _, c := range r {
		if !isAllowedLocationRune(c) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}

// ValidateQuery accepts either a place name or a "lat,lon" pair, the two query
// shapes the dashboard sends to the provider. Coordinates are normalized to
// "lat,lon" without spaces.
func ValidateQuery(input string) (string, error) {
	s := strings.TrimSpace(input)
	if lat, lon, ok := ParseCoordinates(s); ok {
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return "", ErrCoordinatesRange
		}
		return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64), nil
	}
	return ValidateLocation(s, QueryMinLen, QueryMaxLen)
}

// ParseCoordinates reports whether s is two comma-separated decimal numbers.
func ParseCoordinates(s string) (lat, lon float64, ok bool) {
	a, b, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// NormalizeQuery is the key used to share in-flight fetches: lowercase, single spaces.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func isAllowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-':
		return true
	}
	return false
}
