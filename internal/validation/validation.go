package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrCityEmpty is returned when the city is empty or whitespace-only after trim.
var ErrCityEmpty = errors.New("city is required")

// ErrCityTooShort is returned when the city name length is below the minimum.
var ErrCityTooShort = errors.New("city name too short")

// ErrCityTooLong is returned when the city name length exceeds the maximum.
var ErrCityTooLong = errors.New("city name too long")

// ErrCityInvalidChars is returned when the city name contains disallowed characters.
var ErrCityInvalidChars = errors.New("city name contains invalid characters")

// ErrLatitudeOutOfRange is returned when latitude is outside [-90, 90].
var ErrLatitudeOutOfRange = errors.New("latitude must be between -90 and 90")

// ErrLongitudeOutOfRange is returned when longitude is outside [-180, 180].
var ErrLongitudeOutOfRange = errors.New("longitude must be between -180 and 180")

// ValidateCity trims the input, enforces length bounds (minLen, maxLen in
// runes), and restricts to letters (Unicode), digits, space, comma, period,
// apostrophe, hyphen. Returns the trimmed string or an error suitable for
// 400 responses. Normalization (e.g. lowercase) is left to callers.
func ValidateCity(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrCityEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrCityTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if !isAllowedCityRune(c) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}

// ValidateCoordinates checks that the pair is within WGS84 bounds.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: got %v", ErrLatitudeOutOfRange, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: got %v", ErrLongitudeOutOfRange, lon)
	}
	return nil
}

// isAllowedCityRune returns true for letters (Unicode), digits, space, comma,
// period, apostrophe, hyphen.
func isAllowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '.', '\'', '-':
		return true
	}
	return false
}
