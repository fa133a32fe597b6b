package netex

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/passbi/passbi_netex/internal/models"
)

// ParseMinutes parses a fixed-width "hh:mm[:ss]" time into minute of day.
// Seconds are ignored.
func ParseMinutes(value string) (uint16, error) {
	if len(value) < 5 || value[2] != ':' {
		return 0, fmt.Errorf("%w: time %q", models.ErrMalformedField, value)
	}
	hours, err := digits(value, 0, 1)
	if err != nil || hours > 23 {
		return 0, fmt.Errorf("%w: time %q", models.ErrMalformedField, value)
	}
	minutes, err := digits(value, 3, 4)
	if err != nil || minutes > 59 {
		return 0, fmt.Errorf("%w: time %q", models.ErrMalformedField, value)
	}
	return safecast.Conv[uint16](hours*60 + minutes)
}

// ParseDate parses "2022-06-13T00:00:00" as 220613
func ParseDate(value string) (uint32, error) {
	if len(value) < 10 || value[4] != '-' || value[7] != '-' {
		return 0, fmt.Errorf("%w: date %q", models.ErrMalformedField, value)
	}
	date, err := digits(value, 2, 3, 5, 6, 8, 9)
	if err != nil {
		return 0, fmt.Errorf("%w: date %q", models.ErrMalformedField, value)
	}
	return safecast.Conv[uint32](date)
}

// ParseCoordinate parses a decimal degree and clamps it to [-limit, limit]
func ParseCoordinate(value string, limit float64) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return 0, fmt.Errorf("%w: coordinate %q", models.ErrMalformedField, value)
	}
	f = max(-limit, min(limit, f))
	return float32(f), nil
}

// digits reads the ASCII digits at the given positions as one decimal number
func digits(value string, positions ...int) (int, error) {
	result := 0
	for _, p := range positions {
		c := value[p]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not a digit: %q", c)
		}
		result = result*10 + int(c-'0')
	}
	return result, nil
}

// cleanShortName strips the quotes some exporters leave in ShortName
func cleanShortName(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(value, `"`, ""))
}
