package netex

import (
	"testing"

	"github.com/passbi/passbi_netex/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected uint16
		hasError bool
	}{
		{name: "Short form", value: "12:34", expected: 754},
		{name: "With seconds", value: "12:34:00", expected: 754},
		{name: "Midnight", value: "00:00:00", expected: 0},
		{name: "Last minute", value: "23:59:00", expected: 1439},
		{name: "Hour out of range", value: "24:00:00", hasError: true},
		{name: "Not a number", value: "ab:cd", hasError: true},
		{name: "Too short", value: "1:30", hasError: true},
		{name: "Empty", value: "", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseMinutes(tt.value)
			if tt.hasError {
				assert.ErrorIs(t, err, models.ErrMalformedField)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected uint32
		hasError bool
	}{
		{name: "Date time", value: "2022-06-13T00:00:00", expected: 220613},
		{name: "Date only", value: "2023-12-01", expected: 231201},
		{name: "Start of century", value: "2000-01-01", expected: 101},
		{name: "Wrong separators", value: "2022/06/13", hasError: true},
		{name: "Too short", value: "2022-6-1", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseDate(tt.value)
			if tt.hasError {
				assert.ErrorIs(t, err, models.ErrMalformedField)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	lon, err := ParseCoordinate(" 10.75 ", 180)
	assert.NoError(t, err)
	assert.InDelta(t, 10.75, lon, 1e-6)

	clamped, err := ParseCoordinate("200", 180)
	assert.NoError(t, err)
	assert.Equal(t, float32(180), clamped)

	clamped, err = ParseCoordinate("-95.5", 90)
	assert.NoError(t, err)
	assert.Equal(t, float32(-90), clamped)

	_, err = ParseCoordinate("north", 90)
	assert.ErrorIs(t, err, models.ErrMalformedField)
}

func TestCleanShortName(t *testing.T) {
	assert.Equal(t, "Oslo S", cleanShortName(`"Oslo S"`))
	assert.Equal(t, "CTL", cleanShortName(" CTL "))
}
