package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFPS(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"zero", 0, "0 fps"},
		{"small", 23.976, "24.0 fps"},
		{"sixty", 60, "60.0 fps"},
		{"thousands", 1204.3, "1,204.3 fps"},
		{"millions", 1234567.8, "1,234,567.8 fps"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatFPS(tc.input))
		})
	}
}

func TestFormatGB(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"zero", 0, "0.00 GB"},
		{"fraction", 0.5, "0.50 GB"},
		{"rounding", 321.5678, "321.57 GB"},
		{"thousands", 1234.567, "1,234.57 GB"},
		{"negative", -10.25, "-10.25 GB"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatGB(tc.input))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{"zero", 0, "0"},
		{"small", 42, "42"},
		{"exactly_thousand", 1000, "1,000"},
		{"millions", 12345678, "12,345,678"},
		{"negative", -12345, "-12,345"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatNumber(tc.input))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "34.5%", FormatPercent(34.5, true))
	assert.Equal(t, "0.0%", FormatPercent(0, true))
	assert.Equal(t, "100.0%", FormatPercent(100, true))
	assert.Equal(t, "---", FormatPercent(0, false))
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v2.17.01", FormatVersion("2.17.01"))
	assert.Equal(t, "", FormatVersion(""))
}
