package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2020-01-01", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{" 2020-10-31 ", time.Date(2020, 10, 31, 0, 0, 0, 0, time.UTC), true},
		{"2024-10-10T10:10:10Z", time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC), true},
		{"2024-10-10T12:10:10+02:00", time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC), true},
		{"2020-13-01", time.Time{}, false},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTime(tt.in)
			require.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	assert.Equal(t, def, ParseTimeDefault("", def))
	assert.Equal(t, def, ParseTimeDefault("nope", def))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2020-10-31", FormatDate(time.Date(2020, 10, 31, 23, 0, 0, 0, time.UTC)))
}
