package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBound(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"2024-01-15T10:30:00+02:00", time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), false},
		{"7d", now.AddDate(0, 0, -7), false},
		{"2w", now.AddDate(0, 0, -14), false},
		{"0d", now, false},
		{"", time.Time{}, true},
		{"yesterday", time.Time{}, true},
		{"3m", time.Time{}, true},
		{"-3d", time.Time{}, true},
		{"2024-13-01", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBound(tt.input, now)
			if tt.wantErr {
				var vErr *ValidationError
				assert.ErrorAs(t, err, &vErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestParsePeriod(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := ParsePeriod("30d", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC), got)

	_, err = ParsePeriod("2024-01-01", now)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "period", vErr.Field)
}

func TestFormatBounds(t *testing.T) {
	assert.Equal(t, "2024-03-01", formatStart(time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-01", formatEnd(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-02", formatEnd(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{"2024-01-01T08:00:00Z", "2024-01-01T08:00:00.123Z", "2024-01-01T08:00:00", "2024-01-01 08:00:00"} {
		_, ok := parseTimestamp(s)
		assert.True(t, ok, s)
	}
	for _, s := range []string{"", "not a time", "2024-01-01"} {
		_, ok := parseTimestamp(s)
		assert.False(t, ok, s)
	}
}
