package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp_Empty(t *testing.T) {
	got, err := ParseTimestamp("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = ParseTimestamp("   ")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestParseTimestamp_Formats(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-10-04T13:24:00Z", time.Date(2025, 10, 4, 13, 24, 0, 0, time.UTC)},
		{"2025-10-04T13:24:00.123456Z", time.Date(2025, 10, 4, 13, 24, 0, 123456000, time.UTC)},
		{"2025-10-04T13:24:00+00:00", time.Date(2025, 10, 4, 13, 24, 0, 0, time.UTC)},
		{"2025-10-04T09:24:00-04:00", time.Date(2025, 10, 4, 13, 24, 0, 0, time.UTC)},
		{"2025-10-04T13:24:00", time.Date(2025, 10, 4, 13, 24, 0, 0, time.UTC)},
		{"2025-10-04 13:24:00", time.Date(2025, 10, 4, 13, 24, 0, 0, time.UTC)},
		{"2025-10-04", time.Date(2025, 10, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(tc.want), "%s parsed to %s", tc.in, got)
	}
}

func TestParseTimestamp_OverlongFraction(t *testing.T) {
	got, err := ParseTimestamp("2025-10-04T13:24:00.1234567891+00:00")
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, 24, got.Minute())
}

func TestParseTimestamp_Garbage(t *testing.T) {
	_, err := ParseTimestamp("next tuesday")
	assert.Error(t, err)
}

func TestParseTimestampOr(t *testing.T) {
	def := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, def, ParseTimestampOr("", def))
	assert.Equal(t, def, ParseTimestampOr("garbage", def))
	assert.Equal(t, 2025, ParseTimestampOr("2025-10-04T00:00:00Z", def).Year())
}
