package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDayTwentyFourHour(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		for _, minute := range []int{0, 1, 30, 59} {
			raw := fmt.Sprintf("%02d:%02d", hour, minute)
			parsed, err := ParseTimeOfDay(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, TimeOfDay(hour*60+minute), parsed, raw)
		}
	}
}

func TestParseTimeOfDayTwelveHour(t *testing.T) {
	cases := map[string]TimeOfDay{
		"12:00 AM": 0,
		"12:00 PM": 720,
		"01:00 PM": 780,
		"1:00 pm":  780,
		"11:59 PM": 1439,
		"9:05 AM":  545,
		"12:30 am": 30,
	}
	for raw, want := range cases {
		parsed, err := ParseTimeOfDay(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, parsed, raw)
	}
}

func TestParseTimeOfDayRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{"", "noon", "25:00", "13:00 PM", "0:60", "7", "07:0x", "13:05 XM"} {
		_, err := ParseTimeOfDay(raw)
		assert.Error(t, err, raw)
	}
}

func TestTimeRangeOverlapSymmetry(t *testing.T) {
	ranges := []TimeRange{
		{Start: 0, End: 60},
		{Start: 30, End: 90},
		{Start: 60, End: 120},
		{Start: 0, End: 1439},
		{Start: 900, End: 960},
	}
	for _, a := range ranges {
		for _, b := range ranges {
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "%v vs %v", a, b)
		}
	}
}

func TestTimeRangeTouchingEndpointsDoNotOverlap(t *testing.T) {
	assert.False(t, TimeRange{Start: 0, End: 60}.Overlaps(TimeRange{Start: 60, End: 120}))
	assert.True(t, TimeRange{Start: 0, End: 61}.Overlaps(TimeRange{Start: 60, End: 120}))
}

func TestTimeRangeString(t *testing.T) {
	assert.Equal(t, "16:00-18:00", TimeRange{Start: 960, End: 1080}.String())
}
