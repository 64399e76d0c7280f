package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekdayPrefixes(t *testing.T) {
	cases := map[string]Weekday{
		"Mon":       Monday,
		"monday":    Monday,
		"TUESDAY":   Tuesday,
		"wed":       Wednesday,
		"Thu":       Thursday,
		"friday":    Friday,
		"Sat":       Saturday,
		"sUnDaY":    Sunday,
		" Wed ":     Wednesday,
		"Thursdays": Thursday,
	}
	for raw, want := range cases {
		day, err := ParseWeekday(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, day, raw)
	}
}

func TestParseWeekdayRejectsUnknownTokens(t *testing.T) {
	for _, raw := range []string{"", "Mo", "Funday", "8"} {
		_, err := ParseWeekday(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseWeekdaySet(t *testing.T) {
	set, err := ParseWeekdaySet("Mon, Wed,Fri")
	require.NoError(t, err)
	assert.Equal(t, []Weekday{Monday, Wednesday, Friday}, set.Days())

	_, err = ParseWeekdaySet("Mon,Blursday")
	assert.Error(t, err)

	_, err = ParseWeekdaySet("")
	assert.Error(t, err)
}

func TestWeekdaySetIntersect(t *testing.T) {
	a := NewWeekdaySet(Monday, Wednesday)
	b := NewWeekdaySet(Wednesday, Friday)
	assert.Equal(t, []Weekday{Wednesday}, a.Intersect(b).Days())

	disjoint := NewWeekdaySet(Tuesday, Thursday)
	assert.True(t, a.Intersect(disjoint).Empty())
}

func TestWeekdaySetString(t *testing.T) {
	assert.Equal(t, "Monday, Friday", NewWeekdaySet(Friday, Monday).String())
}
