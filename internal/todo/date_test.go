package todo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d)
	assert.Equal(t, "2024-02-29", d.String())

	_, err = ParseDate("")
	assert.ErrorIs(t, err, ErrMissingDate)

	_, err = ParseDate("2023-02-29")
	assert.Error(t, err)
	assert.False(t, IsValidation(err))
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want Clock
		str  string
	}{
		{"09:05", Clock{Hour: 9, Minute: 5}, "09:05"},
		{"23:59:30", Clock{Hour: 23, Minute: 59, Second: 30}, "23:59:30"},
		{"00:00", Clock{}, "00:00"},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.str, got.String())
	}

	_, err := ParseClock("25:00")
	assert.Error(t, err)
}

func TestDateArithmetic(t *testing.T) {
	d := Date{Year: 2024, Month: time.June, Day: 10}
	assert.Equal(t, Date{Year: 2024, Month: time.June, Day: 17}, d.AddDays(7))
	assert.Equal(t, Date{Year: 2024, Month: time.July, Day: 10}, d.AddMonths(1))
	assert.Equal(t, Date{Year: 2023, Month: time.December, Day: 31}, Date{Year: 2024, Month: time.January, Day: 1}.AddDays(-1))

	t.Run("month end clamps", func(t *testing.T) {
		assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, Date{Year: 2024, Month: time.January, Day: 31}.AddMonths(1))
		assert.Equal(t, Date{Year: 2023, Month: time.February, Day: 28}, Date{Year: 2023, Month: time.January, Day: 31}.AddMonths(1))
		assert.Equal(t, Date{Year: 2025, Month: time.January, Day: 31}, Date{Year: 2024, Month: time.December, Day: 31}.AddMonths(1))
	})

	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddMonths(1).After(d))
	assert.Equal(t, 0, d.Compare(DateOf(time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC))))
}

func TestClockCompare(t *testing.T) {
	a := Clock{Hour: 9}
	b := Clock{Hour: 9, Second: 1}
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(ClockOf(time.Date(2024, 1, 1, 9, 0, 0, 999, time.UTC))))
}
