package date

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"2024-03-01", true},
		{"2024-12-31", true},
		{"2024-02-31", true}, // pattern-level only
		{"2024-13-01", false},
		{"2024-00-10", false},
		{"2024-01-00", false},
		{"2024-01-32", false},
		{"24-01-01", false},
		{"2024-1-01", false},
		{"2024-01-01 ", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestValidClock(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidClock("09:00"))
	assert.True(t, ValidClock("23:59"))
	assert.False(t, ValidClock("24:00"))
	assert.False(t, ValidClock("9:00"))
	assert.False(t, ValidClock("09:60"))
}

func TestContains(t *testing.T) {
	t.Parallel()

	from := New(2024, time.March, 1)
	to := New(2024, time.March, 31)

	assert.True(t, Contains("2024-03-15", &from, &to))
	assert.True(t, Contains("2024-03-01", &from, &to))
	assert.False(t, Contains("2024-04-01", &from, &to))
	assert.False(t, Contains("not-a-date", &from, nil))
	assert.True(t, Contains("not-a-date", nil, nil))
}

func TestCurrentMonth(t *testing.T) {
	t.Parallel()

	v := CurrentMonth(time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, ViewMonth{Month: 9, Year: 2026}, v)
	assert.True(t, v.Valid())
	assert.False(t, ViewMonth{Month: 12, Year: 2026}.Valid())
}

func TestDate_JSON(t *testing.T) {
	t.Parallel()

	d := New(2024, time.March, 1)
	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01"`, string(data))

	var back Date
	require.NoError(t, back.UnmarshalJSON(data))
	assert.True(t, d.Equal(back.Time))
	require.Error(t, back.UnmarshalJSON([]byte(`"03/01/2024"`)))
}
