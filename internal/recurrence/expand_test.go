package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		weekDays []int
		start    time.Time
		end      time.Time
		want     []time.Time
	}{
		{
			name:     "monday and wednesday over ten days",
			weekDays: []int{1, 3},
			start:    day(2024, 1, 1),
			end:      day(2024, 1, 10),
			want:     []time.Time{day(2024, 1, 1), day(2024, 1, 3), day(2024, 1, 8), day(2024, 1, 10)},
		},
		{
			name:     "sunday is zero",
			weekDays: []int{0},
			start:    day(2024, 1, 1),
			end:      day(2024, 1, 14),
			want:     []time.Time{day(2024, 1, 7), day(2024, 1, 14)},
		},
		{
			name:     "single day range on a match",
			weekDays: []int{3},
			start:    day(2024, 1, 3),
			end:      day(2024, 1, 3),
			want:     []time.Time{day(2024, 1, 3)},
		},
		{
			name:     "no matching weekday",
			weekDays: []int{6},
			start:    day(2024, 1, 1),
			end:      day(2024, 1, 5),
			want:     []time.Time{},
		},
		{
			name:     "duplicate weekdays collapse",
			weekDays: []int{1, 1},
			start:    day(2024, 1, 1),
			end:      day(2024, 1, 8),
			want:     []time.Time{day(2024, 1, 1), day(2024, 1, 8)},
		},
		{
			name:     "time of day is ignored",
			weekDays: []int{1},
			start:    time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 1, 8, 1, 0, 0, 0, time.UTC),
			want:     []time.Time{day(2024, 1, 1), day(2024, 1, 8)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.weekDays, tt.start, tt.end)
			require.NoError(t, err)
			assert.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.True(t, tt.want[i].Equal(got[i]), "day %d: want %s got %s", i, tt.want[i], got[i])
			}
		})
	}
}

func TestExpand_InvertedRange(t *testing.T) {
	got, err := Expand([]int{1, 3}, day(2024, 1, 10), day(2024, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpand_Errors(t *testing.T) {
	_, err := Expand(nil, day(2024, 1, 1), day(2024, 1, 10))
	assert.ErrorIs(t, err, ErrNoWeekDays)

	_, err = Expand([]int{7}, day(2024, 1, 1), day(2024, 1, 10))
	assert.ErrorIs(t, err, ErrInvalidWeekDay)

	_, err = Expand([]int{1}, day(2000, 1, 1), day(2024, 1, 1))
	assert.ErrorIs(t, err, ErrSpanTooLong)
}
