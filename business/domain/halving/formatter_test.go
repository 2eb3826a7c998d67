package halving

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nervoshalving/countdown-service/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	testData := []struct {
		name     string
		millis   int64
		expected entities.Breakdown
	}{
		{
			name:     "sub second",
			millis:   999,
			expected: entities.Breakdown{},
		},
		{
			name:     "one second",
			millis:   1000,
			expected: entities.Breakdown{Seconds: 1},
		},
		{
			name:     "seconds are floored",
			millis:   59_999,
			expected: entities.Breakdown{Seconds: 59},
		},
		{
			name:     "every unit",
			millis:   year + 2*month + 3*day + 4*hour + 5*minute + 6*second + 7,
			expected: entities.Breakdown{Years: 1, Months: 2, Days: 3, Hours: 4, Minutes: 5, Seconds: 6},
		},
		{
			name:     "twelve months are less than a year",
			millis:   12 * month,
			expected: entities.Breakdown{Months: 12},
		},
		{
			name:     "year uses 365 days",
			millis:   365 * day,
			expected: entities.Breakdown{Years: 1},
		},
		{
			name:     "39 hours",
			millis:   140_400_000,
			expected: entities.Breakdown{Days: 1, Hours: 15},
		},
	}

	for _, td := range testData {
		t.Run(td.name, func(t *testing.T) {
			view := Format(td.millis)
			assert.False(t, view.IsPastDue)
			assert.Equal(t, td.millis, view.RemainingMillis)
			if diff := cmp.Diff(td.expected, view.Breakdown); diff != "" {
				t.Fatalf("unexpected breakdown (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormat_GivenNoTimeLeft_ThenPastDue(t *testing.T) {
	for _, millis := range []int64{0, -1, -999, -year, -1 << 62} {
		view := Format(millis)
		assert.True(t, view.IsPastDue, "millis [%d]", millis)
		assert.Equal(t, entities.Breakdown{}, view.Breakdown)
		assert.Equal(t, ReachedMessage, Render(view))
	}
}

func TestFormat_ReconstructsWithinOneSecond(t *testing.T) {
	for millis := int64(1); millis < 10*year; millis = millis*3 + 7 {
		b := Format(millis).Breakdown
		reconstructed := toMillis(b)
		require.LessOrEqual(t, reconstructed, millis)
		require.Greater(t, reconstructed, millis-1000)

		require.GreaterOrEqual(t, b.Seconds, int64(0))
		require.Less(t, b.Seconds, int64(60))
		require.Less(t, b.Minutes, int64(60))
		require.Less(t, b.Hours, int64(24))
		require.Less(t, b.Days, int64(30))
		require.Less(t, b.Months, int64(13))
	}
}

func TestRender(t *testing.T) {
	testData := []struct {
		name     string
		millis   int64
		expected string
	}{
		{
			name:     "fractional second still shows zero seconds",
			millis:   500,
			expected: "0 seconds",
		},
		{
			name:     "single second",
			millis:   1500,
			expected: "1 second",
		},
		{
			name:     "minutes add conjunction",
			millis:   3*minute + 4*second,
			expected: "3 minutes, and 4 seconds.",
		},
		{
			name:     "singular units",
			millis:   year + month + day + hour + minute + second,
			expected: "1 year, 1 month, 1 day, 1 hour, 1 minute, and 1 second.",
		},
		{
			name:     "zero minutes skip conjunction",
			millis:   2*year + 5*hour + 9*second,
			expected: "2 years, 5 hours, 9 seconds",
		},
		{
			name:     "zero seconds after minutes",
			millis:   2*day + 10*minute,
			expected: "2 days, 10 minutes, and 0 seconds.",
		},
	}

	for _, td := range testData {
		t.Run(td.name, func(t *testing.T) {
			assert.Equal(t, td.expected, Render(Format(td.millis)))
		})
	}
}

func TestRemaining(t *testing.T) {
	target := entities.HalvingTarget{TargetEpoch: 8760, TargetTime: now.Add(90 * time.Second)}

	view := Remaining(target, now)
	assert.Equal(t, entities.Breakdown{Minutes: 1, Seconds: 30}, view.Breakdown)

	view = Remaining(target, now.Add(91*time.Second))
	assert.True(t, view.IsPastDue)
}

func TestTargetSentence(t *testing.T) {
	target := entities.HalvingTarget{
		TargetEpoch: 8760,
		TargetTime:  time.Date(2024, time.November, 20, 3, 30, 0, 0, time.UTC),
	}

	assert.Equal(t, "The next halving is estimated to be reached on Wednesday, November 20, 2024.",
		TargetSentence(target, time.UTC))

	tokyo := time.FixedZone("JST", 9*60*60)
	assert.Equal(t, "The next halving is estimated to be reached on Wednesday, November 20, 2024.",
		TargetSentence(target, tokyo))

	honolulu := time.FixedZone("HST", -10*60*60)
	assert.Equal(t, "The next halving is estimated to be reached on Tuesday, November 19, 2024.",
		TargetSentence(target, honolulu))
}

func toMillis(b entities.Breakdown) int64 {
	return b.Years*year + b.Months*month + b.Days*day + b.Hours*hour + b.Minutes*minute + b.Seconds*second
}
