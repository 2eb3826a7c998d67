package halving

import (
	"fmt"
	"strings"
	"time"

	"github.com/nervoshalving/countdown-service/entities"
)

// Fixed-size buckets, not calendar units. A year is always 365 days and a month 30.
const (
	second int64 = 1000
	minute       = 60 * second
	hour         = 60 * minute
	day          = 24 * hour
	month        = 30 * day
	year         = 365 * day
)

const (
	ReachedMessage = "Happy Halving! 🎈🎉🎈🍾"
	LoadingMessage = "..."

	targetDateLayout = "Monday, January 2, 2006"
)

// Format breaks the remaining time down greedily from years to seconds. Seconds are
// floored, so up to 999ms may be dropped. Anything below one millisecond is past due.
func Format(remainingMillis int64) entities.CountdownView {
	if remainingMillis < 1 {
		return entities.CountdownView{
			RemainingMillis: remainingMillis,
			IsPastDue:       true,
		}
	}

	rest := remainingMillis
	take := func(unit int64) int64 {
		n := rest / unit
		rest -= n * unit
		return n
	}

	return entities.CountdownView{
		RemainingMillis: remainingMillis,
		Breakdown: entities.Breakdown{
			Years:   take(year),
			Months:  take(month),
			Days:    take(day),
			Hours:   take(hour),
			Minutes: take(minute),
			Seconds: take(second),
		},
	}
}

func Remaining(target entities.HalvingTarget, now time.Time) entities.CountdownView {
	return Format(target.TargetTime.Sub(now).Milliseconds())
}

// Render turns a view into the countdown sentence, e.g.
// "1 year, 2 months, 3 minutes, and 1 second.". Seconds are always shown.
func Render(view entities.CountdownView) string {
	if view.IsPastDue {
		return ReachedMessage
	}

	b := view.Breakdown
	larger := []struct {
		value int64
		unit  string
	}{
		{b.Years, "year"},
		{b.Months, "month"},
		{b.Days, "day"},
		{b.Hours, "hour"},
		{b.Minutes, "minute"},
	}

	parts := make([]string, 0, len(larger)+1)
	for _, u := range larger {
		if u.value > 0 {
			parts = append(parts, pluralize(u.value, u.unit))
		}
	}

	seconds := pluralize(b.Seconds, "second")
	if b.Minutes > 0 {
		parts = append(parts, "and "+seconds)
		return strings.Join(parts, ", ") + "."
	}
	parts = append(parts, seconds)
	return strings.Join(parts, ", ")
}

func TargetSentence(target entities.HalvingTarget, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	date := target.TargetTime.In(loc).Format(targetDateLayout)
	return fmt.Sprintf("The next halving is estimated to be reached on %s.", date)
}

func pluralize(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
