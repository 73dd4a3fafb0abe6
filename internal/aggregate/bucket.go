package aggregate

import (
	"fmt"
	"time"
)

// Bucket is one calendar period. Start is midnight of its first day and End
// is midnight of its last day, both in the aggregation location.
type Bucket struct {
	Granularity Granularity
	Start       time.Time
	End         time.Time
}

// BucketFor returns the period of g containing t, evaluated in t's location.
// Weeks run Monday through Sunday.
func BucketFor(g Granularity, t time.Time) Bucket {
	y, m, d := t.Date()
	loc := t.Location()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch g {
	case Day:
		return Bucket{Granularity: Day, Start: day, End: day}
	case Week:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return Bucket{Granularity: Week, Start: start, End: start.AddDate(0, 0, 6)}
	default:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return Bucket{Granularity: Month, Start: start, End: start.AddDate(0, 1, -1)}
	}
}

// Key is the machine-readable period identifier used in exports:
// 2024-01, 2024-01-01/2024-01-07 or 2024-01-02.
func (b Bucket) Key() string {
	switch b.Granularity {
	case Day:
		return b.Start.Format("2006-01-02")
	case Week:
		return b.Start.Format("2006-01-02") + "/" + b.End.Format("2006-01-02")
	default:
		return b.Start.Format("2006-01")
	}
}

// Label is the human-readable section heading.
func (b Bucket) Label() string {
	switch b.Granularity {
	case Day:
		return fmt.Sprintf("%s (%s)", b.Start.Format("2006-01-02"), b.Start.Weekday())
	case Week:
		year, week := b.Start.ISOWeek()
		return fmt.Sprintf("Week %d-W%02d: %s to %s", year, week,
			b.Start.Format("2006-01-02"), b.End.Format("2006-01-02"))
	default:
		return b.Start.Format("January 2006")
	}
}

// Before orders buckets chronologically.
func (b Bucket) Before(other Bucket) bool {
	return b.Start.Before(other.Start)
}
