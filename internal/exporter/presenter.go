package exporter

import (
	"sort"

	"callreport/internal/aggregate"
)

// Section is the slice of a report belonging to one bucket.
type Section struct {
	Label string
	Key   string
	Rows  []aggregate.Row
}

// View is a report ready for display.
type View struct {
	Granularity aggregate.Granularity
	Sectioned   bool
	Sections    []Section
	Rows        []aggregate.Row
	Stats       aggregate.Stats
}

// Empty reports whether there is nothing to show.
func (v *View) Empty() bool {
	return v == nil || len(v.Rows) == 0
}

// Render builds the display view. Weekly and daily reports get one section
// per bucket in chronological order; rows inside a section keep the result
// order, so they stay sorted by call time.
func Render(res *aggregate.Result) *View {
	if res == nil {
		return &View{Granularity: aggregate.DefaultGranularity}
	}

	v := &View{
		Granularity: res.Granularity,
		Sectioned:   res.Granularity.Sectioned(),
		Rows:        res.Rows,
		Stats:       res.Stats,
	}
	if !v.Sectioned {
		return v
	}

	byKey := make(map[string]int)
	var buckets []aggregate.Bucket
	for _, row := range res.Rows {
		key := row.Bucket.Key()
		pos, ok := byKey[key]
		if !ok {
			pos = len(v.Sections)
			byKey[key] = pos
			buckets = append(buckets, row.Bucket)
			v.Sections = append(v.Sections, Section{Label: row.Bucket.Label(), Key: key})
		}
		v.Sections[pos].Rows = append(v.Sections[pos].Rows, row)
	}

	order := make([]int, len(v.Sections))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return buckets[order[i]].Before(buckets[order[j]])
	})
	sorted := make([]Section, len(order))
	for i, pos := range order {
		sorted[i] = v.Sections[pos]
	}
	v.Sections = sorted

	return v
}
