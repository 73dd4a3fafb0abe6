// Package aggregate turns a call log table into per-period, per-group
// totals of call time and call counts.
package aggregate

import (
	"context"
	"sort"
	"time"

	"callreport/internal/category"
	"callreport/internal/config"
	apierrors "callreport/internal/errors"
	"callreport/internal/spreadsheet"
)

// cancellation is checked once per this many rows.
const checkEvery = 1024

// Options names the required columns and the location timestamps are
// interpreted in.
type Options struct {
	Columns  config.ColumnsConfig
	Location *time.Location
}

// DefaultOptions uses the default column names and UTC.
func DefaultOptions() Options {
	return Options{
		Columns: config.ColumnsConfig{
			Date:        config.DefaultDateColumn,
			Destination: config.DefaultDestinationColumn,
			Duration:    config.DefaultDurationColumn,
		},
		Location: time.UTC,
	}
}

// Row is one (bucket, group) aggregate.
type Row struct {
	Bucket  Bucket
	Group   string
	Seconds float64
	Calls   int
}

// Duration is the H:MM:SS rendering of Seconds.
func (r Row) Duration() string { return FormatDuration(r.Seconds) }

// Stats describes how the input rows were consumed.
type Stats struct {
	InputRows        int `json:"input_rows"`
	InvalidDates     int `json:"invalid_dates"`
	Unmapped         int `json:"unmapped"`
	InvalidDurations int `json:"invalid_durations"`
	Aggregated       int `json:"aggregated"`
}

// Result is an aggregation sorted by total call time, longest first.
type Result struct {
	Granularity Granularity
	Rows        []Row
	Stats       Stats
}

// TotalCalls sums Calls over all rows.
func (r *Result) TotalCalls() int {
	n := 0
	for _, row := range r.Rows {
		n += row.Calls
	}
	return n
}

// Validate checks that every required column is present in the header and
// reports all missing ones at once, in required order.
func Validate(table *spreadsheet.Table, cols config.ColumnsConfig) error {
	var missing []string
	for _, name := range cols.Required() {
		if table == nil || table.ColumnIndex(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return apierrors.NewMissingColumnsError(missing)
	}
	return nil
}

type groupKey struct {
	start int64
	group string
}

// Aggregate validates the table, drops rows with unparseable dates or
// unmapped destinations, then sums durations and counts calls per bucket
// and group.
func Aggregate(ctx context.Context, table *spreadsheet.Table, g Granularity, mapper category.Mapper, opts Options) (*Result, error) {
	if err := Validate(table, opts.Columns); err != nil {
		return nil, err
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	dateCol := table.ColumnIndex(opts.Columns.Date)
	destCol := table.ColumnIndex(opts.Columns.Destination)
	durCol := table.ColumnIndex(opts.Columns.Duration)

	res := &Result{Granularity: g}
	index := make(map[groupKey]int)

	for i := range table.Rows {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		res.Stats.InputRows++

		ts, ok := parseTimestamp(table.Cell(i, dateCol), table.IsNumber(i, dateCol), table.Date1904, loc)
		if !ok {
			res.Stats.InvalidDates++
			continue
		}

		group, ok := mapper.GroupOf(table.Cell(i, destCol))
		if !ok {
			res.Stats.Unmapped++
			continue
		}

		secs, ok := parseDuration(table.Cell(i, durCol))
		if !ok {
			res.Stats.InvalidDurations++
			secs = 0
		}

		b := BucketFor(g, ts)
		key := groupKey{start: b.Start.Unix(), group: group}
		pos, seen := index[key]
		if !seen {
			pos = len(res.Rows)
			index[key] = pos
			res.Rows = append(res.Rows, Row{Bucket: b, Group: group})
		}
		res.Rows[pos].Seconds += secs
		res.Rows[pos].Calls++
		res.Stats.Aggregated++
	}

	sortRows(res.Rows)
	return res, nil
}

// sortRows orders by bucket then group, then stably by total seconds
// descending, so equal totals keep chronological order.
func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Bucket.Start.Equal(rows[j].Bucket.Start) {
			return rows[i].Bucket.Start.Before(rows[j].Bucket.Start)
		}
		return rows[i].Group < rows[j].Group
	})
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Seconds > rows[j].Seconds
	})
}
