package aggregate

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
)

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// parseTimestamp reads a date cell. Cells the workbook stored as numbers
// are Excel serials and carry no zone, so they become wall clock time in
// loc. Text goes through dateparse even when it looks numeric, so "2024"
// is a year and not serial 2024.
func parseTimestamp(raw string, serial, date1904 bool, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if serial {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 || v > maxExcelSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(v, date1904)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), true
	}

	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(loc), true
}

// parseDuration reads seconds as a number, or H:MM:SS / M:SS text.
// Blank, malformed and negative values report false.
func parseDuration(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ":") {
		return parseClock(s)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func parseClock(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	var total float64
	for i, p := range parts {
		last := i == len(parts)-1
		var v float64
		if last {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil || f < 0 || f >= 60 {
				return 0, false
			}
			v = f
		} else {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				return 0, false
			}
			if i > 0 && n >= 60 {
				return 0, false
			}
			v = float64(n)
		}
		total = total*60 + v
	}
	return total, true
}
