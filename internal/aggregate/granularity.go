package aggregate

import (
	"fmt"
	"strings"

	apierrors "callreport/internal/errors"
)

// Granularity is the size of the calendar period rows are bucketed by.
type Granularity string

const (
	Month Granularity = "Month"
	Week  Granularity = "Week"
	Day   Granularity = "Day"
)

// DefaultGranularity is used when none is requested.
const DefaultGranularity = Month

// Granularities lists the options in the order the UI presents them.
func Granularities() []Granularity {
	return []Granularity{Month, Week, Day}
}

// ParseGranularity accepts Month, Week or Day in any case. An empty string
// yields DefaultGranularity.
func ParseGranularity(s string) (Granularity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultGranularity, nil
	}
	for _, g := range Granularities() {
		if strings.EqualFold(s, string(g)) {
			return g, nil
		}
	}
	return "", apierrors.NewAppValidationError("granularity",
		fmt.Sprintf("unknown granularity %q: expected Month, Week or Day", s))
}

// Sectioned reports whether reports at this granularity are split into one
// section per bucket.
func (g Granularity) Sectioned() bool {
	return g == Week || g == Day
}

func (g Granularity) String() string { return string(g) }
