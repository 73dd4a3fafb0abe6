package aggregate

import (
	"fmt"
	"math"
)

// FormatDuration renders seconds as H:MM:SS, rounding to the nearest second.
// Hours are not wrapped at 24.
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
