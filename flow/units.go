package flow

import (
	"fmt"
	"math"
)

var units = []string{"Bytes", "KB", "MB", "GB", "TB"}

// AdjustUnit scales bytes to the largest binary unit that keeps the value
// below 1024.
func AdjustUnit(bytes float64) (float64, string) {
	for _, u := range units {
		if bytes < 1024 {
			return bytes, u
		}
		bytes /= 1024
	}
	return bytes, "PB"
}

// HumanBytes formats bytes with two decimals, e.g. "1.50 GB".
func HumanBytes(bytes float64) string {
	v, u := AdjustUnit(bytes)
	return fmt.Sprintf("%.2f %s", v, u)
}

// FormatDuration renders seconds as e.g. "1h05m09s", "03m07s" or "42s".
func FormatDuration(sec float64) string {
	total := int64(math.Round(math.Max(sec, 0)))
	h, m, s := total/3600, total/60%60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%02dm%02ds", m, s)
	}
	return fmt.Sprintf("%02ds", s)
}
