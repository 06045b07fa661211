// Package filesize renders byte counts for people.
package filesize

import (
	"math"
	"strconv"
)

var units = []string{"Bytes", "KB", "MB", "GB"}

// Format returns bytes as a human string using 1024-based units, rounded to
// two decimals: 0 -> "0 Bytes", 1536 -> "1.5 KB". Values past the GB range
// stay in GB.
func Format(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	if i < 0 {
		i = 0
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}

// Reduction returns the percentage by which result is smaller than original,
// rounded to one decimal. It is negative when the result grew.
func Reduction(original, result int64) float64 {
	if original <= 0 {
		return 0
	}
	pct := float64(original-result) / float64(original) * 100
	return math.Round(pct*10) / 10
}
