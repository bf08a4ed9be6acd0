package dates

import (
	"fmt"
	"strings"
	"time"
)

// Now is the clock used for access dates; tests may replace it.
var Now = time.Now

// NowISO returns the current UTC date as YYYY-MM-DD.
func NowISO() string { return Now().UTC().Format("2006-01-02") }

// ExtractYear scans a string and returns a plausible 4-digit year if found.
func ExtractYear(s string) int {
	s = strings.TrimSpace(s)
	for i := 0; i+4 <= len(s); i++ {
		var y int
		if _, err := fmt.Sscanf(s[i:i+4], "%d", &y); err == nil {
			if y >= 1000 && y <= Now().Year()+1 {
				return y
			}
		}
	}
	return 0
}

// FromParts converts CSL style date-parts ([[2023, 7, 14]]) into a year and an
// optional YYYY-MM-DD date. A missing day defaults to the first of the month.
func FromParts(parts [][]int) (int, string) {
	if len(parts) == 0 || len(parts[0]) == 0 {
		return 0, ""
	}
	dp := parts[0]
	switch {
	case len(dp) >= 3:
		return dp[0], fmt.Sprintf("%04d-%02d-%02d", dp[0], dp[1], dp[2])
	case len(dp) == 2:
		return dp[0], fmt.Sprintf("%04d-%02d-01", dp[0], dp[1])
	}
	return dp[0], ""
}

// MonthNumber maps an English month name or abbreviation to 1-12, or 0.
func MonthNumber(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 3 {
		return 0
	}
	for m := time.January; m <= time.December; m++ {
		if strings.HasPrefix(strings.ToLower(m.String()), name[:3]) {
			return int(m)
		}
	}
	return 0
}
