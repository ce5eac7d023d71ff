package format

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatFPS formats a frame rate with comma-separated thousands and one
// decimal place. Example: 1204.3 → "1,204.3 fps", 0 → "0 fps".
func FormatFPS(fps float64) string {
	if fps == 0 {
		return "0 fps"
	}
	return formatCommaFloat(fps) + " fps"
}

// FormatGB formats a gigabyte figure with two decimal places.
// Example: 1234.567 → "1,234.57 GB".
func FormatGB(gb float64) string {
	formatted := fmt.Sprintf("%.2f", gb)
	sign := ""
	if strings.HasPrefix(formatted, "-") {
		sign = "-"
		formatted = formatted[1:]
	}
	parts := strings.SplitN(formatted, ".", 2)
	return sign + insertCommas(parts[0]) + "." + parts[1] + " GB"
}

// FormatNumber formats an integer with locale-style comma separators.
// Example: 12345678 → "12,345,678".
// Uses strconv.FormatInt directly to avoid abs64 overflow for math.MinInt64.
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	if n < 0 {
		// s starts with "-"; strip it, insert commas, restore sign.
		return "-" + insertCommas(s[1:])
	}
	return insertCommas(s)
}

// FormatPercent formats a percentage with one decimal place.
// Example: 34.5 → "34.5%". The ok flag marks values that are undefined for
// the current snapshot; those render as "---".
func FormatPercent(p float64, ok bool) string {
	if !ok {
		return "---"
	}
	return fmt.Sprintf("%.1f%%", p)
}

// FormatVersion prefixes a server version for display. Empty stays empty.
func FormatVersion(v string) string {
	if v == "" {
		return ""
	}
	return "v" + v
}

// formatCommaFloat formats a float with comma-separated thousands and one decimal place.
func formatCommaFloat(f float64) string {
	formatted := fmt.Sprintf("%.1f", f)
	sign := ""
	if len(formatted) > 0 && formatted[0] == '-' {
		sign = "-"
		formatted = formatted[1:]
	}
	parts := strings.SplitN(formatted, ".", 2)
	intPart := insertCommas(parts[0])
	if len(parts) == 2 {
		return sign + intPart + "." + parts[1]
	}
	return sign + intPart
}

// insertCommas inserts comma separators into a digit string every 3 digits from the right.
func insertCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var buf strings.Builder
	lead := n % 3
	if lead > 0 {
		buf.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(s[i : i+3])
	}
	return buf.String()
}
