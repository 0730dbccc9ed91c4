package db

import (
	"strconv"
	"time"
)

// Stored field conversions. Dates travel as RFC 3339 UTC strings so that
// lexical comparison in select statements orders them chronologically; bools
// as "1"/"0"; numbers in their decimal form. Parsing is forgiving: a field
// that does not parse yields the zero value rather than an error, matching
// how the records behave when a field was never set.

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBool(s string) bool {
	return s == "1"
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func formatInt64(n int64) string {
	return strconv.FormatInt(n, 10)
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
