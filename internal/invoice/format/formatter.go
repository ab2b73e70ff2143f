package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateGranularity selects how much of the issue date goes into a pattern.
type DateGranularity string

const (
	GranularityYear       DateGranularity = "year"
	GranularityYearMonDay DateGranularity = "year-month-day"
)

// Valid reports whether g is a known granularity.
func (g DateGranularity) Valid() bool {
	return g == GranularityYear || g == GranularityYearMonDay
}

// DateString renders issuedAt as YY or YYMMDD.
func DateString(issuedAt time.Time, g DateGranularity) string {
	if g == GranularityYear {
		return issuedAt.Format("06")
	}
	return issuedAt.Format("060102")
}

// Pattern joins the pieces that every number of one category and date shares.
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
func Pattern(prefix, separator, categoryCode string, issuedAt time.Time, g DateGranularity) string {
	return prefix + separator + categoryCode + DateString(issuedAt, g)
}

// PadSequence left-pads seq with zeros to width. Wider sequences are kept whole.
func PadSequence(seq int64, width int) string {
	if width <= 0 {
		return strconv.FormatInt(seq, 10)
	}
	return fmt.Sprintf("%0*d", width, seq)
}

// FormatInvoiceNumber appends the padded sequence to pattern.
func FormatInvoiceNumber(pattern string, seq int64, width int) (string, error) {
	if pattern == "" {
		return "", fmt.Errorf("invoice number pattern is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	return pattern + PadSequence(seq, width), nil
}

// TrailingSequence extracts the sequence that follows pattern in number.
// It reports false when number does not start with pattern or the
// remainder is not a plain run of digits.
func TrailingSequence(number, pattern string) (int64, bool) {
	if pattern == "" || !strings.HasPrefix(number, pattern) {
		return 0, false
	}
	rest := number[len(pattern):]
	if rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
