package numbering

import (
	"unicode"

	"github.com/smallbiznis/invoicer/internal/invoice/format"
)

const (
	DefaultPrefix         = "PPFI"
	DefaultSeparator      = "-"
	DefaultSequenceLength = 4

	maxPrefixLength    = 16
	maxSeparatorLength = 3
	maxSequenceLength  = 12
)

type DateGranularity = format.DateGranularity

const (
	GranularityYear       = format.GranularityYear
	GranularityYearMonDay = format.GranularityYearMonDay
)

// Config describes how invoice numbers are laid out.
type Config struct {
	Prefix          string          `json:"prefix"`
	Separator       string          `json:"separator"`
	SequenceLength  int             `json:"sequence_length"`
	DateGranularity DateGranularity `json:"date_granularity"`
}

func DefaultConfig() Config {
	return Config{
		Prefix:          DefaultPrefix,
		Separator:       DefaultSeparator,
		SequenceLength:  DefaultSequenceLength,
		DateGranularity: GranularityYearMonDay,
	}
}

// Validate reports the first invalid field. Values are never adjusted.
func (c Config) Validate() error {
	switch {
	case c.Prefix == "":
		return &ValidationError{Field: "prefix", Message: "is required"}
	case len(c.Prefix) > maxPrefixLength:
		return &ValidationError{Field: "prefix", Message: "must be at most 16 characters"}
	case !printableNoSpace(c.Prefix):
		return &ValidationError{Field: "prefix", Message: "must not contain whitespace"}
	case len(c.Separator) > maxSeparatorLength:
		return &ValidationError{Field: "separator", Message: "must be at most 3 characters"}
	case !printableNoSpace(c.Separator):
		return &ValidationError{Field: "separator", Message: "must not contain whitespace"}
	case c.SequenceLength < 1 || c.SequenceLength > maxSequenceLength:
		return &ValidationError{Field: "sequence_length", Message: "must be between 1 and 12"}
	case !c.DateGranularity.Valid():
		return &ValidationError{Field: "date_granularity", Message: "must be year or year-month-day"}
	}
	return nil
}

func printableNoSpace(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
