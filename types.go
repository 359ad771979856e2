package csvsql

import (
	"regexp"
	"strconv"
)

// Processing constants
const (
	// DefaultBatchSize is the maximum number of rows covered by one INSERT statement
	DefaultBatchSize = 50
	// DefaultRawIDColumn is the name of the surrogate key prepended to every table
	DefaultRawIDColumn = "_raw_id"
	// DefaultPageSize is the number of rows in one result page
	DefaultPageSize = 100
	// DefaultScrollStep is the number of rows a page-scroll moves the cursor
	DefaultScrollStep = 8
)

// File format delimiters
const (
	// csvDelimiter is the delimiter for CSV files
	csvDelimiter = ','
	// tsvDelimiter is the delimiter for TSV files
	tsvDelimiter = '\t'
)

// Kind is a storable value kind. Kinds are totally ordered by widening:
// KindInteger < KindReal < KindText.
type Kind int

const (
	// KindInteger represents a signed 64-bit integer
	KindInteger Kind = iota
	// KindReal represents a floating point number
	KindReal
	// KindText represents any other value
	KindText
)

// String returns the SQL type name declared for the kind.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// IsNumeric reports whether values of the kind are rendered as bare tokens.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindReal
}

var (
	// numberWithLeadingZeros accepts any run of digits, e.g. "007" or "-00.5".
	numberWithLeadingZeros = regexp.MustCompile(`^-?((\d+)|(\d+\.\d*)|(\.\d+))$`)
	// numberWithoutLeadingZeros rejects "007" but still accepts "0", "0.5" and ".5".
	numberWithoutLeadingZeros = regexp.MustCompile(`^-?(([1-9]\d*)|([1-9]\d*\.\d*)|(0?\.\d+)|0)$`)
)

// Detect returns the narrowest kind able to store token.
// Tokens outside the numeric grammar are KindText. A token inside the grammar is
// KindInteger when it fits in an int64, otherwise KindReal when it parses as a float.
func Detect(token string, allowLeadingZeros bool) Kind {
	grammar := numberWithoutLeadingZeros
	if allowLeadingZeros {
		grammar = numberWithLeadingZeros
	}
	if !grammar.MatchString(token) {
		return KindText
	}
	if _, err := strconv.ParseInt(token, 10, 64); err == nil {
		return KindInteger
	}
	if _, err := strconv.ParseFloat(token, 64); err == nil {
		return KindReal
	}
	return KindText
}

// Widen returns the wider of two kinds.
func Widen(current, candidate Kind) Kind {
	if candidate > current {
		return candidate
	}
	return current
}
