package csvsql

import "strings"

// QuoteStyle controls when delimited output fields are quoted.
type QuoteStyle int

const (
	// QuoteNecessary quotes fields containing the delimiter, a quote, a line break or leading space
	QuoteNecessary QuoteStyle = iota
	// QuoteAlways quotes every field
	QuoteAlways
	// QuoteNonNumeric quotes every field that is not a number
	QuoteNonNumeric
	// QuoteNever never quotes fields
	QuoteNever
)

// String returns the string representation of QuoteStyle
func (q QuoteStyle) String() string {
	switch q {
	case QuoteAlways:
		return "always"
	case QuoteNonNumeric:
		return "non-numeric"
	case QuoteNever:
		return "never"
	default:
		return "necessary"
	}
}

// ParseQuoteStyle parses a quote style name as accepted on the command line.
func ParseQuoteStyle(name string) (QuoteStyle, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "necessary":
		return QuoteNecessary, nil
	case "always":
		return QuoteAlways, nil
	case "non-numeric", "nonnumeric":
		return QuoteNonNumeric, nil
	case "never":
		return QuoteNever, nil
	default:
		return QuoteNecessary, NewErrorContext("parse quote style", "").WithDetails(name).Error(ErrUnsupportedFormat)
	}
}

// ExportOptions configures how a result is written.
//
// Example:
//
//	options := NewExportOptions().
//		WithFormat(FileTypeTSV).
//		WithCompression(CompressionGZ)
//
//	err := Export(ctx, result, FileSink("result.tsv.gz", options))
type ExportOptions struct {
	// Format specifies the output file format
	Format FileType
	// Compression specifies the compression type
	Compression CompressionType
	// Delimiter separates fields of CSV output. Zero selects ','.
	Delimiter rune
	// QuoteStyle controls quoting of CSV and TSV fields
	QuoteStyle QuoteStyle
	// OmitHeader leaves out the header record
	OmitHeader bool
	// Encoding is the character encoding label of text output. Empty means UTF-8.
	Encoding string
}

// NewExportOptions creates default export options (CSV, no compression,
// necessary quoting, header included).
func NewExportOptions() ExportOptions {
	return ExportOptions{
		Format:      FileTypeCSV,
		Compression: CompressionNone,
		Delimiter:   csvDelimiter,
		QuoteStyle:  QuoteNecessary,
	}
}

// WithFormat sets the output file format.
func (o ExportOptions) WithFormat(format FileType) ExportOptions {
	o.Format = format
	return o
}

// WithCompression adds compression to the output.
func (o ExportOptions) WithCompression(compression CompressionType) ExportOptions {
	o.Compression = compression
	return o
}

// WithDelimiter sets the CSV field delimiter.
func (o ExportOptions) WithDelimiter(delimiter rune) ExportOptions {
	o.Delimiter = delimiter
	return o
}

// WithQuoteStyle sets the quoting policy of delimited output.
func (o ExportOptions) WithQuoteStyle(style QuoteStyle) ExportOptions {
	o.QuoteStyle = style
	return o
}

// WithoutHeader omits the header record.
func (o ExportOptions) WithoutHeader() ExportOptions {
	o.OmitHeader = true
	return o
}

// WithEncoding sets the character encoding of text output.
func (o ExportOptions) WithEncoding(label string) ExportOptions {
	o.Encoding = label
	return o
}

// FileExtension returns the complete file extension including compression
func (o ExportOptions) FileExtension() string {
	return o.Format.Extension() + o.Compression.Extension()
}

// delimiter returns the effective field delimiter for delimited formats.
func (o ExportOptions) delimiter() rune {
	if o.Format == FileTypeTSV {
		return tsvDelimiter
	}
	if o.Delimiter == 0 {
		return csvDelimiter
	}
	return o.Delimiter
}
