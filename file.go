package csvsql

import (
	"path/filepath"
	"strings"
)

// FileType is the tabular format of an input or output file.
type FileType int

const (
	// FileTypeCSV represents delimited text; the delimiter comes from options
	FileTypeCSV FileType = iota
	// FileTypeTSV represents tab separated values
	FileTypeTSV
	// FileTypeLTSV represents labeled tab separated values
	FileTypeLTSV
	// FileTypeXLSX represents an Excel workbook
	FileTypeXLSX
	// FileTypeParquet represents an Apache Parquet file
	FileTypeParquet
)

// File extensions
const (
	extCSV     = ".csv"
	extTSV     = ".tsv"
	extLTSV    = ".ltsv"
	extXLSX    = ".xlsx"
	extParquet = ".parquet"
	extGZ      = ".gz"
	extBZ2     = ".bz2"
	extXZ      = ".xz"
	extZSTD    = ".zst"
)

// String returns the format name
func (ft FileType) String() string {
	switch ft {
	case FileTypeTSV:
		return "tsv"
	case FileTypeLTSV:
		return "ltsv"
	case FileTypeXLSX:
		return "xlsx"
	case FileTypeParquet:
		return "parquet"
	default:
		return "csv"
	}
}

// Extension returns the file extension for the format
func (ft FileType) Extension() string {
	return "." + ft.String()
}

// ParseFileType parses a format name as accepted on the command line.
func ParseFileType(name string) (FileType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "csv":
		return FileTypeCSV, nil
	case "tsv":
		return FileTypeTSV, nil
	case "ltsv":
		return FileTypeLTSV, nil
	case "xlsx":
		return FileTypeXLSX, nil
	case "parquet":
		return FileTypeParquet, nil
	default:
		return FileTypeCSV, NewErrorContext("parse format", "").WithDetails(name).Error(ErrUnsupportedFormat)
	}
}

// detectFileType returns the format implied by the extension of path once
// any compression extension is removed. ok is false for unknown extensions.
func detectFileType(path string) (ft FileType, ok bool) {
	switch strings.ToLower(filepath.Ext(trimCompressionExtension(path))) {
	case extCSV:
		return FileTypeCSV, true
	case extTSV:
		return FileTypeTSV, true
	case extLTSV:
		return FileTypeLTSV, true
	case extXLSX:
		return FileTypeXLSX, true
	case extParquet:
		return FileTypeParquet, true
	default:
		return FileTypeCSV, false
	}
}

// IsTSVFileName reports whether path names a TSV file, ignoring case and any
// compression extension.
func IsTSVFileName(path string) bool {
	ft, ok := detectFileType(path)
	return ok && ft == FileTypeTSV
}
