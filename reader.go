package csvsql

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow/go/v18/arrow/array"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// parquetBatchRows is the number of rows read from a Parquet table at a time.
const parquetBatchRows = 1024

// ReadOptions controls how delimited text is parsed.
type ReadOptions struct {
	// Delimiter separates fields of CSV input. Zero selects ','.
	// TSV files always use a tab.
	Delimiter rune
	// NoHeader treats the first record as data and names columns c1..cN.
	NoHeader bool
	// Flexible allows records with a varying number of fields.
	Flexible bool
	// Trim removes leading and trailing white space from headers and fields.
	Trim bool
	// Comment starts a line to be ignored. Zero disables comments.
	Comment rune
	// LazyQuotes tolerates quotes in unquoted fields and unescaped quotes in quoted fields.
	LazyQuotes bool
	// Encoding is the character encoding label of the input. Empty means UTF-8.
	Encoding string
}

// ReadSource reads the file at path into a TabularSource. The format and
// compression are chosen from the file extension; unknown extensions are read
// as delimited text.
func ReadSource(ctx context.Context, path string, opts ReadOptions) (*TabularSource, error) {
	f, err := os.Open(path) //nolint:gosec // reading user supplied files is the purpose
	if err != nil {
		return nil, NewErrorContext("read", path).Error(err)
	}
	defer f.Close()

	r, cleanup, err := newDecompressor(f, DetectCompressionType(path))
	if err != nil {
		return nil, NewErrorContext("read", path).Error(err)
	}
	defer func() { _ = cleanup() }()

	ft, _ := detectFileType(path)
	src, err := ReadSourceFrom(ctx, TableNameFromPath(trimCompressionExtension(path)), r, ft, opts)
	if err != nil {
		return nil, NewErrorContext("read", path).Error(err)
	}
	return src, nil
}

// ReadSourceFrom reads r as a source of format ft named name.
func ReadSourceFrom(ctx context.Context, name string, r io.Reader, ft FileType, opts ReadOptions) (*TabularSource, error) {
	switch ft {
	case FileTypeXLSX:
		return readXLSX(name, r, opts)
	case FileTypeParquet:
		return readParquet(ctx, name, r, opts)
	}

	decoded, err := decodeInput(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	switch ft {
	case FileTypeLTSV:
		return readLTSV(name, decoded, opts)
	case FileTypeTSV:
		opts.Delimiter = tsvDelimiter
	}
	return readDelimited(name, decoded, opts)
}

// decodeInput converts r from the labeled encoding to UTF-8.
func decodeInput(r io.Reader, label string) (io.Reader, error) {
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %q", ErrUnsupportedFormat, label)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

func readDelimited(name string, r io.Reader, opts ReadOptions) (*TabularSource, error) {
	reader := csv.NewReader(r)
	reader.Comma = csvDelimiter
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = opts.LazyQuotes
	reader.ReuseRecord = false
	if opts.Flexible {
		reader.FieldsPerRecord = -1
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if opts.Trim {
		for _, record := range records {
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}
		}
	}
	return newSource(name, records, opts.NoHeader)
}

// newSource splits records into a header and data rows, or synthesizes
// positional names when noHeader is set.
func newSource(name string, records [][]string, noHeader bool) (*TabularSource, error) {
	if len(records) == 0 {
		return nil, ErrEmptyData
	}
	headers := records[0]
	if noHeader {
		width := 0
		for _, record := range records {
			width = max(width, len(record))
		}
		headers = positionalHeaders(width)
	} else {
		records = records[1:]
	}

	src := NewTabularSource(name, headers, records)
	src.Rows = padRows(src.Rows, len(headers))
	return src, nil
}

// readLTSV reads label:value records. Headers are collected in order of first
// appearance; a label missing from a record is an empty cell.
func readLTSV(name string, r io.Reader, opts ReadOptions) (*TabularSource, error) {
	var (
		headers []string
		index   = map[string]int{}
		rows    [][]*string
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if opts.Comment != 0 && strings.HasPrefix(line, string(opts.Comment)) {
			continue
		}

		values := map[int]string{}
		for _, field := range strings.Split(line, "\t") {
			label, value, ok := strings.Cut(field, ":")
			if !ok {
				continue
			}
			if opts.Trim {
				label = strings.TrimSpace(label)
				value = strings.TrimSpace(value)
			}
			i, seen := index[label]
			if !seen {
				i = len(headers)
				index[label] = i
				headers = append(headers, label)
			}
			values[i] = value
		}

		row := make([]*string, len(headers))
		for i, v := range values {
			row[i] = &v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyData
	}
	return &TabularSource{Name: name, Headers: headers, Rows: padRows(rows, len(headers))}, nil
}

// readXLSX reads the first sheet of a workbook. Rows may be short because
// trailing empty cells are not stored.
func readXLSX(name string, r io.Reader, opts ReadOptions) (*TabularSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyData
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if opts.Trim {
		for _, record := range records {
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}
		}
	}
	return newSource(name, records, opts.NoHeader)
}

// readParquet reads every row of a Parquet file as text. A null value is an
// empty cell.
func readParquet(ctx context.Context, name string, r io.Reader, _ ReadOptions) (*TabularSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer table.Release()

	fields := table.Schema().Fields()
	headers := make([]string, len(fields))
	for i, field := range fields {
		headers[i] = field.Name
	}

	records := make([][]string, 0, table.NumRows())
	tableReader := array.NewTableReader(table, parquetBatchRows)
	defer tableReader.Release()

	for tableReader.Next() {
		batch := tableReader.Record()
		for i := 0; i < int(batch.NumRows()); i++ {
			record := make([]string, batch.NumCols())
			for j, col := range batch.Columns() {
				if !col.IsNull(i) {
					record[j] = col.ValueStr(i)
				}
			}
			records = append(records, record)
		}
	}
	if err := tableReader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return NewTabularSource(name, headers, records), nil
}
