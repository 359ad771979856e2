package csvsql

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const (
	// xlsxSheetName is the sheet results are written to
	xlsxSheetName = "Sheet1"
	// parquetBatchRecords is the number of rows buffered per Parquet record batch
	parquetBatchRecords = 1024
)

// RecordWriter writes the rows of one export.
type RecordWriter interface {
	Write(record []string) error
	// Close flushes buffered output and releases the destination.
	Close() error
}

// ExportSink is the destination of an export. The core does not know whether
// rows end up in a file, a pipe or a terminal.
type ExportSink interface {
	// Open prepares the destination for rows described by header.
	Open(ctx context.Context, header []string) (RecordWriter, error)
	// String names the destination for messages.
	String() string
}

// Export writes every row of result to sink. An empty result is refused with
// ErrEmptyResult and leaves the destination untouched.
func Export(ctx context.Context, result StatementResult, sink ExportSink) error {
	if result.IsEmpty() {
		return ErrEmptyResult
	}
	return WriteResult(ctx, result, sink)
}

// WriteResult writes result to sink, header included unless the sink's
// options omit it, even when there are no rows.
func WriteResult(ctx context.Context, result StatementResult, sink ExportSink) (err error) {
	w, err := sink.Open(ctx, result.Header)
	if err != nil {
		return NewErrorContext("export", sink.String()).Error(err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = NewErrorContext("export", sink.String()).Error(closeErr)
		}
	}()

	for _, row := range result.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(row); err != nil {
			return NewErrorContext("export", sink.String()).Error(err)
		}
	}
	return nil
}

type fileSink struct {
	path string
	opts ExportOptions
}

// FileSink writes to the file at path. A known format extension overrides
// opts.Format and a compression extension overrides opts.Compression, so
// "out.tsv.gz" is always gzip compressed TSV.
func FileSink(path string, opts ExportOptions) ExportSink {
	if ft, ok := detectFileType(path); ok {
		opts.Format = ft
	}
	if c := DetectCompressionType(path); c != CompressionNone {
		opts.Compression = c
	}
	return &fileSink{path: path, opts: opts}
}

func (s *fileSink) Open(_ context.Context, header []string) (RecordWriter, error) {
	f, err := os.Create(s.path) //nolint:gosec // the destination is chosen by the user
	if err != nil {
		return nil, err
	}
	w, err := newRecordWriter(f, header, s.opts)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(s.path)
		return nil, err
	}
	return &closingWriter{RecordWriter: w, closer: f.Close}, nil
}

func (s *fileSink) String() string {
	return s.path
}

type writerSink struct {
	w    io.Writer
	opts ExportOptions
}

// WriterSink writes to w, which is never closed. It serves standard output
// and pipes.
func WriterSink(w io.Writer, opts ExportOptions) ExportSink {
	return &writerSink{w: w, opts: opts}
}

func (s *writerSink) Open(_ context.Context, header []string) (RecordWriter, error) {
	return newRecordWriter(s.w, header, s.opts)
}

func (s *writerSink) String() string {
	return "writer"
}

// closingWriter runs closer after the wrapped writer is closed.
type closingWriter struct {
	RecordWriter
	closer func() error
}

func (c *closingWriter) Close() error {
	return errors.Join(c.RecordWriter.Close(), c.closer())
}

// newRecordWriter layers compression, then the format writer, over w.
func newRecordWriter(w io.Writer, header []string, opts ExportOptions) (RecordWriter, error) {
	compressed, finish, err := newCompressor(w, opts.Compression)
	if err != nil {
		return nil, err
	}

	var rw RecordWriter
	switch opts.Format {
	case FileTypeXLSX:
		rw, err = newXLSXWriter(compressed, header, opts)
	case FileTypeParquet:
		rw, err = newParquetWriter(compressed, header)
	case FileTypeLTSV:
		rw, err = newLTSVWriter(compressed, header, opts)
	default:
		rw, err = newDelimitedWriter(compressed, header, opts)
	}
	if err != nil {
		_ = finish()
		return nil, err
	}
	return &closingWriter{RecordWriter: rw, closer: finish}, nil
}

// encodeOutput converts UTF-8 written to the returned writer into the
// labeled encoding. The close function flushes the encoder.
func encodeOutput(w io.Writer, label string) (io.Writer, func() error, error) {
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return w, nopCleanup, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encoding %q", ErrUnsupportedFormat, label)
	}
	tw := transform.NewWriter(w, enc.NewEncoder())
	return tw, tw.Close, nil
}

// textWriter buffers encoded text output.
type textWriter struct {
	buf    *bufio.Writer
	finish func() error
}

func newTextWriter(w io.Writer, label string) (*textWriter, error) {
	encoded, finish, err := encodeOutput(w, label)
	if err != nil {
		return nil, err
	}
	return &textWriter{buf: bufio.NewWriter(encoded), finish: finish}, nil
}

func (t *textWriter) Close() error {
	return errors.Join(t.buf.Flush(), t.finish())
}

type delimitedWriter struct {
	*textWriter
	delimiter string
	style     QuoteStyle
}

func newDelimitedWriter(w io.Writer, header []string, opts ExportOptions) (*delimitedWriter, error) {
	tw, err := newTextWriter(w, opts.Encoding)
	if err != nil {
		return nil, err
	}
	dw := &delimitedWriter{
		textWriter: tw,
		delimiter:  string(opts.delimiter()),
		style:      opts.QuoteStyle,
	}
	if !opts.OmitHeader {
		if err := dw.Write(header); err != nil {
			return nil, err
		}
	}
	return dw, nil
}

func (d *delimitedWriter) Write(record []string) error {
	for i, field := range record {
		if i > 0 {
			if _, err := d.buf.WriteString(d.delimiter); err != nil {
				return err
			}
		}
		if d.needsQuotes(field) {
			field = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
		}
		if _, err := d.buf.WriteString(field); err != nil {
			return err
		}
	}
	return d.buf.WriteByte('\n')
}

func (d *delimitedWriter) needsQuotes(field string) bool {
	switch d.style {
	case QuoteAlways:
		return true
	case QuoteNever:
		return false
	case QuoteNonNumeric:
		return Detect(field, true) == KindText
	default:
		if field == "" {
			return false
		}
		return strings.Contains(field, d.delimiter) ||
			strings.ContainsAny(field, "\"\r\n") ||
			field[0] == ' ' || field[0] == '\t'
	}
}

type ltsvWriter struct {
	*textWriter
	labels []string
}

func newLTSVWriter(w io.Writer, header []string, opts ExportOptions) (*ltsvWriter, error) {
	tw, err := newTextWriter(w, opts.Encoding)
	if err != nil {
		return nil, err
	}
	return &ltsvWriter{textWriter: tw, labels: header}, nil
}

func (l *ltsvWriter) Write(record []string) error {
	fields := make([]string, 0, len(record))
	for i, value := range record {
		label := fmt.Sprintf("c%d", i+1)
		if i < len(l.labels) {
			label = l.labels[i]
		}
		fields = append(fields, label+":"+value)
	}
	if _, err := l.buf.WriteString(strings.Join(fields, "\t")); err != nil {
		return err
	}
	return l.buf.WriteByte('\n')
}

// xlsxWriter streams rows into the first sheet of a new workbook and writes
// the workbook to w on Close.
type xlsxWriter struct {
	w      io.Writer
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

func newXLSXWriter(w io.Writer, header []string, opts ExportOptions) (*xlsxWriter, error) {
	f := excelize.NewFile()
	stream, err := f.NewStreamWriter(xlsxSheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create sheet writer: %w", err)
	}
	xw := &xlsxWriter{w: w, file: f, stream: stream}
	if !opts.OmitHeader {
		cells := make([]any, len(header))
		for i, h := range header {
			cells[i] = h
		}
		if err := xw.setRow(cells); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return xw, nil
}

func (x *xlsxWriter) Write(record []string) error {
	cells := make([]any, len(record))
	for i, value := range record {
		cells[i] = xlsxCellValue(value)
	}
	return x.setRow(cells)
}

func (x *xlsxWriter) setRow(cells []any) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	return x.stream.SetRow(cell, cells)
}

func (x *xlsxWriter) Close() error {
	if err := x.stream.Flush(); err != nil {
		_ = x.file.Close()
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	_, err := x.file.WriteTo(struct{ io.Writer }{x.w})
	return errors.Join(err, x.file.Close())
}

// xlsxCellValue stores numeric text as a number so spreadsheets can compute with it.
func xlsxCellValue(value string) any {
	switch Detect(value, false) {
	case KindInteger:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case KindReal:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return value
}

// parquetWriter writes every column as a nullable UTF-8 string.
type parquetWriter struct {
	writer  *pqarrow.FileWriter
	builder *array.RecordBuilder
	pending int
}

func newParquetWriter(w io.Writer, header []string) (*parquetWriter, error) {
	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(schema, struct{ io.Writer }{w}, props, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	return &parquetWriter{
		writer:  writer,
		builder: array.NewRecordBuilder(memory.DefaultAllocator, schema),
	}, nil
}

func (p *parquetWriter) Write(record []string) error {
	for i := range p.builder.Fields() {
		b, ok := p.builder.Field(i).(*array.StringBuilder)
		if !ok {
			return fmt.Errorf("unexpected builder for column %d", i)
		}
		if i < len(record) {
			b.Append(record[i])
		} else {
			b.AppendNull()
		}
	}
	p.pending++
	if p.pending >= parquetBatchRecords {
		return p.flush()
	}
	return nil
}

func (p *parquetWriter) flush() error {
	if p.pending == 0 {
		return nil
	}
	rec := p.builder.NewRecord()
	defer rec.Release()
	p.pending = 0
	if err := p.writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write parquet batch: %w", err)
	}
	return nil
}

func (p *parquetWriter) Close() error {
	defer p.builder.Release()
	flushErr := p.flush()
	return errors.Join(flushErr, p.writer.Close())
}
