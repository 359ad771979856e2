package csvsql

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/csvsql/driver"
)

// nullLiteral is rendered for absent and empty cells.
const nullLiteral = "NULL"

// StatementValidator checks that a generated statement is accepted by the engine.
type StatementValidator interface {
	ValidateStatement(ctx context.Context, statement string) error
}

// ProgressReporter observes statement synthesis.
type ProgressReporter interface {
	// RowsProcessed is called after each row is scanned with the cumulative number of rows so far.
	RowsProcessed(table string, rows int)
	// BatchesEmitted is called with the cumulative number of INSERT statements produced so far.
	BatchesEmitted(table string, batches int)
}

type nopProgress struct{}

func (nopProgress) RowsProcessed(string, int)  {}
func (nopProgress) BatchesEmitted(string, int) {}

// StatementSynthesizer turns an inferred schema and its rows into DDL and batched DML.
type StatementSynthesizer struct {
	validator StatementValidator
	rawID     string
	batchSize int
	progress  ProgressReporter
}

// SynthesizerOption configures a StatementSynthesizer.
type SynthesizerOption func(*StatementSynthesizer)

// WithRawIDColumn sets the surrogate key column name.
func WithRawIDColumn(name string) SynthesizerOption {
	return func(s *StatementSynthesizer) {
		s.rawID = name
	}
}

// WithBatchSize sets the maximum number of rows per INSERT.
func WithBatchSize(n int) SynthesizerOption {
	return func(s *StatementSynthesizer) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithProgressReporter subscribes r to synthesis progress.
func WithProgressReporter(r ProgressReporter) SynthesizerOption {
	return func(s *StatementSynthesizer) {
		if r != nil {
			s.progress = r
		}
	}
}

// NewStatementSynthesizer creates a synthesizer that checks every statement with validator.
func NewStatementSynthesizer(validator StatementValidator, opts ...SynthesizerOption) *StatementSynthesizer {
	s := &StatementSynthesizer{
		validator: validator,
		rawID:     DefaultRawIDColumn,
		batchSize: DefaultBatchSize,
		progress:  nopProgress{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RawIDColumn returns the surrogate key column name.
func (s *StatementSynthesizer) RawIDColumn() string {
	return s.rawID
}

// Synthesize returns, in order, a DROP TABLE IF EXISTS, a CREATE TABLE and
// the INSERT statements loading rows into table.
func (s *StatementSynthesizer) Synthesize(ctx context.Context, table string, columns []Column, rows [][]*string) ([]string, error) {
	if err := s.validateColumnNames(columns); err != nil {
		return nil, NewErrorContext("synthesize", "").WithTable(table).Error(err)
	}
	if err := driver.ValidateColumnCount(len(columns) + 1); err != nil {
		return nil, NewErrorContext("synthesize", "").WithTable(table).Error(err)
	}

	quotedTable := QuoteIdentifier(table)
	statements := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s;", quotedTable),
		s.createTable(quotedTable, columns),
	}
	statements = append(statements, s.inserts(table, quotedTable, columns, rows)...)

	for _, statement := range statements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.validator.ValidateStatement(ctx, statement); err != nil {
			return nil, &SynthesisError{Table: table, SQL: statement, Err: err}
		}
	}
	return statements, nil
}

// validateColumnNames rejects names the engine would treat as the same column.
func (s *StatementSynthesizer) validateColumnNames(columns []Column) error {
	seen := map[string]struct{}{strings.ToLower(s.rawID): {}}
	for _, c := range columns {
		key := strings.ToLower(c.Name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateColumnName, c.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (s *StatementSynthesizer) createTable(quotedTable string, columns []Column) string {
	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, QuoteIdentifier(s.rawID)+" INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, c := range columns {
		def := QuoteIdentifier(c.Name) + " " + c.Type.String()
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s);", quotedTable, strings.Join(defs, ","))
}

func (s *StatementSynthesizer) inserts(table, quotedTable string, columns []Column, rows [][]*string) []string {
	if len(columns) == 0 || len(rows) == 0 {
		return nil
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = QuoteIdentifier(c.Name)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", quotedTable, strings.Join(names, ", "))

	statements := make([]string, 0, (len(rows)+s.batchSize-1)/s.batchSize)
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))

		values := make([]string, 0, end-start)
		for i, row := range rows[start:end] {
			values = append(values, renderRow(columns, row))
			s.progress.RowsProcessed(table, start+i+1)
		}
		statements = append(statements, prefix+strings.Join(values, ", ")+";")
		s.progress.BatchesEmitted(table, len(statements))
	}
	return statements
}

// renderRow renders one parenthesized value list aligned to columns.
func renderRow(columns []Column, row []*string) string {
	cells := make([]string, len(columns))
	for i, c := range columns {
		if i >= len(row) || row[i] == nil || *row[i] == "" {
			cells[i] = nullLiteral
			continue
		}
		if c.Type.IsNumeric() {
			cells[i] = *row[i]
			continue
		}
		cells[i] = QuoteLiteral(*row[i])
	}
	return "(" + strings.Join(cells, ", ") + ")"
}
