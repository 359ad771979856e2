package csvsql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	sqliteDateFormat     = "2006-01-02"
	sqliteDateTimeFormat = "2006-01-02 15:04:05"
	// sqliteTimeFormat is used when a value carries a zone or fractional seconds.
	sqliteTimeFormat = "2006-01-02 15:04:05.999999999-07:00"
)

// StatementExecutor runs statements in order and materializes their results as text.
type StatementExecutor struct {
	hiddenColumn string
	logger       zerolog.Logger
}

// ExecutorOption configures a StatementExecutor.
type ExecutorOption func(*StatementExecutor)

// WithExecutorLogger sets the logger used for per-statement debug output.
func WithExecutorLogger(logger zerolog.Logger) ExecutorOption {
	return func(e *StatementExecutor) {
		e.logger = logger
	}
}

// NewStatementExecutor creates an executor hiding columns named hiddenColumn
// from projection results.
func NewStatementExecutor(hiddenColumn string, opts ...ExecutorOption) *StatementExecutor {
	e := &StatementExecutor{
		hiddenColumn: hiddenColumn,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs statements strictly in order and returns one result per
// statement. The first failure aborts the batch; statements already run are
// not rolled back.
func (e *StatementExecutor) Execute(ctx context.Context, q Querier, statements []Statement) ([]StatementResult, error) {
	results := make([]StatementResult, 0, len(statements))
	for _, stmt := range statements {
		var (
			result StatementResult
			err    error
		)
		if stmt.Projection {
			result, err = e.project(ctx, q, stmt)
		} else {
			result, err = e.effect(ctx, q, stmt)
		}
		if err != nil {
			return nil, err
		}

		e.logger.Debug().
			Str("statement", stmt.SQL).
			Int("rows", len(result.Rows)).
			Dur("elapsed", result.Elapsed).
			Msg("statement executed")
		results = append(results, result)
	}
	return results, nil
}

func (e *StatementExecutor) project(ctx context.Context, q Querier, stmt Statement) (StatementResult, error) {
	start := time.Now()

	rows, err := q.QueryContext(ctx, stmt.SQL)
	if err != nil {
		return StatementResult{}, &ExecutionError{Statement: stmt.SQL, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return StatementResult{}, &ExecutionError{Statement: stmt.SQL, Err: err}
	}

	visible := make([]int, 0, len(columns))
	header := make([]string, 0, len(columns))
	for i, name := range columns {
		if name == e.hiddenColumn {
			continue
		}
		visible = append(visible, i)
		header = append(header, name)
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	result := StatementResult{Header: header, Rows: [][]string{}}
	for rowNum := 1; rows.Next(); rowNum++ {
		if err := rows.Scan(ptrs...); err != nil {
			return StatementResult{}, &ExecutionError{Statement: stmt.SQL, Row: rowNum, Err: err}
		}
		row := make([]string, 0, len(visible))
		for _, i := range visible {
			text, ok := coerceToText(values[i])
			if !ok {
				return StatementResult{}, &ExecutionError{
					Statement: stmt.SQL,
					Row:       rowNum,
					Column:    i + 1,
					Err:       ErrInvalidDataType,
				}
			}
			row = append(row, text)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return StatementResult{}, &ExecutionError{Statement: stmt.SQL, Err: err}
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

func (e *StatementExecutor) effect(ctx context.Context, q Querier, stmt Statement) (StatementResult, error) {
	start := time.Now()

	res, err := q.ExecContext(ctx, stmt.SQL)
	if err != nil {
		return StatementResult{}, &ExecutionError{Statement: stmt.SQL, Err: err}
	}

	if !stmt.AffectsRows {
		return StatementResult{
			Header:  []string{executedStatementHeader},
			Rows:    [][]string{{stmt.SQL}},
			Elapsed: time.Since(start),
		}, nil
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return StatementResult{}, &ExecutionError{Statement: stmt.SQL, Err: err}
	}
	return StatementResult{
		Header:  []string{executedStatementHeader, affectedRowsHeader},
		Rows:    [][]string{{stmt.SQL, strconv.FormatInt(affected, 10)}},
		Elapsed: time.Since(start),
	}, nil
}

// coerceToText converts an engine value to text, trying the text, integer and
// floating point representations in that order. NULL becomes the empty string.
// Blobs and any other representation are rejected.
func coerceToText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case time.Time:
		return formatTime(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

// formatTime renders a value the engine parsed out of a DATE, DATETIME or
// TIMESTAMP column in the shortest common form that holds it, so the usual
// "YYYY-MM-DD" and "YYYY-MM-DD HH:MM:SS" texts come back unchanged.
func formatTime(t time.Time) string {
	if t.Location() != time.UTC || t.Nanosecond() != 0 {
		return t.Format(sqliteTimeFormat)
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(sqliteDateFormat)
	}
	return t.Format(sqliteDateTimeFormat)
}

// ExecuteSQL splits and classifies sql, then runs it on one connection of db.
func (e *StatementExecutor) ExecuteSQL(ctx context.Context, db *sql.DB, sqlText string) ([]StatementResult, error) {
	statements := ParseStatements(sqlText)
	if len(statements) == 0 {
		return nil, ErrNoStatements
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("csvsql: failed to acquire connection: %w", err)
	}
	defer conn.Close()

	return e.Execute(ctx, conn, statements)
}
