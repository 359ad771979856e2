package csvsql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/nao1215/csvsql/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := driver.Open(context.Background(), driver.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// loadTestSource synthesizes and executes src into db.
func loadTestSource(t *testing.T, db *sql.DB, src *TabularSource) {
	t.Helper()

	ctx := context.Background()
	columns := NewSchemaInferencer(false).Infer(src.Headers, src.Rows)
	statements, err := NewStatementSynthesizer(newTestValidator(t)).Synthesize(ctx, src.Name, columns, src.Rows)
	require.NoError(t, err)
	for _, s := range statements {
		_, err := db.ExecContext(ctx, s)
		require.NoError(t, err, s)
	}
}

func TestStatementExecutor_RoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	src := NewTabularSource("people.csv", []string{"id", "name", "score"}, [][]string{
		{"1", "alice", "1.5"},
		{"2", "bob", ""},
		{"3", "it's", "3"},
	})
	loadTestSource(t, db, src)

	results, err := NewStatementExecutor(DefaultRawIDColumn).ExecuteSQL(context.Background(), db, `SELECT * FROM "people.csv" ORDER BY id`)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, []string{"id", "name", "score"}, got.Header)
	assert.Equal(t, [][]string{
		{"1", "alice", "1.5"},
		{"2", "bob", ""},
		{"3", "it's", "3"},
	}, got.Rows)
	for _, row := range got.Rows {
		assert.Len(t, row, len(got.Header))
	}
}

func TestStatementExecutor_RawIDVisibleUnderOtherName(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	loadTestSource(t, db, NewTabularSource("t", []string{"a"}, [][]string{{"x"}}))

	results, err := NewStatementExecutor(DefaultRawIDColumn).ExecuteSQL(context.Background(), db, `SELECT _raw_id AS id, a FROM t`)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "a"}, results[0].Header)
	assert.Equal(t, [][]string{{"1", "x"}}, results[0].Rows)
}

func TestStatementExecutor_DateColumns(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	_, err := db.ExecContext(context.Background(), `CREATE TABLE d (day DATE, at DATETIME)`)
	require.NoError(t, err)
	_, err = db.ExecContext(context.Background(), `INSERT INTO d VALUES ('2024-01-01', '2024-01-01 10:30:00')`)
	require.NoError(t, err)

	results, err := NewStatementExecutor(DefaultRawIDColumn).ExecuteSQL(context.Background(), db, `SELECT day, at FROM d`)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, [][]string{{"2024-01-01", "2024-01-01 10:30:00"}}, results[0].Rows)
}

func TestStatementExecutor_Effects(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	executor := NewStatementExecutor(DefaultRawIDColumn)

	results, err := executor.ExecuteSQL(ctx, db, `
		CREATE TABLE t (x INTEGER);
		INSERT INTO t VALUES (1), (2), (3);
		UPDATE t SET x=1;
		DELETE FROM t WHERE x = 1;
		PRAGMA foreign_keys = ON;
		SELECT count(*) AS n FROM t`)
	require.NoError(t, err)
	require.Len(t, results, 6)

	assert.Equal(t, []string{"executed_statement"}, results[0].Header)
	assert.Equal(t, [][]string{{"CREATE TABLE t (x INTEGER)"}}, results[0].Rows)

	assert.Equal(t, []string{"executed_statement", "affected_rows"}, results[1].Header)
	assert.Equal(t, "3", results[1].Rows[0][1])

	assert.Equal(t, []string{"executed_statement", "affected_rows"}, results[2].Header)
	assert.Equal(t, [][]string{{"UPDATE t SET x=1", "3"}}, results[2].Rows)

	assert.Equal(t, "3", results[3].Rows[0][1])
	assert.Equal(t, []string{"executed_statement"}, results[4].Header)
	assert.Equal(t, [][]string{{"0"}}, results[5].Rows)
}

func TestStatementExecutor_AbortsOnFailure(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	_, err := NewStatementExecutor(DefaultRawIDColumn).ExecuteSQL(ctx, db, `CREATE TABLE t (x); SELECT * FROM missing; CREATE TABLE u (y)`)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "SELECT * FROM missing", execErr.Statement)
	assert.Contains(t, err.Error(), "SELECT * FROM missing")

	// the statement before the failure is kept, the one after never ran
	tables, err := ListTables(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, tables)
}

func TestStatementExecutor_InvalidDataType(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	_, err := NewStatementExecutor(DefaultRawIDColumn).ExecuteSQL(context.Background(), db, `SELECT 'a' AS a, x'00ff' AS b`)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.ErrorIs(t, err, ErrInvalidDataType)
	assert.Equal(t, 1, execErr.Row)
	assert.Equal(t, 2, execErr.Column)
	assert.Contains(t, err.Error(), "row:1 col:2")
}

func TestStatementExecutor_NoStatements(t *testing.T) {
	t.Parallel()

	_, err := NewStatementExecutor(DefaultRawIDColumn).ExecuteSQL(context.Background(), openTestDB(t), " ; -- nothing")
	assert.ErrorIs(t, err, ErrNoStatements)
}

func TestCoerceToText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  any
		want   string
		wantOK bool
	}{
		{name: "null", value: nil, want: "", wantOK: true},
		{name: "text", value: "abc", want: "abc", wantOK: true},
		{name: "integer", value: int64(-42), want: "-42", wantOK: true},
		{name: "real", value: 1.25, want: "1.25", wantOK: true},
		{name: "whole real", value: 3.0, want: "3", wantOK: true},
		{name: "date", value: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), want: "2024-01-02", wantOK: true},
		{name: "datetime", value: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), want: "2024-01-02 03:04:05", wantOK: true},
		{name: "fractional seconds", value: time.Date(2024, 1, 2, 3, 4, 5, 500000000, time.UTC), want: "2024-01-02 03:04:05.5+00:00", wantOK: true},
		{name: "zoned time", value: time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("", 9*60*60)), want: "2024-01-02 03:04:05+09:00", wantOK: true},
		{name: "blob", value: []byte{0x00}, wantOK: false},
		{name: "bool", value: true, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := coerceToText(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
