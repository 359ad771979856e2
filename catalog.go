package csvsql

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/nao1215/csvsql/driver"
)

// reservedTablePrefix marks tables owned by the engine.
// See https://www.sqlite.org/fileformat2.html
const reservedTablePrefix = "sqlite_"

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx used to run statements.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// IsReservedTableName reports whether name belongs to the engine's internal schema.
func IsReservedTableName(name string) bool {
	return strings.HasPrefix(name, reservedTablePrefix)
}

// ListTables returns the sorted names of user tables and views.
func ListTables(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA table_list")
	if err != nil {
		return nil, fmt.Errorf("csvsql: failed to list tables: %w", err)
	}
	defer rows.Close()

	records, err := scanNamedColumns(rows, "name")
	if err != nil {
		return nil, fmt.Errorf("csvsql: failed to list tables: %w", err)
	}

	tables := make([]string, 0, len(records))
	for _, r := range records {
		name, _ := r["name"].(string)
		if name == "" || IsReservedTableName(name) || slices.Contains(tables, name) {
			continue
		}
		tables = append(tables, name)
	}
	slices.Sort(tables)
	return tables, nil
}

// ColumnInfo describes one column of an engine table.
type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	Default    *string
	PrimaryKey bool
}

// String renders the column as "name TYPE[ NOT NULL][ DEFAULT x][ PK]".
func (c ColumnInfo) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")
	b.WriteString(c.Type)
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*c.Default)
	}
	if c.PrimaryKey {
		b.WriteString(" PK")
	}
	return b.String()
}

// TableInfo returns the columns of table, omitting the column named hidden.
func TableInfo(ctx context.Context, q Querier, table, hidden string) ([]ColumnInfo, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", QuoteIdentifier(table)))
	if err != nil {
		return nil, NewErrorContext("table info", "").WithTable(table).Error(err)
	}
	defer rows.Close()

	records, err := scanNamedColumns(rows, "name", "type", "notnull", "dflt_value", "pk")
	if err != nil {
		return nil, NewErrorContext("table info", "").WithTable(table).Error(err)
	}

	infos := make([]ColumnInfo, 0, len(records))
	for _, r := range records {
		name, _ := r["name"].(string)
		if name == hidden {
			continue
		}
		info := ColumnInfo{
			Name:       name,
			NotNull:    asInt64(r["notnull"]) > 0,
			PrimaryKey: asInt64(r["pk"]) > 0,
		}
		info.Type, _ = r["type"].(string)
		if v, ok := r["dflt_value"].(string); ok {
			info.Default = &v
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// scanNamedColumns reads every row, keeping only the named columns.
func scanNamedColumns(rows *sql.Rows, names ...string) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if !slices.Contains(columns, name) {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var records []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := make(map[string]any, len(names))
		for i, c := range columns {
			if slices.Contains(names, c) {
				record[c] = values[i]
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	default:
		return 0
	}
}

// EngineValidator checks generated statements against a scratch in-memory
// engine. DDL is executed there so later statements can refer to the tables
// it creates; everything else is compiled through EXPLAIN without running.
type EngineValidator struct {
	db *sql.DB
}

// NewEngineValidator opens the scratch engine.
func NewEngineValidator(ctx context.Context) (*EngineValidator, error) {
	db, err := driver.Open(ctx, driver.Config{})
	if err != nil {
		return nil, err
	}
	return &EngineValidator{db: db}, nil
}

// ValidateStatement reports whether the engine accepts statement.
func (v *EngineValidator) ValidateStatement(ctx context.Context, statement string) error {
	if NewStatement(statement).Type == StatementTypeDDL {
		_, err := v.db.ExecContext(ctx, statement)
		return err
	}
	rows, err := v.db.QueryContext(ctx, "EXPLAIN "+statement)
	if err != nil {
		return err
	}
	return rows.Close()
}

// Close releases the scratch engine.
func (v *EngineValidator) Close() error {
	return v.db.Close()
}
