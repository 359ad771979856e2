// Package csvsql loads tabular files into an embedded SQLite database and
// executes SQL against them.
//
// Every input becomes one table. Column types are inferred from the data:
// a column holding only integers is INTEGER, one holding integers and
// decimals is REAL, and anything else is TEXT. A column is NOT NULL unless
// some row carries an empty cell. Each table also gets a surrogate key
// column, "_raw_id" by default, that queries never return.
//
// # Supported Formats
//
//   - CSV with a configurable delimiter, TSV and LTSV
//   - Excel (XLSX), first sheet only
//   - Apache Parquet
//   - gzip, bzip2, xz and zstandard compression of any of the above
//     (bzip2 is read only)
//
// # Basic Usage
//
//	db, err := driver.Open(ctx, driver.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	loader, err := csvsql.NewLoader(ctx, db)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loader.Close()
//
//	if _, err := loader.LoadPaths(ctx, []string{"users.csv"}, nil, csvsql.ReadOptions{}); err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := csvsql.NewStatementExecutor(csvsql.DefaultRawIDColumn).
//	    ExecuteSQL(ctx, db, `SELECT * FROM "users.csv"`)
//
// # Table Naming
//
// The table name is the base name of the file with its format extension and
// without a compression extension:
//   - "users.csv" becomes table "users.csv"
//   - "data.tsv.gz" becomes table "data.tsv"
//   - standard input becomes table "stdin"
//
// Names containing dots must be quoted in SQL.
//
// # Interactive Use
//
// A Session runs one query and one export at a time on background workers and
// reports completions on its Events channel. ResultPager and Viewport slice
// the current result into pages for display.
//
// For complete SQL syntax documentation, see: https://www.sqlite.org/lang.html
package csvsql
