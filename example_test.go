package csvsql_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/nao1215/csvsql"
	"github.com/nao1215/csvsql/driver"
)

// ExampleLoader_LoadPaths loads standard input into the "stdin" table and
// queries it.
func ExampleLoader_LoadPaths() {
	ctx := context.Background()

	db, err := driver.Open(ctx, driver.Config{})
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	loader, err := csvsql.NewLoader(ctx, db)
	if err != nil {
		log.Fatal(err)
	}
	defer loader.Close()

	stdin := strings.NewReader("name,age\nalice,30\nbob,25\ncarol,35\n")
	reports, err := loader.LoadPaths(ctx, nil, stdin, csvsql.ReadOptions{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("loaded %d rows into %s\n", reports[0].Rows, reports[0].Table)

	results, err := csvsql.NewStatementExecutor(csvsql.DefaultRawIDColumn).
		ExecuteSQL(ctx, db, "SELECT name, age FROM stdin WHERE age > 28 ORDER BY age")
	if err != nil {
		log.Fatal(err)
	}
	for _, row := range results[0].Rows {
		fmt.Println(strings.Join(row, " "))
	}

	// Output:
	// loaded 3 rows into stdin
	// alice 30
	// carol 35
}

// ExampleExport writes a result as TSV, quoting fields that are not numbers.
func ExampleExport() {
	result := csvsql.StatementResult{
		Header: []string{"id", "city"},
		Rows: [][]string{
			{"1", "Tokyo"},
			{"2", "Osaka"},
		},
	}

	opts := csvsql.NewExportOptions().
		WithFormat(csvsql.FileTypeTSV).
		WithQuoteStyle(csvsql.QuoteNonNumeric)

	if err := csvsql.Export(context.Background(), result, csvsql.WriterSink(os.Stdout, opts)); err != nil {
		log.Fatal(err)
	}

	// Output:
	// "id"	"city"
	// 1	"Tokyo"
	// 2	"Osaka"
}

// ExampleResultPager shows how a result is split into pages.
func ExampleResultPager() {
	result := csvsql.StatementResult{Header: []string{"n"}}
	for i := 1; i <= 5; i++ {
		result.Rows = append(result.Rows, []string{fmt.Sprint(i)})
	}

	pager := csvsql.NewResultPager(2)
	page, _ := pager.Page(result, csvsql.HomeRequest())
	for {
		fmt.Println(page.CurrentPage, page.Rows)
		req, ok := csvsql.NextPageRequest(page)
		if !ok {
			break
		}
		page, _ = pager.Page(result, req)
	}

	// Output:
	// 0 [[1] [2]]
	// 1 [[3] [4]]
	// 2 [[5]]
}
