package csvsql

import (
	"fmt"
	"strconv"
	"time"
)

// Effect result headers
const (
	executedStatementHeader = "executed_statement"
	affectedRowsHeader      = "affected_rows"
)

// StatementResult is the materialized outcome of one statement.
// Every row has len(Header) cells.
type StatementResult struct {
	Header  []string
	Rows    [][]string
	Elapsed time.Duration
}

// IsEmpty reports whether the result has no rows.
func (r StatementResult) IsEmpty() bool {
	return len(r.Rows) == 0
}

// PagedResult is one page of a StatementResult.
type PagedResult struct {
	Header             []string
	Rows               [][]string
	Elapsed            time.Duration
	CurrentPage        int
	InitialRowPosition int
	PageUpperLimit     int
	PageSize           int
	TotalRows          int
	// TotalColumns is the width of the first row; valid only when ColumnsKnown.
	TotalColumns int
	ColumnsKnown bool
}

// Info renders a one-line summary of the page with the cursor at row
// (zero-based, relative to the page).
func (p PagedResult) Info(row int) string {
	columns := "N/A"
	if p.ColumnsKnown {
		columns = strconv.Itoa(p.TotalColumns)
	}
	return fmt.Sprintf("Row:%s Page:%s Page Size:%d Columns:%s Elapsed:%dmsecs",
		paddedNumber(p.CurrentPage*p.PageSize+row+1, p.TotalRows),
		paddedNumber(p.CurrentPage+1, p.PageUpperLimit+1),
		p.PageSize,
		columns,
		p.Elapsed.Milliseconds(),
	)
}

// paddedNumber renders current/total with current zero-padded to the width of total.
func paddedNumber(current, total int) string {
	return fmt.Sprintf("%0*d/%d", len(strconv.Itoa(total)), current, total)
}
