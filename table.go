package csvsql

import "path/filepath"

// StdinTableName is the table name given to data read from standard input.
const StdinTableName = "stdin"

// TabularSource is one ingested file or stream, held until its statements are synthesized.
type TabularSource struct {
	// Name is the table name derived from the origin.
	Name string
	// Headers are the column names in source order.
	Headers []string
	// Rows are aligned to Headers. A nil cell is absent.
	Rows [][]*string
}

// NewTabularSource creates a source from string records. Records may be
// shorter than headers when the reader permits uneven row widths.
func NewTabularSource(name string, headers []string, records [][]string) *TabularSource {
	rows := make([][]*string, len(records))
	for i, record := range records {
		row := make([]*string, len(record))
		for j := range record {
			cell := record[j]
			row[j] = &cell
		}
		rows[i] = row
	}
	return &TabularSource{
		Name:    name,
		Headers: headers,
		Rows:    rows,
	}
}

// TableNameFromPath derives a table name from a file path: the base name,
// extension included.
func TableNameFromPath(path string) string {
	return filepath.Base(path)
}

// padRows extends every row to width with explicitly empty cells and fills
// absent cells, so a reader that tolerates uneven widths still produces rows
// the engine accepts.
func padRows(rows [][]*string, width int) [][]*string {
	for i, row := range rows {
		for j := range row {
			if row[j] == nil {
				empty := ""
				row[j] = &empty
			}
		}
		for len(row) < width {
			empty := ""
			row = append(row, &empty)
		}
		rows[i] = row
	}
	return rows
}
