package csvsql

import "fmt"

// Column describes one column of an ingested table.
type Column struct {
	// Index is the zero-based ordinal position in the source.
	Index int
	// Name is the header name, or a synthesized positional name.
	Name string
	// Type is the folded kind of every non-empty value in the column.
	Type Kind
	// Nullable is true when at least one row has a nil or empty cell.
	Nullable bool
}

// SchemaInferencer folds per-column kinds and nullability over a set of rows.
type SchemaInferencer struct {
	allowLeadingZeros bool
}

// NewSchemaInferencer creates an inferencer. allowLeadingZeros selects the
// numeric grammar used by Detect.
func NewSchemaInferencer(allowLeadingZeros bool) *SchemaInferencer {
	return &SchemaInferencer{allowLeadingZeros: allowLeadingZeros}
}

// Infer scans rows once and returns one Column per header position.
// A nil or empty cell marks the column nullable without affecting its kind.
// A position beyond the end of a short row contributes nothing.
func (si *SchemaInferencer) Infer(headers []string, rows [][]*string) []Column {
	kinds := make([]*Kind, len(headers))
	nullable := make([]bool, len(headers))

	for _, row := range rows {
		for i := range headers {
			if i >= len(row) {
				continue
			}
			if row[i] == nil || *row[i] == "" {
				nullable[i] = true
				continue
			}
			kind := Detect(*row[i], si.allowLeadingZeros)
			if kinds[i] == nil {
				kinds[i] = &kind
				continue
			}
			widened := Widen(*kinds[i], kind)
			kinds[i] = &widened
		}
	}

	columns := make([]Column, len(headers))
	for i, name := range headers {
		kind := KindText
		if kinds[i] != nil {
			kind = *kinds[i]
		}
		columns[i] = Column{
			Index:    i,
			Name:     name,
			Type:     kind,
			Nullable: nullable[i],
		}
	}
	return columns
}

// positionalHeaders returns c1..cN for sources without a header row.
func positionalHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = fmt.Sprintf("c%d", i+1)
	}
	return headers
}
