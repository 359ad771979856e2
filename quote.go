package csvsql

import "strings"

// QuoteIdentifier renders a table or column name as an SQL identifier.
// Names are wrapped in double quotes. A name that itself contains a double
// quote is wrapped in backticks instead, with every backtick doubled; the
// double quote is left as is.
func QuoteIdentifier(name string) string {
	if strings.Contains(name, `"`) {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + name + `"`
}

// QuoteLiteral renders a text value as an SQL string literal.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
