package csvsql

import (
	"regexp"
	"strings"
)

// StatementType represents the type of SQL statement.
type StatementType int

const (
	StatementTypeDDL     StatementType = iota // CREATE, DROP, ALTER
	StatementTypeDML                          // INSERT, UPDATE, DELETE, REPLACE
	StatementTypeDQL                          // SELECT, WITH, VALUES
	StatementTypeTCL                          // BEGIN, COMMIT, ROLLBACK, SAVEPOINT, RELEASE, END
	StatementTypeUtility                      // EXPLAIN, PRAGMA, ANALYZE, VACUUM, ATTACH, DETACH, REINDEX
	StatementTypeOther                        // Unrecognized statements
)

// String returns the string representation of the statement type.
func (st StatementType) String() string {
	switch st {
	case StatementTypeDDL:
		return "DDL"
	case StatementTypeDML:
		return "DML"
	case StatementTypeDQL:
		return "DQL"
	case StatementTypeTCL:
		return "TCL"
	case StatementTypeUtility:
		return "UTILITY"
	case StatementTypeOther:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}

// Statement is one SQL statement together with its classification.
type Statement struct {
	// SQL is the statement text without the trailing semicolon.
	SQL string
	// Type is the statement category.
	Type StatementType
	// Projection is true for statements returning rows.
	Projection bool
	// AffectsRows is true for effects reporting an affected-row count.
	AffectsRows bool
}

var (
	leadingKeyword = regexp.MustCompile(`^[A-Za-z]+`)
	// pragmaAssignment matches "PRAGMA name = value" and "PRAGMA schema.name=value".
	pragmaAssignment = regexp.MustCompile(`(?is)^PRAGMA\s+[^=(]+=`)
)

var keywordTypes = map[string]StatementType{
	"CREATE":    StatementTypeDDL,
	"DROP":      StatementTypeDDL,
	"ALTER":     StatementTypeDDL,
	"INSERT":    StatementTypeDML,
	"UPDATE":    StatementTypeDML,
	"DELETE":    StatementTypeDML,
	"REPLACE":   StatementTypeDML,
	"SELECT":    StatementTypeDQL,
	"WITH":      StatementTypeDQL,
	"VALUES":    StatementTypeDQL,
	"BEGIN":     StatementTypeTCL,
	"COMMIT":    StatementTypeTCL,
	"END":       StatementTypeTCL,
	"ROLLBACK":  StatementTypeTCL,
	"SAVEPOINT": StatementTypeTCL,
	"RELEASE":   StatementTypeTCL,
	"EXPLAIN":   StatementTypeUtility,
	"PRAGMA":    StatementTypeUtility,
	"ANALYZE":   StatementTypeUtility,
	"VACUUM":    StatementTypeUtility,
	"ATTACH":    StatementTypeUtility,
	"DETACH":    StatementTypeUtility,
	"REINDEX":   StatementTypeUtility,
}

// NewStatement classifies sql.
func NewStatement(sql string) Statement {
	sql = strings.TrimSpace(sql)
	body := skipLeadingComments(sql)
	keyword := strings.ToUpper(leadingKeyword.FindString(body))

	st, ok := keywordTypes[keyword]
	if !ok {
		st = StatementTypeOther
	}

	stmt := Statement{SQL: sql, Type: st}
	switch {
	case st == StatementTypeDQL, keyword == "EXPLAIN":
		stmt.Projection = true
	case keyword == "PRAGMA":
		stmt.Projection = !pragmaAssignment.MatchString(body)
	case st == StatementTypeDML:
		stmt.AffectsRows = true
	}
	return stmt
}

// String returns the statement text
func (s Statement) String() string {
	return s.SQL
}

// skipLeadingComments drops whitespace, comments and opening parentheses
// in front of the first keyword.
func skipLeadingComments(sql string) string {
	for {
		sql = strings.TrimLeft(sql, " \t\r\n(")
		switch {
		case strings.HasPrefix(sql, "--"):
			idx := strings.IndexByte(sql, '\n')
			if idx < 0 {
				return ""
			}
			sql = sql[idx+1:]
		case strings.HasPrefix(sql, "/*"):
			idx := strings.Index(sql[2:], "*/")
			if idx < 0 {
				return ""
			}
			sql = sql[idx+4:]
		default:
			return sql
		}
	}
}

// ParseStatements splits sql into classified statements.
func ParseStatements(sql string) []Statement {
	parts := SplitStatements(sql)
	statements := make([]Statement, 0, len(parts))
	for _, p := range parts {
		statements = append(statements, NewStatement(p))
	}
	return statements
}

// SplitStatements splits sql on semicolons outside of quoted strings,
// quoted identifiers and comments. Empty statements are dropped.
func SplitStatements(sql string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	flush := func() {
		s := strings.TrimSpace(current.String())
		if strings.TrimSpace(stripComments(s)) != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == ';':
			flush()
			continue
		case c == '\'' || c == '"' || c == '`' || c == '[':
			end := closingDelimiter(sql, i)
			current.WriteString(sql[i:end])
			i = end - 1
			continue
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				end = len(sql) - i
			}
			current.WriteString(sql[i : i+end])
			i += end - 1
			continue
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				current.WriteString(sql[i:])
				i = len(sql)
				continue
			}
			current.WriteString(sql[i : i+end+4])
			i += end + 3
			continue
		}
		current.WriteByte(c)
	}
	flush()
	return statements
}

// closingDelimiter returns the index just past the quoted region starting at start.
// A doubled quote inside the region is an escaped quote.
func closingDelimiter(sql string, start int) int {
	open := sql[start]
	closing := open
	if open == '[' {
		closing = ']'
	}
	for i := start + 1; i < len(sql); i++ {
		if sql[i] != closing {
			continue
		}
		if open != '[' && i+1 < len(sql) && sql[i+1] == closing {
			i++
			continue
		}
		return i + 1
	}
	return len(sql)
}

// stripComments removes every comment from a single statement.
func stripComments(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'' || s[i] == '"' || s[i] == '`' || s[i] == '[':
			end := closingDelimiter(s, i)
			b.WriteString(s[i:end])
			i = end - 1
		case strings.HasPrefix(s[i:], "--"):
			end := strings.IndexByte(s[i:], '\n')
			if end < 0 {
				return b.String()
			}
			i += end
			b.WriteByte('\n')
		case strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			i += end + 3
			b.WriteByte(' ')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
