package csvsql

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error values
var (
	// ErrEmptyData indicates that the data source contains no records
	ErrEmptyData = errors.New("csvsql: empty data source")

	// ErrUnsupportedFormat indicates an unsupported file or output format
	ErrUnsupportedFormat = errors.New("csvsql: unsupported format")

	// ErrDuplicateColumnName is returned when a source contains duplicate column names
	ErrDuplicateColumnName = errors.New("csvsql: duplicate column name")

	// ErrNoValidData is returned when nothing was loaded into the engine
	ErrNoValidData = errors.New("csvsql: No valid CSV data inputted. Specify files with --in-file or pass content through STDIN")

	// ErrInteractiveStdin is returned when interactive mode is requested for stdin input
	ErrInteractiveStdin = errors.New("csvsql: Interactive mode cannot be invoked when inputting CSV content through STDIN. Use --in-file instead")

	// ErrEmptyResult is returned when exporting a result without rows
	ErrEmptyResult = errors.New("csvsql: SQL Result is empty and cannot be written to a file")

	// ErrNoStatements is returned when a batch contains no statements
	ErrNoStatements = errors.New("csvsql: no SQL statements")

	// ErrInvalidDataType is returned when an engine value coerces to neither text, integer nor float
	ErrInvalidDataType = errors.New("csvsql: invalid data type")
)

// SynthesisError reports a generated statement the engine refused to parse.
type SynthesisError struct {
	Table string
	SQL   string
	Err   error
}

// Error returns the error message
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("csvsql: failed to synthesize statement for table %s: %v: %s", e.Table, e.Err, e.SQL)
}

// Unwrap returns the underlying error
func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// ExecutionError reports a failed statement. Row and Column are 1-based and
// zero when the failure is not tied to a value.
type ExecutionError struct {
	Statement string
	Row       int
	Column    int
	Err       error
}

// Error returns the error message
func (e *ExecutionError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("%v at row:%d col:%d: %s", e.Err, e.Row, e.Column, e.Statement)
	}
	if e.Row > 0 {
		return fmt.Sprintf("csvsql: failed to read row %d: %v: %s", e.Row, e.Err, e.Statement)
	}
	return fmt.Sprintf("csvsql: failed to execute statement: %v: %s", e.Err, e.Statement)
}

// Unwrap returns the underlying error
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	FilePath  string
	TableName string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation, filePath string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		FilePath:  filePath,
	}
}

// WithTable adds table context to the error
func (ec *ErrorContext) WithTable(tableName string) *ErrorContext {
	ec.TableName = tableName
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Error creates a formatted error with context
func (ec *ErrorContext) Error(baseErr error) error {
	parts := []string{fmt.Sprintf("csvsql: %s failed", ec.Operation)}
	if ec.FilePath != "" {
		parts = append(parts, "file: "+ec.FilePath)
	}
	if ec.TableName != "" {
		parts = append(parts, "table: "+ec.TableName)
	}
	if ec.Details != "" {
		parts = append(parts, "details: "+ec.Details)
	}

	msg := strings.Join(parts, ", ")
	if baseErr != nil {
		return fmt.Errorf("%s: %w", msg, baseErr)
	}
	return errors.New(msg)
}
