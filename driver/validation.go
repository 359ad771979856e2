package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// MaxColumnCount is the engine's default limit on columns per table.
const MaxColumnCount = 2000

var (
	// ErrTooManyColumns is returned when a table would exceed MaxColumnCount
	ErrTooManyColumns = errors.New("csvsql driver: too many columns")

	// ErrInvalidPath is returned when a database path cannot be used
	ErrInvalidPath = errors.New("csvsql driver: invalid database path")
)

// reservedNames are device names that cannot be used as file names on Windows.
var reservedNames = []string{
	"con", "prn", "aux", "nul",
	"com1", "com2", "com3", "com4", "com5", "com6", "com7", "com8", "com9",
	"lpt1", "lpt2", "lpt3", "lpt4", "lpt5", "lpt6", "lpt7", "lpt8", "lpt9",
}

// ValidateDatabasePath checks a database file path. The empty path selects
// an in-memory database and is always valid.
func ValidateDatabasePath(path string) error {
	if path == "" {
		return nil
	}
	if strings.TrimSpace(path) == "" || strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}
	if strings.Contains(path, "?") {
		// query parameters are reserved for connection settings
		return ErrInvalidPath
	}

	base := strings.ToLower(filepath.Base(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, reserved := range reservedNames {
		if base == reserved {
			return ErrInvalidPath
		}
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return ErrInvalidPath
	}
	return nil
}

// ValidateColumnCount checks if the number of columns is within acceptable limits
func ValidateColumnCount(columnCount int) error {
	if columnCount > MaxColumnCount {
		return ErrTooManyColumns
	}
	return nil
}
