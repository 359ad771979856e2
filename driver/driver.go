package driver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	sqlite "modernc.org/sqlite"
)

// Name is the database/sql driver name registered by modernc.org/sqlite.
const Name = "sqlite"

// memoryDSN opens a private in-memory database.
const memoryDSN = ":memory:"

// Config configures the engine.
type Config struct {
	// Path is the database file. Empty selects an in-memory database.
	Path string
	// MaxOpenConns bounds the pool of a file database. Zero means unlimited.
	// An in-memory database always uses a single connection.
	MaxOpenConns int
}

// IsMemory reports whether c selects an in-memory database.
func (c Config) IsMemory() bool {
	return c.Path == ""
}

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterFunctions installs regexp and regexf for every connection opened
// afterwards. It is safe to call more than once.
func RegisterFunctions() error {
	registerOnce.Do(func() {
		if err := sqlite.RegisterDeterministicScalarFunction("regexp", 2, regexpFunc); err != nil {
			registerErr = fmt.Errorf("%w: regexp: %w", ErrRegisterFunctions, err)
			return
		}
		if err := sqlite.RegisterDeterministicScalarFunction("regexf", 3, regexpFunc); err != nil {
			registerErr = fmt.Errorf("%w: regexf: %w", ErrRegisterFunctions, err)
		}
	})
	return registerErr
}

// Open opens the engine described by cfg and enables foreign keys.
// An in-memory database is pinned to one connection so every caller sees the
// same data; the pool then serializes concurrent acquisitions.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := ValidateDatabasePath(cfg.Path); err != nil {
		return nil, fmt.Errorf("%w: %q", err, cfg.Path)
	}
	if err := RegisterFunctions(); err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	dsn := memoryDSN
	if cfg.IsMemory() {
		logger.Debug().Msg("using in-memory database")
	} else {
		logger.Debug().Str("path", cfg.Path).Msg("using database file")
		dsn = cfg.Path + "?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open(Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("csvsql driver: failed to open database: %w", err)
	}

	if cfg.IsMemory() {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("csvsql driver: failed to enable foreign keys: %w", err)
		}
		return db, nil
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("csvsql driver: failed to open database %s: %w", cfg.Path, err)
	}
	return db, nil
}

// patternCache holds compiled expressions keyed by flags and pattern.
var patternCache sync.Map

// regexpFunc implements regexp(pattern, text) and regexf(pattern, text, flags).
// It returns 1 on a match, 0 otherwise, and NULL when pattern or text is NULL.
func regexpFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	pattern, err := textArg(args[0])
	if err != nil {
		return nil, err
	}
	text, err := textArg(args[1])
	if err != nil {
		return nil, err
	}
	flags := ""
	if len(args) == 3 && args[2] != nil {
		if flags, err = textArg(args[2]); err != nil {
			return nil, err
		}
	}

	re, err := compilePattern(pattern, flags)
	if err != nil {
		return nil, err
	}
	if re.MatchString(text) {
		return int64(1), nil
	}
	return int64(0), nil
}

// compilePattern compiles pattern with the inline flags selected by flags:
// i (case-insensitive), U (swap greed), s (dot matches newline) and m (multi-line).
// x and u are accepted and ignored.
func compilePattern(pattern, flags string) (*regexp.Regexp, error) {
	key := flags + "\x00" + pattern
	if cached, ok := patternCache.Load(key); ok {
		return cached.(*regexp.Regexp), nil
	}

	var inline strings.Builder
	for _, f := range "iUsm" {
		if strings.ContainsRune(flags, f) {
			inline.WriteRune(f)
		}
	}
	expr := pattern
	if inline.Len() > 0 {
		expr = "(?" + inline.String() + ")" + pattern
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("csvsql driver: invalid regular expression %q: %w", pattern, err)
	}
	patternCache.Store(key, re)
	return re, nil
}

func textArg(v driver.Value) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidRegexpArgument, v)
	}
}
