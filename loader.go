package csvsql

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/nao1215/csvsql/metrics"
	"github.com/rs/zerolog"
)

// LoadReport summarizes one ingested source.
type LoadReport struct {
	// Table is the name of the created table.
	Table string
	// Rows is the number of data rows inserted.
	Rows int
	// Statements is the number of statements executed, DROP and CREATE included.
	Statements int
	// Elapsed covers inference, synthesis and execution.
	Elapsed time.Duration
}

// Loader runs the ingestion pipeline: infer, synthesize, execute.
type Loader struct {
	db          *sql.DB
	validator   *EngineValidator
	inferencer  *SchemaInferencer
	synthesizer *StatementSynthesizer
	executor    *StatementExecutor
	logger      zerolog.Logger
	metrics     metrics.Collector
}

type loaderConfig struct {
	allowLeadingZeros bool
	rawID             string
	batchSize         int
	logger            zerolog.Logger
	metrics           metrics.Collector
}

// LoaderOption configures a Loader.
type LoaderOption func(*loaderConfig)

// WithAllowLeadingZeros treats tokens such as "007" as numbers.
func WithAllowLeadingZeros(allow bool) LoaderOption {
	return func(c *loaderConfig) {
		c.allowLeadingZeros = allow
	}
}

// WithLoaderRawIDColumn sets the surrogate key column name.
func WithLoaderRawIDColumn(name string) LoaderOption {
	return func(c *loaderConfig) {
		if name != "" {
			c.rawID = name
		}
	}
}

// WithLoaderBatchSize sets the maximum number of rows per INSERT.
func WithLoaderBatchSize(n int) LoaderOption {
	return func(c *loaderConfig) {
		c.batchSize = n
	}
}

// WithLoaderLogger sets the logger. Progress is logged at debug level.
func WithLoaderLogger(logger zerolog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		c.logger = logger
	}
}

// WithLoaderMetrics sets the metrics collector.
func WithLoaderMetrics(collector metrics.Collector) LoaderOption {
	return func(c *loaderConfig) {
		if collector != nil {
			c.metrics = collector
		}
	}
}

// NewLoader creates a loader writing into db. The loader owns a scratch
// engine for statement validation and must be closed.
func NewLoader(ctx context.Context, db *sql.DB, opts ...LoaderOption) (*Loader, error) {
	cfg := loaderConfig{
		rawID:     DefaultRawIDColumn,
		batchSize: DefaultBatchSize,
		logger:    zerolog.Nop(),
		metrics:   metrics.NewNoOpCollector(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	validator, err := NewEngineValidator(ctx)
	if err != nil {
		return nil, err
	}

	return &Loader{
		db:         db,
		validator:  validator,
		inferencer: NewSchemaInferencer(cfg.allowLeadingZeros),
		synthesizer: NewStatementSynthesizer(validator,
			WithRawIDColumn(cfg.rawID),
			WithBatchSize(cfg.batchSize),
			WithProgressReporter(&logProgress{logger: cfg.logger}),
		),
		executor: NewStatementExecutor(cfg.rawID, WithExecutorLogger(cfg.logger)),
		logger:   cfg.logger,
		metrics:  cfg.metrics,
	}, nil
}

// Close releases the validation engine.
func (l *Loader) Close() error {
	return l.validator.Close()
}

// Load creates and fills the table for src, replacing any table of the same name.
// Rows shorter than the header are loaded as if padded with empty cells; src
// itself is not modified.
func (l *Loader) Load(ctx context.Context, src *TabularSource) (LoadReport, error) {
	start := time.Now()

	rows := make([][]*string, len(src.Rows))
	for i, row := range src.Rows {
		rows[i] = slices.Clone(row)
	}
	rows = padRows(rows, len(src.Headers))

	columns := l.inferencer.Infer(src.Headers, rows)
	synthesized, err := l.synthesizer.Synthesize(ctx, src.Name, columns, rows)
	if err != nil {
		return LoadReport{}, err
	}

	statements := make([]Statement, len(synthesized))
	for i, s := range synthesized {
		statements[i] = NewStatement(s)
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return LoadReport{}, fmt.Errorf("csvsql: failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := l.executor.Execute(ctx, conn, statements); err != nil {
		return LoadReport{}, NewErrorContext("load", "").WithTable(src.Name).Error(err)
	}

	report := LoadReport{
		Table:      src.Name,
		Rows:       len(src.Rows),
		Statements: len(statements),
		Elapsed:    time.Since(start),
	}
	l.metrics.RecordGauge("csvsql_rows_loaded", float64(report.Rows), "table", report.Table)
	l.logger.Info().
		Str("table", report.Table).
		Int("rows", report.Rows).
		Int("columns", len(columns)).
		Dur("elapsed", report.Elapsed).
		Msg("table loaded")
	return report, nil
}

// LoadPaths loads stdin first, when it carries data, then every path in
// order. A source without any record is skipped with a warning. It fails
// with ErrNoValidData when the engine ends up with no tables.
func (l *Loader) LoadPaths(ctx context.Context, paths []string, stdin io.Reader, opts ReadOptions) ([]LoadReport, error) {
	var reports []LoadReport

	load := func(src *TabularSource, err error) error {
		if errors.Is(err, ErrEmptyData) {
			l.logger.Warn().Err(err).Msg("skipping source")
			return nil
		}
		if err != nil {
			return err
		}
		report, err := l.Load(ctx, src)
		if err != nil {
			return err
		}
		reports = append(reports, report)
		return nil
	}

	if stdin != nil {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, NewErrorContext("read", StdinTableName).Error(err)
		}
		if len(data) > 0 {
			if err := load(ReadSourceFrom(ctx, StdinTableName, bytes.NewReader(data), FileTypeCSV, opts)); err != nil {
				return nil, err
			}
		}
	}

	for _, path := range paths {
		if err := load(ReadSource(ctx, path, opts)); err != nil {
			return nil, err
		}
	}

	tables, err := ListTables(ctx, l.db)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, ErrNoValidData
	}
	l.metrics.RecordGauge("csvsql_tables_loaded", float64(len(tables)))
	return reports, nil
}

// rowsLogInterval is the number of scanned rows between progress log lines.
const rowsLogInterval = 1000

// logProgress reports synthesis progress to a logger.
type logProgress struct {
	logger zerolog.Logger
}

func (p *logProgress) RowsProcessed(table string, rows int) {
	if rows%rowsLogInterval != 0 {
		return
	}
	p.logger.Debug().Str("table", table).Int("rows", rows).Msg("rows processed")
}

func (p *logProgress) BatchesEmitted(table string, batches int) {
	p.logger.Debug().Str("table", table).Int("batches", batches).Msg("batches emitted")
}
