package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/nao1215/csvsql"
	"github.com/nao1215/csvsql/driver"
	"github.com/nao1215/csvsql/internal/config"
	"github.com/nao1215/csvsql/metrics"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logOut, closeLog, err := openLogOutput(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	logger := setupLogging(cfg.LogLevel, logOut)
	logger.Debug().Str("version", version).Str("commit", commit).Msg("starting csvsql")
	ctx := logger.WithContext(cmd.Context())

	collector, stopMetrics := startMetrics(cfg, logger)
	defer stopMetrics()

	db, err := driver.Open(ctx, driver.Config{Path: cfg.Database})
	if err != nil {
		return err
	}
	defer db.Close()

	stdin := pipedStdin()
	loader, err := csvsql.NewLoader(ctx, db,
		csvsql.WithAllowLeadingZeros(cfg.Input.AllowLeadingZeros),
		csvsql.WithLoaderRawIDColumn(cfg.RawID),
		csvsql.WithLoaderLogger(logger),
		csvsql.WithLoaderMetrics(collector),
	)
	if err != nil {
		return err
	}
	defer loader.Close()

	reports, err := loader.LoadPaths(ctx, cfg.Input.Files, stdin, readOptions(cfg))
	if err != nil {
		return err
	}

	exportOpts, err := exportOptions(cfg)
	if err != nil {
		return err
	}

	if cfg.HasStatements() {
		return runBatch(ctx, db, cfg, exportOpts, cmd.OutOrStdout())
	}

	fromStdin := slices.ContainsFunc(reports, func(r csvsql.LoadReport) bool {
		return r.Table == csvsql.StdinTableName
	})
	if fromStdin {
		return csvsql.ErrInteractiveStdin
	}

	session := csvsql.NewSession(db,
		csvsql.WithHiddenColumn(cfg.RawID),
		csvsql.WithSessionLogger(logger),
		csvsql.WithSessionMetrics(collector),
	)
	defer session.Close()

	return newREPL(db, session, cfg.RawID, exportOpts, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
}

// runBatch executes every statement and writes the last result.
func runBatch(ctx context.Context, db *sql.DB, cfg *config.Config, opts csvsql.ExportOptions, stdout io.Writer) error {
	statements := cfg.Query.Statements
	if cfg.Query.SourceFile != "" {
		data, err := os.ReadFile(cfg.Query.SourceFile)
		if err != nil {
			return fmt.Errorf("failed to read SQL source: %w", err)
		}
		statements = string(data)
	}

	executor := csvsql.NewStatementExecutor(cfg.RawID, csvsql.WithExecutorLogger(*zerolog.Ctx(ctx)))
	results, err := executor.ExecuteSQL(ctx, db, statements)
	if err != nil {
		return err
	}
	last := results[len(results)-1]

	sink := csvsql.WriterSink(stdout, opts)
	if cfg.Output.File != "" {
		fmt.Fprintf(stdout, "Saving query results to %s\n", cfg.Output.File)
		sink = csvsql.FileSink(cfg.Output.File, opts)
	}
	return csvsql.WriteResult(ctx, last, sink)
}

func readOptions(cfg *config.Config) csvsql.ReadOptions {
	return csvsql.ReadOptions{
		Delimiter:  cfg.InputDelimiter(),
		NoHeader:   cfg.Input.NoHeader,
		Flexible:   cfg.Input.Flexible,
		Trim:       cfg.Input.Trim,
		Comment:    cfg.CommentChar(),
		LazyQuotes: cfg.Input.LazyQuotes,
		Encoding:   cfg.Input.Encoding,
	}
}

func exportOptions(cfg *config.Config) (csvsql.ExportOptions, error) {
	format, err := csvsql.ParseFileType(cfg.Output.Format)
	if err != nil {
		return csvsql.ExportOptions{}, err
	}
	compression, err := csvsql.ParseCompressionType(cfg.Output.Compression)
	if err != nil {
		return csvsql.ExportOptions{}, err
	}
	style, err := csvsql.ParseQuoteStyle(cfg.Output.QuoteStyle)
	if err != nil {
		return csvsql.ExportOptions{}, err
	}

	opts := csvsql.NewExportOptions().
		WithFormat(format).
		WithCompression(compression).
		WithDelimiter(cfg.OutputDelimiter()).
		WithQuoteStyle(style).
		WithEncoding(cfg.Output.Encoding)
	if cfg.Output.WithoutHeader {
		opts = opts.WithoutHeader()
	}
	return opts, nil
}

// pipedStdin returns stdin when data is piped in, or nil for a terminal.
func pipedStdin() io.Reader {
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return nil
	}
	return os.Stdin
}

// startMetrics serves Prometheus metrics when enabled. The returned function
// stops the server.
func startMetrics(cfg *config.Config, logger zerolog.Logger) (metrics.Collector, func()) {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoOpCollector(), func() {}
	}

	collector := metrics.NewPrometheusCollector()
	server := metrics.NewServer(cfg.Metrics.Address, collector)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Str("address", cfg.Metrics.Address).Msg("metrics server failed")
		}
	}()
	logger.Info().Str("address", cfg.Metrics.Address).Msg("serving metrics")

	return collector, func() {
		if err := server.Stop(); err != nil {
			logger.Warn().Err(err).Msg("failed to stop metrics server")
		}
	}
}
