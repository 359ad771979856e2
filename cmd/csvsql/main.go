// Command csvsql loads delimited files into an embedded SQL engine and runs
// queries against them, either once from the command line or interactively.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "csvsql",
	Short: "Query CSV, TSV, LTSV, XLSX and Parquet files with SQL",
	Long: `csvsql loads every input into a table of an embedded SQLite database and
executes SQL against it.

Example:
  csvsql --in-file address.csv --query 'SELECT * FROM "address.csv"'
  cat data.csv | csvsql --query 'SELECT count(*) FROM stdin'
  csvsql --in-file address.csv --in-file city.tsv`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()

	flags.StringP("config", "c", "", "config file path")

	// Input
	flags.StringSliceP("in-file", "i", nil, "input file; repeat for several tables")
	flags.String("in-delimiter", ",", "input field delimiter")
	flags.Bool("in-no-header", false, "inputs have no header row; columns are named c1..cN")
	flags.Bool("in-flexible", false, "allow records with a varying number of fields")
	flags.Bool("in-trim", false, "trim white space around headers and fields")
	flags.String("in-comment", "", "lines starting with this character are ignored")
	flags.Bool("in-lazy-quotes", false, "tolerate bare and unescaped quotes")
	flags.Bool("in-allow-leading-zeros", false, "read values such as 007 as numbers")
	flags.String("in-encoding", "", "character encoding of the inputs, e.g. shift_jis")

	// Query
	flags.StringP("query", "q", "", "SQL statements to execute")
	flags.StringP("source", "s", "", "file holding SQL statements to execute")

	// Output
	flags.StringP("out-file", "o", "", "write the result to this file instead of stdout")
	flags.String("out-delimiter", ",", "output field delimiter")
	flags.String("out-quote-style", "necessary", "quoting of output fields (necessary, always, non-numeric, never)")
	flags.Bool("out-without-header", false, "omit the header record")
	flags.String("out-encoding", "", "character encoding of the output")
	flags.String("out-format", "csv", "output format (csv, tsv, ltsv, xlsx, parquet)")
	flags.String("out-compression", "none", "output compression (none, gz, xz, zstd)")

	// Database and logging
	flags.String("out-database", "", "database file; an in-memory database is used when empty")
	flags.String("raw-id", "_raw_id", "name of the surrogate key column")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("out-log", "", "write logs to this file instead of stderr")

	// Metrics
	flags.Bool("metrics", false, "serve Prometheus metrics")
	flags.String("metrics-address", ":9090", "metrics server address")

	// Bind flags to viper
	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("CSVSQL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("csvsql %s (%s)\n", version, commit)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		_, _ = errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
