package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gyeh/codebook/internal/config"
	"github.com/gyeh/codebook/internal/db"
	"github.com/gyeh/codebook/internal/exitcode"
	"github.com/gyeh/codebook/internal/pipeline"
	"github.com/gyeh/codebook/internal/progress"
)

var (
	loadDB     bool
	requireArg []string
	topFields  int
)

var decodeCmd = &cobra.Command{
	Use:   "decode [flags] FILE...",
	Short: "Decode record files and report anomalies",
	Long: `Decodes every coded field of the given record files (CSV, JSON Lines or
Parquet; local or s3://) against a dictionary. Each file is one shard.
Decoded records go to --output and/or Postgres (--load-db); diagnostics go
to --report and the console.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	f := decodeCmd.Flags()
	f.StringVar(&cfg.Dictionary, "dict", "", "Dictionary: JSON file, s3:// URL or builtin:<name> (required)")
	f.StringVarP(&cfg.Output, "output", "o", "", `Decoded JSON Lines output; "-" for stdout, .gz to compress`)
	f.StringVar(&cfg.Report, "report", "", "JSON diagnostics report path or s3:// URL")
	f.IntVarP(&cfg.Workers, "workers", "w", 1, "Shards decoded concurrently")
	f.BoolVar(&cfg.Progress, "progress", false, "Show per-shard progress bars")
	f.StringVar(&cfg.BatchID, "batch-id", "", "Batch UUID (default: random)")
	f.BoolVar(&loadDB, "load-db", false, "COPY decoded fields into Postgres")
	f.StringArrayVar(&requireArg, "require", nil, "Keep records whose family months all hold one of the codes: FAMILY=CODE,CODE (repeatable)")
	f.BoolVar(&cfg.FailOnAnomaly, "fail-on-anomaly", false, "Exit with status 6 when any unknown code or field is found")
	f.IntVar(&topFields, "top", 10, "Anomalous fields listed in the console summary")
	_ = decodeCmd.MarkFlagRequired("dict")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	log := setup()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg.Inputs = args
	require, err := config.ParseRequire(requireArg)
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	cfg.Require = require

	validate := cfg.Validate
	if loadDB {
		validate = cfg.ValidateWithDSN
	}
	if err := validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	var pool *pgxpool.Pool
	if loadDB {
		pool, err = db.NewPool(ctx, cfg.DSN, cfg.Workers)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer pool.Close()
	}

	var pm progress.Manager = progress.NewLogManager(log)
	if cfg.Progress {
		pm = progress.NewMPBManager()
	}

	res, err := pipeline.Run(ctx, pipeline.Env{Pool: pool, Progress: pm}, log, &cfg)
	if err != nil {
		var pe *pipeline.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("decode failed")
			os.Exit(phaseExitCode(pe.Phase))
		}
		log.Error().Err(err).Msg("decode failed")
		os.Exit(exitcode.SinkError)
	}

	out := os.Stdout
	if cfg.Output == "-" {
		out = os.Stderr
	}
	pipeline.PrintSummary(out, res.Summary, res.Report, topFields)

	if cfg.FailOnAnomaly && res.Summary.Anomalies > 0 {
		fmt.Fprintf(os.Stderr, "%d anomalies found\n", res.Summary.Anomalies)
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}

func phaseExitCode(phase string) int {
	switch phase {
	case pipeline.PhaseDictionary:
		return exitcode.DictionaryError
	case pipeline.PhaseSource, pipeline.PhaseDecode:
		return exitcode.SourceError
	default:
		return exitcode.SinkError
	}
}
