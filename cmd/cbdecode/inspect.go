package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyeh/codebook/internal/batch"
	"github.com/gyeh/codebook/internal/decode"
	"github.com/gyeh/codebook/internal/exitcode"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/monthly"
	"github.com/gyeh/codebook/internal/normalize"
	"github.com/gyeh/codebook/internal/pipeline"
	"github.com/gyeh/codebook/internal/source"
)

var (
	inspectInput  string
	inspectSample int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Check an input's columns against a dictionary and decode a sample (no writes)",
	RunE:  runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&cfg.Dictionary, "dict", "", "Dictionary: JSON file, s3:// URL or builtin:<name> (required)")
	f.StringVar(&inspectInput, "input", "", "Record file or s3:// URL (required)")
	f.IntVar(&inspectSample, "sample", 1000, "Records to decode from the start of the input")
	_ = inspectCmd.MarkFlagRequired("dict")
	_ = inspectCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	log := setup()
	ctx := context.Background()
	store := pipeline.NewStore(cfg.Region)

	opts, err := cfg.Decode.LoadOptions()
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	ld, err := pipeline.LoadDictionary(ctx, cfg.Dictionary, opts, store)
	if err != nil {
		log.Error().Err(err).Msg("dictionary load failed")
		os.Exit(exitcode.DictionaryError)
	}

	reader, err := source.Open(ctx, inspectInput, source.Options{
		Cleaner: normalize.NewCleaner(cfg.Decode.TrimValues, cfg.Decode.NullTokens),
		Fetch:   store.Fetch,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to open input")
		os.Exit(exitcode.SourceError)
	}
	defer reader.Close()

	fams := ld.Dict.MonthlyFamilies()
	touched := make(map[string]int, len(fams))
	proc := batch.New(decode.New(ld.Dict, fams), batch.Options{
		SampleLimitPerKind: cfg.Decode.SampleLimitPerKind,
		Filter: func(raw model.RawRecord, _ model.DecodedRecord) bool {
			for _, fam := range fams {
				if monthly.Touches(fam, raw) {
					touched[fam.Name()]++
				}
			}
			return true
		},
	}, log)
	seq, report := proc.Process(ctx, reader.Name, reader.Records)
	sampled := 0
	for _, err := range seq {
		if err != nil {
			log.Error().Err(err).Msg("failed to read sample records")
			os.Exit(exitcode.SourceError)
		}
		sampled++
		if sampled >= inspectSample {
			break
		}
	}

	// JSON Lines have no header; their columns are the keys seen in the sample.
	columns := reader.Columns
	if columns == nil {
		columns = report.FieldKeys()
	}
	cov := source.CoverageOf(columns, ld.Dict)

	fmt.Println("=== cbdecode inspect ===")
	fmt.Printf("Input:      %s\n", inspectInput)
	if !source.IsRemote(inspectInput) {
		if sha, err := normalize.FileHash(inspectInput); err == nil {
			fmt.Printf("SHA-256:    %s\n", sha)
		}
	}
	fmt.Printf("Format:     %s\n", reader.Format)
	if reader.Total > 0 {
		fmt.Printf("Total rows: %d\n", reader.Total)
	}
	fmt.Printf("Dictionary: %s (%d fields)\n", ld.Ref, ld.Dict.Len())
	fmt.Printf("Columns:    %d (%d known, %d unknown)\n", len(columns), len(cov.Known), len(cov.Unknown))
	fmt.Printf("Missing:    %d dictionary fields not in input\n", len(cov.Missing))
	if len(cov.Unknown) > 0 {
		fmt.Printf("Unknown:    %s\n", strings.Join(cov.Unknown, ", "))
	}

	if len(fams) > 0 {
		fmt.Println()
		fmt.Println("Monthly families:")
		for _, fam := range fams {
			fmt.Printf("  %-15s %2d/%d months in input, carried by %d sampled records\n",
				fam.Name(), cov.Families[fam.Name()], fam.Present(), touched[fam.Name()])
		}
	}

	t := report.Totals()
	fmt.Println()
	fmt.Printf("Sampled:    %d records, %d with anomalies\n", report.Records, report.RecordsAnomalous)
	fmt.Printf("  %-15s %d\n", "decoded", t.Decoded)
	fmt.Printf("  %-15s %d\n", "null_value", t.NullValue)
	fmt.Printf("  %-15s %d\n", "unknown_code", t.UnknownCode)
	fmt.Printf("  %-15s %d\n", "unknown_field", t.UnknownField)
	for _, k := range report.FieldKeys() {
		c := report.Fields[k]
		if c.Anomalies() == 0 {
			break
		}
		if c.UnknownCode == 0 {
			continue
		}
		fmt.Printf("    %-20s %d unknown codes\n", k, c.UnknownCode)
	}
	return nil
}
