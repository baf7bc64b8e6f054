package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/codebook/internal/exitcode"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/pipeline"
	"github.com/gyeh/codebook/internal/resolve"
)

var (
	lookupLabel string
	lookupNull  bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup FIELD [RAW]",
	Short: "Show a field's value table, resolve one raw value, or find codes by label",
	Example: `  cbdecode lookup --dict builtin:bsfab sex
  cbdecode lookup --dict builtin:bsfab sex 2
  cbdecode lookup --dict builtin:bsfab efivepct --null
  cbdecode lookup --dict builtin:bsfab race --label black`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLookup,
}

func init() {
	f := lookupCmd.Flags()
	f.StringVar(&cfg.Dictionary, "dict", "", "Dictionary: JSON file, s3:// URL or builtin:<name> (required)")
	f.StringVar(&lookupLabel, "label", "", "Print the codes whose label matches")
	f.BoolVar(&lookupNull, "null", false, "Resolve a null raw value")
	_ = lookupCmd.MarkFlagRequired("dict")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	log := setup()
	ctx := context.Background()

	opts, err := cfg.Decode.LoadOptions()
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	ld, err := pipeline.LoadDictionary(ctx, cfg.Dictionary, opts, pipeline.NewStore(cfg.Region))
	if err != nil {
		log.Error().Err(err).Msg("dictionary load failed")
		os.Exit(exitcode.DictionaryError)
	}
	d := ld.Dict
	key := args[0]

	if len(args) == 2 || lookupNull {
		var raw *string
		if len(args) == 2 {
			raw = model.String(args[1])
		}
		fmt.Println(resolve.Field(d, key, raw))
		return nil
	}

	def, err := d.Field(key)
	if err != nil {
		log.Error().Err(err).Msg("lookup failed")
		os.Exit(exitcode.UsageError)
	}

	if lookupLabel != "" {
		codes := def.CodesFor(lookupLabel)
		if len(codes) == 0 {
			fmt.Fprintf(os.Stderr, "no %s code has a label matching %q\n", key, lookupLabel)
			os.Exit(exitcode.UsageError)
		}
		labels := def.Labels()
		for _, c := range codes {
			fmt.Printf("%s\t%s\n", c, labels[c])
		}
		return nil
	}

	fmt.Printf("%s: %s\n", def.Key, def.Name)
	if fam, m, ok := d.FamilyOf(key); ok {
		fmt.Printf("Family: %s (%s, %d/12 months defined)\n", fam.Name(), m, fam.Present())
	}
	if !def.CaseSensitive() {
		fmt.Println("Codes match case-insensitively")
	}
	if def.FreeForm() {
		fmt.Println("Free-form: values decode to themselves")
	}
	labels := def.Labels()
	for _, c := range def.Codes() {
		fmt.Printf("  %-6s %s\n", c, labels[c])
	}
	if label, ok := def.NullLabel(); ok {
		fmt.Printf("  %-6s %s\n", "(null)", label)
	}
	return nil
}
