package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyeh/codebook/internal/api"
	"github.com/gyeh/codebook/internal/exitcode"
	"github.com/gyeh/codebook/internal/normalize"
	"github.com/gyeh/codebook/internal/pipeline"
)

var (
	serveAddr    string
	serveMaxBody int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve field lookups and JSON Lines decoding over HTTP",
	Long: `Loads a dictionary once and serves it read-only:

  GET  /api/dictionary              fields and monthly families
  GET  /api/fields/{key}            value table of one field
  GET  /api/fields/{key}/resolve    ?raw=CODE, omit raw for null
  GET  /api/fields/{key}/codes      ?label=TEXT reverse lookup
  POST /api/decode                  JSON Lines body, ?anomalies=true to filter`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&cfg.Dictionary, "dict", "", "Dictionary: JSON file, s3:// URL or builtin:<name> (required)")
	f.StringVar(&serveAddr, "addr", ":8080", "Listen address")
	f.Int64Var(&serveMaxBody, "max-body", api.DefaultMaxBody, "Largest accepted decode request body in bytes")
	_ = serveCmd.MarkFlagRequired("dict")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	srv := api.NewServer(ld, api.Options{
		Cleaner:            normalize.NewCleaner(cfg.Decode.TrimValues, cfg.Decode.NullTokens),
		SampleLimitPerKind: cfg.Decode.SampleLimitPerKind,
		MaxBodyBytes:       serveMaxBody,
	}, log)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Start(serveAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server failed")
		os.Exit(exitcode.SinkError)
	}
	log.Info().Msg("server stopped")
	return nil
}
