package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/codebook/internal/config"
	"github.com/gyeh/codebook/internal/exitcode"
	"github.com/gyeh/codebook/internal/logging"
)

var (
	cfg        = config.New()
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "cbdecode",
	Short:         "Coded-field decoder and validator for administrative records",
	Long:          "Decodes coded fields of Medicare-style administrative records against a field dictionary and reports unknown codes and fields.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", cfg.DSN, "Postgres connection string (or set CODEBOOK_DB_URL)")
	pf.StringVar(&cfg.Region, "region", cfg.Region, "AWS region for s3:// references (or set AWS_REGION)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&configPath, "config", "", "YAML file with decode options")
	pf.StringVar(&envFile, "env-file", ".env", "Env file with CODEBOOK_DB_URL and AWS_REGION, if present")
}

// setup builds the logger and merges the config file, exiting on a bad file.
func setup() zerolog.Logger {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	if loaded, err := cfg.LoadEnvFile(envFile); err != nil {
		log.Error().Err(err).Str("env_file", envFile).Msg("env file load failed")
		os.Exit(exitcode.UsageError)
	} else if loaded {
		log.Debug().Str("env_file", envFile).Msg("loaded env file")
	}
	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			log.Error().Err(err).Str("config", configPath).Msg("config load failed")
			os.Exit(exitcode.UsageError)
		}
	}
	return log
}
