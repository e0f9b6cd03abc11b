package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/videoconf/internal/config"
	"github.com/vovakirdan/videoconf/internal/log"
)

var configPath string

var rootCMD = &cobra.Command{
	Use:           "videoconf",
	Short:         "video conference orchestration service",
	Long:          `videoconf starts, joins and cancels chat room video calls and streams call events to clients.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCMD.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config.yaml)")
	rootCMD.PersistentFlags().String("log-level", "", "override log level (debug, info, warn, error)")
}

// initialize loads configuration and builds the logger shared by every subcommand.
func initialize(cmd *cobra.Command) (*config.Config, *zerolog.Logger, error) {
	// stderr keeps stdout clean for commands that print results
	bootstrap := log.NewWithWriter(os.Stderr, "info", "console")

	cfg, path, err := config.Load(bootstrap, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	logger := log.New(cfg.Log.Level, cfg.Log.Format)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return &cfg, logger, nil
}
