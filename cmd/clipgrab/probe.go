package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/amaumene/clipgrab/internal/api/handlers"
	"github.com/amaumene/clipgrab/internal/config"
	"github.com/amaumene/clipgrab/internal/controllers"
	"github.com/amaumene/clipgrab/internal/pipeline"
	"github.com/amaumene/clipgrab/internal/services/ytdlp"
	"github.com/amaumene/clipgrab/internal/utils"
	"github.com/spf13/cobra"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>",
		Short: "Print the preview of one URL as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			// stdout carries the JSON document
			logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
			logger.SetOutput(os.Stderr)

			runner := pipeline.NewRunner(logger)
			client := ytdlp.NewClient(cfg, runner, logger)
			probeCtrl := controllers.NewProbeController(client, nil, cfg.ProbeRetryDelay, logger)

			preview, err := probeCtrl.Preview(cmd.Context(), utils.ParseQuery(args[0]))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(handlers.NewPreviewResponse(preview))
		},
	}
}
