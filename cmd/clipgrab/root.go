package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clipgrab",
		Short:         "Preview and download videos from social media links",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text or json)")
	flags.String("ytdlp", "", "path to the yt-dlp binary")
	flags.String("ffmpeg", "", "path to the ffmpeg binary")
	viper.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
	viper.BindPFlag("LOG_FORMAT", flags.Lookup("log-format"))
	viper.BindPFlag("YTDLP_BIN", flags.Lookup("ytdlp"))
	viper.BindPFlag("FFMPEG_BIN", flags.Lookup("ffmpeg"))

	root.AddCommand(newServeCmd(), newProbeCmd())
	return root
}
