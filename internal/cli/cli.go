// Package cli holds the sharevault commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sharevault/internal/config"
	"sharevault/internal/export"
	"sharevault/internal/logger"
	"sharevault/internal/metrics"
	"sharevault/internal/pipeline"
	"sharevault/internal/server"
)

func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "sharevault",
		Short: "Collect and describe the links shared in a chat export",
		Long: `sharevault reads an exported chat transcript, pulls out every distinct link
and enriches it with titles, artists and artwork from the music, video and web
sources it points to.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv(config.ConfigPathEnv), "Path to a config file (or set "+config.ConfigPathEnv+")")

	rootCmd.AddCommand(newServeCommand(&configPath), newAnalyseCommand(&configPath))
	return rootCmd
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the upload API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logger.New(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
			m := metrics.NewMetrics()

			analyser, err := newAnalyser(cmd.Context(), cfg, log, m)
			if err != nil {
				return err
			}
			return server.New(cfg, analyser, log, m).ListenAndServe(cmd.Context())
		},
	}
}

type analyseFlags struct {
	format    string
	output    string
	noSpotify bool
	noYoutube bool
	noGeneral bool
}

func newAnalyseCommand(configPath *string) *cobra.Command {
	var flags analyseFlags

	cmd := &cobra.Command{
		Use:   "analyse <file>",
		Short: "Analyse a transcript file and print the link table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(flags.format)
			if err != nil {
				return err
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logger.New(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel, Output: cmd.ErrOrStderr()})

			analyser, err := newAnalyser(cmd.Context(), cfg, log, metrics.NewNoop())
			if err != nil {
				return err
			}
			return runAnalyse(cmd, analyser, args[0], format, flags, log)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", string(export.FormatJSON), "Output format: json, csv or xlsx")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&flags.noSpotify, "no-spotify", false, "Skip music lookups")
	cmd.Flags().BoolVar(&flags.noYoutube, "no-youtube", false, "Skip video lookups")
	cmd.Flags().BoolVar(&flags.noGeneral, "no-general", false, "Skip web page lookups")
	return cmd
}

func runAnalyse(cmd *cobra.Command, analyser server.Analyser, path string, format export.Format, flags analyseFlags, log logrus.FieldLogger) error {
	opts := pipeline.Options{
		ExpandSpotify: !flags.noSpotify,
		ExpandYoutube: !flags.noYoutube,
		ExpandGeneral: !flags.noGeneral,
	}
	links, err := analyser.AnalyseFile(cmd.Context(), path, opts)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := export.Write(out, format, links); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	if flags.output != "" {
		log.WithField("links", len(links)).Infof("wrote %s", flags.output)
	}
	return nil
}
