package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/installer"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
)

func newInstallCommand() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "install <classId>",
		Short: "Download the exported files of a class and store them for offline use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			classID := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer setupTelemetry(ctx, cfg)()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			format, err := content.ParseFormat(cfg.Data.Extension)
			if err != nil {
				return fmt.Errorf("content.ParseFormat() > %w", err)
			}
			source := installer.NewHTTPSource(cfg.Data.BaseURL, cfg.Data.DataRoot, format, cfg.Installer.Timeout)
			defer func() {
				_ = source.Close()
			}()

			if batchSize <= 0 {
				batchSize = cfg.Installer.BatchSize
			}
			in := installer.New(source, store,
				installer.WithBatchSize(batchSize),
				installer.WithWeights(cfg.Installer.Weights),
				installer.WithEmitter(telemetry.Default()),
			)

			result, err := in.Install(ctx, classID, progressPrinter(cmd.OutOrStdout()))
			if err != nil {
				return fmt.Errorf("installer.Install(%s) > %w", classID, err)
			}
			stats := result.Metadata.Stats
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Installed %s: %d subjects, %d chapters, %d questions in %d chunks\n",
				classID, stats.Subjects, stats.Chapters, stats.Questions, len(result.Metadata.ChunksList))
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Number of chunks downloaded at the same time (default from config)")
	return cmd
}
