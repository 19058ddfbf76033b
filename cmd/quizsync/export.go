package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/datasync"
	"github.com/at-ishikawa/quizsync/internal/exporter"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
)

func newExportCommand() *cobra.Command {
	var (
		formatName string
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:   "export <classId>...",
		Short: "Write the manifest and chunk files of classes for the installer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer setupTelemetry(ctx, cfg)()

			if formatName == "" {
				formatName = cfg.Data.Extension
			}
			format, err := content.ParseFormat(formatName)
			if err != nil {
				return fmt.Errorf("content.ParseFormat() > %w", err)
			}
			if outputDir == "" {
				outputDir = cfg.Export.OutputDirectory
			}

			reader, closeRemote, err := openRemote(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = closeRemote()
			}()

			emitter := telemetry.Default()
			collector := newCollector(cfg, reader, emitter, datasync.WithComponent("export"))
			exp := exporter.NewExporter(collector, outputDir, format, emitter)

			out := cmd.OutOrStdout()
			for _, classID := range args {
				result, err := exp.Export(ctx, classID, progressPrinter(cmd.ErrOrStderr()))
				if err != nil {
					return fmt.Errorf("exporter.Export(%s) > %w", classID, err)
				}
				for _, file := range result.Files {
					_, _ = fmt.Fprintln(out, file)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatName, "format", "", "File format, json or js (default from config)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default from config)")
	return cmd
}
