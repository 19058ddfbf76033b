package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/quizsync/internal/datasync"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
)

func newSyncCommand() *cobra.Command {
	var output = OutputText

	cmd := &cobra.Command{
		Use:   "sync <classId>",
		Short: "Read a class from the remote store and save it locally",
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

			reader, closeRemote, err := openRemote(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = closeRemote()
			}()

			emitter := telemetry.Default()
			engine := datasync.NewEngine(newCollector(cfg, reader, emitter), store, emitter)

			progress := progressPrinter(cmd.ErrOrStderr())
			result, err := engine.Sync(ctx, classID, progress)
			if err != nil {
				return fmt.Errorf("engine.Sync(%s) > %w", classID, err)
			}

			if output != OutputText {
				return printStructured(cmd.OutOrStdout(), output, result)
			}
			out := cmd.OutOrStdout()
			stats := result.Metadata.Stats
			_, _ = fmt.Fprintf(out, "Synced %s in %s: %d subjects, %d chapters, %d questions, %d chunks\n",
				classID, result.Duration.Round(time.Millisecond), stats.Subjects, stats.Chapters, stats.Questions, stats.ChunksCount)
			if len(result.Errors) > 0 {
				yellow := color.New(color.FgYellow)
				_, _ = yellow.Fprintf(out, "Completed with %d errors:\n", len(result.Errors))
				for _, e := range result.Errors {
					_, _ = fmt.Fprintf(out, "  - [%s] %s\n", e.Type, describeErrorRecord(e.Subject, e.Chapter, e.Page, e.Error))
				}
			}
			return nil
		},
	}

	cmd.Flags().Var(&output, "output", fmt.Sprintf("Output format. Possible values are %v", allOutputs))
	return cmd
}

func describeErrorRecord(subject, chapter, page, message string) string {
	switch {
	case page != "":
		return fmt.Sprintf("page %s: %s", page, message)
	case chapter != "":
		return fmt.Sprintf("chapter %s: %s", chapter, message)
	case subject != "":
		return fmt.Sprintf("subject %s: %s", subject, message)
	default:
		return message
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <classId>",
		Short: "Check that the stored metadata and chunks of a class agree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			classID := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			report, err := datasync.Validate(ctx, store, classID)
			if errors.Is(err, datasync.ErrValidationFailed) {
				_, _ = color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "✗ %s\n", err.Error())
				return err
			}
			if err != nil {
				return fmt.Errorf("datasync.Validate(%s) > %w", classID, err)
			}

			_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %s is valid: %d chunks, %d questions\n",
				classID, report.ChunkCount, report.Metadata.Stats.Questions)
			return nil
		},
	}
}
