package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/quizsync/internal/localstore"
)

func newQueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect downloads that are running or have failed",
	}
	cmd.AddCommand(
		newQueueListCommand(),
		newQueueClearCommand(),
	)
	return cmd
}

func newQueueListCommand() *cobra.Command {
	var output = OutputText

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued downloads in the order they were requested",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
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

			entries, err := store.ListDownloadQueue(ctx)
			if err != nil {
				return fmt.Errorf("store.ListDownloadQueue() > %w", err)
			}
			if output != OutputText {
				return printStructured(cmd.OutOrStdout(), output, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "The download queue is empty")
				return nil
			}
			red := color.New(color.FgRed)
			for _, entry := range entries {
				line := fmt.Sprintf("#%d %s %s %s", entry.ID, entry.ClassID, entry.Status, entry.RequestedAt.Format("2006-01-02 15:04:05"))
				if entry.Status == localstore.DownloadFailed {
					_, _ = red.Fprintf(out, "%s: %s\n", line, entry.Error)
					continue
				}
				_, _ = fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().Var(&output, "output", fmt.Sprintf("Output format. Possible values are %v", allOutputs))
	return cmd
}

func newQueueClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every queued download",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
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

			if err := store.ClearDownloadQueue(ctx); err != nil {
				return fmt.Errorf("store.ClearDownloadQueue() > %w", err)
			}
			return nil
		},
	}
}
