package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newClassesCommand() *cobra.Command {
	var output = OutputText

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the installed classes",
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

			classIDs, err := store.GetInstalledClasses(ctx)
			if err != nil {
				return fmt.Errorf("store.GetInstalledClasses() > %w", err)
			}
			sort.Strings(classIDs)

			if output != OutputText {
				return printStructured(cmd.OutOrStdout(), output, classIDs)
			}
			if len(classIDs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No classes installed")
				return nil
			}
			for _, classID := range classIDs {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), classID)
			}
			return nil
		},
	}

	cmd.Flags().Var(&output, "output", fmt.Sprintf("Output format. Possible values are %v", allOutputs))
	return cmd
}

func newShowCommand() *cobra.Command {
	var output = OutputText

	cmd := &cobra.Command{
		Use:   "show <classId>",
		Short: "Show the stored metadata and chunks of a class",
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

			record, err := store.GetClassData(ctx, classID)
			if err != nil {
				return fmt.Errorf("store.GetClassData(%s) > %w", classID, err)
			}
			if record == nil {
				return fmt.Errorf("class %s is not installed", classID)
			}

			if output != OutputText {
				return printStructured(cmd.OutOrStdout(), output, record.Metadata)
			}

			out := cmd.OutOrStdout()
			bold := color.New(color.Bold)
			metadata := record.Metadata
			_, _ = bold.Fprintln(out, metadata.ClassID)
			_, _ = fmt.Fprintf(out, "  version:      %s\n", metadata.Version)
			_, _ = fmt.Fprintf(out, "  source:       %s\n", metadata.Source)
			_, _ = fmt.Fprintf(out, "  last sync:    %s\n", metadata.LastSync.Format("2006-01-02 15:04:05"))
			_, _ = fmt.Fprintf(out, "  installed at: %s\n", record.InstalledAt.Format("2006-01-02 15:04:05"))
			_, _ = fmt.Fprintf(out, "  subjects: %d, chapters: %d, questions: %d\n",
				metadata.Stats.Subjects, metadata.Stats.Chapters, metadata.Stats.Questions)
			_, _ = bold.Fprintln(out, "Chunks")
			for _, name := range metadata.ChunksList {
				_, _ = fmt.Fprintf(out, "  %s (%s, %d questions)\n", name, record.Chunks[name].Type, record.Chunks[name].QuestionCount())
			}
			if len(metadata.Errors) > 0 {
				_, _ = color.New(color.FgYellow).Fprintf(out, "%d errors were recorded during the last sync\n", len(metadata.Errors))
			}
			return nil
		},
	}

	cmd.Flags().Var(&output, "output", fmt.Sprintf("Output format. Possible values are %v", allOutputs))
	return cmd
}

func newUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <classId>...",
		Short: "Remove installed classes from the local store",
		Args:  cobra.MinimumNArgs(1),
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

			for _, classID := range args {
				if err := store.DeleteClassData(ctx, classID); err != nil {
					return fmt.Errorf("store.DeleteClassData(%s) > %w", classID, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", classID)
			}
			return nil
		},
	}
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all classes, preferences and queued downloads",
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

			if err := store.ClearAllData(ctx); err != nil {
				return fmt.Errorf("store.ClearAllData() > %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cleared all local data")
			return nil
		},
	}
}

func newUsageCommand() *cobra.Command {
	var output = OutputText

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show how much space the local store uses",
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

			usage, err := store.EstimateUsage(ctx)
			if err != nil {
				return fmt.Errorf("store.EstimateUsage() > %w", err)
			}
			if usage == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Usage is not available for in-memory storage")
				return nil
			}

			if output != OutputText {
				return printStructured(cmd.OutOrStdout(), output, usage)
			}
			quota := "unlimited"
			if usage.QuotaBytes > 0 {
				quota = fmt.Sprintf("%d bytes", usage.QuotaBytes)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Used: %d bytes, quota: %s\n", usage.UsedBytes, quota)
			return nil
		},
	}

	cmd.Flags().Var(&output, "output", fmt.Sprintf("Output format. Possible values are %v", allOutputs))
	return cmd
}
