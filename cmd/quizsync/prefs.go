package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPrefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Read and write user preferences",
	}
	cmd.AddCommand(
		newPrefsGetCommand(),
		newPrefsSetCommand(),
		newPrefsListCommand(),
	)
	return cmd
}

func newPrefsGetCommand() *cobra.Command {
	var output = OutputYAML

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]

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

			var value any
			found, err := store.GetPreference(ctx, key, &value)
			if err != nil {
				return fmt.Errorf("store.GetPreference(%s) > %w", key, err)
			}
			if !found {
				return fmt.Errorf("preference %s is not set", key)
			}
			if output == OutputText {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}
			return printStructured(cmd.OutOrStdout(), output, value)
		},
	}

	cmd.Flags().Var(&output, "output", fmt.Sprintf("Output format. Possible values are %v", allOutputs))
	return cmd
}

func newPrefsSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a preference. The value is parsed as YAML, so 3, true and [a, b] keep their types",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]

			var value any
			if err := yaml.Unmarshal([]byte(args[1]), &value); err != nil {
				return fmt.Errorf("yaml.Unmarshal() > %w", err)
			}

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

			if err := store.SavePreference(ctx, key, value); err != nil {
				return fmt.Errorf("store.SavePreference(%s) > %w", key, err)
			}
			return nil
		},
	}
}

func newPrefsListCommand() *cobra.Command {
	var output = OutputText

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print all preferences",
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

			prefs, err := store.ListPreferences(ctx)
			if err != nil {
				return fmt.Errorf("store.ListPreferences() > %w", err)
			}
			if output != OutputText {
				return printStructured(cmd.OutOrStdout(), output, prefs)
			}

			keys := make([]string, 0, len(prefs))
			for key := range prefs {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s=%v\n", key, prefs[key])
			}
			return nil
		},
	}

	cmd.Flags().Var(&output, "output", fmt.Sprintf("Output format. Possible values are %v", allOutputs))
	return cmd
}
