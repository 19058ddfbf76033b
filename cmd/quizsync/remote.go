package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/database"
	"github.com/at-ishikawa/quizsync/internal/remote"
	"github.com/at-ishikawa/quizsync/internal/remote/sqlstore"
	"github.com/at-ishikawa/quizsync/schemas"
)

func newRemoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage documents in the remote store",
	}
	cmd.AddCommand(
		newRemoteMigrateCommand(),
		newRemoteCreateCommand(),
		newRemoteUpdateCommand(),
		newRemoteDeleteCommand(),
	)
	return cmd
}

func newRemoteMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL migrations of the mysql backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Remote.Driver != "mysql" {
				return fmt.Errorf("migrations are only available for the mysql driver, got %s", cfg.Remote.Driver)
			}

			db, err := database.Open(cfg.Remote.Database)
			if err != nil {
				return fmt.Errorf("database.Open() > %w", err)
			}
			defer func() {
				_ = db.Close()
			}()

			applied, err := sqlstore.Migrate(ctx, db, schemas.Migrations)
			if err != nil {
				return fmt.Errorf("sqlstore.Migrate() > %w", err)
			}
			if len(applied) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			}
			for _, name := range applied {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
			}
			return nil
		},
	}
}

// writeFlags are shared by the commands that change remote documents.
type writeFlags struct {
	parentID string
	data     string
	output   OutputFormat
}

func (f *writeFlags) register(cmd *cobra.Command, withData bool) {
	f.output = OutputText
	cmd.Flags().StringVar(&f.parentID, "parent", "", "Parent document id, required for every collection except subjects")
	if withData {
		cmd.Flags().StringVar(&f.data, "data", "", "Document fields as a JSON or YAML object")
		_ = cmd.MarkFlagRequired("data")
	}
	cmd.Flags().Var(&f.output, "output", fmt.Sprintf("Output format. Possible values are %v", allOutputs))
}

func (f *writeFlags) entity() (content.Entity, error) {
	var data content.Entity
	if err := yaml.Unmarshal([]byte(f.data), &data); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal() > %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("--data must be an object")
	}
	return data, nil
}

func parseCollectionArg(s string, parentID string) (remote.Collection, error) {
	collection, err := remote.ParseCollection(s)
	if err != nil {
		return "", fmt.Errorf("remote.ParseCollection() > %w", err)
	}
	if collection.HasParent() && parentID == "" {
		return "", fmt.Errorf("collection %s requires --parent", collection)
	}
	return collection, nil
}

// runWrite opens the remote store, applies write and prints its result.
// A failed WriteResult is returned as an error so that the exit code reflects it.
func runWrite(cmd *cobra.Command, output OutputFormat, write func(remote.Writer) remote.WriteResult) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeRemote, err := openRemote(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeRemote()
	}()

	result := write(store)
	if output != OutputText {
		if err := printStructured(cmd.OutOrStdout(), output, result); err != nil {
			return err
		}
	}
	if !result.Success {
		return fmt.Errorf("remote write failed: %s", result.Error)
	}
	if output == OutputText {
		_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "OK %s\n", result.ID)
	}
	return nil
}

func newRemoteCreateCommand() *cobra.Command {
	var flags writeFlags

	cmd := &cobra.Command{
		Use:   "create <collection>",
		Short: "Create a document and print its generated id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := parseCollectionArg(args[0], flags.parentID)
			if err != nil {
				return err
			}
			data, err := flags.entity()
			if err != nil {
				return err
			}
			return runWrite(cmd, flags.output, func(w remote.Writer) remote.WriteResult {
				return w.Create(cmd.Context(), collection, flags.parentID, data)
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newRemoteUpdateCommand() *cobra.Command {
	var flags writeFlags

	cmd := &cobra.Command{
		Use:   "update <collection> <id>",
		Short: "Merge fields into an existing document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := parseCollectionArg(args[0], flags.parentID)
			if err != nil {
				return err
			}
			data, err := flags.entity()
			if err != nil {
				return err
			}
			id := args[1]
			return runWrite(cmd, flags.output, func(w remote.Writer) remote.WriteResult {
				return w.Update(cmd.Context(), collection, flags.parentID, id, data)
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newRemoteDeleteCommand() *cobra.Command {
	var flags writeFlags

	cmd := &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := parseCollectionArg(args[0], flags.parentID)
			if err != nil {
				return err
			}
			id := args[1]
			return runWrite(cmd, flags.output, func(w remote.Writer) remote.WriteResult {
				return w.Delete(cmd.Context(), collection, flags.parentID, id)
			})
		},
	}
	flags.register(cmd, false)
	return cmd
}
