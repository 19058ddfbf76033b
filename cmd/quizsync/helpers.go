package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/quizsync/internal/config"
	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/database"
	"github.com/at-ishikawa/quizsync/internal/datasync"
	"github.com/at-ishikawa/quizsync/internal/localstore"
	"github.com/at-ishikawa/quizsync/internal/remote"
	"github.com/at-ishikawa/quizsync/internal/remote/firebase"
	"github.com/at-ishikawa/quizsync/internal/remote/sqlstore"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loader.Load() > %w", err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*localstore.Store, error) {
	store, err := localstore.Open(ctx, cfg.Storage.Path, localstore.WithQuota(cfg.Storage.QuotaBytes))
	if err != nil {
		return nil, fmt.Errorf("localstore.Open() > %w", err)
	}
	return store, nil
}

// openRemote connects to the configured remote backend. The returned close function is never nil.
func openRemote(cfg *config.Config) (remote.Store, func() error, error) {
	switch cfg.Remote.Driver {
	case "mysql":
		db, err := database.Open(cfg.Remote.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("database.Open() > %w", err)
		}
		return sqlstore.NewStore(db), db.Close, nil
	default:
		client := firebase.NewClient(firebase.Config{
			BaseURL:   cfg.Remote.Firebase.BaseURL,
			AuthToken: cfg.Remote.Firebase.AuthToken,
			Timeout:   cfg.Installer.Timeout,
		})
		return client, func() error { return nil }, nil
	}
}

func newCollector(cfg *config.Config, reader remote.Reader, emitter telemetry.Emitter, opts ...datasync.CollectorOption) *datasync.Collector {
	return datasync.NewCollector(reader, append([]datasync.CollectorOption{
		datasync.WithRetryPolicy(datasync.NewRetryPolicy(cfg.Sync.Retry)),
		datasync.WithSubjectMatcher(datasync.NewSubjectMatcher(cfg.Sync.FallbackToAllSubjects)),
		datasync.WithQuestionBatchSize(cfg.Sync.QuestionBatchSize),
		datasync.WithWordMeanings(cfg.Sync.IncludeWordMeanings),
		datasync.WithEmitter(emitter),
	}, opts...)...)
}

// setupTelemetry starts exporting traces when an endpoint is configured.
func setupTelemetry(ctx context.Context, cfg *config.Config) func() {
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.OTelEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		slog.WarnContext(ctx, "tracing is disabled", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "failed to flush traces", "error", err)
		}
	}
}

// progressPrinter writes one line per progress event, colored by step.
func progressPrinter(w io.Writer) content.ProgressFunc {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	bold := color.New(color.Bold)

	return func(p content.Progress) {
		prefix := fmt.Sprintf("[%3d%%]", p.Progress)
		switch p.Step {
		case content.StepComplete:
			_, _ = green.Fprintf(w, "%s %s\n", prefix, p.Message)
		case content.StepError:
			_, _ = red.Fprintf(w, "%s %s\n", prefix, p.Message)
		case content.StepCancelled:
			_, _ = yellow.Fprintf(w, "%s %s\n", prefix, p.Message)
		default:
			_, _ = bold.Fprint(w, prefix)
			_, _ = fmt.Fprintf(w, " %s\n", p.Message)
		}
	}
}

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputYAML OutputFormat = "yaml"
	OutputJSON OutputFormat = "json"
)

var (
	_          pflag.Value = (*OutputFormat)(nil)
	allOutputs             = []OutputFormat{OutputText, OutputYAML, OutputJSON}
)

func (o *OutputFormat) Set(v string) error {
	for _, format := range allOutputs {
		if v == string(format) {
			*o = format
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s", v)
}

func (o *OutputFormat) String() string {
	return string(*o)
}

func (o *OutputFormat) Type() string {
	return "OutputFormat"
}

// printStructured writes v as YAML or JSON. Text output is handled by each command.
func printStructured(w io.Writer, format OutputFormat, v any) error {
	switch format {
	case OutputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoder.Encode() > %w", err)
		}
	default:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoder.Encode() > %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("encoder.Close() > %w", err)
		}
	}
	return nil
}
