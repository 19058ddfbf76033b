// Package exporter writes the manifest and chunk files that the installer downloads.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
)

// MetadataFile is the base name of a class manifest.
const MetadataFile = "metadata"

// Collector reads the content of a class from the remote store.
type Collector interface {
	Collect(ctx context.Context, classID string, report content.ProgressFunc) (content.Dataset, error)
}

// Result describes one finished export.
type Result struct {
	Metadata content.Metadata `json:"metadata" yaml:"metadata"`
	// Files written, manifest first.
	Files []string `json:"files" yaml:"files"`
}

type Exporter struct {
	collector Collector
	outputDir string
	format    content.Format
	emitter   telemetry.Emitter
	now       func() time.Time
}

func NewExporter(collector Collector, outputDir string, format content.Format, emitter telemetry.Emitter) *Exporter {
	if emitter == nil {
		emitter = telemetry.Nop
	}
	if format == "" {
		format = content.FormatJSON
	}
	return &Exporter{
		collector: collector,
		outputDir: outputDir,
		format:    format,
		emitter:   emitter,
		now:       time.Now,
	}
}

// Export collects a class and writes <outputDir>/<classID>/metadata.<ext> and one file per chunk.
// Chunk files are written before the manifest so that a manifest never lists a chunk that is not on disk.
func (e *Exporter) Export(ctx context.Context, classID string, progress content.ProgressFunc) (*Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "exporter.Export")
	defer span.End()

	report := func(p content.Progress) {
		progress.Report(p.Step, p.Progress, p.Message)
		e.emitter.Emit(ctx, telemetry.Event{
			Component: "export",
			ClassID:   classID,
			Step:      p.Step,
			Progress:  p.Progress,
			Message:   p.Message,
			Level:     slog.LevelInfo,
		})
	}

	ds, err := e.collector.Collect(ctx, classID, report)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("collector.Collect() > %w", err)
	}

	now := e.now()
	metadata, chunks := content.Assemble(ds, content.SourceExport, now)

	dir := filepath.Join(e.outputDir, classID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
	}

	files := make([]string, 0, len(chunks)+1)
	for i, name := range metadata.ChunksList {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := e.write(dir, name, content.ChunkVariable(name), "Chunk "+name, now, chunks[name])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
		report(content.Progress{
			Step:     "writing",
			Progress: (i + 1) * 100 / (len(metadata.ChunksList) + 1),
			Message:  fmt.Sprintf("Wrote chunk %d/%d: %s", i+1, len(metadata.ChunksList), name),
		})
	}

	path, err := e.write(dir, MetadataFile, content.MetadataVariable(classID), "Metadata "+classID, now, metadata)
	if err != nil {
		return nil, err
	}
	files = append([]string{path}, files...)

	report(content.Progress{
		Step:     content.StepComplete,
		Progress: 100,
		Message:  fmt.Sprintf("Export complete! Wrote %d files", len(files)),
	})
	return &Result{Metadata: metadata, Files: files}, nil
}

func (e *Exporter) write(dir, name, variable, title string, now time.Time, v any) (string, error) {
	var body []byte
	var err error
	switch e.format {
	case content.FormatScript:
		body, err = content.EncodeScript(variable, title, now, v)
	default:
		body, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("encode %s > %w", name, err)
	}

	path := filepath.Join(dir, name+"."+e.format.Extension())
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("os.WriteFile(%s) > %w", path, err)
	}
	return path, nil
}
