package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/planetfeed/planetfeed/app/feed"
	"github.com/planetfeed/planetfeed/app/fetch"
	"github.com/planetfeed/planetfeed/app/sources"
	"github.com/planetfeed/planetfeed/app/store"
)

// Runner executes one full aggregation run: every configured source in
// order, one at a time, then regenerates the rendered feed. Sources are
// never fetched concurrently, which keeps the outbound request rate low
// and per-host spacing meaningful.
type Runner struct {
	sources    []sources.Source
	fetcher    *fetch.Fetcher
	parser     *feed.Parser
	normalizer *feed.Normalizer
	enricher   *feed.Enricher
	entryStore *store.Store
	generator  *feed.Generator
	channel    feed.ChannelInfo
	outputFile string
}

func NewRunner(srcs []sources.Source, fetcher *fetch.Fetcher, parser *feed.Parser,
	normalizer *feed.Normalizer, enricher *feed.Enricher, entryStore *store.Store,
	channel feed.ChannelInfo, outputFile string) *Runner {
	return &Runner{
		sources:    srcs,
		fetcher:    fetcher,
		parser:     parser,
		normalizer: normalizer,
		enricher:   enricher,
		entryStore: entryStore,
		generator:  feed.NewGenerator(),
		channel:    channel,
		outputFile: outputFile,
	}
}

// Run processes all sources and renders the output feed. Per-source
// failures are contained inside the tasks; only cancellation or a render
// failure surfaces.
func (r *Runner) Run(ctx context.Context) error {
	rc := fetch.NewRunContext()
	total := 0

	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return err
		}

		task := NewProcessSourceTask(src, r.fetcher, r.parser, r.normalizer, r.enricher, r.entryStore)
		entries := task.Process(ctx, rc)
		total += len(entries)
	}

	if err := r.Render(); err != nil {
		return fmt.Errorf("failed to render feed output: %w", err)
	}

	slog.Info("Run completed", "sources", len(r.sources), "persisted", total)

	return nil
}

// Render regenerates the RSS output from the store, newest first.
func (r *Runner) Render() error {
	entries, err := r.entryStore.ListAll()
	if err != nil {
		return err
	}

	rendered := r.generator.Run(r.channel, entries)

	if err := os.MkdirAll(filepath.Dir(r.outputFile), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp := r.outputFile + ".tmp"
	if err := os.WriteFile(tmp, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("failed to write feed output: %w", err)
	}
	if err := os.Rename(tmp, r.outputFile); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize feed output: %w", err)
	}

	return nil
}
