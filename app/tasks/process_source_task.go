package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/planetfeed/planetfeed/app/feed"
	"github.com/planetfeed/planetfeed/app/fetch"
	"github.com/planetfeed/planetfeed/app/sources"
	"github.com/planetfeed/planetfeed/app/store"
)

// ProcessSourceTask runs the full pipeline for one feed source:
// fetch, parse, enrich, normalize, persist, prune.
type ProcessSourceTask struct {
	Task
	Source     sources.Source
	fetcher    *fetch.Fetcher
	parser     *feed.Parser
	normalizer *feed.Normalizer
	enricher   *feed.Enricher
	entryStore *store.Store
}

func NewProcessSourceTask(source sources.Source, fetcher *fetch.Fetcher, parser *feed.Parser,
	normalizer *feed.Normalizer, enricher *feed.Enricher, entryStore *store.Store) *ProcessSourceTask {
	return &ProcessSourceTask{
		Task:       NewTask(TaskTypeProcessSource, source.URL),
		Source:     source,
		fetcher:    fetcher,
		parser:     parser,
		normalizer: normalizer,
		enricher:   enricher,
		entryStore: entryStore,
	}
}

// Process never fails upward: any fetch or parse problem degrades to zero
// entries for this source so siblings keep processing. Returns the entries
// actually persisted.
func (t *ProcessSourceTask) Process(ctx context.Context, rc *fetch.RunContext) []feed.Entry {
	t.Start()

	data, err := t.fetcher.Run(ctx, rc, t.Source.URL)
	if err != nil {
		slog.Warn("Fetch failed, source yields no entries this run",
			"source", t.Source.URL, "error", err)
		return nil
	}

	raws := t.parser.Run(data)
	if len(raws) == 0 {
		slog.Warn("No entries extracted", "source", t.Source.URL)
		return nil
	}

	if t.enricher != nil {
		t.enrichEmptyDescriptions(ctx, raws)
	}

	fetchedAt := time.Now()
	entries := t.normalizer.Run(t.Source, raws, fetchedAt)

	keep := make(map[string]bool, len(entries))
	persisted := make([]feed.Entry, 0, len(entries))
	for _, entry := range entries {
		if err := t.entryStore.Put(entry); err != nil {
			slog.Error("Failed to persist entry, skipping", "source", t.Source.URL,
				"link", entry.Link, "error", err)
			continue
		}
		keep[store.Filename(entry)] = true
		persisted = append(persisted, entry)
	}

	pruned, err := t.entryStore.PruneStaleForSource(t.Source.URL, keep)
	if err != nil {
		slog.Warn("Failed to prune stale entries", "source", t.Source.URL, "error", err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"source", t.Source.URL,
		"duration", t.GetDuration(),
		"extracted", len(raws),
		"persisted", len(persisted),
		"discarded", len(raws)-len(entries),
		"pruned", pruned)

	return persisted
}

// enrichEmptyDescriptions fetches the linked page for entries that came
// without any usable description. Best-effort: failures leave the entry
// as-is.
func (t *ProcessSourceTask) enrichEmptyDescriptions(ctx context.Context, raws []feed.RawEntry) {
	for i := range raws {
		if raws[i].Link == "" || feed.PlainText(raws[i].Description) != "" {
			continue
		}

		content, err := t.enricher.Run(ctx, raws[i].Link)
		if err != nil {
			slog.Debug("Content enrichment failed", "link", raws[i].Link, "error", err)
			continue
		}
		raws[i].Description = content
	}
}
