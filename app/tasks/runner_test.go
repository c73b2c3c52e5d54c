package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/planetfeed/planetfeed/app/feed"
	"github.com/planetfeed/planetfeed/app/fetch"
	"github.com/planetfeed/planetfeed/app/sources"
	"github.com/planetfeed/planetfeed/app/store"
)

var testChannel = feed.ChannelInfo{
	Title:       "Planet Test",
	Link:        "https://planet.example.com",
	Description: "test aggregate",
	Version:     "test",
}

// zeroDelayFetcher builds a fetcher whose backoff and politeness delays
// are all zero so retry paths run instantly.
func zeroDelayFetcher() *fetch.Fetcher {
	instant := fetch.RetryPolicy{Attempts: 3}
	return fetch.NewFetcherWithPolicies("TestAgent/1.0", 5*time.Second,
		instant, instant, fetch.PolitenessPolicy{})
}

func feedDocument(items ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Upstream Blog</title>
    <link>https://upstream.example.com</link>
`)
	for _, item := range items {
		b.WriteString(item)
		b.WriteString("\n")
	}
	b.WriteString("  </channel>\n</rss>")
	return b.String()
}

func feedItem(n int) string {
	return fmt.Sprintf(`    <item>
      <title>Upstream post %d</title>
      <link>https://upstream.example.com/post-%d</link>
      <pubDate>Mon, 0%d Jan 2024 00:00:00 GMT</pubDate>
      <description>Body of upstream post %d</description>
    </item>`, n, n, n, n)
}

func newRunner(t *testing.T, srcs []sources.Source) (*Runner, *store.Store, string) {
	t.Helper()

	dir := t.TempDir()
	entryStore, err := store.NewStore(dir)
	if err != nil {
		t.Fatalf("Expected store creation to succeed, got: %v", err)
	}

	outputFile := filepath.Join(dir, "feed.xml")
	runner := NewRunner(srcs, zeroDelayFetcher(), feed.NewParser(),
		feed.NewNormalizer(feed.NewSanitizer()), nil, entryStore, testChannel, outputFile)

	return runner, entryStore, outputFile
}

func TestRunnerEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feedDocument(feedItem(1), feedItem(2)))
	}))
	defer server.Close()

	runner, entryStore, outputFile := newRunner(t, []sources.Source{
		{URL: server.URL, Author: "Upstream Author"},
	})

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Expected run to succeed, got: %v", err)
	}

	entries, err := entryStore.ListAll()
	if err != nil {
		t.Fatalf("Expected list to succeed, got: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 persisted entries, got: %d", len(entries))
	}
	if entries[0].Author != "Upstream Author" {
		t.Errorf("Expected source attribution, got: %q", entries[0].Author)
	}

	output, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("Expected rendered output file, got: %v", err)
	}
	if !strings.Contains(string(output), "Upstream post 2") {
		t.Error("Expected rendered feed to contain persisted entries")
	}

	first := strings.Index(string(output), "Upstream post 2")
	second := strings.Index(string(output), "Upstream post 1")
	if first > second {
		t.Error("Expected rendered feed ordered newest first")
	}
}

func TestRunnerReprocessIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedDocument(feedItem(1), feedItem(2)))
	}))
	defer server.Close()

	runner, entryStore, _ := newRunner(t, []sources.Source{{URL: server.URL}})

	for i := 0; i < 2; i++ {
		if err := runner.Run(context.Background()); err != nil {
			t.Fatalf("Expected run %d to succeed, got: %v", i+1, err)
		}
	}

	entries, err := entryStore.ListAll()
	if err != nil {
		t.Fatalf("Expected list to succeed, got: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected reprocessing to not duplicate entries, got: %d", len(entries))
	}
}

func TestRunnerPrunesRemovedItems(t *testing.T) {
	var mu sync.Mutex
	doc := feedDocument(feedItem(1), feedItem(2), feedItem(3))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(w, doc)
	}))
	defer server.Close()

	runner, entryStore, _ := newRunner(t, []sources.Source{{URL: server.URL}})

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Expected first run to succeed, got: %v", err)
	}

	mu.Lock()
	doc = feedDocument(feedItem(2), feedItem(3))
	mu.Unlock()
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Expected second run to succeed, got: %v", err)
	}

	entries, err := entryStore.ListAll()
	if err != nil {
		t.Fatalf("Expected list to succeed, got: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected removed upstream item pruned, got: %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Title == "Upstream post 1" {
			t.Error("Expected pruned entry absent from store")
		}
	}
}

func TestRunnerContainsSourceFailures(t *testing.T) {
	rateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer rateLimited.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>not a feed but padded long enough to pass the length check</body></html>")
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedDocument(feedItem(1)))
	}))
	defer healthy.Close()

	runner, entryStore, outputFile := newRunner(t, []sources.Source{
		{URL: rateLimited.URL},
		{URL: broken.URL},
		{URL: healthy.URL},
	})

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Expected failing sources contained, got: %v", err)
	}

	entries, err := entryStore.ListAll()
	if err != nil {
		t.Fatalf("Expected list to succeed, got: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the healthy source to contribute, got: %d", len(entries))
	}
	if _, err := os.Stat(outputFile); err != nil {
		t.Errorf("Expected output rendered despite source failures, got: %v", err)
	}
}

func TestRunnerCancelledContext(t *testing.T) {
	runner, _, _ := newRunner(t, []sources.Source{{URL: "https://unreachable.example.com/feed"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := runner.Run(ctx); err == nil {
		t.Error("Expected cancelled context to surface")
	}
}

func TestRenderEmptyStore(t *testing.T) {
	runner, _, outputFile := newRunner(t, nil)

	if err := runner.Render(); err != nil {
		t.Fatalf("Expected render of empty store to succeed, got: %v", err)
	}

	output, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("Expected output file, got: %v", err)
	}
	if !strings.Contains(string(output), "<rss version=\"2.0\"") {
		t.Error("Expected a valid empty channel document")
	}
}

func TestSchedulerRunsPeriodically(t *testing.T) {
	hits := make(chan struct{}, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
		fmt.Fprint(w, feedDocument(feedItem(1)))
	}))
	defer server.Close()

	runner, _, _ := newRunner(t, []sources.Source{{URL: server.URL}})

	scheduler := NewScheduler(runner, nil, 20*time.Millisecond)
	scheduler.Start()
	defer scheduler.Stop()

	select {
	case <-hits:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a scheduled run to fetch the source")
	}
}
