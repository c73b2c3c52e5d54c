package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/planetfeed/planetfeed/app/notify"
	"github.com/planetfeed/planetfeed/app/sources"
)

func TestNotifyTaskExecute(t *testing.T) {
	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedDocument(feedItem(1), feedItem(2)))
	}))
	defer feedServer.Close()

	var deliveries atomic.Int64
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deliveries.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer webhook.Close()

	runner, _, outputFile := newRunner(t, []sources.Source{{URL: feedServer.URL}})
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Expected run to succeed, got: %v", err)
	}

	ledgerFile := filepath.Join(t.TempDir(), "ledger.json")
	notifier := notify.NewNotifier(webhook.URL, 5, 0)

	task := NewNotifyTask(notifier, outputFile, ledgerFile)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected notify task to succeed, got: %v", err)
	}
	if got := deliveries.Load(); got != 2 {
		t.Fatalf("Expected 2 deliveries on first run, got: %d", got)
	}

	// A second run against the saved ledger must send nothing.
	task = NewNotifyTask(notifier, outputFile, ledgerFile)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected second notify task to succeed, got: %v", err)
	}
	if got := deliveries.Load(); got != 2 {
		t.Errorf("Expected no repeat deliveries, got: %d", got)
	}
}

func TestNotifyTaskMissingOutput(t *testing.T) {
	dir := t.TempDir()
	notifier := notify.NewNotifier("http://127.0.0.1:0", 5, 0)

	task := NewNotifyTask(notifier, filepath.Join(dir, "missing.xml"), filepath.Join(dir, "ledger.json"))
	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected missing rendered feed to fail the task")
	}
}
