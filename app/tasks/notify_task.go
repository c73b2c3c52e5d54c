package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/planetfeed/planetfeed/app/notify"
)

// NotifyTask reads the rendered feed and the sent-items ledger, pushes
// new entries through the notifier, and writes the updated ledger back.
type NotifyTask struct {
	Task
	notifier   *notify.Notifier
	outputFile string
	ledgerFile string
}

func NewNotifyTask(notifier *notify.Notifier, outputFile, ledgerFile string) *NotifyTask {
	return &NotifyTask{
		Task:       NewTask(TaskTypeNotify, ""),
		notifier:   notifier,
		outputFile: outputFile,
		ledgerFile: ledgerFile,
	}
}

func (t *NotifyTask) Execute(ctx context.Context) error {
	t.Start()

	feedXML, err := os.ReadFile(t.outputFile)
	if err != nil {
		return fmt.Errorf("failed to read rendered feed: %w", err)
	}

	ledger, err := notify.LoadLedger(t.ledgerFile)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	if err := t.notifier.Run(ctx, feedXML, ledger); err != nil {
		return err
	}

	if err := ledger.Save(t.ledgerFile); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}

	slog.Info("Task completed", "type", string(t.Type), "duration", t.GetDuration())

	return nil
}
