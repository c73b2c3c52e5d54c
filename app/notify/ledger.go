package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Ledger is the persisted record of which entries have already been
// pushed to the webhook, plus the newest timestamp ever sent. It is read
// at notifier start and written back after each batch.
type Ledger struct {
	SentPosts       []string  `json:"sentPosts"`
	LatestTimestamp time.Time `json:"latestTimestamp"`

	sent map[string]bool
}

// LoadLedger reads the ledger file, returning a fresh empty ledger when
// the file does not exist yet.
func LoadLedger(path string) (*Ledger, error) {
	ledger := &Ledger{sent: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ledger, nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	if err := json.Unmarshal(data, ledger); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}

	for _, link := range ledger.SentPosts {
		ledger.sent[link] = true
	}

	return ledger, nil
}

func (l *Ledger) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize ledger: %w", err)
	}

	return nil
}

func (l *Ledger) Contains(link string) bool {
	return l.sent[link]
}

// Add records a sent link and advances the latest timestamp when the sent
// item is newer than anything recorded so far.
func (l *Ledger) Add(link string, sentAt time.Time) {
	if l.sent[link] {
		return
	}

	l.SentPosts = append(l.SentPosts, link)
	l.sent[link] = true

	if sentAt.After(l.LatestTimestamp) {
		l.LatestTimestamp = sentAt
	}
}
