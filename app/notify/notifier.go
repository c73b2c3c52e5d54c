package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/planetfeed/planetfeed/app/feed"
)

const (
	embedColor          = 0x2b6cb0
	maxEmbedDescription = 300
)

type candidate struct {
	title       string
	link        string
	description string
	author      string
	published   time.Time
}

// Notifier diffs the rendered feed against the sent-items ledger and
// pushes new entries to the webhook, newest first, bounded per run and
// rate-limited between messages. A delivery failure skips that item only.
type Notifier struct {
	client    *Client
	parser    *gofeed.Parser
	maxPerRun int
	delay     time.Duration

	// sleep is swappable so tests run without real delays.
	sleep func(time.Duration)
}

func NewNotifier(webhookURL string, maxPerRun int, delay time.Duration) *Notifier {
	return &Notifier{
		client:    NewClient(webhookURL, 15*time.Second),
		parser:    gofeed.NewParser(),
		maxPerRun: maxPerRun,
		delay:     delay,
		sleep:     time.Sleep,
	}
}

// Run sends notifications for entries in the rendered feed that are not
// yet in the ledger and are newer than its latest timestamp. The ledger is
// updated in place to reflect what was actually sent.
func (n *Notifier) Run(ctx context.Context, feedXML []byte, ledger *Ledger) error {
	parsed, err := n.parser.Parse(bytes.NewReader(feedXML))
	if err != nil {
		return fmt.Errorf("failed to parse rendered feed: %w", err)
	}

	candidates := n.collectCandidates(parsed, ledger)
	if len(candidates) == 0 {
		slog.Debug("No new entries to notify")
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].published.After(candidates[j].published)
	})

	if len(candidates) > n.maxPerRun {
		candidates = candidates[:n.maxPerRun]
	}

	sent := 0
	for i, c := range candidates {
		if i > 0 {
			n.sleep(n.delay)
		}

		if err := n.client.Post(ctx, c.link, buildMessage(c)); err != nil {
			slog.Error("Webhook delivery failed, skipping item", "link", c.link, "error", err)
			continue
		}

		ledger.Add(c.link, c.published)
		sent++
	}

	slog.Info("Notification batch completed", "candidates", len(candidates), "sent", sent)

	return nil
}

func (n *Notifier) collectCandidates(parsed *gofeed.Feed, ledger *Ledger) []candidate {
	var candidates []candidate

	for _, item := range parsed.Items {
		if item == nil || item.Link == "" || item.PublishedParsed == nil {
			continue
		}
		if ledger.Contains(item.Link) {
			continue
		}
		if !item.PublishedParsed.After(ledger.LatestTimestamp) {
			continue
		}

		author := ""
		if item.Author != nil {
			author = item.Author.Name
		}

		candidates = append(candidates, candidate{
			title:       item.Title,
			link:        item.Link,
			description: item.Description,
			author:      author,
			published:   *item.PublishedParsed,
		})
	}

	return candidates
}

func buildMessage(c candidate) Message {
	embed := Embed{
		Title:       c.title,
		URL:         c.link,
		Description: truncate(feed.PlainText(c.description), maxEmbedDescription),
		Color:       embedColor,
		Timestamp:   c.published.UTC().Format(time.RFC3339),
	}

	if c.author != "" {
		embed.Footer = &EmbedFooter{Text: "New post by " + c.author}
	}

	return Message{Embeds: []Embed{embed}}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
