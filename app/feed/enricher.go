package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// Enricher fetches an entry's page and extracts its readable content,
// used to fill in descriptions for feeds that publish title-only items.
// Strictly best-effort: callers treat every failure as "no content".
type Enricher struct {
	client    *http.Client
	userAgent string
}

func NewEnricher(userAgent string, timeout time.Duration) *Enricher {
	return &Enricher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (e *Enricher) Run(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from %s", pageURL)
	}

	slog.Debug("Content extracted", "url", pageURL, "content_length", len(article.Content))

	return article.Content, nil
}
