package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Error is a webhook delivery failure for a single message. The batch
// continues past it.
type Error struct {
	Link       string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("notify %s: HTTP %d", e.Link, e.StatusCode)
	}
	return fmt.Sprintf("notify %s: %v", e.Link, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the webhook payload shape (Discord-compatible embeds).
type Message struct {
	Embeds []Embed `json:"embeds"`
}

type Embed struct {
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// Client posts structured messages to a configured webhook endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Post(ctx context.Context, link string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return &Error{Link: link, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Error{Link: link, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Link: link, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Link: link, StatusCode: resp.StatusCode}
	}

	return nil
}
