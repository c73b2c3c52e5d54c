package feed

import (
	"time"
)

// RawEntry is the parser-internal representation of one item/entry block:
// best-effort extracted fields, never persisted. Missing fields are empty
// strings.
type RawEntry struct {
	Title       string
	Link        string
	Published   string
	Description string
	ImageURL    string
}

// Entry is the canonical, sanitized, deduplicatable representation of one
// piece of aggregated content. This is the persisted record shape read by
// the site renderer.
type Entry struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PubDate     time.Time `json:"pubDate"`
	Snippet     string    `json:"snippet"`
	Author      string    `json:"author"`
	FeedSource  string    `json:"feedSource"`
	LastFetched time.Time `json:"lastFetched"`
	ImageURL    string    `json:"imageUrl,omitempty"`
}
