package feed

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	xhtml "golang.org/x/net/html"

	"github.com/planetfeed/planetfeed/app/sources"
)

const (
	// Maximum length of a title derived from the description.
	maxFallbackTitleLen = 55

	// Size cap on sanitized snippets.
	maxSnippetLen = 1500

	placeholderTitle = "Untitled post"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalizer turns raw parsed entries into persisted-shape entries:
// normalized dates, derived titles, sanitized size-capped snippets, and
// attribution. Entries empty in both title and description are discarded.
type Normalizer struct {
	sanitizer *Sanitizer
}

func NewNormalizer(sanitizer *Sanitizer) *Normalizer {
	return &Normalizer{sanitizer: sanitizer}
}

func (n *Normalizer) Run(source sources.Source, raws []RawEntry, fetchedAt time.Time) []Entry {
	entries := make([]Entry, 0, len(raws))

	for _, raw := range raws {
		titleSource := strings.TrimSpace(raw.Title)
		descPlain := PlainText(raw.Description)

		if titleSource == "" && descPlain == "" {
			continue
		}

		title := titleSource
		if title == "" {
			title = truncateAtWord(descPlain, maxFallbackTitleLen)
		}
		if title == "" {
			title = placeholderTitle
		}

		snippet := capSnippet(n.sanitizer.Run(raw.Description), maxSnippetLen)

		entries = append(entries, Entry{
			Title:       title,
			Link:        strings.TrimSpace(raw.Link),
			PubDate:     NormalizeDate(raw.Published, fetchedAt),
			Snippet:     snippet,
			Author:      source.Author,
			FeedSource:  source.URL,
			LastFetched: fetchedAt.UTC(),
			ImageURL:    raw.ImageURL,
		})
	}

	return entries
}

// NormalizeDate parses a publication timestamp in whatever format the feed
// used. An unparsable, missing, or future date falls back to now. The
// result is always UTC, so normalizing an already-normalized date is a
// no-op.
func NormalizeDate(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC()
	}

	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return now.UTC()
	}

	if t.After(now) {
		return now.UTC()
	}

	return t.UTC()
}

// PlainText reduces markup to readable text: CDATA unwrapped, tags
// stripped, entities decoded, whitespace collapsed.
func PlainText(markup string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleanText(markup), " "))
}

// truncateAtWord shortens s to at most max characters, cutting at a word
// boundary and appending an ellipsis marker when anything was dropped.
func truncateAtWord(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}

	return strings.TrimRight(cut, " .,;:!?") + "..."
}

// Elements that never take a closing tag; they must not be pushed on the
// open-tag stack during snippet capping.
var voidElements = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true,
	"area": true, "base": true, "col": true, "embed": true,
	"link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

// capSnippet bounds sanitized markup to roughly limit bytes without ever
// cutting inside a tag: output grows token by token and any tags still
// open at the cap are closed explicitly.
func capSnippet(markup string, limit int) string {
	if len(markup) <= limit {
		return markup
	}

	z := xhtml.NewTokenizer(strings.NewReader(markup))
	var buf strings.Builder
	var open []string

	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			break
		}

		raw := string(z.Raw())

		switch tt {
		case xhtml.StartTagToken:
			name, _ := z.TagName()
			if !voidElements[string(name)] {
				open = append(open, string(name))
			}
		case xhtml.EndTagToken:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}

		buf.WriteString(raw)

		if buf.Len() >= limit {
			break
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		buf.WriteString("</" + open[i] + ">")
	}

	return buf.String()
}
