package feed

import (
	"bytes"
	"cmp"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

// Parser extracts a sequence of raw entries from a feed document. The
// primary path is gofeed's tolerant parser; documents it rejects fall back
// to lenient pattern-based extraction so malformed real-world feeds still
// yield best-effort entries. An unrecognized document produces an empty
// sequence, never an error.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) []RawEntry {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Debug("Structured parse failed, using lenient extraction", "error", err)
		return extractLenient(string(data))
	}

	entries := make([]RawEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.rawEntry(item))
	}

	return entries
}

func (p *Parser) rawEntry(item *gofeed.Item) RawEntry {
	description := cmp.Or(item.Description, item.Content)

	return RawEntry{
		Title:       strings.TrimSpace(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Published:   cmp.Or(item.Published, item.Updated),
		Description: description,
		ImageURL:    imageFromItem(item, description),
	}
}

// imageFromItem resolves the entry image by priority: media:content URL,
// media:thumbnail URL, image-typed enclosure, nested image element,
// itunes:image, and only then the first <img src> inside the description.
func imageFromItem(item *gofeed.Item, description string) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, ext := range media[name] {
				if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
					return u
				}
			}
		}
	}

	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	if item.ITunesExt != nil && item.ITunesExt.Image != "" {
		return item.ITunesExt.Image
	}

	return firstImageSrc(description)
}

// firstImageSrc returns the src of the first <img> tag in the markup, or
// an empty string. Tokenization keeps this working on unbalanced markup.
func firstImageSrc(markup string) string {
	if markup == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return ""
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, hasAttr := z.TagName()
		if string(name) != "img" || !hasAttr {
			continue
		}

		for {
			key, val, more := z.TagAttr()
			if string(key) == "src" {
				return strings.TrimSpace(string(val))
			}
			if !more {
				break
			}
		}
	}
}
