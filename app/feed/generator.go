package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"time"
)

// ChannelInfo describes the rendered feed's channel metadata.
type ChannelInfo struct {
	Title       string
	Link        string
	Description string
	Version     string
}

// Generator renders persisted entries as an RSS 2.0 document, newest
// first. The output is consumed by the site renderer and the notifier.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(channel ChannelInfo, entries []Entry) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, "Aggregated feed"), 4)

	lastBuildDate := time.Now()
	if len(entries) > 0 {
		lastBuildDate = entries[0].PubDate
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("PlanetFeed/%s", cmp.Or(channel.Version, "dev")), 4)

	for _, entry := range entries {
		g.writeItem(&buf, entry)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String()
}

func (g *Generator) writeItem(buf *bytes.Buffer, entry Entry) {
	buf.WriteString("    <item>\n")

	g.writeElement(buf, "title", entry.Title, 6)

	if entry.Link != "" {
		g.writeElement(buf, "link", entry.Link, 6)

		buf.WriteString(`      <guid isPermaLink="true">`)
		xml.EscapeText(buf, []byte(entry.Link))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "description", cmp.Or(entry.Snippet, "No description available"), 6)
	g.writeElement(buf, "pubDate", entry.PubDate.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "author", entry.Author, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
