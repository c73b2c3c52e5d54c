package feed

import (
	"html"
	"regexp"
	"strings"
)

// Lenient pattern-based extraction, used when structured parsing rejects a
// document. Semantics: first match wins per field, a missing field is an
// empty string, and a malformed block never aborts extraction of its
// siblings.

var (
	rssMarkerRe  = regexp.MustCompile(`(?i)<(rss|rdf:rdf)[\s>]`)
	atomMarkerRe = regexp.MustCompile(`(?i)<feed[\s>]`)

	rssItemRe   = regexp.MustCompile(`(?is)<item\b[^>]*>(.*?)</item>`)
	atomEntryRe = regexp.MustCompile(`(?is)<entry\b[^>]*>(.*?)</entry>`)

	titleRe    = regexp.MustCompile(`(?is)<title\b[^>]*>(.*?)</title>`)
	rssLinkRe  = regexp.MustCompile(`(?is)<link\b[^>]*>(.*?)</link>`)
	atomLinkRe = regexp.MustCompile(`(?is)<link\b[^>]*?href\s*=\s*["']([^"']+)["']`)

	// Publication timestamp tags, in priority order.
	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<pubDate\b[^>]*>(.*?)</pubDate>`),
		regexp.MustCompile(`(?is)<published\b[^>]*>(.*?)</published>`),
		regexp.MustCompile(`(?is)<updated\b[^>]*>(.*?)</updated>`),
		regexp.MustCompile(`(?is)<dc:date\b[^>]*>(.*?)</dc:date>`),
		regexp.MustCompile(`(?is)<date\b[^>]*>(.*?)</date>`),
	}

	// Description tags, in priority order.
	descRes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<description\b[^>]*>(.*?)</description>`),
		regexp.MustCompile(`(?is)<content:encoded\b[^>]*>(.*?)</content:encoded>`),
		regexp.MustCompile(`(?is)<content\b[^>]*>(.*?)</content>`),
		regexp.MustCompile(`(?is)<summary\b[^>]*>(.*?)</summary>`),
		regexp.MustCompile(`(?is)<media:description\b[^>]*>(.*?)</media:description>`),
	}

	mediaContentRe = regexp.MustCompile(`(?is)<media:content\b[^>]*?url\s*=\s*["']([^"']+)["']`)
	mediaThumbRe   = regexp.MustCompile(`(?is)<media:thumbnail\b[^>]*?url\s*=\s*["']([^"']+)["']`)
	enclosureTagRe = regexp.MustCompile(`(?is)<enclosure\b[^>]*>`)
	attrURLRe      = regexp.MustCompile(`(?is)url\s*=\s*["']([^"']+)["']`)
	attrTypeRe     = regexp.MustCompile(`(?is)type\s*=\s*["']([^"']+)["']`)
	imageURLRe     = regexp.MustCompile(`(?is)<image\b[^>]*>.*?<url\b[^>]*>(.*?)</url>`)
	itunesImageRe  = regexp.MustCompile(`(?is)<itunes:image\b[^>]*?href\s*=\s*["']([^"']+)["']`)

	cdataRe = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	tagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
)

func extractLenient(doc string) []RawEntry {
	var blockRe *regexp.Regexp
	atom := false

	switch {
	case rssMarkerRe.MatchString(doc):
		blockRe = rssItemRe
	case atomMarkerRe.MatchString(doc):
		blockRe = atomEntryRe
		atom = true
	default:
		return nil
	}

	var entries []RawEntry
	for _, match := range blockRe.FindAllStringSubmatch(doc, -1) {
		block := match[1]
		entries = append(entries, RawEntry{
			Title:       cleanText(firstMatch(titleRe, block)),
			Link:        extractLink(block, atom),
			Published:   cleanText(firstOf(dateRes, block)),
			Description: unwrapCDATA(firstOf(descRes, block)),
			ImageURL:    extractImage(block),
		})
	}

	return entries
}

func extractLink(block string, atom bool) string {
	if atom {
		return strings.TrimSpace(firstMatch(atomLinkRe, block))
	}
	return cleanText(firstMatch(rssLinkRe, block))
}

func extractImage(block string) string {
	if u := firstMatch(mediaContentRe, block); u != "" {
		return strings.TrimSpace(u)
	}
	if u := firstMatch(mediaThumbRe, block); u != "" {
		return strings.TrimSpace(u)
	}
	if u := enclosureImage(block); u != "" {
		return u
	}
	if u := cleanText(firstMatch(imageURLRe, block)); u != "" {
		return u
	}
	if u := firstMatch(itunesImageRe, block); u != "" {
		return strings.TrimSpace(u)
	}
	return firstImageSrc(unwrapCDATA(firstOf(descRes, block)))
}

func enclosureImage(block string) string {
	for _, tag := range enclosureTagRe.FindAllString(block, -1) {
		typ := firstMatch(attrTypeRe, tag)
		if !strings.HasPrefix(strings.ToLower(typ), "image") {
			continue
		}
		if u := firstMatch(attrURLRe, tag); u != "" {
			return strings.TrimSpace(u)
		}
	}
	return ""
}

func firstOf(res []*regexp.Regexp, s string) string {
	for _, re := range res {
		if m := firstMatch(re, s); m != "" {
			return m
		}
	}
	return ""
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// unwrapCDATA removes CDATA wrappers but keeps the markup inside.
func unwrapCDATA(s string) string {
	return strings.TrimSpace(cdataRe.ReplaceAllString(s, "$1"))
}

// cleanText turns an extracted fragment into plain text: CDATA unwrapped,
// tags stripped, entities decoded, whitespace trimmed.
func cleanText(s string) string {
	s = unwrapCDATA(s)
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}
