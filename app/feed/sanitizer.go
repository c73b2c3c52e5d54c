package feed

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContainerClass marks sanitized content so downstream styling can target
// it specifically.
const ContainerClass = "sanitized-content"

var (
	styleClassAttrRe = regexp.MustCompile(`(?i)\s(?:style|class)\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	imgAnchorTagRe   = regexp.MustCompile(`(?is)<(?:img|a)\b[^>]*>`)
	srcHrefAttrRe    = regexp.MustCompile(`(?i)\b(src|href)\s*=\s*"([^"]*)"`)
)

// Sanitizer reduces feed HTML to a strict allow-list of text, structure,
// and media markup. This is a security boundary: anything not on the
// allow-list must never reach rendering.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr", "blockquote",
		"pre", "code",
		"em", "strong", "b", "i", "u", "s", "sub", "sup",
		"ul", "ol", "li", "dl", "dt", "dd",
		"table", "thead", "tbody", "tfoot", "tr", "th", "td",
		"a", "img", "figure", "figcaption",
	)
	p.AllowAttrs("href", "title", "target", "rel").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowURLSchemes("http", "https")

	return &Sanitizer{policy: p}
}

// Run sanitizes a feed HTML snippet and wraps the result in the container
// marker. Empty input returns empty output.
func (s *Sanitizer) Run(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	cleaned := preClean(input)
	safe := s.policy.Sanitize(cleaned)
	safe = normalizeAttrURLs(safe)

	return `<div class="` + ContainerClass + `">` + strings.TrimSpace(safe) + `</div>`
}

// preClean strips inline style/class attributes and repairs the quoting
// mess some feeds produce inside img and a tags (double-escaped quotes,
// stray backslashes).
func preClean(input string) string {
	out := styleClassAttrRe.ReplaceAllString(input, "")

	out = imgAnchorTagRe.ReplaceAllStringFunc(out, func(tag string) string {
		tag = strings.ReplaceAll(tag, `\"`, `"`)
		tag = strings.ReplaceAll(tag, `\'`, `'`)
		return strings.ReplaceAll(tag, `\`, "")
	})

	return out
}

// normalizeAttrURLs repairs residual malformed quoting inside src/href
// values and trims spurious trailing slashes from image URLs.
func normalizeAttrURLs(input string) string {
	return srcHrefAttrRe.ReplaceAllStringFunc(input, func(attr string) string {
		m := srcHrefAttrRe.FindStringSubmatch(attr)
		if m == nil {
			return attr
		}
		name, value := m[1], m[2]

		value = strings.Trim(value, `"'\`)
		if strings.EqualFold(name, "src") {
			value = trimSpuriousSlash(value)
		}

		return name + `="` + value + `"`
	})
}

// trimSpuriousSlash removes a trailing slash after a file-like path
// segment (e.g. photo.jpg/) while leaving domain roots and directory-style
// paths intact.
func trimSpuriousSlash(rawURL string) string {
	if !strings.HasSuffix(rawURL, "/") {
		return rawURL
	}

	trimmed := strings.TrimSuffix(rawURL, "/")
	u, err := url.Parse(trimmed)
	if err != nil || u.Path == "" || u.Path == "/" {
		return rawURL
	}

	if strings.Contains(path.Base(u.Path), ".") {
		return trimmed
	}

	return rawURL
}
