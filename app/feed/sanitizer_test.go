package feed

import (
	"strings"
	"testing"
)

func TestSanitizeEmpty(t *testing.T) {
	s := NewSanitizer()

	if got := s.Run(""); got != "" {
		t.Errorf("Expected empty output for empty input, got: %q", got)
	}
	if got := s.Run("   \n\t"); got != "" {
		t.Errorf("Expected empty output for whitespace input, got: %q", got)
	}
}

func TestSanitizeWrapsOutput(t *testing.T) {
	s := NewSanitizer()

	got := s.Run("<p>hello</p>")
	if !strings.HasPrefix(got, `<div class="sanitized-content">`) {
		t.Errorf("Expected container wrapper prefix, got: %q", got)
	}
	if !strings.HasSuffix(got, "</div>") {
		t.Errorf("Expected container wrapper suffix, got: %q", got)
	}
}

func TestSanitizeAllowedContentSurvives(t *testing.T) {
	s := NewSanitizer()

	input := `<h2>Heading</h2><p>Text with <strong>bold</strong> and <em>emphasis</em>.</p>` +
		`<ul><li>one</li><li>two</li></ul>` +
		`<pre><code>x := 1</code></pre>` +
		`<a href="https://example.com/post" title="post">link</a>` +
		`<img src="https://example.com/pic.jpg" alt="pic">`

	got := s.Run(input)

	for _, fragment := range []string{
		"<h2>Heading</h2>",
		"<strong>bold</strong>",
		"<em>emphasis</em>",
		"<li>one</li>",
		"<code>x := 1</code>",
		`href="https://example.com/post"`,
		`src="https://example.com/pic.jpg"`,
		`alt="pic"`,
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("Expected %q to survive sanitization, output: %q", fragment, got)
		}
	}
}

func TestSanitizeStripsForbiddenConstructs(t *testing.T) {
	s := NewSanitizer()

	input := `<p style="color:red" class="wide" onclick="evil()">hi</p>` +
		`<script>alert(1)</script>` +
		`<style>p{display:none}</style>` +
		`<iframe src="https://evil.example.com"></iframe>` +
		`<img src="https://example.com/x.png" onerror="steal()">`

	got := s.Run(input)

	for _, forbidden := range []string{
		"<script", "</script>", "alert(1)",
		"<style", "display:none",
		"<iframe",
		"onerror=", "onclick=", "style=",
	} {
		if strings.Contains(got, forbidden) {
			t.Errorf("Expected %q to be stripped, output: %q", forbidden, got)
		}
	}

	// The only class attribute left is the container marker.
	if strings.Count(got, "class=") != 1 {
		t.Errorf("Expected exactly one class attribute (the wrapper), output: %q", got)
	}
	if !strings.Contains(got, ">hi</p>") {
		t.Errorf("Expected text content preserved, output: %q", got)
	}
	if !strings.Contains(got, `src="https://example.com/x.png"`) {
		t.Errorf("Expected img src preserved, output: %q", got)
	}
}

func TestSanitizeRepairsEscapedQuotes(t *testing.T) {
	s := NewSanitizer()

	input := `<p>look</p><img src=\"https://example.com/pic.jpg\" alt=\"shot\">`
	got := s.Run(input)

	if !strings.Contains(got, `src="https://example.com/pic.jpg"`) {
		t.Errorf("Expected escaped quotes repaired, output: %q", got)
	}
	if strings.Contains(got, `\`) {
		t.Errorf("Expected stray backslashes removed, output: %q", got)
	}
}

func TestSanitizeNonHTTPSchemesDropped(t *testing.T) {
	s := NewSanitizer()

	got := s.Run(`<a href="javascript:alert(1)">x</a>`)
	if strings.Contains(got, "javascript:") {
		t.Errorf("Expected javascript scheme dropped, output: %q", got)
	}
}

func TestTrimSpuriousSlash(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/images/pic.jpg/", "https://example.com/images/pic.jpg"},
		{"https://example.com/pic.png", "https://example.com/pic.png"},
		{"https://example.com/", "https://example.com/"},
		{"https://example.com/gallery/", "https://example.com/gallery/"},
		{"https://img.example.com/v2/photo.webp/", "https://img.example.com/v2/photo.webp"},
	}

	for _, tt := range tests {
		if got := trimSpuriousSlash(tt.in); got != tt.want {
			t.Errorf("trimSpuriousSlash(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeTrimsImageTrailingSlash(t *testing.T) {
	s := NewSanitizer()

	got := s.Run(`<img src="https://example.com/images/pic.jpg/" alt="x">`)
	if !strings.Contains(got, `src="https://example.com/images/pic.jpg"`) {
		t.Errorf("Expected trailing slash trimmed from image URL, output: %q", got)
	}
	if strings.Contains(got, "pic.jpg/") {
		t.Errorf("Expected no residual trailing slash, output: %q", got)
	}
}
