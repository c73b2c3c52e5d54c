package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// Bodies shorter than this cannot be a usable feed document.
	minBodyLength = 64

	// Ceiling on how long a rate-limit header hint may pause the pipeline.
	maxHintPause = 30 * time.Second
)

// Error is a non-recoverable fetch failure: network error, non-2xx status
// after retries, challenge page, or a body that fails format sniffing.
type Error struct {
	URL        string
	StatusCode int
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (HTTP %d)", e.URL, e.Reason, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RunContext carries session state scoped to one orchestration run. It
// remembers which hosts were already contacted so the one-time extra
// spacing is applied exactly once per host per run.
type RunContext struct {
	seenHosts map[string]bool
}

func NewRunContext() *RunContext {
	return &RunContext{seenHosts: make(map[string]bool)}
}

// firstContact marks the host as seen and reports whether this was the
// first contact during the run.
func (rc *RunContext) firstContact(host string) bool {
	if rc.seenHosts[host] {
		return false
	}
	rc.seenHosts[host] = true
	return true
}

// Fetcher retrieves raw feed documents with per-host header profiles,
// politeness delays, rate-limit awareness, and 429 backoff.
type Fetcher struct {
	client        *http.Client
	userAgent     string
	timeout       time.Duration
	retryDefault  RetryPolicy
	retryHardened RetryPolicy
	politeness    PolitenessPolicy

	// sleep is swappable so tests run without real delays.
	sleep func(time.Duration)
}

func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	return NewFetcherWithPolicies(userAgent, timeout,
		DefaultRetryPolicy(), HardenedRetryPolicy(), HardenedPolitenessPolicy())
}

func NewFetcherWithPolicies(userAgent string, timeout time.Duration,
	retryDefault, retryHardened RetryPolicy, politeness PolitenessPolicy) *Fetcher {
	return &Fetcher{
		client:        &http.Client{Timeout: timeout},
		userAgent:     userAgent,
		timeout:       timeout,
		retryDefault:  retryDefault,
		retryHardened: retryHardened,
		politeness:    politeness,
		sleep:         time.Sleep,
	}
}

// Run fetches the raw document at rawURL. All failures surface as *Error;
// a successful result is never empty or a challenge page.
func (f *Fetcher) Run(ctx context.Context, rc *RunContext, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{URL: rawURL, Reason: "invalid URL", Err: err}
	}

	profile := ProfileForHost(u.Hostname())
	policy := f.retryDefault
	if profile == ProfileBrowser {
		policy = f.retryHardened
		f.applyPoliteness(rc, u.Hostname())
	}

	var lastStatus int
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &Error{URL: rawURL, Reason: "cancelled", Err: err}
		}

		body, status, err := f.doRequest(ctx, rawURL, profile)
		if err != nil {
			return nil, &Error{URL: rawURL, Reason: "request failed", Err: err}
		}

		if status == http.StatusTooManyRequests {
			lastStatus = status
			if attempt < policy.Attempts {
				delay := policy.Delay(attempt)
				slog.Warn("Rate limited, backing off", "url", rawURL, "attempt", attempt, "delay", delay.String())
				f.sleep(delay)
				continue
			}
			break
		}

		if status < 200 || status >= 300 {
			return nil, &Error{URL: rawURL, StatusCode: status, Reason: "unexpected status"}
		}

		if err := validateBody(body); err != nil {
			return nil, &Error{URL: rawURL, Reason: err.Error()}
		}

		return body, nil
	}

	return nil, &Error{URL: rawURL, StatusCode: lastStatus, Reason: "rate limited, retries exhausted"}
}

func (f *Fetcher) applyPoliteness(rc *RunContext, host string) {
	f.sleep(f.politeness.MinSpacing)
	if rc.firstContact(host) {
		delay := f.politeness.FirstSeenDelay()
		slog.Debug("First contact with rate-limited host this run", "host", host, "delay", delay.String())
		f.sleep(delay)
	}
}

func (f *Fetcher) doRequest(ctx context.Context, rawURL string, profile Profile) ([]byte, int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	applyHeaders(req, profile, f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	if pause := rateLimitPause(resp.Header); pause > 0 {
		slog.Debug("Pausing on rate-limit header hint", "url", rawURL, "pause", pause.String())
		f.sleep(pause)
	}

	return body, resp.StatusCode, nil
}

// rateLimitPause inspects response headers for rate-limit hints and
// returns how long to pause before the next request, capped at maxHintPause.
func rateLimitPause(h http.Header) time.Duration {
	if ra := h.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return capPause(time.Duration(secs) * time.Second)
		}
		if t, err := http.ParseTime(ra); err == nil {
			return capPause(time.Until(t))
		}
	}

	if h.Get("X-RateLimit-Remaining") == "0" {
		if reset := h.Get("X-RateLimit-Reset"); reset != "" {
			if v, err := strconv.ParseInt(reset, 10, 64); err == nil {
				// The header carries either a unix timestamp or a delta in seconds.
				if v > 1e9 {
					return capPause(time.Until(time.Unix(v, 0)))
				}
				return capPause(time.Duration(v) * time.Second)
			}
		}
		return capPause(5 * time.Second)
	}

	return 0
}

func capPause(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > maxHintPause {
		return maxHintPause
	}
	return d
}

var challengeMarkers = []string{
	"captcha",
	"cf-chl",
	"just a moment",
	"attention required",
	"verify you are human",
	"access denied",
}

var feedSignatures = []string{
	"<rss",
	"<feed",
	"<rdf:rdf",
	"<?xml",
}

// validateBody is the minimal validity check a fetched document must pass
// before it is handed to the parser: long enough, not an anti-bot
// challenge page, and carrying an XML/RSS/Atom signature.
func validateBody(body []byte) error {
	if len(body) < minBodyLength {
		return fmt.Errorf("body too short (%d bytes)", len(body))
	}

	lower := strings.ToLower(string(body))

	// Challenge pages announce themselves early; scanning only the head
	// avoids rejecting articles that merely mention these words.
	head := lower
	if len(head) > 2048 {
		head = head[:2048]
	}
	for _, marker := range challengeMarkers {
		if strings.Contains(head, marker) {
			return fmt.Errorf("challenge page detected (%q)", marker)
		}
	}

	for _, sig := range feedSignatures {
		if strings.Contains(lower, sig) {
			return nil
		}
	}

	return fmt.Errorf("no feed signature found")
}
