// Package feed implements the HTTP client for the published bc19 data
// feeds (timeline.json and schools.json). Fetches are context-aware, share
// one rate limiter, and retry on transient errors (429, 5xx).
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/derickschaefer/bc19/internal/model"
)

const (
	DefaultTimelineURL = "https://bc19.live/data/json/timeline.json"
	DefaultSchoolsURL  = "https://bc19.live/data/json/schools.json"

	maxRetries     = 4
	defaultBackoff = 500 * time.Millisecond
)

// Fetch outcomes passed to Client.OnResult.
const (
	OutcomeOK      = "ok"
	OutcomeRetry   = "retry"
	OutcomeFailed  = "failed"
	OutcomeInvalid = "invalid"
)

// FetchError is a fatal fetch failure: unreachable host, non-200 status,
// or a body that does not decode. No reduction runs after one.
type FetchError struct {
	URL    string
	Status int // 0 when no response was received
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: HTTP %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UserMessage is the notice shown to end users instead of Error().
func (e *FetchError) UserMessage() string {
	return "The latest COVID-19 data could not be loaded right now. Please check back later."
}

// Client fetches the timeline and school feeds.
type Client struct {
	timelineURL string
	schoolsURL  string
	httpClient  *http.Client
	limiter     *rate.Limiter
	backoff     time.Duration
	debug       bool

	// OnResult, when set, is called once per HTTP attempt with the feed
	// kind ("timeline" or "schools") and one of the Outcome constants.
	OnResult func(kind, outcome string)
}

// NewClient creates a Client. Empty URLs fall back to the published feeds.
func NewClient(timelineURL, schoolsURL string, timeout time.Duration, ratePerSec float64, debug bool) *Client {
	if timelineURL == "" {
		timelineURL = DefaultTimelineURL
	}
	if schoolsURL == "" {
		schoolsURL = DefaultSchoolsURL
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		timelineURL: timelineURL,
		schoolsURL:  schoolsURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		backoff: defaultBackoff,
		debug:   debug,
	}
}

// SetBackoff changes the base retry delay. Attempt n waits base × 2^(n-1).
func (c *Client) SetBackoff(d time.Duration) {
	c.backoff = d
}

// TimelineURL returns the resolved timeline feed URL.
func (c *Client) TimelineURL() string { return c.timelineURL }

// SchoolsURL returns the resolved schools feed URL.
func (c *Client) SchoolsURL() string { return c.schoolsURL }

// ─── Feeds ────────────────────────────────────────────────────────────────────

// FetchTimeline downloads and decodes timeline.json. The raw body is
// returned alongside so callers can persist exactly what was served.
func (c *Client) FetchTimeline(ctx context.Context) (*model.Feed, []byte, error) {
	body, err := c.get(ctx, "timeline", c.timelineURL)
	if err != nil {
		return nil, nil, err
	}
	f, err := DecodeTimeline(body)
	if err != nil {
		c.report("timeline", OutcomeInvalid)
		return nil, nil, &FetchError{URL: c.timelineURL, Err: err}
	}
	return f, body, nil
}

// FetchSchools downloads and decodes schools.json.
func (c *Client) FetchSchools(ctx context.Context) ([]model.SchoolDay, []byte, error) {
	body, err := c.get(ctx, "schools", c.schoolsURL)
	if err != nil {
		return nil, nil, err
	}
	days, err := DecodeSchools(body)
	if err != nil {
		c.report("schools", OutcomeInvalid)
		return nil, nil, &FetchError{URL: c.schoolsURL, Err: err}
	}
	return days, body, nil
}

// ─── Decoding ─────────────────────────────────────────────────────────────────

// DecodeTimeline parses a timeline.json document.
func DecodeTimeline(data []byte) (*model.Feed, error) {
	var f model.Feed
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding timeline: %w", err)
	}
	if f.Dates == nil {
		return nil, fmt.Errorf("decoding timeline: missing \"dates\" array")
	}
	return &f, nil
}

// DecodeSchools parses a schools.json document.
func DecodeSchools(data []byte) ([]model.SchoolDay, error) {
	var days []model.SchoolDay
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, fmt.Errorf("decoding schools: %w", err)
	}
	return days, nil
}

// ReadTimelineFile loads a local copy of timeline.json. "-" reads stdin.
func ReadTimelineFile(path string) (*model.Feed, []byte, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := DecodeTimeline(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, data, nil
}

// ReadSchoolsFile loads a local copy of schools.json. "-" reads stdin.
func ReadSchoolsFile(path string) ([]model.SchoolDay, []byte, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}
	days, err := DecodeSchools(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return days, data, nil
}

func readFile(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// get performs a GET, handling rate limiting and retries.
func (c *Client) get(ctx context.Context, kind, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if c.debug {
		slog.Debug("feed request", "kind", kind, "url", reqURL)
	}

	var last *FetchError
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			slog.Debug("retrying after backoff", "kind", kind, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, &FetchError{URL: reqURL, Err: fmt.Errorf("building request: %w", err)}
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "bc19-cli/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.report(kind, OutcomeRetry)
			last = &FetchError{URL: reqURL, Err: err}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.report(kind, OutcomeRetry)
			last = &FetchError{URL: reqURL, Err: fmt.Errorf("reading body: %w", err)}
			continue
		}

		if c.debug {
			slog.Debug("feed response", "kind", kind, "status", resp.StatusCode, "bytes", len(body))
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			c.report(kind, OutcomeRetry)
			last = &FetchError{URL: reqURL, Status: resp.StatusCode, Err: fmt.Errorf("%s", snippet(body))}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			c.report(kind, OutcomeFailed)
			return nil, &FetchError{URL: reqURL, Status: resp.StatusCode, Err: fmt.Errorf("%s", snippet(body))}
		}

		c.report(kind, OutcomeOK)
		return body, nil
	}
	c.report(kind, OutcomeFailed)
	last.Err = fmt.Errorf("after %d attempts: %w", maxRetries, last.Err)
	return nil, last
}

func (c *Client) report(kind, outcome string) {
	if c.OnResult != nil {
		c.OnResult(kind, outcome)
	}
}

// snippet trims an error body to something printable on one line.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty response"
	}
	if len(s) > 200 {
		s = s[:200] + "…"
	}
	return s
}
