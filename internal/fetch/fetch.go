// Package fetch is a small HTTP client for third-party feeds plus the
// HTML-to-text step used on their descriptions.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "SkillXpress/1.0"

	maxBodyBytes = 16 << 20
)

// Error describes a failed request. Status is zero when no response
// arrived; Timeout is set when the deadline expired first.
type Error struct {
	URL     string
	Status  int
	Timeout bool
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("fetch %s: timed out: %v", e.URL, e.Cause)
	case e.Status != 0 && e.Cause == nil:
		return fmt.Sprintf("fetch %s: HTTP status %d", e.URL, e.Status)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Response is a fully read 200 response.
type Response struct {
	Body        []byte
	ContentType string
}

// Client issues bounded GET requests.
type Client struct {
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

// NewClient creates a client from opts.
func NewClient(opts Options) *Client {
	c := &Client{http: opts.HTTPClient, timeout: opts.Timeout, userAgent: opts.UserAgent}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	return c
}

// Timeout is the per-request deadline.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Get reads the body of rawURL. Anything but 200 is an *Error.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.get(ctx, rawURL, "")
}

// GetJSON fetches rawURL and decodes its body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := c.get(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &Error{URL: rawURL, Status: http.StatusOK, Cause: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		if err == nil {
			err = errors.New("invalid URL")
		}
		return nil, &Error{URL: rawURL, Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Cause: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Timeout: errors.Is(err, context.DeadlineExceeded), Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &Error{URL: rawURL, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{URL: rawURL, Status: resp.StatusCode, Timeout: errors.Is(err, context.DeadlineExceeded), Cause: err}
	}
	return &Response{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// HTMLToText returns the visible text of an HTML fragment, one block per
// line. Scripts and styles are dropped.
func HTMLToText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, iframe").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
