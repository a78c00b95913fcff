// Package github fetches repository metadata and language breakdowns from
// the GitHub REST API and turns them into scoring signals.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/skillxpress/skillxpress/internal/logger"
	"github.com/skillxpress/skillxpress/internal/types"
)

const (
	serviceName   = "code hosting"
	userAgent     = "SkillXpress"
	perPage       = 100
	maxPages      = 5
	maxBodyBytes  = 8 << 20
	defaultAPIURL = "https://api.github.com"
)

// Repository is the subset of the repository listing payload used for scoring.
type Repository struct {
	Name         string    `json:"name"`
	FullName     string    `json:"full_name"`
	Fork         bool      `json:"fork"`
	Stars        int       `json:"stargazers_count"`
	Forks        int       `json:"forks_count"`
	Size         int       `json:"size"`
	PushedAt     time.Time `json:"pushed_at"`
	LanguagesURL string    `json:"languages_url"`
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration // per request
	RequestsPerSecond float64
	Concurrency       int
	HTTPClient        *http.Client
	Cache             LanguageCache
	Logger            *logger.Logger
}

// Client is safe for concurrent use.
type Client struct {
	baseURL     string
	token       string
	timeout     time.Duration
	concurrency int
	http        *http.Client
	limiter     *rate.Limiter
	cache       LanguageCache
	log         *logger.Logger
}

// NewClient creates a GitHub client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultAPIURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		token:       opts.Token,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		http:        opts.HTTPClient,
		limiter:     rate.NewLimiter(limit, opts.Concurrency),
		cache:       opts.Cache,
		log:         opts.Logger,
	}
}

// ListRepositories returns the repositories owned by username, up to
// maxPages pages. An error payload (unknown account, rate limit) is reported
// as UpstreamUnavailable, distinct from an account with no repositories.
func (c *Client) ListRepositories(ctx context.Context, username string) ([]Repository, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &types.UpstreamUnavailableError{Service: serviceName, Message: "username is empty"}
	}

	var all []Repository
	for page := 1; page <= maxPages; page++ {
		u := fmt.Sprintf("%s/users/%s/repos?per_page=%d&page=%d&type=owner",
			c.baseURL, url.PathEscape(username), perPage, page)
		body, err := c.get(ctx, u)
		if err != nil {
			return nil, err
		}
		if !isJSONArray(body) {
			return nil, &types.UpstreamUnavailableError{
				Service: serviceName,
				Message: "repository listing is not a list: " + apiMessage(body),
			}
		}
		var repos []Repository
		if err := json.Unmarshal(body, &repos); err != nil {
			return nil, &types.UpstreamUnavailableError{Service: serviceName, Message: "malformed repository listing", Cause: err}
		}
		all = append(all, repos...)
		if len(repos) < perPage {
			return all, nil
		}
	}
	c.log.Warn("repository listing truncated", "username", username, "pages", maxPages, "repositories", len(all))
	return all, nil
}

// Languages returns the language to byte count breakdown of a repository.
func (c *Client) Languages(ctx context.Context, repo Repository) (map[string]int64, error) {
	u := c.languagesURL(repo)
	if c.cache != nil {
		if langs, ok := c.cache.Get(ctx, u); ok {
			return langs, nil
		}
	}

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var langs map[string]int64
	if err := json.Unmarshal(body, &langs); err != nil {
		return nil, &types.UpstreamUnavailableError{Service: serviceName, Message: "malformed languages payload for " + repo.FullName, Cause: err}
	}

	if c.cache != nil {
		c.cache.Set(ctx, u, langs)
	}
	return langs, nil
}

// languagesURL only follows languages_url when it points at the configured
// API host; otherwise it is rebuilt from the repository name.
func (c *Client) languagesURL(repo Repository) string {
	if strings.HasPrefix(repo.LanguagesURL, c.baseURL+"/") {
		return repo.LanguagesURL
	}
	return fmt.Sprintf("%s/repos/%s/languages", c.baseURL, repo.FullName)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.classify(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.classify(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, &types.UpstreamUnavailableError{Service: serviceName, Message: "account or repository not found"}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, &types.UpstreamUnavailableError{Service: serviceName, Message: "rate limited: " + apiMessage(body)}
	default:
		return nil, &types.UpstreamUnavailableError{
			Service: serviceName,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, apiMessage(body)),
		}
	}
}

func (c *Client) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.UpstreamTimeoutError{Service: serviceName, Timeout: c.timeout, Cause: err}
	}
	return &types.UpstreamUnavailableError{Service: serviceName, Message: "request failed", Cause: err}
}

func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// apiMessage extracts the "message" field of a GitHub error payload.
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if len(body) > 120 {
		body = body[:120]
	}
	return strings.TrimSpace(string(body))
}
