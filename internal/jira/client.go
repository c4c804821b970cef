package jira

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	searchPageSize = 50

	// Jira throttles aggressive clients; stay comfortably below that.
	requestsPerSecond = 5
)

// Client talks to a Jira-compatible tracker over its REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	username string
	password string
	token    string
}

// Options configures transport and authentication for a Client.
type Options struct {
	// Username and Password enable HTTP basic auth when Username is set.
	Username string
	Password string
	// Token enables bearer auth (the default "integrated" mode reads it
	// from the environment at the CLI layer).
	Token string
	// CACertPath points at a PEM bundle to trust instead of the system pool.
	CACertPath string
	Timeout    time.Duration
}

// NewClient creates a tracker client for the given server URL.
func NewClient(server string, opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if opts.CACertPath != "" {
		pem, err := os.ReadFile(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", opts.CACertPath)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(server, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		username:   opts.Username,
		password:   opts.Password,
		token:      opts.Token,
	}, nil
}

// SearchIssues runs a JQL query and returns matching issues in the order
// the tracker yields them, paging until limit issues are collected or the
// result set ends.
func (c *Client) SearchIssues(ctx context.Context, jql string, limit int) ([]Issue, error) {
	var collected []Issue
	startAt := 0

	for {
		pageSize := searchPageSize
		if remaining := limit - len(collected); remaining < pageSize {
			pageSize = remaining
		}
		if pageSize <= 0 {
			break
		}

		query := url.Values{}
		query.Set("jql", jql)
		query.Set("startAt", strconv.Itoa(startAt))
		query.Set("maxResults", strconv.Itoa(pageSize))

		var page searchResponse
		if err := c.get(ctx, "/rest/api/2/search", query, &page); err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		collected = append(collected, page.Issues...)
		startAt += len(page.Issues)

		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}

	return collected, nil
}

// Issue fetches a single issue by key, with comments and links included.
// Returns ErrNotFound when the tracker has no such issue.
func (c *Client) Issue(ctx context.Context, key string) (Issue, error) {
	var issue Issue
	err := c.get(ctx, "/rest/api/2/issue/"+url.PathEscape(key), nil, &issue)
	if err != nil {
		return Issue{}, fmt.Errorf("fetch issue %s: %w", key, err)
	}
	return issue, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setAuth(req *http.Request) {
	switch {
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Messages = body.ErrorMessages
		for field, msg := range body.Errors {
			apiErr.Messages = append(apiErr.Messages, field+": "+msg)
		}
	}
	return apiErr
}
