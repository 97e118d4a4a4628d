// Package memos implements core.Source and core.ResourceFetcher over the Memos HTTP API.
package memos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/memosync/pkg/core"
)

const (
	// APIPath is the path segment every configured base URL must contain.
	APIPath = "/api/v1"

	// DefaultPageSize is the server page size requested when none is configured.
	DefaultPageSize = 100
)

// Config holds the configuration for the memos client.
type Config struct {
	BaseURL    string // e.g. https://memos.example.com/api/v1
	Token      string
	PageSize   int
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to a Memos server. It holds no state between calls.
type Client struct {
	baseURL  string
	fileURL  string
	token    string
	pageSize int
	http     *http.Client
	logger   *slog.Logger
}

// New validates the configuration and creates a Client.
// It fails with core.ErrConfiguration before any request is made.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, core.ConfigError("memos API URL is not configured")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, core.ConfigError("memos API URL %q is not a valid absolute URL", cfg.BaseURL)
	}
	if !strings.Contains(u.Path, APIPath) {
		return nil, core.ConfigError("memos API URL %q must contain %s", cfg.BaseURL, APIPath)
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, core.ConfigError("memos access token is not configured")
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:  base,
		fileURL:  strings.Replace(base, APIPath, "", 1),
		token:    cfg.Token,
		pageSize: pageSize,
		http:     httpClient,
		logger:   logger,
	}, nil
}

// listResponse is the wire shape of GET /memos.
// Memos is a pointer so a missing field can be told apart from an empty page.
type listResponse struct {
	Memos         *[]wireMemo `json:"memos"`
	NextPageToken string      `json:"nextPageToken"`
}

// FetchAll pages through the memo list until the cursor runs out or limit memos
// have been collected, then sorts the result newest first by CreateTime.
// Server ordering is not trusted.
func (c *Client) FetchAll(ctx context.Context, limit int) ([]core.Memo, error) {
	if limit <= 0 {
		return nil, core.ConfigError("sync limit must be positive, got %d", limit)
	}

	var (
		all       []core.Memo
		pageToken string
	)

	for len(all) < limit {
		remaining := limit - len(all)
		page, err := c.fetchPage(ctx, min(c.pageSize, remaining), pageToken)
		if err != nil {
			return nil, err
		}

		memos := *page.Memos
		if len(memos) == 0 {
			break
		}
		if len(memos) > remaining {
			memos = memos[:remaining]
		}
		for _, wm := range memos {
			all = append(all, wm.toCore())
		}

		c.logger.Debug("fetched memos page", "count", len(memos), "total", len(all), "limit", limit)

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreateTime.After(all[j].CreateTime)
	})
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, size int, pageToken string) (*listResponse, error) {
	params := url.Values{}
	params.Set("rowStatus", "NORMAL")
	params.Set("limit", strconv.Itoa(size))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	endpoint := c.baseURL + "/memos?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting memos", "url", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", core.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.HTTPError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	var page listResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &core.SchemaError{Reason: "response is not valid JSON", Body: string(body), Err: err}
	}
	if page.Memos == nil {
		return nil, &core.SchemaError{Reason: "response does not contain a memos array", Body: string(body)}
	}
	return &page, nil
}

// transportError maps low-level dial failures to ErrUnreachable naming the base URL.
func (c *Client) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: cannot connect to %s, check that the URL is correct and reachable: %w",
			core.ErrUnreachable, c.baseURL, err)
	}
	return fmt.Errorf("%w: %w", core.ErrTransport, err)
}

// ResourceURL returns the download URL of a resource.
func (c *Client) ResourceURL(r core.Resource) string {
	return fmt.Sprintf("%s/file/resources/%s/%s", c.fileURL, r.ID(), url.PathEscape(r.Filename))
}

// Download fetches the binary payload of a resource.
// Failures wrap core.ErrAttachment; callers are expected to log and continue.
func (c *Client) Download(ctx context.Context, r core.Resource) ([]byte, error) {
	resourceURL := c.ResourceURL(r)
	c.logger.Debug("downloading resource", "url", resourceURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrAttachment, r.Filename, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrAttachment, r.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: HTTP %d", core.ErrAttachment, r.Filename, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrAttachment, r.Filename, err)
	}
	return data, nil
}

var (
	_ core.Source          = (*Client)(nil)
	_ core.ResourceFetcher = (*Client)(nil)
)
