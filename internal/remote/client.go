// Package remote talks to the saved-item and news service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pders01/flip/internal/api"
	"github.com/pders01/flip/internal/debuglog"
	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/saved"
)

const maxErrorBody = 64 << 10

// Client implements saved.Store, saved.BulkChecker and feed.Source against
// the service's HTTP API.
type Client struct {
	base       string
	httpClient *http.Client
	userAgent  string
}

var (
	_ saved.Store       = (*Client)(nil)
	_ saved.BulkChecker = (*Client)(nil)
	_ feed.Source       = (*Client)(nil)
)

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:       strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "flip/1.0",
	}
}

func (c *Client) userPath(user string, parts ...string) string {
	p := "/api/users/" + url.PathEscape(user) + "/saved-articles"
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *Client) Check(ctx context.Context, user, articleURL string) (saved.CheckResult, error) {
	var resp api.CheckResponse
	if err := c.do(ctx, http.MethodPost, c.userPath(user, "check"), api.CheckRequest{URL: articleURL}, &resp); err != nil {
		return saved.CheckResult{}, err
	}
	return resp.Result(), nil
}

func (c *Client) BulkCheck(ctx context.Context, user string, urls []string) (map[string]saved.CheckResult, error) {
	var resp api.BulkCheckResponse
	if err := c.do(ctx, http.MethodPost, c.userPath(user, "bulk-check"), api.BulkCheckRequest{URLs: urls}, &resp); err != nil {
		return nil, err
	}
	out := make(map[string]saved.CheckResult, len(urls))
	for _, u := range urls {
		out[u] = resp.Results[u].Result()
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, user string, d saved.Draft) (saved.Record, error) {
	var resp api.SaveResponse
	if err := c.do(ctx, http.MethodPost, c.userPath(user), api.ArticleFromDraft(d), &resp); err != nil {
		return saved.Record{}, err
	}
	return resp.SavedArticle.Record(), nil
}

func (c *Client) Delete(ctx context.Context, user string, id int64) error {
	return c.do(ctx, http.MethodDelete, c.userPath(user, strconv.FormatInt(id, 10)), nil, nil)
}

func (c *Client) List(ctx context.Context, user string) ([]saved.Record, error) {
	var resp api.SavedList
	if err := c.do(ctx, http.MethodGet, c.userPath(user), nil, &resp); err != nil {
		return nil, err
	}
	records := make([]saved.Record, len(resp.SavedArticles))
	for i, sa := range resp.SavedArticles {
		records[i] = sa.Record()
	}
	return records, nil
}

// Fetch loads a category from the news endpoints.
func (c *Client) Fetch(ctx context.Context, category feed.Category) (feed.Sequence, error) {
	info, ok := feed.LookupCategory(category)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var resp api.NewsResponse
	if err := c.do(ctx, http.MethodGet, "/api/news/"+info.APIPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != api.StatusSuccess {
		return nil, newError(http.StatusBadGateway, firstNonEmpty(resp.Message, resp.Error, "news service returned "+resp.Status))
	}

	seq := make(feed.Sequence, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if strings.TrimSpace(a.URL) == "" {
			continue
		}
		seq = append(seq, a.Item())
	}
	return seq, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		debuglog.WithFields(map[string]interface{}{
			"method": method,
			"path":   path,
		}).Warnf("request failed: %v", err)
		return &transportError{op: method + " " + path, err: err}
	}
	defer resp.Body.Close()

	debuglog.WithFields(map[string]interface{}{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).String(),
	}).Debugf("request done")

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload api.ErrorResponse
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return newError(resp.StatusCode, payload.Error)
	}
	return newError(resp.StatusCode, strings.TrimSpace(string(data)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
