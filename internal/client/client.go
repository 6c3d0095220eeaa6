// Package client talks to the companion service: graph queries for the
// catalog and the REST endpoints for user progress.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/starford/hours/internal/models"
)

// DefaultBaseURL is where the companion service listens by default.
const DefaultBaseURL = "http://localhost:8000"

// Options configures a Client. Zero values take defaults.
type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
	Logger    *slog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	base   string
	token  string
	http   *http.Client
	cache  *expirable.LRU[string, json.RawMessage]
	logger *slog.Logger
}

// New creates a client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		token:  opts.Token,
		http:   &http.Client{Timeout: opts.Timeout},
		cache:  expirable.NewLRU[string, json.RawMessage](opts.CacheSize, nil, opts.CacheTTL),
		logger: opts.Logger,
	}
}

// QueryError carries the errors a graph response reported.
type QueryError struct {
	Operation string
	Messages  []string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}

// Document is a named graph query.
type Document struct {
	Name  string
	Query string
}

// Query runs doc and decodes its data into dst. Identical queries are
// answered from the cache until it expires or is invalidated.
func (c *Client) Query(ctx context.Context, doc Document, vars map[string]any, dst any) error {
	key, err := cacheKey(doc, vars)
	if err != nil {
		return err
	}
	if data, ok := c.cache.Get(key); ok {
		return json.Unmarshal(data, dst)
	}

	body := map[string]any{"query": doc.Query, "operationName": doc.Name}
	if len(vars) > 0 {
		body["variables"] = vars
	}
	var resp struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.do(ctx, http.MethodPost, "/graphql", body, &resp); err != nil {
		return fmt.Errorf("query %s: %w", doc.Name, err)
	}
	if len(resp.Errors) > 0 {
		qe := &QueryError{Operation: doc.Name}
		for _, e := range resp.Errors {
			qe.Messages = append(qe.Messages, e.Message)
		}
		return qe
	}

	c.cache.Add(key, resp.Data)
	return json.Unmarshal(resp.Data, dst)
}

// InvalidateCache drops every cached query result.
func (c *Client) InvalidateCache() {
	c.cache.Purge()
}

// UserData fetches the progress document.
func (c *Client) UserData(ctx context.Context) (models.UserData, error) {
	var ud models.UserData
	if err := c.do(ctx, http.MethodGet, "/user_data", nil, &ud); err != nil {
		return models.UserData{}, fmt.Errorf("user data: %w", err)
	}
	ud.Normalize()
	return ud, nil
}

// SetSkillLevel patches a skill's level and returns the skill the service
// echoes back.
func (c *Client) SetSkillLevel(ctx context.Context, id string, level int) (models.Skill, error) {
	var skill models.Skill
	path := "/skill/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, map[string]int{"level": level}, &skill); err != nil {
		return models.Skill{}, fmt.Errorf("set skill %s: %w", id, err)
	}
	return skill, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb)
		c.logger.Debug("client: request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode))
		return &HTTPError{StatusCode: resp.StatusCode, Message: eb.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func cacheKey(doc Document, vars map[string]any) (string, error) {
	if len(vars) == 0 {
		return doc.Name + "\x00" + doc.Query, nil
	}
	data, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("marshal variables: %w", err)
	}
	return doc.Name + "\x00" + doc.Query + "\x00" + string(data), nil
}
