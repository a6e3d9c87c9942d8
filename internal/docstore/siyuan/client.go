// Package siyuan implements docstore.Store over the SiYuan kernel HTTP API.
package siyuan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starford/bujo/internal/apperr"
	"github.com/starford/bujo/internal/docstore"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 32 << 20
)

// Client talks to a SiYuan kernel.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// New creates a client for the kernel at baseURL. An empty token sends no
// Authorization header.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ docstore.Store = (*Client)(nil)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type kramdownResult struct {
	ID       string `json:"id"`
	Kramdown string `json:"kramdown"`
}

// Query lists document blocks via the SQL endpoint.
func (c *Client) Query(ctx context.Context, q docstore.Query) ([]docstore.DocRow, error) {
	where := []string{"type = 'd'"}
	if q.PathContains != "" {
		where = append(where, fmt.Sprintf(`hpath LIKE '%s' ESCAPE '\'`, likePattern(q.PathContains)))
	}
	if q.ContentContains != "" {
		where = append(where, fmt.Sprintf(`id IN (SELECT root_id FROM blocks WHERE markdown LIKE '%s' ESCAPE '\')`, likePattern(q.ContentContains)))
	}
	stmt := "SELECT id, hpath, box FROM blocks WHERE " + strings.Join(where, " AND ") + " ORDER BY updated DESC"
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	var rows []docstore.DocRow
	if err := c.sql(ctx, stmt, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AnnotatedText fetches a document's kramdown.
func (c *Client) AnnotatedText(ctx context.Context, docID string) (string, error) {
	return c.kramdown(ctx, docID)
}

// BlockText fetches a single block's kramdown.
func (c *Client) BlockText(ctx context.Context, blockID string) (string, error) {
	return c.kramdown(ctx, blockID)
}

// UpdateBlock replaces a block's content with markdown.
func (c *Client) UpdateBlock(ctx context.Context, blockID, markdown string) error {
	payload := map[string]string{
		"dataType": "markdown",
		"data":     markdown,
		"id":       blockID,
	}
	return c.post(ctx, "/api/block/updateBlock", payload, nil)
}

// LatestUpdate returns the newest block update stamp in the workspace.
// It changes whenever any block is edited.
func (c *Client) LatestUpdate(ctx context.Context) (string, error) {
	var rows []struct {
		Updated string `json:"updated"`
	}
	if err := c.sql(ctx, "SELECT updated FROM blocks ORDER BY updated DESC LIMIT 1", &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].Updated, nil
}

func (c *Client) kramdown(ctx context.Context, id string) (string, error) {
	var res kramdownResult
	if err := c.post(ctx, "/api/block/getBlockKramdown", map[string]string{"id": id}, &res); err != nil {
		return "", err
	}
	if res.Kramdown == "" {
		return "", fmt.Errorf("siyuan: block %s: %w", id, apperr.ErrNotFound)
	}
	return res.Kramdown, nil
}

func (c *Client) sql(ctx context.Context, stmt string, out any) error {
	return c.post(ctx, "/api/query/sql", map[string]string{"stmt": stmt}, out)
}

// post sends a JSON request and decodes the data field of the response
// envelope into out. A non-zero envelope code is an error.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("siyuan: marshal %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("siyuan: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("siyuan: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("siyuan: read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("siyuan: %s: status %d: %s", path, resp.StatusCode, truncate(string(raw), 200))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("siyuan: decode %s: %w", path, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("siyuan: %s: code %d: %s", path, env.Code, env.Msg)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("siyuan: decode %s data: %w", path, err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`'`, `''`, `\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern quotes s for a single-quoted SQL substring match.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
