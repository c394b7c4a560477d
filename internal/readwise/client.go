package readwise

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://readwise.io/api/v3"

// Document is one raw record as returned by the Reader API. Field names and
// presence vary between API revisions, so it is kept untyped here and
// normalized by the article package.
type Document map[string]any

// Page is one page of a list response.
type Page struct {
	Count          int        `json:"count"`
	NextPageCursor string     `json:"nextPageCursor"`
	Results        []Document `json:"results"`
}

// ListParams filters a list request. Zero values are omitted.
type ListParams struct {
	ID              string
	Location        string
	UpdatedAfter    time.Time
	PageCursor      string
	WithHTMLContent bool
}

func (p ListParams) query() url.Values {
	q := make(url.Values)
	if p.ID != "" {
		q.Set("id", p.ID)
	}
	if p.Location != "" {
		q.Set("location", p.Location)
	}
	if !p.UpdatedAfter.IsZero() {
		q.Set("updatedAfter", p.UpdatedAfter.UTC().Format(time.RFC3339))
	}
	if p.PageCursor != "" {
		q.Set("pageCursor", p.PageCursor)
	}
	if p.WithHTMLContent {
		q.Set("withHtmlContent", "true")
	}
	return q
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		log:     logger,
	}
}

// Authenticate checks the token against the v2 auth endpoint, which lives
// next to the v3 document API.
func (c *Client) Authenticate(ctx context.Context) error {
	authURL := strings.TrimSuffix(c.baseURL, "/v3") + "/v2/auth/"
	req, err := c.newRequestURL(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req, "authenticate")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *Client) ListDocuments(ctx context.Context, params ListParams) (Page, error) {
	path := "/list/"
	if q := params.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Page{}, err
	}

	resp, err := c.do(req, "list documents")
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	var page Page
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&page); err != nil {
		return Page{}, fmt.Errorf("decode list response: %w", err)
	}
	return page, nil
}

// ListAll follows nextPageCursor until the listing is exhausted.
func (c *Client) ListAll(ctx context.Context, params ListParams) ([]Document, error) {
	var out []Document
	seen := make(map[string]struct{})
	for {
		page, err := c.ListDocuments(ctx, params)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		next := page.NextPageCursor
		if next == "" {
			return out, nil
		}
		if _, dup := seen[next]; dup {
			return nil, fmt.Errorf("list documents: cursor %q repeated", next)
		}
		seen[next] = struct{}{}
		params.PageCursor = next
	}
}

// GetDocument fetches one document with its HTML body. A document the
// service does not return is reported as ErrNotFound.
func (c *Client) GetDocument(ctx context.Context, id string) (Document, error) {
	page, err := c.ListDocuments(ctx, ListParams{ID: id, WithHTMLContent: true})
	if err != nil {
		return nil, err
	}
	for _, doc := range page.Results {
		if docID, _ := doc["id"].(string); docID == id || len(page.Results) == 1 {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("get document %s: %w", id, ErrNotFound)
}

// UpdateDocument patches the given fields, e.g. {"location": "archive"}.
func (c *Client) UpdateDocument(ctx context.Context, id string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode update payload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPatch, "/update/"+url.PathEscape(id)+"/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.do(req, "update document")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/delete/"+url.PathEscape(id)+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req, "delete document")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	return c.newRequestURL(ctx, method, c.baseURL+path, body)
}

func (c *Client) newRequestURL(ctx context.Context, method, fullURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and converts non-2xx responses into typed errors. On success
// the caller owns resp.Body.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "op", op, "method", req.Method, "path", req.URL.Path, "err", err)
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	c.log.Debug("request done",
		"op", op,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, errorFromResponse(op, resp)
}
