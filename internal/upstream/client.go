// Package upstream is a small client for the storefront backend REST API.
// It only covers the listing endpoints the export presets need; every other
// backend call goes through the proxy untouched.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from the backend.
// It matches domain.ErrUnauthorized for 401 and domain.ErrUpstream otherwise.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Is lets errors.Is match the domain sentinels.
func (e *APIError) Is(target error) bool {
	if e.Status == http.StatusUnauthorized {
		return target == domain.ErrUnauthorized
	}
	return target == domain.ErrUpstream
}

// Page is one page of a backend listing.
type Page struct {
	Data       []map[string]any
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// HasNext reports whether another page follows this one.
// Without pagination metadata a short page is taken as the last one.
func (p Page) HasNext() bool {
	if p.TotalPages > 0 {
		return p.Page < p.TotalPages
	}
	if p.Total > 0 && p.Limit > 0 {
		return p.Page*p.Limit < p.Total
	}
	return p.Limit > 0 && len(p.Data) >= p.Limit
}

// Client calls the backend API on behalf of the shopper or admin whose bearer
// token is passed to each call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient builds a client for baseURL. A nil httpClient uses
// http.DefaultClient; a nil logger uses slog.Default().
func NewClient(baseURL string, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the configured backend root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// List fetches one page of GET /<resource>.
func (c *Client) List(ctx context.Context, token, resource string, params domain.PaginationParams) (Page, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.Trim(resource, "/"))
	if err != nil {
		return Page{}, fmt.Errorf("upstream.Client.List: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("limit", strconv.Itoa(params.Limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("upstream.Client.List: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "backend request failed", "resource", resource, "error", err)
		return Page{}, fmt.Errorf("upstream.Client.List: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := readAPIError(resp)
		c.log.WarnContext(ctx, "backend rejected request", "resource", resource, "status", resp.StatusCode)
		return Page{}, fmt.Errorf("upstream.Client.List: %w", apiErr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("upstream.Client.List: read body: %w: %w", domain.ErrUpstream, err)
	}
	page, err := parsePage(body)
	if err != nil {
		return Page{}, fmt.Errorf("upstream.Client.List: %w: %w", domain.ErrUpstream, err)
	}
	if page.Page == 0 {
		page.Page = params.Page
	}
	if page.Limit == 0 {
		page.Limit = params.Limit
	}
	return page, nil
}

// ListAll walks every page of resource, up to maxPages pages.
func (c *Client) ListAll(ctx context.Context, token, resource string, limit, maxPages int) ([]map[string]any, error) {
	params := domain.NewPaginationParams(nil, &limit)
	var out []map[string]any
	for i := 0; i < maxPages; i++ {
		page, err := c.List(ctx, token, resource, params)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Data...)
		if !page.HasNext() || len(page.Data) == 0 {
			return out, nil
		}
		params = params.Next()
	}
	c.log.WarnContext(ctx, "listing truncated", "resource", resource, "pages", maxPages)
	return out, nil
}

// listEnvelope covers the envelopes the backend uses for listings.
// Pagination metadata may sit under "pagination", under "meta", or at the
// top level next to "data".
type listEnvelope struct {
	Data       []map[string]any `json:"data"`
	Pagination *pageMeta        `json:"pagination"`
	Meta       *pageMeta        `json:"meta"`
	pageMeta
}

type pageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func parsePage(body []byte) (Page, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var data []map[string]any
		if err := json.Unmarshal(body, &data); err != nil {
			return Page{}, fmt.Errorf("decode listing: %w", err)
		}
		return Page{Data: data, Page: 1, TotalPages: 1, Total: len(data)}, nil
	}

	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Page{}, fmt.Errorf("decode listing: %w", err)
	}
	meta := env.pageMeta
	switch {
	case env.Pagination != nil:
		meta = *env.Pagination
	case env.Meta != nil:
		meta = *env.Meta
	}
	data := env.Data
	if data == nil {
		data = []map[string]any{}
	}
	return Page{
		Data:       data,
		Total:      meta.Total,
		Page:       meta.Page,
		Limit:      meta.Limit,
		TotalPages: meta.TotalPages,
	}, nil
}

// readAPIError builds an APIError from a failed response. The backend sends
// {"error":{"message":"..."}}, {"error":"..."} or {"message":"..."}.
func readAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	apiErr.Message = env.Message

	var nested struct {
		Message string `json:"message"`
	}
	var flat string
	switch {
	case len(env.Error) == 0:
	case json.Unmarshal(env.Error, &nested) == nil && nested.Message != "":
		apiErr.Message = nested.Message
	case json.Unmarshal(env.Error, &flat) == nil && flat != "":
		apiErr.Message = flat
	}
	return apiErr
}

// AsAPIError unwraps err into an *APIError when it carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
