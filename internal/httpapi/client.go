package httpapi

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

	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/record"
	"github.com/roach88/tally/internal/store"
)

// Client talks to a Server. It satisfies the collection Fetcher, Saver
// and ReferenceLookup interfaces; cancelling ctx aborts the request.
type Client struct {
	base *url.URL
	http *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch requests one page.
func (c *Client) Fetch(ctx context.Context, fc filter.Context, offset, limit int) (record.Page, error) {
	u := c.base.JoinPath("api", "v1", "records", fc.TableType)
	u.RawQuery = EncodeQuery(fc, offset, limit).Encode()

	var page record.Page
	if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
		return record.Page{}, fmt.Errorf("fetch %s offset %d: %w", fc.TableType, offset, err)
	}
	if page.Items == nil {
		page.Items = []record.Record{}
	}
	return page, nil
}

// Save sends the records to be upserted together.
func (c *Client) Save(ctx context.Context, records []record.Record) error {
	body, err := json.Marshal(saveRequest{Records: records})
	if err != nil {
		return fmt.Errorf("encode save request: %w", err)
	}
	var resp saveResponse
	if err := c.do(ctx, http.MethodPut, c.base.JoinPath("api", "v1", "records"), body, &resp); err != nil {
		return fmt.Errorf("save %d records: %w", len(records), err)
	}
	return nil
}

// Lookup resolves a category. Missing categories wrap store.ErrNotFound.
func (c *Client) Lookup(ctx context.Context, id string) (record.Reference, error) {
	var ref record.Reference
	err := c.do(ctx, http.MethodGet, c.base.JoinPath("api", "v1", "categories", id), nil, &ref)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == ErrorCodeNotFound {
		return record.Reference{}, fmt.Errorf("category %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return record.Reference{}, fmt.Errorf("lookup category %s: %w", id, err)
	}
	return ref, nil
}

// Health reports whether the server answers /health.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]any
	return c.do(ctx, http.MethodGet, c.base.JoinPath("health"), nil, &out)
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env Response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Code: ErrorCodeInternal, Message: http.StatusText(resp.StatusCode)}
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
