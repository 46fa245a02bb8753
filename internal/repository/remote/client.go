// Package remote talks to an optional hosted backend (a PostgREST-style row
// API plus a websocket change feed). When the two connection parameters are
// configured, comments, likes and view counts are stored there instead of in
// process memory.
//
// Row API:
//
//	GET    {url}/rest/v1/{table}?col=eq.value      list / lookup
//	POST   {url}/rest/v1/{table}                   insert, returns the stored row
//	PATCH  {url}/rest/v1/{table}?id=eq.X           update, returns the stored row
//	DELETE {url}/rest/v1/{table}?id=eq.X           delete, returns the removed row
//	POST   {url}/rest/v1/rpc/{function}            stored procedure call
//
// Every request carries the key twice: as the apikey header and as a bearer
// token. HTTP 404 maps to apperror.ErrNotFound, 409 to apperror.ErrConflict,
// anything else that is not 2xx to apperror.ErrTransport.
package remote

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

	"github.com/gorilla/websocket"
	"github.com/sakif/portfolio/internal/apperror"
)

const (
	headerAPIKey         = "apikey"
	headerAuthorization  = "Authorization"
	headerContentType    = "Content-Type"
	headerPrefer         = "Prefer"
	contentTypeJSON      = "application/json"
	returnRepresentation = "return=representation"

	defaultTimeout = 10 * time.Second
)

// Config holds the connection parameters.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration

	// HTTPClient and Dialer are optional; tests point them at httptest servers.
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// Client is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

// New validates cfg and returns a Client. It does not contact the backend.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, apperror.NotConfigured("remote backend url and api key are required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid backend url %q", cfg.URL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: timeout}
	}

	return &Client{
		baseURL: u,
		apiKey:  cfg.APIKey,
		http:    hc,
		dialer:  dialer,
		logger:  logger,
	}, nil
}

// Comments returns the comment store backed by this client.
func (c *Client) Comments() *CommentStore { return &CommentStore{c: c} }

// Likes returns the like store backed by this client.
func (c *Client) Likes() *LikeStore { return &LikeStore{c: c} }

// Views returns the view counter backed by this client.
func (c *Client) Views() *ViewCounter { return &ViewCounter{c: c} }

func (c *Client) restURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + "/rest/v1/" + path
	u.RawQuery = query.Encode()
	return u.String()
}

// eq builds a filter set: eq("entity_id", "blog-1") → entity_id=eq.blog-1.
// Empty values are left out, so eq only suits listings where a missing
// filter means "any". Anything that targets specific rows uses exact.
func eq(pairs ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		q.Set(pairs[i], "eq."+pairs[i+1])
	}
	return q
}

// exact is eq for row-targeting requests. It reports false when any value is
// empty, since dropping that filter would widen the request to other rows.
func exact(pairs ...string) (url.Values, bool) {
	for i := 1; i < len(pairs); i += 2 {
		if pairs[i] == "" {
			return nil, false
		}
	}
	return eq(pairs...), true
}

// statusError is what a non-2xx response turns into before mapping.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.status, e.body)
}

// do performs one row API call. out, when non-nil, receives the decoded JSON
// response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.restURL(path, query), bodyReader)
	if err != nil {
		return fmt.Errorf("remote: building request: %w", err)
	}
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set(headerAuthorization, "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	if method != http.MethodGet {
		req.Header.Set(headerPrefer, returnRepresentation)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("remote: reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(respBody))}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("remote: decoding response: %w", err)
		}
	}
	return nil
}

// mapError folds a low-level failure into the error taxonomy. resource and
// key describe what the call was about.
func mapError(op, resource, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *statusError
	if errors.As(err, &se) {
		switch se.status {
		case http.StatusNotFound:
			return apperror.NotFound(resource, key)
		case http.StatusConflict:
			return apperror.Conflict(resource, key)
		}
	}
	return apperror.Transport(op, err)
}
