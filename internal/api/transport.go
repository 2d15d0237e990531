// Package api provides low-level HTTP transport for VirusTotal API calls.
package api

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tphakala/go-vt/internal/auth"
)

// All API endpoints live under this prefix; callers pass paths without it.
const EndpointPrefix = "/api/v3"

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxBodySize = 32 * 1024 * 1024 // 32MB, feed packages can be large
)

// Transport handles HTTP communication with the VirusTotal API.
type Transport struct {
	BaseURL     *url.URL
	HTTPClient  *http.Client
	Credentials *auth.Credentials
	UserAgent   string
}

// NewTransport creates a Transport with the given configuration.
func NewTransport(baseURL string, creds *auth.Credentials, httpClient *http.Client) (*Transport, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials must be provided")
	}

	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultHTTPTimeout,
		}
	}

	return &Transport{
		BaseURL:     u,
		HTTPClient:  httpClient,
		Credentials: creds,
		UserAgent:   "go-vt/1.0",
	}, nil
}

// Request represents an API GET request.
type Request struct {
	Path    string
	Params  url.Values
	Headers http.Header
}

// Response represents an API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Get executes a GET request and returns the raw response.
func (t *Transport) Get(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := t.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	// Limit response body size to prevent memory exhaustion
	limitedReader := io.LimitReader(httpResp.Body, defaultMaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if int64(len(body)) > defaultMaxBodySize {
		return nil, fmt.Errorf("response too large: exceeds %d bytes", defaultMaxBodySize)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

func (t *Transport) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	u := t.fullURL(req.Path)
	if len(req.Params) > 0 {
		q := u.Query()
		for key, values := range req.Params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Set default headers
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Encoding", "gzip")
	httpReq.Header.Set("User-Agent", t.UserAgent)

	// Apply authentication
	t.Credentials.Apply(httpReq)

	// Apply custom headers
	maps.Copy(httpReq.Header, req.Headers)

	return httpReq, nil
}

// fullURL resolves a path against the base URL. Absolute URLs, such as
// pagination links returned by the API, are used as-is; other paths are
// prefixed with the API endpoint prefix unless they already carry it.
func (t *Transport) fullURL(path string) *url.URL {
	if strings.HasPrefix(path, "http") {
		if u, err := url.Parse(path); err == nil && u.Scheme != "" {
			return u
		}
	}
	if strings.HasPrefix(path, EndpointPrefix) {
		return t.BaseURL.JoinPath(path)
	}
	return t.BaseURL.JoinPath(EndpointPrefix, path)
}
