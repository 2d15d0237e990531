// Package vt provides a Go client for the VirusTotal v3 REST API.
//
// Basic usage:
//
//	client, err := vt.NewClient(
//	    vt.WithAPIKey(apiKey),
//	    vt.WithAgent("my-app"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Iterate a collection endpoint
//	it := client.Iterator("/comments")
//	for obj, err := range it.All(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(obj.ID)
//	}
package vt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tphakala/go-vt/internal/api"
	"github.com/tphakala/go-vt/internal/auth"
)

// Version is the client library version, reported in the User-Agent.
const Version = "1.0.0"

// Default configuration values.
const (
	defaultHost    = "https://www.virustotal.com"
	defaultAgent   = "unknown"
	defaultTimeout = 30 * time.Second
)

// The server only serves gzipped content to user agents containing the
// string "gzip" somewhere.
const userAgentFmt = "%s; go-vt %s; gzip"

// Client is the VirusTotal API client.
type Client struct {
	transport *api.Transport
}

// NewClient creates a new client with the given options. An API key is
// required.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		host:    defaultHost,
		agent:   defaultAgent,
		timeout: defaultTimeout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	creds := &auth.Credentials{
		APIKey: cfg.apiKey,
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.timeout,
		}
	}

	transport, err := api.NewTransport(cfg.host, creds, httpClient)
	if err != nil {
		return nil, err
	}
	transport.UserAgent = fmt.Sprintf(userAgentFmt, cfg.agent, Version)

	return &Client{
		transport: transport,
	}, nil
}

// Host returns the configured API host.
func (c *Client) Host() string {
	return c.transport.BaseURL.String()
}

// getResponse performs a GET request and parses the success envelope.
// Non-200 responses come back as classified API errors.
func (c *Client) getResponse(ctx context.Context, path string, params url.Values, headers http.Header) (*apiResponse, error) {
	resp, err := c.transport.Get(ctx, &api.Request{
		Path:    path,
		Params:  params,
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, resp.Body, resp.Headers)
	}

	var envelope apiResponse
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return &envelope, nil
}

// GetJSON sends a GET request to the given path and returns the decoded
// response as a generic map. Most endpoints are JSON-encoded; use GetData
// or GetObject for the common envelope formats.
func (c *Client) GetJSON(ctx context.Context, path string, opts ...RequestOption) (map[string]any, error) {
	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	resp, err := c.transport.Get(ctx, &api.Request{
		Path:    path,
		Params:  reqCfg.params,
		Headers: reqCfg.headers,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, resp.Body, resp.Headers)
	}

	var result map[string]any
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return result, nil
}

// GetData sends a GET request to the given path and returns the
// response's data field. A response without a data field is a
// DecodeError.
func (c *Client) GetData(ctx context.Context, path string, opts ...RequestOption) (json.RawMessage, error) {
	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	envelope, err := c.getResponse(ctx, path, reqCfg.params, reqCfg.headers)
	if err != nil {
		return nil, err
	}

	if !envelope.hasData() {
		return nil, &DecodeError{Path: path, Err: errors.New("response has no data field")}
	}
	return envelope.Data, nil
}

// GetObject sends a GET request to the given path and returns the
// response data decoded as a single Object. The endpoint must return an
// object, not a collection; use Iterator for collection endpoints.
func (c *Client) GetObject(ctx context.Context, path string, opts ...RequestOption) (*Object, error) {
	data, err := c.GetData(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return decodeObject(path, data)
}

// Iterator returns an iterator for the collection endpoint at the given
// path, for example /comments or /intelligence/search.
func (c *Client) Iterator(path string, opts ...IteratorOption) *Iterator {
	cfg := newIteratorConfig()
	cfg.apply(opts...)
	return newIterator(c, path, cfg)
}

// Search returns an iterator over the objects matching an intelligence
// search query.
func (c *Client) Search(query string, opts ...IteratorOption) *Iterator {
	opts = append([]IteratorOption{WithIteratorParam("query", query)}, opts...)
	return c.Iterator("/intelligence/search", opts...)
}

// Feed returns a continuous iterator over the given feed. See the Feed
// documentation for details.
func (c *Client) Feed(feedType FeedType, opts ...FeedOption) (*Feed, error) {
	cfg := &feedConfig{
		maxRetries: defaultFeedRetries,
		retryDelay: defaultFeedRetryDelay,
	}
	cfg.apply(opts...)
	return newFeed(c, feedType, cfg)
}
