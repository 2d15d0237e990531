package vt

import (
	"net/http"
	"net/url"
	"time"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	host       string
	apiKey     string
	agent      string
	httpClient *http.Client
	timeout    time.Duration
}

// WithAPIKey sets the API key used to authenticate requests.
func WithAPIKey(key string) ClientOption {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithHost sets the API host. Defaults to the public API host.
func WithHost(host string) ClientOption {
	return func(c *clientConfig) {
		c.host = host
	}
}

// WithAgent sets a string identifying the calling application. The agent
// is sent as part of the User-Agent header and helps debugging issues
// with your requests server-side.
func WithAgent(agent string) ClientOption {
	return func(c *clientConfig) {
		c.agent = agent
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the default request timeout.
// Note: This option is ignored when WithHTTPClient is used;
// set the timeout directly on the provided client instead.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// RequestOption configures individual API requests.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers http.Header
	params  url.Values
}

func newRequestConfig() *requestConfig {
	return &requestConfig{
		headers: make(http.Header),
		params:  make(url.Values),
	}
}

func (r *requestConfig) apply(opts ...RequestOption) {
	for _, opt := range opts {
		opt(r)
	}
}

// WithHeader adds a custom header to a request.
func WithHeader(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.headers.Set(key, value)
	}
}

// WithParam adds a query parameter to a request.
func WithParam(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.params.Set(key, value)
	}
}

// IteratorOption configures a collection Iterator.
type IteratorOption func(*iteratorConfig)

type iteratorConfig struct {
	cursor    string
	limit     int
	batchSize int
	params    url.Values
}

func newIteratorConfig() *iteratorConfig {
	return &iteratorConfig{
		params: make(url.Values),
	}
}

func (c *iteratorConfig) apply(opts ...IteratorOption) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithCursor resumes iteration from a cursor previously obtained with
// Iterator.Cursor. This cursor is not the same one returned by the API.
func WithCursor(cursor string) IteratorOption {
	return func(c *iteratorConfig) {
		c.cursor = cursor
	}
}

// WithLimit caps the total number of objects the iterator yields. Without
// a limit the iterator continues until the last object in the collection.
func WithLimit(limit int) IteratorOption {
	return func(c *iteratorConfig) {
		c.limit = limit
	}
}

// WithBatchSize sets the maximum number of objects retrieved per API
// call. Without a batch size the server decides how many to return.
func WithBatchSize(size int) IteratorOption {
	return func(c *iteratorConfig) {
		c.batchSize = size
	}
}

// WithIteratorParam adds a query parameter to every fetch the iterator
// issues, for example the query string of a search endpoint.
func WithIteratorParam(key, value string) IteratorOption {
	return func(c *iteratorConfig) {
		c.params.Set(key, value)
	}
}

// FeedOption configures a Feed.
type FeedOption func(*feedConfig)

type feedConfig struct {
	cursor     string
	startTime  time.Time
	maxRetries int
	retryDelay time.Duration
}

func (c *feedConfig) apply(opts ...FeedOption) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithFeedCursor starts the feed at the given cursor, a string in the
// format YYYYMMDDhhmm naming the first time window to retrieve.
func WithFeedCursor(cursor string) FeedOption {
	return func(c *feedConfig) {
		c.cursor = cursor
	}
}

// WithFeedStartTime starts the feed at the given time, truncated to the
// minute. It overrides the default start of now minus the publication lag.
func WithFeedStartTime(t time.Time) FeedOption {
	return func(c *feedConfig) {
		c.startTime = t
	}
}

// WithFeedRetries sets how many times a not-yet-published time window is
// retried before Next returns a RetriesExhaustedError.
func WithFeedRetries(n int) FeedOption {
	return func(c *feedConfig) {
		c.maxRetries = n
	}
}

// WithFeedRetryDelay sets the wait between retries of an unpublished
// time window.
func WithFeedRetryDelay(d time.Duration) FeedOption {
	return func(c *feedConfig) {
		c.retryDelay = d
	}
}
