package vt

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"
)

// FeedType enumerates the available continuous feeds.
type FeedType string

// FeedTypeFiles is the feed of files as they are scanned.
const FeedTypeFiles FeedType = "files"

// feedTimeLayout is the YYYYMMDDhhmm cursor format of feed windows.
const feedTimeLayout = "200601021504"

// Default feed configuration values.
const (
	defaultFeedRetries    = 10
	defaultFeedRetryDelay = time.Minute

	// Feeds publish with a lag behind real time; without an explicit
	// cursor a feed starts this far behind the current time.
	defaultFeedLag = 60 * time.Minute
)

// FeedBatch holds the objects published in one minute-granularity time
// window of a feed.
type FeedBatch struct {
	// Time is the start of the window the batch covers, UTC.
	Time time.Time

	// Objects are the records published in the window.
	Objects []*Object
}

// Cursor returns the window's cursor string in YYYYMMDDhhmm form.
func (b *FeedBatch) Cursor() string {
	return b.Time.UTC().Format(feedTimeLayout)
}

// Feed is a continuous iterator over a feed: an effectively-infinite
// stream of batches keyed by minute-granularity time windows. The cursor
// only ever advances forward; a window that has not been published yet is
// retried with a bounded budget instead of failing. A feed is not safe
// for concurrent use.
type Feed struct {
	client   *Client
	feedType FeedType

	cursor time.Time

	maxRetries int
	retryDelay time.Duration

	// err latches the feed into its terminal failed state.
	err error
}

func newFeed(client *Client, feedType FeedType, cfg *feedConfig) (*Feed, error) {
	f := &Feed{
		client:     client,
		feedType:   feedType,
		maxRetries: cfg.maxRetries,
		retryDelay: cfg.retryDelay,
	}

	switch {
	case cfg.cursor != "":
		t, err := time.ParseInLocation(feedTimeLayout, cfg.cursor, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("vt: invalid feed cursor %q: expected YYYYMMDDhhmm format", cfg.cursor)
		}
		f.cursor = t
	case !cfg.startTime.IsZero():
		f.cursor = cfg.startTime.UTC().Truncate(time.Minute)
	default:
		f.cursor = time.Now().UTC().Add(-defaultFeedLag).Truncate(time.Minute)
	}

	return f, nil
}

// Cursor returns the cursor of the next window to be requested, in
// YYYYMMDDhhmm form. Callers may persist it and resume a new feed from it
// later with WithFeedCursor.
func (f *Feed) Cursor() string {
	return f.cursor.UTC().Format(feedTimeLayout)
}

// Next returns the next batch of the feed, blocking while the requested
// window has not been published yet. A window reported as not found is
// retried up to the configured budget with the configured delay between
// attempts; once the budget is spent Next returns a RetriesExhaustedError
// and leaves the cursor on the same window, so a later call retries it
// with a fresh budget. Any other API or decode error latches the feed
// into a terminal failed state; subsequent calls return the same error.
func (f *Feed) Next(ctx context.Context) (*FeedBatch, error) {
	if f.err != nil {
		return nil, f.err
	}

	window := f.cursor
	path := fmt.Sprintf("/feeds/%s/%s", f.feedType, window.Format(feedTimeLayout))

	attempts := 0
	for {
		batch, err := f.fetchBatch(ctx, path, window)
		if err == nil {
			f.cursor = window.Add(time.Minute)
			return batch, nil
		}

		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			// The window has not been published yet.
			attempts++
			if attempts > f.maxRetries {
				return nil, &RetriesExhaustedError{
					FeedType: f.feedType,
					Cursor:   window.Format(feedTimeLayout),
					Attempts: attempts,
				}
			}
			if err := sleepContext(ctx, f.retryDelay); err != nil {
				return nil, err
			}
			continue
		}

		var apiErr *APIError
		var decodeErr *DecodeError
		if errors.As(err, &apiErr) || errors.As(err, &decodeErr) {
			f.err = err
		}
		return nil, err
	}
}

// fetchBatch retrieves and decodes one feed window.
func (f *Feed) fetchBatch(ctx context.Context, path string, window time.Time) (*FeedBatch, error) {
	envelope, err := f.client.getResponse(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if !envelope.hasData() {
		return nil, &DecodeError{Path: path, Err: errors.New("response has no data field")}
	}

	objects, err := decodeObjectList(path, envelope.Data)
	if err != nil {
		return nil, err
	}

	return &FeedBatch{Time: window, Objects: objects}, nil
}

// All returns a range-over-func view of the feed. The stream is
// continuous; iteration ends only when an error is yielded or the caller
// breaks out of the loop.
func (f *Feed) All(ctx context.Context) iter.Seq2[*FeedBatch, error] {
	return func(yield func(*FeedBatch, error) bool) {
		for {
			batch, err := f.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(batch, nil) {
				return
			}
		}
	}
}

// sleepContext waits for the given duration or until the context is
// cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
