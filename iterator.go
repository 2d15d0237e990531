package vt

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ErrEmptyIterator is returned by First when the iterator yields no items.
var ErrEmptyIterator = errors.New("iterator is empty")

// Iterator lazily walks a collection endpoint, fetching pages on demand
// and yielding one decoded Object per Next call. An iterator is not safe
// for concurrent use; independent iterators may run concurrently.
type Iterator struct {
	client *Client
	path   string
	params url.Values

	limit     int
	batchSize int

	buffer []*Object
	count  int

	// fetchCursor retrieves the batch currently buffered; skip counts
	// how many objects of that batch have been delivered.
	fetchCursor string
	skip        int

	// nextCursor is the server cursor for the page after the buffered
	// one, empty once the server reports no further pages.
	fetched    bool
	nextCursor string
	done       bool
}

func newIterator(client *Client, path string, cfg *iteratorConfig) *Iterator {
	serverCursor, skip := parseResumeCursor(cfg.cursor)
	return &Iterator{
		client:      client,
		path:        path,
		params:      cfg.params,
		limit:       cfg.limit,
		batchSize:   cfg.batchSize,
		fetchCursor: serverCursor,
		skip:        skip,
	}
}

// parseResumeCursor splits a resume cursor into the server cursor and the
// number of objects already consumed from that batch. Bare server cursors
// are accepted as-is.
func parseResumeCursor(cursor string) (string, int) {
	i := strings.LastIndexByte(cursor, '-')
	if i < 0 {
		return cursor, 0
	}
	skip, err := strconv.Atoi(cursor[i+1:])
	if err != nil || skip < 0 {
		return cursor, 0
	}
	return cursor[:i], skip
}

// Next returns the next object in the collection. It returns ErrDone once
// the collection is exhausted or the configured limit is reached, and
// keeps returning ErrDone on subsequent calls. After an API error the
// iterator state is unchanged, so Next may be called again to retry the
// same fetch.
func (it *Iterator) Next(ctx context.Context) (*Object, error) {
	for {
		if it.limit > 0 && it.count >= it.limit {
			return nil, ErrDone
		}

		if len(it.buffer) > 0 {
			obj := it.buffer[0]
			it.buffer = it.buffer[1:]
			it.count++
			it.skip++
			return obj, nil
		}

		if it.done {
			return nil, ErrDone
		}

		if it.fetched {
			if it.nextCursor == "" {
				it.done = true
				return nil, ErrDone
			}
			it.fetchCursor = it.nextCursor
			it.skip = 0
		}

		if err := it.fetchBatch(ctx); err != nil {
			return nil, err
		}
	}
}

// fetchBatch retrieves one page and refills the buffer. Iterator state is
// only updated when the whole page decodes successfully.
func (it *Iterator) fetchBatch(ctx context.Context) error {
	params := make(url.Values, len(it.params)+2)
	for key, values := range it.params {
		params[key] = values
	}
	if it.fetchCursor != "" {
		params.Set("cursor", it.fetchCursor)
	}
	if n := it.batchLimit(); n > 0 {
		params.Set("limit", strconv.Itoa(n))
	}

	envelope, err := it.client.getResponse(ctx, it.path, params, nil)
	if err != nil {
		return err
	}
	if !envelope.hasData() {
		return &DecodeError{Path: it.path, Err: errors.New("response has no data field")}
	}

	objects, err := decodeObjectList(it.path, envelope.Data)
	if err != nil {
		return err
	}

	// Drop objects already delivered when resuming mid-batch.
	if it.skip >= len(objects) {
		objects = nil
	} else {
		objects = objects[it.skip:]
	}

	it.buffer = objects
	it.nextCursor = ""
	if envelope.Meta != nil {
		it.nextCursor = envelope.Meta.Cursor
	}
	it.fetched = true
	return nil
}

// batchLimit computes the limit query parameter for the next fetch: the
// batch size capped by the objects remaining to the overall limit.
func (it *Iterator) batchLimit() int {
	remaining := 0
	if it.limit > 0 {
		remaining = it.limit - it.count
	}
	switch {
	case it.batchSize > 0 && remaining > 0:
		return min(it.batchSize, remaining)
	case it.batchSize > 0:
		return it.batchSize
	default:
		return remaining
	}
}

// Cursor returns a resume cursor pointing at the next undelivered object.
// Passing it to a new iterator via WithCursor continues the iteration
// exactly where this one stands. It returns an empty string once the
// collection is exhausted.
func (it *Iterator) Cursor() string {
	exhausted := it.done || (it.fetched && len(it.buffer) == 0 && it.nextCursor == "")
	if exhausted {
		return ""
	}
	if it.fetched && len(it.buffer) == 0 {
		return it.nextCursor
	}
	if it.skip > 0 {
		return fmt.Sprintf("%s-%d", it.fetchCursor, it.skip)
	}
	return it.fetchCursor
}

// Count returns the number of objects yielded so far.
func (it *Iterator) Count() int {
	return it.count
}

// All returns a range-over-func view of the iterator. Iteration ends
// silently when the collection is exhausted; any other error is yielded
// once and ends the sequence.
func (it *Iterator) All(ctx context.Context) iter.Seq2[*Object, error] {
	return func(yield func(*Object, error) bool) {
		for {
			obj, err := it.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(obj, nil) {
				return
			}
		}
	}
}

// Collect gathers all items from an iterator into a slice.
// It stops on the first error and returns all items collected so far along with the error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	result := make([]T, 0)
	for item, err := range seq {
		if err != nil {
			return result, err
		}
		result = append(result, item)
	}
	return result, nil
}

// CollectN gathers up to n items from an iterator.
// It stops on the first error and returns all items collected so far along with the error.
func CollectN[T any](seq iter.Seq2[T, error], n int) ([]T, error) {
	result := make([]T, 0, n)
	for item, err := range seq {
		if err != nil {
			return result, err
		}
		result = append(result, item)
		if len(result) >= n {
			break
		}
	}
	return result, nil
}

// First returns the first item from an iterator, or an error if the iterator is empty or fails.
func First[T any](seq iter.Seq2[T, error]) (T, error) {
	for item, err := range seq {
		return item, err
	}
	var zero T
	return zero, ErrEmptyIterator
}

// Take returns an iterator that yields at most n items from the source iterator.
func Take[T any](seq iter.Seq2[T, error], n int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		count := 0
		for item, err := range seq {
			if !yield(item, err) || err != nil {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}

// Filter returns an iterator that yields only items matching the predicate.
func Filter[T any](seq iter.Seq2[T, error], pred func(T) bool) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range seq {
			if err != nil {
				yield(item, err)
				return
			}
			if pred(item) {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Map transforms each item in the iterator using the provided function.
func Map[T, U any](seq iter.Seq2[T, error], fn func(T) U) iter.Seq2[U, error] {
	return func(yield func(U, error) bool) {
		for item, err := range seq {
			if err != nil {
				var zero U
				yield(zero, err)
				return
			}
			if !yield(fn(item), nil) {
				return
			}
		}
	}
}

// ToSlice converts an iter.Seq to a slice using stdlib slices.Collect.
// This is a convenience wrapper for non-error iterators.
func ToSlice[T any](seq iter.Seq[T]) []T {
	return slices.Collect(seq)
}
