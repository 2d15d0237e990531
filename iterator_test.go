package vt_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vt "github.com/tphakala/go-vt"
)

// pageServer serves a fixed sequence of collection pages. Page n links to
// page n+1 through the meta cursor "c<n+1>"; the last page has no cursor.
type pageServer struct {
	pages   [][]string // object IDs per page
	fetches int
	limits  []string // limit query param per fetch
	cursors []string // cursor query param per fetch
}

func (s *pageServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.fetches++
		s.limits = append(s.limits, r.URL.Query().Get("limit"))
		cursor := r.URL.Query().Get("cursor")
		s.cursors = append(s.cursors, cursor)

		index := 0
		if cursor != "" {
			_, err := fmt.Sscanf(cursor, "c%d", &index)
			require.NoError(t, err)
		}
		require.Less(t, index, len(s.pages))

		records := make([]map[string]any, 0, len(s.pages[index]))
		for _, id := range s.pages[index] {
			records = append(records, map[string]any{"id": id, "type": "file"})
		}

		response := map[string]any{"data": records}
		if index+1 < len(s.pages) {
			response["meta"] = map[string]any{"cursor": fmt.Sprintf("c%d", index+1)}
		}

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(response)
		assert.NoError(t, err)
	}
}

func collectIDs(t *testing.T, it *vt.Iterator) []string {
	t.Helper()
	var ids []string
	for {
		obj, err := it.Next(context.Background())
		if errors.Is(err, vt.ErrDone) {
			return ids
		}
		require.NoError(t, err)
		ids = append(ids, obj.ID)
	}
}

func TestIterator_Next(t *testing.T) {
	t.Run("yields all objects in order across pages", func(t *testing.T) {
		server := &pageServer{pages: [][]string{{"o1", "o2"}, {"o3", "o4"}, {"o5"}}}
		client := setupTestServer(t, server.handler(t))

		it := client.Iterator("/intelligence/search", vt.WithBatchSize(2))
		ids := collectIDs(t, it)

		assert.Equal(t, []string{"o1", "o2", "o3", "o4", "o5"}, ids)
		assert.Equal(t, 3, server.fetches)
		assert.Equal(t, 5, it.Count())
	})

	t.Run("stays exhausted after the last object", func(t *testing.T) {
		server := &pageServer{pages: [][]string{{"o1"}}}
		client := setupTestServer(t, server.handler(t))

		it := client.Iterator("/comments")
		collectIDs(t, it)

		for range 3 {
			_, err := it.Next(context.Background())
			assert.ErrorIs(t, err, vt.ErrDone)
		}
		assert.Equal(t, 1, server.fetches)
		assert.Empty(t, it.Cursor())
	})

	t.Run("limit caps the yielded objects", func(t *testing.T) {
		server := &pageServer{pages: [][]string{{"o1", "o2"}, {"o3", "o4"}, {"o5"}}}
		client := setupTestServer(t, server.handler(t))

		it := client.Iterator("/comments", vt.WithLimit(3), vt.WithBatchSize(2))
		ids := collectIDs(t, it)

		assert.Equal(t, []string{"o1", "o2", "o3"}, ids)

		_, err := it.Next(context.Background())
		assert.ErrorIs(t, err, vt.ErrDone)
	})

	t.Run("limit lower than one page", func(t *testing.T) {
		server := &pageServer{pages: [][]string{{"o1", "o2", "o3"}}}
		client := setupTestServer(t, server.handler(t))

		it := client.Iterator("/comments", vt.WithLimit(2))
		ids := collectIDs(t, it)

		assert.Equal(t, []string{"o1", "o2"}, ids)
		// Without a batch size the limit parameter is the remaining count.
		assert.Equal(t, []string{"2"}, server.limits)
	})

	t.Run("batch size is capped by the remaining limit", func(t *testing.T) {
		server := &pageServer{pages: [][]string{{"o1", "o2"}, {"o3", "o4"}}}
		client := setupTestServer(t, server.handler(t))

		it := client.Iterator("/comments", vt.WithLimit(3), vt.WithBatchSize(2))
		collectIDs(t, it)

		assert.Equal(t, []string{"2", "1"}, server.limits)
	})

	t.Run("no limit parameter when neither limit nor batch size is set", func(t *testing.T) {
		server := &pageServer{pages: [][]string{{"o1"}}}
		client := setupTestServer(t, server.handler(t))

		it := client.Iterator("/comments")
		collectIDs(t, it)

		assert.Equal(t, []string{""}, server.limits)
	})
}

func TestIterator_Cursor(t *testing.T) {
	t.Run("resumes mid-batch", func(t *testing.T) {
		pages := [][]string{{"o1", "o2"}, {"o3", "o4"}, {"o5"}}

		for k := 1; k <= 4; k++ {
			t.Run(fmt.Sprintf("after %d objects", k), func(t *testing.T) {
				server := &pageServer{pages: pages}
				client := setupTestServer(t, server.handler(t))

				it := client.Iterator("/comments", vt.WithBatchSize(2))
				for range k {
					_, err := it.Next(context.Background())
					require.NoError(t, err)
				}

				resumed := client.Iterator("/comments",
					vt.WithBatchSize(2), vt.WithCursor(it.Cursor()))
				ids := collectIDs(t, resumed)

				want := []string{"o1", "o2", "o3", "o4", "o5"}[k:]
				assert.Equal(t, want, ids)
			})
		}
	})

	t.Run("accepts a bare server cursor", func(t *testing.T) {
		server := &pageServer{pages: [][]string{{"o1"}, {"o2", "o3"}}}
		client := setupTestServer(t, server.handler(t))

		it := client.Iterator("/comments", vt.WithCursor("c1"))
		ids := collectIDs(t, it)

		assert.Equal(t, []string{"o2", "o3"}, ids)
	})

	t.Run("reports the resume cursor before the first fetch", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

		it := client.Iterator("/comments", vt.WithCursor("c1"))
		assert.Equal(t, "c1", it.Cursor())
	})
}

func TestIterator_Errors(t *testing.T) {
	t.Run("missing data field does not advance state", func(t *testing.T) {
		calls := 0
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				_, err := w.Write([]byte(`{"meta": {}}`))
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, r.URL.Query().Get("cursor"), "")
			_, err := w.Write([]byte(`{"data": [{"id": "o1", "type": "file"}]}`))
			assert.NoError(t, err)
		})

		it := client.Iterator("/comments")

		_, err := it.Next(context.Background())
		var decodeErr *vt.DecodeError
		require.ErrorAs(t, err, &decodeErr)

		// The same fetch can be retried.
		obj, err := it.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "o1", obj.ID)
	})

	t.Run("undecodable record aborts the fetch", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, err := w.Write([]byte(`{"data": [{"id": "o1", "type": "file"}, {"type": "file"}]}`))
			assert.NoError(t, err)
		})

		it := client.Iterator("/comments")

		_, err := it.Next(context.Background())
		var decodeErr *vt.DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("API errors propagate classified", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, err := w.Write([]byte(`{"error": {"code": "BadRequestError", "message": "unparseable query"}}`))
			assert.NoError(t, err)
		})

		it := client.Iterator("/intelligence/search")

		_, err := it.Next(context.Background())
		var clientErr *vt.ClientError
		require.ErrorAs(t, err, &clientErr)
	})
}

func TestIterator_All(t *testing.T) {
	t.Run("ranges over the collection", func(t *testing.T) {
		server := &pageServer{pages: [][]string{{"o1", "o2"}, {"o3"}}}
		client := setupTestServer(t, server.handler(t))

		objects, err := vt.Collect(client.Iterator("/comments").All(context.Background()))
		require.NoError(t, err)
		require.Len(t, objects, 3)
		assert.Equal(t, "o1", objects[0].ID)
	})

	t.Run("yields errors once", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := vt.Collect(client.Iterator("/comments").All(context.Background()))
		var serverErr *vt.ServerError
		require.ErrorAs(t, err, &serverErr)
	})
}

func makeSeq[T any](items []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func makeSeqWithError[T any](items []T, errAt int, err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i, item := range items {
			if i == errAt {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

func TestCollect(t *testing.T) {
	t.Run("collects all items", func(t *testing.T) {
		seq := makeSeq([]int{1, 2, 3, 4, 5})

		result, err := vt.Collect(seq)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, result)
	})

	t.Run("stops on error", func(t *testing.T) {
		testErr := errors.New("test error")
		seq := makeSeqWithError([]int{1, 2, 3, 4, 5}, 3, testErr)

		result, err := vt.Collect(seq)
		require.ErrorIs(t, err, testErr)
		assert.Equal(t, []int{1, 2, 3}, result)
	})

	t.Run("handles empty sequence", func(t *testing.T) {
		seq := makeSeq([]int{})

		result, err := vt.Collect(seq)
		require.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestCollectN(t *testing.T) {
	t.Run("collects up to n items", func(t *testing.T) {
		seq := makeSeq([]int{1, 2, 3, 4, 5})

		result, err := vt.CollectN(seq, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, result)
	})

	t.Run("collects all if less than n", func(t *testing.T) {
		seq := makeSeq([]int{1, 2})

		result, err := vt.CollectN(seq, 5)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, result)
	})

	t.Run("stops on error before n", func(t *testing.T) {
		testErr := errors.New("test error")
		seq := makeSeqWithError([]int{1, 2, 3, 4, 5}, 2, testErr)

		result, err := vt.CollectN(seq, 5)
		require.ErrorIs(t, err, testErr)
		assert.Equal(t, []int{1, 2}, result)
	})
}

func TestFirst(t *testing.T) {
	t.Run("returns first item", func(t *testing.T) {
		seq := makeSeq([]string{"a", "b", "c"})

		result, err := vt.First(seq)
		require.NoError(t, err)
		assert.Equal(t, "a", result)
	})

	t.Run("returns error for empty iterator", func(t *testing.T) {
		seq := makeSeq([]string{})

		_, err := vt.First(seq)
		require.Error(t, err)
		assert.ErrorIs(t, err, vt.ErrEmptyIterator)
	})

	t.Run("returns error if first item errors", func(t *testing.T) {
		testErr := errors.New("test error")
		seq := makeSeqWithError([]string{"a"}, 0, testErr)

		_, err := vt.First(seq)
		require.ErrorIs(t, err, testErr)
	})
}

func TestTake(t *testing.T) {
	t.Run("takes n items", func(t *testing.T) {
		seq := makeSeq([]int{1, 2, 3, 4, 5})
		taken := vt.Take(seq, 3)

		result, err := vt.Collect(taken)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, result)
	})

	t.Run("propagates errors", func(t *testing.T) {
		testErr := errors.New("test error")
		seq := makeSeqWithError([]int{1, 2, 3, 4, 5}, 2, testErr)
		taken := vt.Take(seq, 5)

		_, err := vt.Collect(taken)
		require.ErrorIs(t, err, testErr)
	})
}

func TestFilter(t *testing.T) {
	t.Run("filters items", func(t *testing.T) {
		seq := makeSeq([]int{1, 2, 3, 4, 5, 6})
		even := vt.Filter(seq, func(n int) bool { return n%2 == 0 })

		result, err := vt.Collect(even)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 4, 6}, result)
	})

	t.Run("propagates errors", func(t *testing.T) {
		testErr := errors.New("test error")
		seq := makeSeqWithError([]int{1, 2, 3}, 1, testErr)
		filtered := vt.Filter(seq, func(n int) bool { return true })

		_, err := vt.Collect(filtered)
		require.ErrorIs(t, err, testErr)
	})
}

func TestMap(t *testing.T) {
	t.Run("transforms items", func(t *testing.T) {
		seq := makeSeq([]int{1, 2, 3})
		doubled := vt.Map(seq, func(n int) int { return n * 2 })

		result, err := vt.Collect(doubled)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 4, 6}, result)
	})

	t.Run("propagates errors", func(t *testing.T) {
		testErr := errors.New("test error")
		seq := makeSeqWithError([]int{1, 2, 3}, 1, testErr)
		mapped := vt.Map(seq, func(n int) int { return n * 2 })

		_, err := vt.Collect(mapped)
		require.ErrorIs(t, err, testErr)
	})
}

func TestIteratorComposition(t *testing.T) {
	// Test that iterators can be composed
	seq := makeSeq([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	// Filter even, double them, take first 3
	result, err := vt.Collect(
		vt.Take(
			vt.Map(
				vt.Filter(seq, func(n int) bool { return n%2 == 0 }),
				func(n int) int { return n * 2 },
			),
			3,
		),
	)

	require.NoError(t, err)
	assert.Equal(t, []int{4, 8, 12}, result) // 2*2, 4*2, 6*2
}
