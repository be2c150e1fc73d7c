package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) GetBytes(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func newTestCache(t *testing.T, store Store) *CompileCache {
	t.Helper()
	c, err := New(store, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestKeyKeepsCriteriaSpacing(t *testing.T) {
	// 37 and 51 runes: only the second is long enough for auto CONTÉM.
	short := Key{Endpoint: "compile", Criteria: "a culpa de terceiro, o dano da vitima", Field: "texto"}
	padded := short
	padded.Criteria = "a   culpa   de   terceiro,   o   dano   da   vitima"
	assert.NotEqual(t, short.String(), padded.String())
	assert.Equal(t, short.String(), Key{Endpoint: "compile", Criteria: "a culpa de terceiro, o dano da vitima", Field: "texto"}.String())
	assert.Contains(t, short.String(), keyPrefix)

	c := short
	c.Highlight = true
	assert.NotEqual(t, short.String(), c.String())
	d := short
	d.FieldsVersion = 2
	assert.NotEqual(t, short.String(), d.String())
}

func TestGetOrComputeStoresCompressed(t *testing.T) {
	store := newMemStore()
	c := newTestCache(t, store)
	ctx := context.Background()
	key := Key{Endpoint: "compile", Criteria: "dano adj5 moral", Field: "texto"}
	body := []byte(`{"query":{"span_near":{"clauses":[],"slop":4,"in_order":true}}}`)

	calls := 0
	got, cached, err := c.GetOrCompute(ctx, key, func() ([]byte, error) {
		calls++
		return body, nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, body, got)
	assert.NotEqual(t, body, store.data[key.String()])

	got, cached, err = c.GetOrCompute(ctx, key, func() ([]byte, error) {
		calls++
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, body, got)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	store := newMemStore()
	c := newTestCache(t, store)
	errInvalid := errors.New("invalid criteria")

	_, _, err := c.GetOrCompute(context.Background(), Key{Criteria: "(a"}, func() ([]byte, error) {
		return nil, errInvalid
	})
	assert.ErrorIs(t, err, errInvalid)
	assert.Empty(t, store.data)
}

func TestGetOrComputeCollapsesConcurrentCalls(t *testing.T) {
	c := newTestCache(t, newMemStore())
	var calls atomic.Int32
	release := make(chan struct{})
	key := Key{Criteria: "dano"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _, err := c.GetOrCompute(context.Background(), key, func() ([]byte, error) {
				calls.Add(1)
				<-release
				return []byte("{}"), nil
			})
			assert.NoError(t, err)
			assert.Equal(t, []byte("{}"), body)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestStoreFailureFallsThrough(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := newTestCache(t, store)

	body, cached, err := c.GetOrCompute(context.Background(), Key{Criteria: "dano"}, func() ([]byte, error) {
		return []byte("{}"), nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []byte("{}"), body)
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := newTestCache(t, store)
	ctx := context.Background()
	c.Set(ctx, Key{Criteria: "a"}, []byte("1"))
	c.Set(ctx, Key{Criteria: "b"}, []byte("2"))
	store.data["other"] = []byte("x")

	require.NoError(t, c.Invalidate(ctx))
	assert.Len(t, store.data, 1)
	_, ok := c.Get(ctx, Key{Criteria: "a"})
	assert.False(t, ok)
}
