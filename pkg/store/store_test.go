package store_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberkv/ember/pkg/frame"
	"github.com/emberkv/ember/pkg/store"
)

func TestGetMissingKey(t *testing.T) {
	s := store.New()
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestSetThenGet(t *testing.T) {
	s := store.New()
	_, had := s.Set("k", frame.NewBulkString([]byte("v1")))
	assert.False(t, had)

	got, ok := s.Get("k")
	require.True(t, ok)
	assert.True(t, got.Equal(frame.NewBulkString([]byte("v1"))))

	prev, had := s.Set("k", frame.NewBulkString([]byte("v2")))
	assert.True(t, had)
	assert.True(t, prev.Equal(frame.NewBulkString([]byte("v1"))))
}

func TestHSetHGetHGetAll(t *testing.T) {
	s := store.New()
	s.HSet("k", "field2", frame.NewBulkString([]byte("value2")))
	s.HSet("k", "field1", frame.NewBulkString([]byte("value1")))

	v, ok := s.HGet("k", "field1")
	require.True(t, ok)
	assert.True(t, v.Equal(frame.NewBulkString([]byte("value1"))))

	_, ok = s.HGet("k", "missing")
	assert.False(t, ok)

	entries, ok := s.SortedHGetAll("k")
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, "field1", entries[0].Key)
	assert.Equal(t, "field2", entries[1].Key)
}

func TestHGetAllMissingKey(t *testing.T) {
	s := store.New()
	_, ok := s.SortedHGetAll("nope")
	assert.False(t, ok)
}

func TestSAddDedupesStructurallyEqualMembers(t *testing.T) {
	s := store.New()
	s.SAdd("s", []frame.Frame{frame.NewBulkString([]byte("a")), frame.NewBulkString([]byte("a"))})
	assert.True(t, s.SIsMember("s", frame.NewBulkString([]byte("a"))))
	assert.False(t, s.SIsMember("s", frame.NewBulkString([]byte("b"))))
}

func TestSIsMemberMissingKey(t *testing.T) {
	s := store.New()
	assert.False(t, s.SIsMember("nope", frame.NewInteger(1)))
}

// TestConcurrentSetIsNeverTorn exercises the §8 "Store atomicity"
// property: two goroutines racing SET(k,a) / SET(k,b) must leave a
// subsequent GET(k) holding exactly one of the two values, never a
// corrupted blend.
func TestConcurrentSetIsNeverTorn(t *testing.T) {
	s := store.New()
	a := frame.NewBulkString([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	b := frame.NewBulkString([]byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.Set("k", a) }()
	go func() { defer wg.Done(); s.Set("k", b) }()
	wg.Wait()

	got, ok := s.Get("k")
	require.True(t, ok)
	assert.True(t, got.Equal(a) || got.Equal(b), "value must be exactly one writer's frame, got %+v", got)
}

// TestConcurrentHSetHGetAllIsConsistentSnapshot covers the §5/§8 guarantee
// that an HGETALL concurrent with HSETs observes a consistent snapshot:
// each field reflects exactly one HSET, never a mix of half-applied writes.
func TestConcurrentHSetHGetAllIsConsistentSnapshot(t *testing.T) {
	s := store.New()
	const fields = 50

	var wg sync.WaitGroup
	wg.Add(fields + 1)
	for i := 0; i < fields; i++ {
		i := i
		go func() {
			defer wg.Done()
			s.HSet("k", fmt.Sprintf("f%d", i), frame.NewInteger(int64(i)))
		}()
	}
	// A reader racing the writers: every snapshot it sees must pair each
	// field with the value its own HSET wrote.
	go func() {
		defer wg.Done()
		for j := 0; j < fields; j++ {
			snapshot, _ := s.SortedHGetAll("k")
			for _, e := range snapshot {
				assert.Equal(t, e.Key, fmt.Sprintf("f%d", e.Value.Int))
			}
		}
	}()
	wg.Wait()

	entries, ok := s.SortedHGetAll("k")
	require.True(t, ok)
	require.Len(t, entries, fields)
	for _, e := range entries {
		assert.Equal(t, frame.Integer, e.Value.Kind)
	}
}

func TestDisjointKeysDoNotBlockEachOther(t *testing.T) {
	s := store.New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set(fmt.Sprintf("key%d", i), frame.NewInteger(int64(i)))
		}()
	}
	wg.Wait()
	for i := 0; i < 100; i++ {
		v, ok := s.Get(fmt.Sprintf("key%d", i))
		require.True(t, ok)
		assert.Equal(t, int64(i), v.Int)
	}
}
