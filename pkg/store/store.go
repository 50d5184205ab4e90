// Package store implements the concurrent-safe in-memory keyspaces backing
// the command layer: strings, hashes, and sets (§3.2/§4.3).
//
// The prototype this was distilled from (original_source/src/backend/mod.rs)
// leans on dashmap::DashMap/DashSet for its three keyspaces. Go's standard
// library has no lock-striped map, so this follows §9's own fallback design
// note directly: a fixed-arity array of shards, each an ordinary map guarded
// by its own mutex, selected by hashing the key with xxhash (the same
// library the rest of this dependency graph already pulls in for
// shard-style hashing elsewhere in the ecosystem).
package store

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/emberkv/ember/pkg/frame"
)

const numShards = 32

func shardIndex(key string) uint64 {
	return xxhash.Sum64String(key) % numShards
}

type stringShard struct {
	mu   sync.RWMutex
	data map[string]frame.Frame
}

type hashTable struct {
	mu     sync.RWMutex
	fields map[string]frame.Frame
}

type hashShard struct {
	mu   sync.RWMutex
	data map[string]*hashTable
}

// setTable buckets its members by HashKind, mirroring the prototype's
// tag-only Hash impl (see pkg/frame.Frame.HashKind): within a bucket,
// membership is decided by a linear Equal scan.
type setTable struct {
	mu      sync.RWMutex
	buckets map[frame.Kind][]frame.Frame
}

type setShard struct {
	mu   sync.RWMutex
	data map[string]*setTable
}

// Store holds the three independent keyspaces described in §3.2. It is
// safe for concurrent use by any number of goroutines and is shared by
// reference (a *Store, not a value) the same way the prototype's Backend
// is an Arc-wrapped handle shared across connection tasks.
type Store struct {
	strings [numShards]*stringShard
	hashes  [numShards]*hashShard
	sets    [numShards]*setShard
}

// New returns an empty Store with all shards initialized.
func New() *Store {
	s := &Store{}
	for i := 0; i < numShards; i++ {
		s.strings[i] = &stringShard{data: make(map[string]frame.Frame)}
		s.hashes[i] = &hashShard{data: make(map[string]*hashTable)}
		s.sets[i] = &setShard{data: make(map[string]*setTable)}
	}
	return s
}

// Get returns the string-keyspace value for key, or ok=false if absent.
func (s *Store) Get(key string) (frame.Frame, bool) {
	shard := s.strings[shardIndex(key)]
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	f, ok := shard.data[key]
	return f, ok
}

// Set stores val under key in the string keyspace, returning whatever was
// previously stored there (if anything). The command layer decides what,
// if anything, to do with that previous value — SET's reply is always
// SimpleString OK regardless (§4.4).
func (s *Store) Set(key string, val frame.Frame) (frame.Frame, bool) {
	shard := s.strings[shardIndex(key)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	prev, had := shard.data[key]
	shard.data[key] = val
	return prev, had
}

func (s *Store) hashTableFor(key string, create bool) *hashTable {
	shard := s.hashes[shardIndex(key)]
	shard.mu.RLock()
	h, ok := shard.data[key]
	shard.mu.RUnlock()
	if ok || !create {
		return h
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if h, ok = shard.data[key]; ok {
		return h
	}
	h = &hashTable{fields: make(map[string]frame.Frame)}
	shard.data[key] = h
	return h
}

// HGet looks up field within the hash stored at key.
func (s *Store) HGet(key, field string) (frame.Frame, bool) {
	h := s.hashTableFor(key, false)
	if h == nil {
		return frame.Frame{}, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.fields[field]
	return f, ok
}

// HGetAll returns a snapshot of every (field, value) pair in the hash at
// key, in unspecified order; SortedHGetAll returns the same snapshot
// ordered by field name, as HGETALL's reply requires (§4.4). ok is false
// if key names no hash.
func (s *Store) HGetAll(key string) ([]frame.MapEntry, bool) {
	h := s.hashTableFor(key, false)
	if h == nil {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	entries := make([]frame.MapEntry, 0, len(h.fields))
	for field, val := range h.fields {
		entries = append(entries, frame.MapEntry{Key: field, Value: val})
	}
	return entries, true
}

// HSet creates the hash at key on first use, then sets field within it,
// returning whatever was previously stored at that field (if anything).
func (s *Store) HSet(key, field string, val frame.Frame) (frame.Frame, bool) {
	h := s.hashTableFor(key, true)
	h.mu.Lock()
	defer h.mu.Unlock()
	prev, had := h.fields[field]
	h.fields[field] = val
	return prev, had
}

func (s *Store) setTableFor(key string, create bool) *setTable {
	shard := s.sets[shardIndex(key)]
	shard.mu.RLock()
	t, ok := shard.data[key]
	shard.mu.RUnlock()
	if ok || !create {
		return t
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if t, ok = shard.data[key]; ok {
		return t
	}
	t = &setTable{buckets: make(map[frame.Kind][]frame.Frame)}
	shard.data[key] = t
	return t
}

// SAdd unions members into the set at key, creating it on first use.
// Deduplication uses the HashKind-bucket-then-Equal-scan scheme described
// on pkg/frame.Frame.HashKind: members are only ever compared against
// others of the same Kind.
func (s *Store) SAdd(key string, members []frame.Frame) {
	t := s.setTableFor(key, true)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range members {
		bucket := t.buckets[m.HashKind()]
		found := false
		for _, existing := range bucket {
			if existing.Equal(m) {
				found = true
				break
			}
		}
		if !found {
			t.buckets[m.HashKind()] = append(bucket, m)
		}
	}
}

// SIsMember reports whether member is present in the set at key. A
// missing key behaves as an empty set.
func (s *Store) SIsMember(key string, member frame.Frame) bool {
	t := s.setTableFor(key, false)
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, existing := range t.buckets[member.HashKind()] {
		if existing.Equal(member) {
			return true
		}
	}
	return false
}

// sortedEntries sorts entries in place, ascending by field name, for
// SortedHGetAll (HGETALL's ordering, §4.4, §8).
func sortedEntries(entries []frame.MapEntry) []frame.MapEntry {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// SortedHGetAll is HGetAll with the result sorted ascending by field name,
// matching the Array reply shape HGETALL must produce (§4.4, scenario 3).
func (s *Store) SortedHGetAll(key string) ([]frame.MapEntry, bool) {
	entries, ok := s.HGetAll(key)
	if !ok {
		return nil, false
	}
	return sortedEntries(entries), true
}
