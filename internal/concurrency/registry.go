// Package concurrency provides the in-process lock registry the engine uses
// to serialise operations that contend on the same course or student.
package concurrency

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a map from string key to mutex, created lazily on first use.
// Entries are never removed — the key space is bounded by the set of ids in
// use, and removing a mutex while another goroutine holds it would be
// unsafe, so the registry trades a small permanent footprint for that
// safety.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

func (r *Registry) get(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	return m
}

// CourseKey, StudentKey and EnrollmentKey give the engine a single place to
// spell the keyspace so lock ordering stays consistent between callers.
func CourseKey(id int64) string     { return fmt.Sprintf("course:%d", id) }
func StudentKey(id int64) string    { return fmt.Sprintf("student:%d", id) }
func EnrollmentKey(id int64) string { return fmt.Sprintf("enrollment:%d", id) }

// Session holds the locks acquired for one engine operation, in ascending
// key order, and releases them in reverse order on Release. Acquiring all
// locks a operation will ever hold up front, in one total order shared by
// every caller, is what makes the registry deadlock-free: two operations
// that both want {course:1, student:2} always take them in the same order,
// so neither can hold one while waiting on the other.
type Session struct {
	keys  []string
	locks []*sync.Mutex
}

// Acquire locks the mutexes for the given keys, deduplicated and sorted
// ascending, and returns a Session the caller must Release.
func Acquire(reg *Registry, keys ...string) *Session {
	uniq := dedupe(keys)
	sort.Strings(uniq)

	s := &Session{keys: uniq, locks: make([]*sync.Mutex, len(uniq))}
	for i, k := range uniq {
		m := reg.get(k)
		s.locks[i] = m
		m.Lock()
	}
	return s
}

// Release unlocks in reverse acquisition order.
func (s *Session) Release() {
	for i := len(s.locks) - 1; i >= 0; i-- {
		s.locks[i].Unlock()
	}
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
