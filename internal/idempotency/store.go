package idempotency

import (
	"sync"
	"time"
)

// Store keeps idempotency records in memory, keyed by idempotency key.
//
// Expired records are evicted lazily: the access that finds a record older
// than the TTL deletes it and reports it absent under the same lock. Keys that
// are never requested again stay in memory until Clear.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewStore returns an empty Store. A non-positive ttl selects DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		records: make(map[string]*Record),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// TTL returns the expiry window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// lookup must be called with s.mu held.
func (s *Store) lookup(key string, now time.Time) (*Record, bool) {
	rec, ok := s.records[key]
	if !ok {
		return nil, false
	}
	if now.Sub(rec.CreatedAt) > s.ttl {
		delete(s.records, key)
		return nil, false
	}
	return rec, true
}

// Get returns a copy of the live record for key.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(key, s.nowFunc())
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Set stores rec under key, replacing whatever was there.
func (s *Store) Set(key string, rec Record) {
	rec.Key = key
	if rec.completion == nil {
		rec.completion = newCompletion()
	}

	s.mu.Lock()
	s.records[key] = &rec
	s.mu.Unlock()
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
}

// Clear drops every record.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = make(map[string]*Record)
	s.mu.Unlock()
}

// Len counts stored records, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// GetOrCreate returns the live record for key, or creates a PROCESSING record
// with fingerprint when there is none. created is true only for the caller
// that inserted the record; that caller is the leader for the key.
func (s *Store) GetOrCreate(key, fingerprint string) (rec Record, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if existing, ok := s.lookup(key, now); ok {
		return *existing, false
	}

	fresh := &Record{
		Key:         key,
		Status:      StatusProcessing,
		Fingerprint: fingerprint,
		CreatedAt:   now,
		completion:  newCompletion(),
	}
	s.records[key] = fresh
	return *fresh, true
}

// Complete replaces the leader's PROCESSING record with a COMPLETED one
// carrying o and a fresh timestamp, then wakes the followers. If the record
// was already replaced (expired and re-created, or cleared), the map is left
// alone and only the followers of rec are woken.
func (s *Store) Complete(rec Record, o Outcome) Record {
	done := Record{
		Key:          rec.Key,
		Status:       StatusCompleted,
		Fingerprint:  rec.Fingerprint,
		StatusCode:   o.StatusCode,
		ResponseBody: o.Body,
		completion:   rec.completion,
	}

	s.mu.Lock()
	done.CreatedAt = s.nowFunc()
	if s.owns(rec) {
		s.records[rec.Key] = &done
	}
	s.mu.Unlock()

	rec.completion.Publish(o)
	return done
}

// Release deletes the leader's PROCESSING record so the key can be retried
// and hands o to the followers.
func (s *Store) Release(rec Record, o Outcome) {
	s.mu.Lock()
	if s.owns(rec) {
		delete(s.records, rec.Key)
	}
	s.mu.Unlock()

	rec.completion.Release(o)
}

// owns must be called with s.mu held.
func (s *Store) owns(rec Record) bool {
	cur, ok := s.records[rec.Key]
	return ok && cur.completion == rec.completion
}
