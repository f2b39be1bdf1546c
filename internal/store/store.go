// Package store is the single source of truth for all file records and
// session-level counters. Records only ever hold ciphertext and nonce;
// every mutation goes through the operations defined here.
package store

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Store owns the id → record mapping, preserving insertion order for
// display. All mutators are no-ops on ids that are absent, so work that
// was in flight when a record was removed lands harmlessly.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string

	deleted       int
	newlyAdded    int
	hadFirstBatch bool
	log           *logrus.Entry
}

// Snapshot is the read contract handed to consumers: current records
// plus the session counters.
type Snapshot struct {
	Records         []*Record `json:"records"`
	DeletedCount    int       `json:"deletedCount"`
	NewlyAddedCount int       `json:"newlyAddedCount"`
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[string]*Record),
		log:     logrus.WithField("component", "store"),
	}
}

// AddRecords appends a batch of freshly ingested records. The first
// batch establishes the baseline; every later batch bumps the
// newly-added counter.
func (s *Store) AddRecords(records []*Record) {
	if len(records) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hadFirstBatch {
		s.newlyAdded += len(records)
	} else {
		s.hadFirstBatch = true
	}

	for _, r := range records {
		if _, exists := s.records[r.ID]; exists {
			s.log.WithField("file_id", r.ID).Warn("Duplicate record id ignored")
			continue
		}
		s.records[r.ID] = r
		s.order = append(s.order, r.ID)
	}
}

// RemoveRecord deletes a record and bumps the deleted counter.
// Idempotent: removing an absent id only counts the attempt.
func (s *Store) RemoveRecord(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; ok {
		delete(s.records, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.deleted++
}

// UpdateStatus transitions a record's status and, when progress >= 0,
// its progress. No-op if the record was removed mid-flight.
func (s *Store) UpdateStatus(id string, status Status, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return
	}
	r.Status = status
	if progress >= 0 {
		r.Progress = progress
	}
}

// SetError marks a record failed with a best-effort message.
func (s *Store) SetError(id, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return
	}
	r.Status = StatusError
	r.ErrorMsg = msg
}

// AppendPage merges a new output unit into the record. Pages arrive in
// strictly increasing pageNum order; a stale or duplicate page is
// dropped. compressedSize < 0 means "not provided yet". No-op if the
// record is absent.
func (s *Store) AppendPage(id string, totalPages int, page *Page, compressedSize int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return
	}

	r.TotalPages = totalPages
	if page != nil {
		if n := len(r.Pages); n > 0 && page.PageNum <= r.Pages[n-1].PageNum {
			s.log.WithFields(logrus.Fields{
				"file_id": id,
				"page":    page.PageNum,
			}).Warn("Out-of-order page dropped")
		} else {
			r.Pages = append(r.Pages, *page)
		}
	}
	if compressedSize >= 0 {
		r.CompressedSize = compressedSize
	}
}

// UpdateLockState replaces the lock flag and, when new bytes are given,
// the ciphertext/nonce pair atomically. Used by the unlock flow after
// the now-unlocked bytes were re-encrypted. No-op if the record is
// absent.
func (s *Store) UpdateLockState(id string, locked bool, newCiphertext, newNonce []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return
	}
	r.Locked = locked
	if newCiphertext != nil && newNonce != nil {
		r.Ciphertext = newCiphertext
		r.Nonce = newNonce
	}
}

// Get returns a copy of one record.
func (s *Store) Get(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

// NextPending returns a copy of the first record still waiting for
// processing, in insertion order.
func (s *Store) NextPending() (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if r := s.records[id]; r.Status == StatusPending {
			return r.clone(), true
		}
	}
	return nil, false
}

// Snapshot returns copies of all records in insertion order plus the
// session counters.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Snapshot{
		Records:         make([]*Record, 0, len(s.order)),
		DeletedCount:    s.deleted,
		NewlyAddedCount: s.newlyAdded,
	}
	for _, id := range s.order {
		out.Records = append(out.Records, s.records[id].clone())
	}
	return out
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// AllSettled reports whether every record reached a terminal status.
// False for an empty store.
func (s *Store) AllSettled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return false
	}
	for _, r := range s.records {
		if !r.Status.Terminal() {
			return false
		}
	}
	return true
}

// Reset clears all records and counters. Used on "back to home"; work
// still in flight degrades to no-ops against the emptied store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*Record)
	s.order = nil
	s.deleted = 0
	s.newlyAdded = 0
	s.hadFirstBatch = false
}
