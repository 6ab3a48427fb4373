// Package capture provides an in-memory, bounded store of inspected requests.
package capture

import (
	"encoding/base64"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"
)

// Record holds everything the server observed about a single request.
type Record struct {
	ID             int64       `json:"id"`
	ReceivedAt     time.Time   `json:"receivedAt"`
	RemoteAddr     string      `json:"remoteAddr"`
	Proto          string      `json:"proto"`
	Method         string      `json:"method"`
	Path           string      `json:"path"`
	Query          string      `json:"query,omitempty"`
	Headers        http.Header `json:"headers"`
	DeclaredLength int64       `json:"declaredLength"`
	Body           []byte      `json:"-"`
	BodyTruncated  bool        `json:"bodyTruncated,omitempty"`
	Rule           string      `json:"rule,omitempty"`
	SchemaValid    *bool       `json:"schemaValid,omitempty"`
	SchemaErrors   []string    `json:"schemaErrors,omitempty"`

	// Populated by PrepareBody before serialization; JSON never carries
	// raw bytes.
	BodyText     string `json:"body,omitempty"`
	BodyEncoding string `json:"bodyEncoding,omitempty"`
}

// PrepareBody fills the JSON-facing body fields. Bodies that are not valid
// UTF-8 are base64 encoded so the record survives serialization.
func (r *Record) PrepareBody() {
	if len(r.Body) == 0 {
		r.BodyText = ""
		r.BodyEncoding = ""
		return
	}
	if utf8.Valid(r.Body) {
		r.BodyText = string(r.Body)
		r.BodyEncoding = ""
		return
	}
	r.BodyText = base64.StdEncoding.EncodeToString(r.Body)
	r.BodyEncoding = "base64"
}

// IsTextBody reports whether the captured body can be shown as text.
func (r *Record) IsTextBody() bool {
	return utf8.Valid(r.Body)
}

// Store is a fixed-capacity ring of records. When full, the oldest record is
// evicted. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	records  []*Record
	capacity int
	nextID   int64
	seen     int64
	evicted  int64
}

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 100

// NewStore creates a store holding at most capacity records.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		records:  make([]*Record, 0, capacity),
		capacity: capacity,
		nextID:   1,
	}
}

// Add stores a record, assigning it a monotonically increasing ID.
// Returns the assigned ID.
func (s *Store) Add(rec *Record) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	s.seen++

	if len(s.records) == s.capacity {
		copy(s.records, s.records[1:])
		s.records[len(s.records)-1] = rec
		s.evicted++
	} else {
		s.records = append(s.records, rec)
	}

	return rec.ID
}

// Get returns the record with the given ID, or nil if it was never stored or
// has been evicted.
func (s *Store) Get(id int64) *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

// List returns the stored records, oldest first. The slice is a copy; the
// records themselves are shared and must be treated as read-only.
func (s *Store) List() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}

// Clear removes all stored records. IDs keep increasing across a Clear so
// clients can tell old references from new captures.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = s.records[:0]
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Seen returns the number of records ever added, including evicted ones.
func (s *Store) Seen() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.seen
}

// Evicted returns the number of records dropped to make room.
func (s *Store) Evicted() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.evicted
}
