package history

import (
	"context"
	"log"
	"sync"
	"time"
)

// Outcome is the closed set of check-in results.
type Outcome string

const (
	OutcomeSafe    Outcome = "SAFE"
	OutcomeUnsafe  Outcome = "UNSAFE"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSafe, OutcomeUnsafe, OutcomeTimeout:
		return true
	}
	return false
}

// Record is one immutable check-in history entry.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Outcome   Outcome   `json:"outcome"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Address   string    `json:"address,omitempty"`
}

// Flags are the primitive session values persisted alongside the history.
type Flags struct {
	TrackingActive bool
	CheckInCount   int
	HomeLat        float64
	HomeLng        float64
}

// MaxRecords caps the stored history; older entries drop off silently.
const MaxRecords = 10

// Persistence is the external key-value collaborator. Implementations must
// return an empty history (not an error) for absent data; corrupt data is
// treated the same way by the store.
type Persistence interface {
	LoadHistory(ctx context.Context, userID string) ([]Record, error)
	SaveHistory(ctx context.Context, userID string, records []Record) error
	LoadFlags(ctx context.Context, userID string) (Flags, error)
	SaveFlags(ctx context.Context, userID string, flags Flags) error
}

// Store is an append-only, size-bounded check-in history for one user,
// newest first, written through to Persistence.
type Store struct {
	userID  string
	persist Persistence

	mu      sync.Mutex
	records []Record
}

// NewStore loads any persisted history for userID. A load failure yields an
// empty history rather than an error.
func NewStore(ctx context.Context, userID string, persist Persistence) *Store {
	s := &Store{userID: userID, persist: persist}
	if persist != nil {
		records, err := persist.LoadHistory(ctx, userID)
		if err != nil {
			log.Printf("history load for %s failed: %v", userID, err)
		} else {
			if len(records) > MaxRecords {
				records = records[:MaxRecords]
			}
			s.records = records
		}
	}
	return s
}

// Append inserts the record at the head and truncates beyond MaxRecords.
func (s *Store) Append(ctx context.Context, record Record) {
	s.mu.Lock()
	s.records = append([]Record{record}, s.records...)
	if len(s.records) > MaxRecords {
		s.records = s.records[:MaxRecords]
	}
	snapshot := make([]Record, len(s.records))
	copy(snapshot, s.records)
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.SaveHistory(ctx, s.userID, snapshot); err != nil {
			log.Printf("history save for %s failed: %v", s.userID, err)
		}
	}
}

// History returns up to MaxRecords entries, newest first.
func (s *Store) History() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
