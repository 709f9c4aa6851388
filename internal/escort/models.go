package escort

import (
	"sync/atomic"
	"time"
)

// State is the scheduler's closed state set. Escalation is transient and
// collapses to idle once side effects are dispatched.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateCheckInPending
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateCheckInPending:
		return "check_in_pending"
	default:
		return "idle"
	}
}

// Session is the live state of one escort run.
type Session struct {
	Active           bool      `json:"active"`
	StartedAt        time.Time `json:"started_at"`
	CheckInIndex     int       `json:"check_in_index"`
	HomeLat          float64   `json:"home_lat"`
	HomeLng          float64   `json:"home_lng"`
	NextCheckInDueAt time.Time `json:"next_check_in_due_at"`
}

// HasHome reports whether a destination was set; (0,0) means none and such
// sessions never arrive-detect.
func (s Session) HasHome() bool {
	return s.HomeLat != 0 || s.HomeLng != 0
}

// PendingCheckIn is the check-in currently awaiting a response. The
// responded flag is first-writer-wins: exactly one caller resolves it.
type PendingCheckIn struct {
	Index     int       `json:"index"`
	TimeoutAt time.Time `json:"timeout_at"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Address   string    `json:"address,omitempty"`

	responded atomic.Bool
}

// ClaimResponse marks the check-in resolved; only the first caller gets true.
func (p *PendingCheckIn) ClaimResponse() bool {
	return p.responded.CompareAndSwap(false, true)
}

// Responded reports whether a response was already recorded.
func (p *PendingCheckIn) Responded() bool {
	return p.responded.Load()
}

// Event types pushed to the notification/UI layer through the stream hub.
const (
	EventStarted     = "started"
	EventCheckInDue  = "check_in_due"
	EventCheckInDone = "check_in_recorded"
	EventArrivedHome = "arrived_home"
	EventEscalated   = "escalated"
	EventStopped     = "stopped"
)

// Event is the envelope broadcast for every session transition.
type Event struct {
	Type      string    `json:"type"`
	At        time.Time `json:"at"`
	Index     int       `json:"index,omitempty"`
	TimeoutAt time.Time `json:"timeout_at,omitzero"`
	Outcome   string    `json:"outcome,omitempty"`
	Lat       float64   `json:"lat,omitempty"`
	Lng       float64   `json:"lng,omitempty"`
	Address   string    `json:"address,omitempty"`
}

// Snapshot is the read-only view consumers poll.
type Snapshot struct {
	IsTracking       bool            `json:"is_tracking"`
	State            string          `json:"state"`
	StartedAt        time.Time       `json:"started_at,omitzero"`
	CheckInCount     int             `json:"check_in_count"`
	NextCheckInDueAt time.Time       `json:"next_check_in_due_at,omitzero"`
	Pending          *PendingCheckIn `json:"pending_check_in,omitempty"`
}
