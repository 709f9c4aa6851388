package escort

import (
	"time"

	"github.com/Yamuna-Lakshmanan/HelpNow/internal/geo"
)

// TickResult is what a location tick caused.
type TickResult int

const (
	TickNone TickResult = iota
	TickArrived
	TickCheckInDue
)

// Scheduler decides when a check-in is due and tracks the pending one.
// It is not safe for concurrent use; the Manager serializes all access.
type Scheduler struct {
	interval time.Duration
	timeout  time.Duration
	radiusM  float64

	state   State
	session Session
	pending *PendingCheckIn
}

func NewScheduler(interval, timeout time.Duration, radiusM float64) *Scheduler {
	return &Scheduler{
		interval: interval,
		timeout:  timeout,
		radiusM:  radiusM,
	}
}

// Start arms the scheduler for a new session. Home (0,0) means no arrival
// detection.
func (s *Scheduler) Start(now time.Time, homeLat, homeLng float64) {
	s.state = StateArmed
	s.pending = nil
	s.session = Session{
		Active:           true,
		StartedAt:        now,
		CheckInIndex:     0,
		HomeLat:          homeLat,
		HomeLng:          homeLng,
		NextCheckInDueAt: now.Add(s.interval),
	}
}

// Stop forces idle from any state, discarding any pending check-in without
// an outcome.
func (s *Scheduler) Stop() {
	s.state = StateIdle
	s.pending = nil
	s.session.Active = false
}

// Tick processes one location sample. Arrival takes precedence over a
// simultaneously due check-in. A new check-in is never created while one is
// outstanding.
func (s *Scheduler) Tick(now time.Time, lat, lng float64, address string) TickResult {
	if !s.session.Active {
		return TickNone
	}

	if s.session.HasHome() && geo.IsWithinHomeRadius(lat, lng, s.session.HomeLat, s.session.HomeLng, s.radiusM) {
		s.Stop()
		return TickArrived
	}

	if s.state == StateArmed && s.pending == nil && !now.Before(s.session.NextCheckInDueAt) {
		s.session.CheckInIndex++
		s.pending = &PendingCheckIn{
			Index:     s.session.CheckInIndex,
			TimeoutAt: now.Add(s.timeout),
			Lat:       lat,
			Lng:       lng,
			Address:   address,
		}
		s.session.NextCheckInDueAt = now.Add(s.interval)
		s.state = StateCheckInPending
		return TickCheckInDue
	}

	return TickNone
}

// Resolve clears the pending check-in for index and re-arms. It returns
// false for a stale or unknown index.
func (s *Scheduler) Resolve(index int) bool {
	if s.pending == nil || s.pending.Index != index {
		return false
	}
	s.pending = nil
	if s.session.Active {
		s.state = StateArmed
	}
	return true
}

func (s *Scheduler) State() State            { return s.state }
func (s *Scheduler) Session() Session        { return s.session }
func (s *Scheduler) Pending() *PendingCheckIn { return s.pending }
