package escort

import (
	"testing"
	"time"
)

var schedStart = time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)

func newTestScheduler() *Scheduler {
	return NewScheduler(5*time.Minute, 2*time.Minute, 100)
}

func TestSchedulerStartArms(t *testing.T) {
	s := newTestScheduler()
	if s.State() != StateIdle {
		t.Fatalf("expected idle before start")
	}

	s.Start(schedStart, 10.0, 20.0)
	if s.State() != StateArmed {
		t.Fatalf("expected armed after start")
	}
	sess := s.Session()
	if !sess.Active || sess.CheckInIndex != 0 {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if !sess.NextCheckInDueAt.Equal(schedStart.Add(5 * time.Minute)) {
		t.Fatalf("unexpected due time: %v", sess.NextCheckInDueAt)
	}
}

func TestSchedulerTickIgnoredWhenIdle(t *testing.T) {
	s := newTestScheduler()
	if got := s.Tick(schedStart, 10.0, 20.0, ""); got != TickNone {
		t.Fatalf("expected idle tick to be ignored, got %v", got)
	}
}

func TestSchedulerArrival(t *testing.T) {
	s := newTestScheduler()
	s.Start(schedStart, 10.0, 20.0)

	// ~50 m north of home.
	lat := 10.0 + 50.0/111320.0
	if got := s.Tick(schedStart.Add(time.Minute), lat, 20.0, ""); got != TickArrived {
		t.Fatalf("expected arrival, got %v", got)
	}
	if s.State() != StateIdle || s.Session().Active {
		t.Fatalf("expected session ended on arrival")
	}
}

func TestSchedulerArrivalPrecedesDueCheckIn(t *testing.T) {
	s := newTestScheduler()
	s.Start(schedStart, 10.0, 20.0)

	// Tick is both past the due time and within the home radius.
	at := schedStart.Add(5 * time.Minute)
	if got := s.Tick(at, 10.0, 20.0, ""); got != TickArrived {
		t.Fatalf("expected arrival to win over due check-in, got %v", got)
	}
	if s.Pending() != nil {
		t.Fatalf("expected no pending check-in after arrival")
	}
}

func TestSchedulerNoHomeNeverArrives(t *testing.T) {
	s := newTestScheduler()
	s.Start(schedStart, 0, 0)

	if got := s.Tick(schedStart.Add(time.Minute), 0, 0, ""); got != TickNone {
		t.Fatalf("expected no arrival without a home, got %v", got)
	}
	if !s.Session().Active {
		t.Fatalf("expected session still active")
	}
}

func TestSchedulerCheckInDue(t *testing.T) {
	s := newTestScheduler()
	s.Start(schedStart, 0, 0)

	if got := s.Tick(schedStart.Add(4*time.Minute), 12.9, 77.6, ""); got != TickNone {
		t.Fatalf("expected nothing before due time, got %v", got)
	}

	at := schedStart.Add(5 * time.Minute)
	if got := s.Tick(at, 12.9, 77.6, "MG Road"); got != TickCheckInDue {
		t.Fatalf("expected check-in due, got %v", got)
	}
	p := s.Pending()
	if p == nil || p.Index != 1 {
		t.Fatalf("expected pending index 1, got %+v", p)
	}
	if !p.TimeoutAt.Equal(at.Add(2 * time.Minute)) {
		t.Fatalf("unexpected timeout deadline: %v", p.TimeoutAt)
	}
	if p.Lat != 12.9 || p.Address != "MG Road" {
		t.Fatalf("expected location snapshot on pending check-in")
	}
	if s.State() != StateCheckInPending {
		t.Fatalf("expected pending state")
	}
	if !s.Session().NextCheckInDueAt.Equal(at.Add(5 * time.Minute)) {
		t.Fatalf("expected due time advanced")
	}
}

func TestSchedulerAtMostOnePending(t *testing.T) {
	s := newTestScheduler()
	s.Start(schedStart, 0, 0)

	at := schedStart.Add(5 * time.Minute)
	if got := s.Tick(at, 1, 2, ""); got != TickCheckInDue {
		t.Fatalf("expected first check-in due")
	}
	// Far past the next due time, but a pending check-in is outstanding.
	if got := s.Tick(at.Add(20*time.Minute), 1, 2, ""); got != TickNone {
		t.Fatalf("expected no second pending while one is outstanding")
	}
	if s.Pending().Index != 1 {
		t.Fatalf("expected original pending untouched")
	}
}

func TestSchedulerResolveAndNextIndex(t *testing.T) {
	s := newTestScheduler()
	s.Start(schedStart, 0, 0)

	at := schedStart.Add(5 * time.Minute)
	s.Tick(at, 1, 2, "")
	if !s.Resolve(1) {
		t.Fatalf("expected resolve of index 1")
	}
	if s.State() != StateArmed || s.Pending() != nil {
		t.Fatalf("expected re-armed after resolve")
	}

	// Stale and unknown indices are ignored.
	if s.Resolve(1) || s.Resolve(7) {
		t.Fatalf("expected stale resolve to be ignored")
	}

	next := at.Add(5 * time.Minute)
	if got := s.Tick(next, 1, 2, ""); got != TickCheckInDue {
		t.Fatalf("expected second check-in due")
	}
	if s.Pending().Index != 2 {
		t.Fatalf("expected monotonically increasing index, got %d", s.Pending().Index)
	}
}

func TestSchedulerStopDiscardsPending(t *testing.T) {
	s := newTestScheduler()
	s.Start(schedStart, 0, 0)
	s.Tick(schedStart.Add(5*time.Minute), 1, 2, "")

	s.Stop()
	if s.Pending() != nil || s.State() != StateIdle || s.Session().Active {
		t.Fatalf("expected stop to force idle and discard pending")
	}
	if got := s.Tick(schedStart.Add(6*time.Minute), 1, 2, ""); got != TickNone {
		t.Fatalf("expected ticks ignored after stop")
	}
}

func TestStateString(t *testing.T) {
	if StateIdle.String() != "idle" || StateArmed.String() != "armed" || StateCheckInPending.String() != "check_in_pending" {
		t.Fatalf("unexpected state strings")
	}
}
