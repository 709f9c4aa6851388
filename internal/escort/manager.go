package escort

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/Yamuna-Lakshmanan/HelpNow/internal/history"
)

// Policy is the session timing and escalation policy. The defaults come from
// config, not from constants in the state machine.
type Policy struct {
	CheckInInterval time.Duration
	CheckInTimeout  time.Duration
	HomeRadiusM     float64
	EmergencyNumber string
}

// AlertDispatcher sends the emergency alert to the user's contacts.
// Best-effort: failures are logged, never surfaced to the state machine.
type AlertDispatcher interface {
	SendEmergencyAlert(ctx context.Context, userID string, lat, lng float64, address string) error
}

// EmergencyCaller places the emergency call. Same best-effort contract.
type EmergencyCaller interface {
	PlaceCall(ctx context.Context, number string) error
}

// Broadcaster pushes session events to the notification/UI layer.
type Broadcaster interface {
	Broadcast(userID string, payload []byte)
}

// Manager owns one user's escort session: the scheduler, the pending
// check-in, the escalation gate, and the history store. Every entry point
// runs under one mutex so concurrent ticks and responses never interleave
// partial updates.
type Manager struct {
	userID  string
	policy  Policy
	gate    *EscalationGate
	store   *history.Store
	persist history.Persistence
	hub     Broadcaster
	alerts  AlertDispatcher
	caller  EmergencyCaller

	now   func() time.Time
	after func(d time.Duration, f func())

	mu           sync.Mutex
	sched        *Scheduler
	checkInCount int
	lastLat      float64
	lastLng      float64
	lastAddress  string
}

func NewManager(userID string, policy Policy, store *history.Store, persist history.Persistence, hub Broadcaster, alerts AlertDispatcher, caller EmergencyCaller) *Manager {
	return &Manager{
		userID:  userID,
		policy:  policy,
		gate:    &EscalationGate{},
		store:   store,
		persist: persist,
		hub:     hub,
		alerts:  alerts,
		caller:  caller,
		now:     time.Now,
		after:   func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		sched:   NewScheduler(policy.CheckInInterval, policy.CheckInTimeout, policy.HomeRadiusM),
	}
}

// StartTracking begins a session. It is a no-op (returning false) while one
// is already active. Starting re-arms the escalation gate.
func (m *Manager) StartTracking(ctx context.Context, homeLat, homeLng float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sched.Session().Active {
		return false
	}

	now := m.now()
	m.gate.Reset()
	m.checkInCount = 0
	m.sched.Start(now, homeLat, homeLng)
	m.persistFlagsLocked(ctx)
	m.publishLocked(Event{Type: EventStarted, At: now})
	return true
}

// StopTracking is idempotent and valid from any state. A pending check-in is
// discarded without recording an outcome; its late timer fire is a no-op.
func (m *Manager) StopTracking(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sched.Session().Active {
		return
	}
	m.sched.Stop()
	m.persistFlagsLocked(ctx)
	m.publishLocked(Event{Type: EventStopped, At: m.now()})
}

// OnLocationTick feeds one location sample through the scheduler. Arrival
// ends the session; a due check-in arms a timeout deadline.
func (m *Manager) OnLocationTick(ctx context.Context, lat, lng float64, address string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sched.Session().Active {
		return
	}
	m.lastLat, m.lastLng, m.lastAddress = lat, lng, address

	now := m.now()
	switch m.sched.Tick(now, lat, lng, address) {
	case TickArrived:
		m.persistFlagsLocked(ctx)
		m.publishLocked(Event{Type: EventArrivedHome, At: now, Lat: lat, Lng: lng, Address: address})
	case TickCheckInDue:
		p := m.sched.Pending()
		m.persistFlagsLocked(ctx)
		m.publishLocked(Event{
			Type:      EventCheckInDue,
			At:        now,
			Index:     p.Index,
			TimeoutAt: p.TimeoutAt,
			Lat:       lat,
			Lng:       lng,
			Address:   address,
		})
		index := p.Index
		m.after(p.TimeoutAt.Sub(now), func() { m.onCheckInTimeout(index) })
	}
}

// OnCheckInResponse resolves the pending check-in exactly once. Stale
// indices, duplicate responses, and responses after stop are ignored.
func (m *Manager) OnCheckInResponse(ctx context.Context, index int, outcome history.Outcome, lat, lng float64, address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveLocked(ctx, index, outcome, lat, lng, address)
}

// MarkSafeFromExternalSource records a SAFE response from outside the normal
// UI (a system notification action) through the same single-resolution path.
func (m *Manager) MarkSafeFromExternalSource(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.sched.Pending()
	if p == nil {
		return false
	}
	return m.resolveLocked(ctx, p.Index, history.OutcomeSafe, m.lastLat, m.lastLng, m.lastAddress)
}

// TriggerEmergency is the external trigger path (voice guard). It hits the
// gate directly, bypassing the scheduler, and observes the same idempotency
// contract.
func (m *Manager) TriggerEmergency(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.escalateLocked(ctx, m.lastLat, m.lastLng, m.lastAddress)
}

// Snapshot returns the read-only observable state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.sched.Session()
	return Snapshot{
		IsTracking:       sess.Active,
		State:            m.sched.State().String(),
		StartedAt:        sess.StartedAt,
		CheckInCount:     m.checkInCount,
		NextCheckInDueAt: sess.NextCheckInDueAt,
		Pending:          m.sched.Pending(),
	}
}

// History returns the persisted check-in history, newest first.
func (m *Manager) History() []history.Record {
	return m.store.History()
}

func (m *Manager) onCheckInTimeout(index int) {
	ctx := context.Background()
	m.mu.Lock()
	defer m.mu.Unlock()
	// A response or stop that won the race makes the fired timer a no-op.
	m.resolveLocked(ctx, index, history.OutcomeTimeout, 0, 0, "")
}

// resolveLocked is the single resolution path for explicit responses,
// notification actions, and timeouts. The pending check-in's own
// first-writer-wins flag decides races; losers return false with no effect.
func (m *Manager) resolveLocked(ctx context.Context, index int, outcome history.Outcome, lat, lng float64, address string) bool {
	if !m.sched.Session().Active {
		return false
	}
	p := m.sched.Pending()
	if p == nil || p.Index != index {
		return false
	}
	if !p.ClaimResponse() {
		return false
	}
	m.sched.Resolve(index)

	if lat == 0 && lng == 0 {
		lat, lng, address = p.Lat, p.Lng, p.Address
	}
	record := history.Record{
		Timestamp: m.now(),
		Outcome:   outcome,
		Lat:       lat,
		Lng:       lng,
		Address:   address,
	}
	m.store.Append(ctx, record)
	m.checkInCount++
	m.persistFlagsLocked(ctx)
	m.publishLocked(Event{
		Type:    EventCheckInDone,
		At:      record.Timestamp,
		Index:   index,
		Outcome: string(outcome),
		Lat:     lat,
		Lng:     lng,
		Address: address,
	})

	if outcome != history.OutcomeSafe {
		m.escalateLocked(ctx, lat, lng, address)
	}
	return true
}

// escalateLocked dispatches the emergency side effects at most once per
// session and stops tracking. The alert and the call are independent and run
// concurrently; a failure in one never delays the other.
func (m *Manager) escalateLocked(ctx context.Context, lat, lng float64, address string) bool {
	if !m.gate.TryTrigger() {
		return false
	}

	m.publishLocked(Event{Type: EventEscalated, At: m.now(), Lat: lat, Lng: lng, Address: address})

	userID := m.userID
	number := m.policy.EmergencyNumber
	if m.alerts != nil {
		alerts := m.alerts
		go func() {
			if err := alerts.SendEmergencyAlert(context.Background(), userID, lat, lng, address); err != nil {
				log.Printf("emergency alert for %s failed: %v", userID, err)
			}
		}()
	}
	if m.caller != nil {
		caller := m.caller
		go func() {
			if err := caller.PlaceCall(context.Background(), number); err != nil {
				log.Printf("emergency call for %s failed: %v", userID, err)
			}
		}()
	}

	if m.sched.Session().Active {
		m.sched.Stop()
		m.persistFlagsLocked(ctx)
		m.publishLocked(Event{Type: EventStopped, At: m.now()})
	}
	return true
}

func (m *Manager) persistFlagsLocked(ctx context.Context) {
	if m.persist == nil {
		return
	}
	sess := m.sched.Session()
	flags := history.Flags{
		TrackingActive: sess.Active,
		CheckInCount:   m.checkInCount,
		HomeLat:        sess.HomeLat,
		HomeLng:        sess.HomeLng,
	}
	if err := m.persist.SaveFlags(ctx, m.userID, flags); err != nil {
		log.Printf("session flags save for %s failed: %v", m.userID, err)
	}
}

func (m *Manager) publishLocked(event Event) {
	if m.hub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal failed: %v", err)
		return
	}
	m.hub.Broadcast(m.userID, payload)
}
