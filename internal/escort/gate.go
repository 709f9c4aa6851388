package escort

import "sync/atomic"

// EscalationGate guarantees the emergency side effects run at most once per
// session. The timeout path, an explicit "not safe" response, and the voice
// trigger can all race on the same instant; only the compare-and-set winner
// proceeds.
type EscalationGate struct {
	triggered atomic.Bool
}

// TryTrigger returns true only for the caller that flips the gate from
// false to true. Losers perform no side effect.
func (g *EscalationGate) TryTrigger() bool {
	return g.triggered.CompareAndSwap(false, true)
}

// Triggered reports whether the gate already fired.
func (g *EscalationGate) Triggered() bool {
	return g.triggered.Load()
}

// Reset re-arms the gate. Called only when a new session starts.
func (g *EscalationGate) Reset() {
	g.triggered.Store(false)
}
