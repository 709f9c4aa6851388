package escort

import (
	"context"
	"sync"

	"github.com/Yamuna-Lakshmanan/HelpNow/internal/history"
)

// Service hands out one Manager per user. Managers are created lazily and
// load their persisted history on first use.
type Service struct {
	policy  Policy
	persist history.Persistence
	hub     Broadcaster
	alerts  AlertDispatcher
	caller  EmergencyCaller

	mu       sync.Mutex
	managers map[string]*Manager
}

func NewService(policy Policy, persist history.Persistence, hub Broadcaster, alerts AlertDispatcher, caller EmergencyCaller) *Service {
	return &Service{
		policy:   policy,
		persist:  persist,
		hub:      hub,
		alerts:   alerts,
		caller:   caller,
		managers: map[string]*Manager{},
	}
}

// ManagerFor returns the user's session manager, creating it on first use.
func (s *Service) ManagerFor(ctx context.Context, userID string) *Manager {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.managers[userID]; ok {
		return m
	}
	store := history.NewStore(ctx, userID, s.persist)
	m := NewManager(userID, s.policy, store, s.persist, s.hub, s.alerts, s.caller)
	s.managers[userID] = m
	return m
}
