package roles

import (
	"context"
	"sort"
	"sync"

	"donorhub/internal/session"
)

// InMemory keeps administrator membership in process. Used when Redis is not
// configured and in tests.
type InMemory struct {
	mu     sync.RWMutex
	admins map[string]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{admins: make(map[string]struct{})}
}

func (s *InMemory) Role(_ context.Context, identityID string) (session.Role, error) {
	identityID, err := normalize(identityID)
	if err != nil {
		return session.RoleNone, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.admins[identityID]; ok {
		return session.RoleAdministrator, nil
	}
	return session.RoleOrdinary, nil
}

func (s *InMemory) Grant(_ context.Context, identityID string) error {
	identityID, err := normalize(identityID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[identityID] = struct{}{}
	return nil
}

func (s *InMemory) Revoke(_ context.Context, identityID string) error {
	identityID, err := normalize(identityID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.admins, identityID)
	return nil
}

func (s *InMemory) Administrators(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.admins))
	for id := range s.admins {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
