package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/viralforge/economy-bridge/internal/ports"
)

// MemorySecretStore keeps region secrets in process memory under one lock.
type MemorySecretStore struct {
	mu      sync.RWMutex
	secrets map[uuid.UUID]string
}

func NewMemorySecretStore() *MemorySecretStore {
	return &MemorySecretStore{secrets: map[uuid.UUID]string{}}
}

func (s *MemorySecretStore) Get(_ context.Context, regionID uuid.UUID) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.secrets[regionID]
	return secret, ok, nil
}

func (s *MemorySecretStore) Set(_ context.Context, regionID uuid.UUID, secret string) error {
	s.mu.Lock()
	s.secrets[regionID] = secret
	s.mu.Unlock()
	return nil
}

func (s *MemorySecretStore) Clear(_ context.Context, regionID uuid.UUID) error {
	s.mu.Lock()
	delete(s.secrets, regionID)
	s.mu.Unlock()
	return nil
}

var _ ports.SecretStore = (*MemorySecretStore)(nil)
