package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
)

// MemorySnapshotRepo keeps snapshots in process memory.
// Used for local development and as the default store; contents are lost on
// restart.
type MemorySnapshotRepo struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemorySnapshotRepo returns an empty in-memory repo.
func NewMemorySnapshotRepo() *MemorySnapshotRepo {
	return &MemorySnapshotRepo{data: map[string][]byte{}}
}

func (m *MemorySnapshotRepo) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("repo.MemorySnapshotRepo.Load: %w", domain.ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (m *MemorySnapshotRepo) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemorySnapshotRepo) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Len returns the number of stored snapshots.
func (m *MemorySnapshotRepo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
