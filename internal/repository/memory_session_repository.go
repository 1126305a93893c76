package repository

import (
	"context"
	"sync"

	"decision-server/internal/model"
)

var _ SessionRepository = (*memorySessionRepository)(nil)

// memorySessionRepository держит снимки в памяти процесса. Хранит сериализованные байты,
// поэтому вызывающий код никогда не делит с хранилищем один и тот же объект.
type memorySessionRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemorySessionRepository создаёт хранилище в памяти.
func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{data: make(map[string][]byte)}
}

func (r *memorySessionRepository) Save(_ context.Context, s *model.Session) error {
	data, err := encodeSnapshot(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.data[s.ID] = data
	r.mu.Unlock()
	return nil
}

func (r *memorySessionRepository) Get(_ context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	data, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return decodeSnapshot(id, data)
}

func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.data, id)
	r.mu.Unlock()
	return nil
}
