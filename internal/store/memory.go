package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps records in insertion order. Every value going in or out is
// cloned, so handlers can only change stored state through Update.
type Memory[T Record[T]] struct {
	mu      sync.RWMutex
	records []T
}

func NewMemory[T Record[T]]() *Memory[T] {
	return &Memory[T]{}
}

func (m *Memory[T]) List(ctx context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *Memory[T]) Get(ctx context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.indexOf(id); i >= 0 {
		return m.records[i].Clone(), nil
	}
	var zero T
	return zero, fmt.Errorf("get %s: %w", id, ErrNotFound)
}

func (m *Memory[T]) Create(ctx context.Context, record T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(record.Key()) >= 0 {
		return fmt.Errorf("create %s: %w", record.Key(), ErrConflict)
	}
	m.records = append(m.records, record.Clone())
	return nil
}

func (m *Memory[T]) Update(ctx context.Context, record T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(record.Key())
	if i < 0 {
		return fmt.Errorf("update %s: %w", record.Key(), ErrNotFound)
	}
	m.records[i] = record.Clone()
	return nil
}

func (m *Memory[T]) Delete(ctx context.Context, id string) error {
	return m.DeleteIf(ctx, id, nil)
}

// DeleteIf removes the record only if cond accepts it, checking and removing
// under one lock. A nil cond accepts every record.
func (m *Memory[T]) DeleteIf(ctx context.Context, id string, cond func(T) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	if cond != nil && !cond(m.records[i].Clone()) {
		return fmt.Errorf("delete %s: %w", id, ErrPrecondition)
	}
	m.records = append(m.records[:i], m.records[i+1:]...)
	return nil
}

// indexOf must be called with mu held.
func (m *Memory[T]) indexOf(id string) int {
	for i, r := range m.records {
		if r.Key() == id {
			return i
		}
	}
	return -1
}
