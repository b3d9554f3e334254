package roadmap

import (
	"context"
	"slices"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Item),
	}
}

func (s *MemoryStore) Create(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID] = cloneItem(item)
	return nil
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Item, 0)
	for _, item := range s.items {
		if item.UserID == userID {
			result = append(result, cloneItem(item))
		}
	}
	sortNewestFirst(result)

	return result, nil
}

func (s *MemoryStore) Count(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, item := range s.items {
		if item.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Get(_ context.Context, userID, id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok || !ownedBy(&item, userID) {
		return Item{}, ErrNotFound
	}
	return cloneItem(item), nil
}

func (s *MemoryStore) Update(_ context.Context, userID, id string, mutate func(*Item)) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || !ownedBy(&item, userID) {
		return Item{}, ErrNotFound
	}

	item = cloneItem(item)
	mutate(&item)
	s.items[id] = item

	return cloneItem(item), nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || !ownedBy(&item, userID) {
		return ErrNotFound
	}

	delete(s.items, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// cloneItem detaches the slices so callers cannot mutate stored state.
func cloneItem(item Item) Item {
	item.Skills = slices.Clone(item.Skills)
	item.Resources = slices.Clone(item.Resources)
	return item
}
