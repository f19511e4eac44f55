//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_notification_store.go -package=mocks -mock_names=Store=MockNotificationStore
package notification

import (
	"context"
	"slices"
	"sync"
)

// Store persists notifications. ListByUser returns newest first.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	Count(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) error
}

// MemoryStore keeps notifications in process. It backs single-instance
// deployments without DB_DSN and the package tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]Notification)}
}

func (s *MemoryStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[n.UserID] = append(s.items[n.UserID], *n)
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.items[userID])
	slices.SortStableFunc(out, func(a, b Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if out == nil {
		out = []Notification{}
	}
	return out, nil
}

func (s *MemoryStore) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.items[userID] {
		if !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Count(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items[userID]), nil
}

func (s *MemoryStore) MarkRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[userID]
	for i := range items {
		if items[i].ID == id {
			items[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) MarkAllRead(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[userID]
	for i := range items {
		items[i].IsRead = true
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[userID]
	idx := slices.IndexFunc(items, func(n Notification) bool { return n.ID == id })
	if idx < 0 {
		return ErrNotFound
	}
	s.items[userID] = slices.Delete(items, idx, idx+1)
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, userID)
	return nil
}
