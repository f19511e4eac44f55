//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_chat_store.go -package=mocks -mock_names=Store=MockChatStore
package chat

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// Store persists conversations and messages. ListMessages returns the
// non-deleted messages of one conversation, oldest first.
type Store interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, ownerID string) ([]Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, m *Message) error
	GetMessage(ctx context.Context, conversationID, id string) (*Message, error)
	UpdateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error
	CountUnread(ctx context.Context, conversationID, userID string, readerIsAdmin bool) (int, error)
}

type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	messages      map[string][]Message
	reads         map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]Conversation),
		messages:      make(map[string][]Message),
		reads:         make(map[string]time.Time),
	}
}

func readKey(conversationID, userID string) string { return conversationID + "|" + userID }

func (s *MemoryStore) CreateConversation(_ context.Context, c *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = *c
	return nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ListConversations returns every conversation when ownerID is empty.
func (s *MemoryStore) ListConversations(_ context.Context, ownerID string) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Conversation{}
	for _, c := range s.conversations {
		if ownerID == "" || c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Conversation) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	for k := range s.reads {
		if strings.HasPrefix(k, id+"|") {
			delete(s.reads, k)
		}
	}
	return nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[m.ConversationID]
	if !ok {
		return ErrNotFound
	}
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], *m)
	c.UpdatedAt = m.CreatedAt
	s.conversations[c.ID] = c
	return nil
}

func (s *MemoryStore) GetMessage(_ context.Context, conversationID, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages[conversationID] {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateMessage(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messages[m.ConversationID]
	for i := range list {
		if list[i].ID == m.ID {
			list[i].Message = m.Message
			list[i].Status = m.Status
			list[i].UpdatedAt = m.UpdatedAt
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ListMessages(_ context.Context, conversationID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Message{}
	for _, m := range s.messages[conversationID] {
		if m.Status != StatusDeleted {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b Message) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, conversationID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return ErrNotFound
	}
	s.reads[readKey(conversationID, userID)] = at
	return nil
}

// CountUnread counts messages from the other side newer than the reader's
// last read position.
func (s *MemoryStore) CountUnread(_ context.Context, conversationID, userID string, readerIsAdmin bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last := s.reads[readKey(conversationID, userID)]
	n := 0
	for _, m := range s.messages[conversationID] {
		if m.Status == StatusDeleted || m.SenderIsAdmin == readerIsAdmin {
			continue
		}
		if m.CreatedAt.After(last) {
			n++
		}
	}
	return n, nil
}
