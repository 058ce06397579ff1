package store

import (
	"sort"
	"sync"
	"time"

	"inkwise/internal/util"
	"inkwise/pkg/domain"
)

// MemoryStore keeps all records in-process. Used by tests and local runs
// without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User      // user ID -> user
	email    map[string]string           // email -> user ID
	chats    map[string]domain.Chat      // chat ID -> chat
	messages map[string][]domain.Message // chat ID -> ordered messages
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		email:    make(map[string]string),
		chats:    make(map[string]domain.Chat),
		messages: make(map[string][]domain.Message),
	}
}

// SaveUser registers a user. Mirrors the unique email index of the
// Postgres store: a second user with the same email is rejected.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.email[u.Email]; ok && id != u.ID {
		return ErrEmailTaken
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// CreateChat stores a new chat.
func (m *MemoryStore) CreateChat(chat domain.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[chat.ID] = chat
	return nil
}

// ListChats returns a user's chats ordered by last update, newest first.
func (m *MemoryStore) ListChats(userID string) ([]domain.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chats := make([]domain.Chat, 0)
	for _, chat := range m.chats {
		if chat.UserID == userID {
			chats = append(chats, chat)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

// GetChat returns one chat scoped by owner.
func (m *MemoryStore) GetChat(userID, chatID string) (domain.Chat, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chat, ok := m.chats[chatID]
	if !ok || chat.UserID != userID {
		return domain.Chat{}, false, nil
	}
	return chat, true, nil
}

// RenameChat updates the title of an owned chat.
func (m *MemoryStore) RenameChat(userID, chatID, title string, updatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok || chat.UserID != userID {
		return false, nil
	}
	chat.Title = title
	chat.UpdatedAt = updatedAt.UTC()
	m.chats[chatID] = chat
	return true, nil
}

// DeleteChat removes an owned chat and its messages.
func (m *MemoryStore) DeleteChat(userID, chatID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok || chat.UserID != userID {
		return false, nil
	}
	delete(m.chats, chatID)
	delete(m.messages, chatID)
	return true, nil
}

// ListMessages returns a chat's messages in conversation order.
func (m *MemoryStore) ListMessages(chatID string) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[chatID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// CountMessages returns the number of messages in a chat.
func (m *MemoryStore) CountMessages(chatID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.messages[chatID])), nil
}

// AppendExchange records the user/assistant pair, title, and updated_at
// under one lock so a partial exchange is never observable.
func (m *MemoryStore) AppendExchange(chatID string, userMsg, assistantMsg domain.Message, title string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return ErrChatNotFound
	}
	m.messages[chatID] = append(m.messages[chatID], userMsg, assistantMsg)
	chat.Title = title
	chat.UpdatedAt = updatedAt.UTC()
	m.chats[chatID] = chat
	return nil
}

// MemorySessionStore keeps session tokens in-process.
type MemorySessionStore struct {
	mu   sync.RWMutex
	sess map[string]string // token -> user ID
}

// NewMemorySessionStore initializes an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sess: make(map[string]string)}
}

// NewSession creates a session token for a user.
func (m *MemorySessionStore) NewSession(userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := util.NewID()
	m.sess[token] = userID
	return token, nil
}

// GetUserIDByToken resolves token to user ID.
func (m *MemorySessionStore) GetUserIDByToken(token string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.sess[token]
	return uid, ok, nil
}

// DeleteSession removes a token mapping.
func (m *MemorySessionStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, token)
	return nil
}
