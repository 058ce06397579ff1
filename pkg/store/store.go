package store

import (
	"errors"
	"time"

	"inkwise/pkg/domain"
)

// ErrChatNotFound reports an append against a chat that no longer exists,
// e.g. deleted between the caller's lookup and the write.
var ErrChatNotFound = errors.New("chat not found")

// ErrEmailTaken reports a SaveUser that lost a duplicate-email race to the
// unique index.
var ErrEmailTaken = errors.New("email already registered")

// Store defines persistence operations for users, chats, and messages.
// Chat lookups always filter by owning user id; a chat id alone never
// authorizes access.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// chats
	CreateChat(domain.Chat) error
	ListChats(userID string) ([]domain.Chat, error)
	GetChat(userID, chatID string) (domain.Chat, bool, error)
	RenameChat(userID, chatID, title string, updatedAt time.Time) (bool, error)
	DeleteChat(userID, chatID string) (bool, error)

	// messages
	ListMessages(chatID string) ([]domain.Message, error)
	CountMessages(chatID string) (int64, error)

	// AppendExchange durably records one user/assistant message pair,
	// updates the chat title, and refreshes updated_at in a single atomic
	// update. A chat is never visible with a user message and no reply.
	AppendExchange(chatID string, userMsg, assistantMsg domain.Message, title string, updatedAt time.Time) error
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
