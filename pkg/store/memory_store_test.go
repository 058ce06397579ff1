package store

import (
	"errors"
	"testing"
	"time"

	"inkwise/pkg/domain"
)

func seedChat(t *testing.T, m *MemoryStore, userID, chatID string, updatedAt time.Time) {
	t.Helper()
	if err := m.CreateChat(domain.Chat{
		ID:        chatID,
		UserID:    userID,
		Title:     "New Chat",
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}); err != nil {
		t.Fatalf("create chat: %v", err)
	}
}

func TestMemoryStoreListChatsOrdersByUpdatedAtDesc(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedChat(t, m, "user-1", "chat-old", base)
	seedChat(t, m, "chat-owner-2", "chat-foreign", base.Add(time.Hour))
	seedChat(t, m, "user-1", "chat-new", base.Add(2*time.Hour))

	chats, err := m.ListChats("user-1")
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(chats))
	}
	if chats[0].ID != "chat-new" || chats[1].ID != "chat-old" {
		t.Fatalf("unexpected order: %s, %s", chats[0].ID, chats[1].ID)
	}
}

func TestMemoryStoreScopesChatAccessByOwner(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now().UTC()
	seedChat(t, m, "owner", "chat-1", now)

	if _, ok, _ := m.GetChat("intruder", "chat-1"); ok {
		t.Fatal("chat must not resolve for a different user")
	}
	if ok, _ := m.RenameChat("intruder", "chat-1", "stolen", now); ok {
		t.Fatal("rename must not match a foreign chat")
	}
	if ok, _ := m.DeleteChat("intruder", "chat-1"); ok {
		t.Fatal("delete must not match a foreign chat")
	}
	if _, ok, _ := m.GetChat("owner", "chat-1"); !ok {
		t.Fatal("owner lost access to own chat")
	}
}

func TestMemoryStoreAppendExchangeKeepsOrderAndUpdatesChat(t *testing.T) {
	m := NewMemoryStore()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedChat(t, m, "user-1", "chat-1", created)

	sentAt := created.Add(time.Minute)
	userMsg := domain.Message{ID: "m1", ChatID: "chat-1", Role: domain.RoleUser, Content: "hello", CreatedAt: sentAt}
	assistantMsg := domain.Message{ID: "m2", ChatID: "chat-1", Role: domain.RoleAssistant, Content: "hi", CreatedAt: sentAt}
	if err := m.AppendExchange("chat-1", userMsg, assistantMsg, "hello", sentAt); err != nil {
		t.Fatalf("append exchange: %v", err)
	}

	msgs, err := m.ListMessages("chat-1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	count, err := m.CountMessages("chat-1")
	if err != nil || count != 2 {
		t.Fatalf("expected count 2, got %d (%v)", count, err)
	}
	chat, ok, _ := m.GetChat("user-1", "chat-1")
	if !ok {
		t.Fatal("chat missing after exchange")
	}
	if chat.Title != "hello" {
		t.Fatalf("title not updated: %q", chat.Title)
	}
	if !chat.UpdatedAt.Equal(sentAt) {
		t.Fatalf("updated_at not refreshed: %v", chat.UpdatedAt)
	}
}

func TestMemoryStoreDeleteChatRemovesMessages(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now().UTC()
	seedChat(t, m, "user-1", "chat-1", now)
	userMsg := domain.Message{ID: "m1", ChatID: "chat-1", Role: domain.RoleUser, Content: "hello", CreatedAt: now}
	assistantMsg := domain.Message{ID: "m2", ChatID: "chat-1", Role: domain.RoleAssistant, Content: "hi", CreatedAt: now}
	if err := m.AppendExchange("chat-1", userMsg, assistantMsg, "hello", now); err != nil {
		t.Fatalf("append exchange: %v", err)
	}

	ok, err := m.DeleteChat("user-1", "chat-1")
	if err != nil || !ok {
		t.Fatalf("delete chat: ok=%v err=%v", ok, err)
	}
	msgs, _ := m.ListMessages("chat-1")
	if len(msgs) != 0 {
		t.Fatalf("messages survived delete: %d", len(msgs))
	}
	if ok, _ := m.DeleteChat("user-1", "chat-1"); ok {
		t.Fatal("second delete should report not found")
	}
}

func TestMemoryStoreAppendExchangeMissingChat(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now().UTC()
	userMsg := domain.Message{ID: "m1", ChatID: "gone", Role: domain.RoleUser, Content: "hello", CreatedAt: now}
	assistantMsg := domain.Message{ID: "m2", ChatID: "gone", Role: domain.RoleAssistant, Content: "hi", CreatedAt: now}

	err := m.AppendExchange("gone", userMsg, assistantMsg, "hello", now)
	if !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got: %v", err)
	}
	if msgs, _ := m.ListMessages("gone"); len(msgs) != 0 {
		t.Fatalf("exchange persisted against a missing chat: %d messages", len(msgs))
	}
}

func TestMemoryStoreEqualTimestampsKeepInsertionOrder(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now().UTC()
	seedChat(t, m, "user-1", "chat-1", now)
	// Disabled-writer exchanges stamp both messages with the same instant.
	userMsg := domain.Message{ID: "m1", ChatID: "chat-1", Role: domain.RoleUser, Content: "topic", CreatedAt: now}
	assistantMsg := domain.Message{ID: "m2", ChatID: "chat-1", Role: domain.RoleAssistant, Content: "reply", CreatedAt: now}
	if err := m.AppendExchange("chat-1", userMsg, assistantMsg, "topic", now); err != nil {
		t.Fatalf("append exchange: %v", err)
	}

	msgs, err := m.ListMessages("chat-1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("insertion order lost on equal timestamps: %+v", msgs)
	}
}

func TestMemoryStoreEmailLookup(t *testing.T) {
	m := NewMemoryStore()
	u := domain.User{ID: "user-1", Name: "Ada", Email: "ada@example.com", CreatedAt: time.Now().UTC()}
	if err := m.SaveUser(u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	exists, err := m.HasUserEmail("ada@example.com")
	if err != nil || !exists {
		t.Fatalf("expected email to exist: %v", err)
	}
	got, ok, _ := m.GetUserByEmail("ada@example.com")
	if !ok || got.ID != "user-1" {
		t.Fatalf("unexpected lookup result: ok=%v id=%q", ok, got.ID)
	}
	if _, ok, _ := m.GetUserByEmail("nobody@example.com"); ok {
		t.Fatal("unknown email resolved")
	}
}

func TestMemoryStoreSaveUserRejectsDuplicateEmail(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now().UTC()
	if err := m.SaveUser(domain.User{ID: "user-1", Name: "Ada", Email: "ada@example.com", CreatedAt: now}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	err := m.SaveUser(domain.User{ID: "user-2", Name: "Imposter", Email: "ada@example.com", CreatedAt: now})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got: %v", err)
	}
	// The original mapping survives the rejected write.
	got, ok, _ := m.GetUserByEmail("ada@example.com")
	if !ok || got.ID != "user-1" {
		t.Fatalf("email index corrupted: ok=%v id=%q", ok, got.ID)
	}
}
