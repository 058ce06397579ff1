package domain

import "time"

// Role tags one turn of a chat as authored by the user or the assistant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Chat is a conversation thread owned by one user. Messages live in their
// own table keyed by ChatID; list views never load them.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one turn in a chat. Messages are immutable once written;
// insertion order is the conversation order.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Exchange is the result of one send-message cycle: the persisted user
// message, the persisted assistant reply, and the chat title in effect
// after the exchange.
type Exchange struct {
	UserMessage      Message `json:"userMessage"`
	AssistantMessage Message `json:"assistantMessage"`
	Title            string  `json:"title"`
}
