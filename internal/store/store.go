package store

import (
	"context"
	"time"
)

// File describes a stored media attachment on a message.
type File struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	MIME     string  `json:"mime"`
	Size     int64   `json:"size"`
	IsAudio  bool    `json:"is_audio"`
	Duration float64 `json:"duration,omitempty"`

	// UniversalCompatible is true only when the server transcoded the
	// file into the broadly playable audio container.
	UniversalCompatible bool `json:"universal_compatible,omitempty"`
}

// Message is a chat message with optional media attachments.
type Message struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	UserID    string    `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	Body      string    `json:"body,omitempty"`
	FromMe    bool      `json:"from_me"`
	Files     []File    `json:"files,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageStore persists chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, message *Message) error
	GetMessage(ctx context.Context, messageID string) (*Message, error)
	GetMessages(ctx context.Context, chatID string, limit int, before string) ([]Message, error)
	CountMessages(ctx context.Context, chatID string) (int64, error)
	Close() error
}
