package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements MessageStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite message store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
			message_id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			body TEXT,
			from_me INTEGER NOT NULL DEFAULT 0,
			files TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(chat_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateMessage stores a new chat message. An empty ID is assigned a
// fresh UUID; a zero CreatedAt is set to the current time.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *Message) error {
	if message.ChatID == "" {
		return fmt.Errorf("chat ID cannot be empty")
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	var files sql.NullString
	if len(message.Files) > 0 {
		data, err := json.Marshal(message.Files)
		if err != nil {
			return fmt.Errorf("failed to marshal files: %w", err)
		}
		files = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (message_id, company_id, user_id, chat_id, body, from_me, files, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		message.ID, message.CompanyID, message.UserID, message.ChatID,
		message.Body, message.FromMe, files, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// GetMessage retrieves a message by ID. Returns nil when not found.
func (s *SQLiteStore) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	var msg Message
	var files sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT message_id, company_id, user_id, chat_id, body, from_me, files, created_at
		 FROM chat_messages WHERE message_id = ?`,
		messageID).Scan(&msg.ID, &msg.CompanyID, &msg.UserID, &msg.ChatID,
		&msg.Body, &msg.FromMe, &files, &msg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if files.Valid {
		if err := json.Unmarshal([]byte(files.String), &msg.Files); err != nil {
			return nil, fmt.Errorf("failed to unmarshal files: %w", err)
		}
	}
	return &msg, nil
}

// GetMessages retrieves messages for a chat in chronological order.
func (s *SQLiteStore) GetMessages(ctx context.Context, chatID string, limit int, before string) ([]Message, error) {
	query := `SELECT message_id, company_id, user_id, chat_id, body, from_me, files, created_at
	 FROM chat_messages WHERE chat_id = ?`
	args := []interface{}{chatID}

	if before != "" {
		query += ` AND created_at < (SELECT created_at FROM chat_messages WHERE message_id = ?)`
		args = append(args, before)
	}

	query += ` ORDER BY created_at ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var files sql.NullString
		if err := rows.Scan(&msg.ID, &msg.CompanyID, &msg.UserID, &msg.ChatID,
			&msg.Body, &msg.FromMe, &files, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if files.Valid {
			if err := json.Unmarshal([]byte(files.String), &msg.Files); err != nil {
				return nil, fmt.Errorf("failed to unmarshal files: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of messages stored for a chat.
func (s *SQLiteStore) CountMessages(ctx context.Context, chatID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE chat_id = ?`,
		chatID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
