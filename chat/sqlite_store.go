package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aschepis/chatkit/llm"
)

// SQLiteStore persists conversation messages in SQLite. Message parts and
// metadata are stored as JSON columns. Appends use INSERT OR IGNORE keyed
// on the message id so a retried turn cannot duplicate rows.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

const messagesSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role            TEXT NOT NULL,
	parts           TEXT NOT NULL,
	metadata        TEXT,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
`

// NewSQLiteStore opens (or creates) a message store at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(messagesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// AppendMessage implements Store.AppendMessage.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	partsJSON, err := json.Marshal(msg.Parts)
	if err != nil {
		return fmt.Errorf("marshal parts: %w", err)
	}
	metadataJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := sq.Insert("messages").
		Columns("id", "conversation_id", "role", "parts", "metadata", "created_at").
		Values(msg.ID, msg.ConversationID, string(msg.Role), string(partsJSON), string(metadataJSON), msg.CreatedAt.UnixNano())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	// SQLite requires "OR IGNORE" after "INSERT", so rewrite the statement.
	queryStr = strings.Replace(queryStr, "INSERT INTO", "INSERT OR IGNORE INTO", 1)

	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

// Messages implements Store.Messages, oldest first.
func (s *SQLiteStore) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	query := sq.Select("id", "role", "parts", "metadata", "created_at").
		From("messages").
		Where(sq.Eq{"conversation_id": conversationID}).
		OrderBy("created_at", "rowid")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			msg          Message
			role         string
			partsJSON    string
			metadataJSON sql.NullString
			createdAt    int64
		)
		if err := rows.Scan(&msg.ID, &role, &partsJSON, &metadataJSON, &createdAt); err != nil {
			return nil, err
		}
		msg.ConversationID = conversationID
		msg.Role = llm.Role(role)
		msg.CreatedAt = time.Unix(0, createdAt)
		if err := json.Unmarshal([]byte(partsJSON), &msg.Parts); err != nil {
			msg.Parts = nil
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &msg.Metadata); err != nil {
				msg.Metadata = nil
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
