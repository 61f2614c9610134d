package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/gogo/tutor/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single connection: in-memory databases are per connection and SQLite has one writer.
	// Concurrent callers queue on the pool instead of failing with "database is locked".
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_conversation_seq ON messages(conversation_id, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Columns added after the first schema (SQLite has limited ALTER TABLE support).
	if err := s.ensureColumn("messages", "type", "ALTER TABLE messages ADD COLUMN type TEXT"); err != nil {
		return err
	}
	if err := s.ensureColumn("messages", "payload", "ALTER TABLE messages ADD COLUMN payload TEXT"); err != nil {
		return err
	}

	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateConversation inserts the conversation unless its ID already exists.
// It always returns the stored record; created reports whether this call inserted it.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error) {
	if conv.ConversationID == "" {
		conv.ConversationID = uuid.New().String()
	}
	if conv.State.DifficultyLevel == "" {
		conv.State = domain.NewState()
	}
	state, err := json.Marshal(conv.State)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal state: %w", err)
	}
	now := s.now()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, user_id, title, description, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(conversation_id) DO NOTHING`,
		conv.ConversationID, conv.UserID, conv.Title, conv.Description, string(state), now, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	stored, err := s.GetConversation(ctx, conv.ConversationID)
	if err != nil {
		return nil, false, err
	}
	return stored, affected == 1, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, user_id, title, description, state, created_at, updated_at
		 FROM conversations WHERE conversation_id = ?`, conversationID)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns a user's conversations, most recently active first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, user_id, title, description, state, created_at, updated_at
		 FROM conversations WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	convs := []domain.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var conv domain.Conversation
	var state string
	if err := row.Scan(&conv.ConversationID, &conv.UserID, &conv.Title, &conv.Description, &state, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(state), &conv.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if conv.State.QuestionHistory == nil {
		conv.State.QuestionHistory = []domain.AnswerResult{}
	}
	return &conv, nil
}

// AppendMessage adds a message to the end of the conversation log and bumps updated_at.
// MessageID, Seq and Timestamp are assigned here when empty.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	var msgType sql.NullString
	if msg.Type != nil {
		msgType = sql.NullString{String: string(*msg.Type), Valid: true}
	}
	var payload sql.NullString
	if msg.Payload != nil {
		b, err := json.Marshal(msg.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payload = sql.NullString{String: string(b), Valid: true}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE conversations SET updated_at = ? WHERE conversation_id = ?`,
			s.now(), msg.ConversationID)
		if err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?`,
			msg.ConversationID).Scan(&msg.Seq); err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (message_id, conversation_id, seq, sender, content, type, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.MessageID, msg.ConversationID, msg.Seq, msg.Sender, msg.Content, msgType, payload, msg.Timestamp); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		return nil
	})
}

// History returns the most recent limit messages, oldest first. A non-positive limit returns all.
func (s *SQLiteStore) History(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, conversation_id, seq, sender, content, type, payload, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq DESC`
	args := []interface{}{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var msgType, payload sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.Seq, &msg.Sender, &msg.Content, &msgType, &payload, &msg.Timestamp); err != nil {
			return nil, err
		}
		if msgType.Valid {
			t := domain.ResponseType(msgType.String)
			msg.Type = &t
		}
		if payload.Valid {
			var p domain.MessagePayload
			if err := json.Unmarshal([]byte(payload.String), &p); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload of %s: %w", msg.MessageID, err)
			}
			msg.Payload = &p
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// GetState retrieves the learning state of a conversation.
func (s *SQLiteStore) GetState(ctx context.Context, conversationID string) (*domain.State, error) {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &conv.State, nil
}

// UpdateState applies a field-level patch to the state.
func (s *SQLiteStore) UpdateState(ctx context.Context, conversationID string, patch domain.StatePatch) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		state, err := s.loadStateTx(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		if patch.CurrentTopic != nil {
			topic := *patch.CurrentTopic
			state.CurrentTopic = &topic
		}
		if patch.DifficultyLevel != nil {
			state.DifficultyLevel = *patch.DifficultyLevel
		}
		return s.saveStateTx(ctx, tx, conversationID, state)
	})
}

// RecordAnswerResult appends the result, bumps the matching counter and re-evaluates difficulty.
// It returns false when the conversation does not exist.
func (s *SQLiteStore) RecordAnswerResult(ctx context.Context, conversationID string, result domain.AnswerResult) (bool, error) {
	if result.Timestamp.IsZero() {
		result.Timestamp = s.now()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		state, err := s.loadStateTx(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		state.QuestionHistory = append(state.QuestionHistory, result)
		if result.WasCorrect {
			state.CorrectAnswers++
		} else {
			state.IncorrectAnswers++
		}
		state.DifficultyLevel = domain.AdaptDifficulty(state.DifficultyLevel, state.QuestionHistory)
		return s.saveStateTx(ctx, tx, conversationID, state)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) loadStateTx(ctx context.Context, tx *sql.Tx, conversationID string) (*domain.State, error) {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT state FROM conversations WHERE conversation_id = ?`, conversationID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	var state domain.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

func (s *SQLiteStore) saveStateTx(ctx context.Context, tx *sql.Tx, conversationID string, state *domain.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET state = ?, updated_at = ? WHERE conversation_id = ?`,
		string(raw), s.now(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
