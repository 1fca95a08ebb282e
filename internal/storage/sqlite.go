package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/channelchat/channelchat/internal/core"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStorage{
		db:   db,
		path: dbPath,
	}, nil
}

// Initialize creates the database schema.
func (s *SQLiteStorage) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		credits INTEGER NOT NULL DEFAULT 0,
		chat_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS interests (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS debates (
		id TEXT PRIMARY KEY,
		channel_id_1 TEXT NOT NULL,
		channel_id_2 TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'in_progress',
		topic_title TEXT NOT NULL,
		topic_description TEXT NOT NULL DEFAULT '',
		summary_1 TEXT NOT NULL DEFAULT '',
		summary_2 TEXT NOT NULL DEFAULT '',
		created_by TEXT,
		max_turns INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		concluded_at DATETIME,
		FOREIGN KEY (channel_id_1) REFERENCES channels(id),
		FOREIGN KEY (channel_id_2) REFERENCES channels(id)
	);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		debate_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (debate_id) REFERENCES debates(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS credit_entries (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		kind TEXT NOT NULL,
		debate_id TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_turns_debate_position ON turns(debate_id, position);
	CREATE INDEX IF NOT EXISTS idx_interests_channel_id ON interests(channel_id);
	CREATE INDEX IF NOT EXISTS idx_debates_status ON debates(status);
	CREATE INDEX IF NOT EXISTS idx_debates_created_at ON debates(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_credit_entries_channel_id ON credit_entries(channel_id);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// CreateChannel creates a new channel persona.
func (s *SQLiteStorage) CreateChannel(ch *core.Channel) error {
	query := `
	INSERT INTO channels (id, name, title, credits, chat_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		ch.ID,
		ch.Name,
		ch.Title,
		ch.Credits,
		ch.ChatCount,
		ch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}

	return nil
}

// GetChannel retrieves a channel by ID.
func (s *SQLiteStorage) GetChannel(id string) (*core.Channel, error) {
	query := `
	SELECT id, name, title, credits, chat_count, created_at
	FROM channels
	WHERE id = ?
	`

	var ch core.Channel
	err := s.db.QueryRow(query, id).Scan(
		&ch.ID,
		&ch.Name,
		&ch.Title,
		&ch.Credits,
		&ch.ChatCount,
		&ch.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return &ch, nil
}

// ListChannels returns channels ordered by creation time.
func (s *SQLiteStorage) ListChannels(limit, offset int) ([]*core.Channel, error) {
	query := `
	SELECT id, name, title, credits, chat_count, created_at
	FROM channels
	ORDER BY created_at DESC
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []*core.Channel
	for rows.Next() {
		var ch core.Channel
		err := rows.Scan(
			&ch.ID,
			&ch.Name,
			&ch.Title,
			&ch.Credits,
			&ch.ChatCount,
			&ch.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, &ch)
	}

	return channels, nil
}

// AdjustChannelCredits applies a signed delta to a channel's credit balance.
func (s *SQLiteStorage) AdjustChannelCredits(id string, delta int) error {
	result, err := s.db.Exec("UPDATE channels SET credits = credits + ? WHERE id = ?", delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust credits: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("channel %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// IncrementChatCount adds to a channel's chat counter.
func (s *SQLiteStorage) IncrementChatCount(id string, delta int) error {
	result, err := s.db.Exec("UPDATE channels SET chat_count = chat_count + ? WHERE id = ?", delta, id)
	if err != nil {
		return fmt.Errorf("failed to increment chat count: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("channel %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// AddInterest persists an interest record for a channel.
func (s *SQLiteStorage) AddInterest(in *core.Interest) error {
	query := `
	INSERT INTO interests (id, channel_id, title, description, created_at)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		in.ID,
		in.ChannelID,
		in.Title,
		in.Description,
		in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interest: %w", err)
	}

	return nil
}

// GetInterests returns up to limit interests for a channel.
func (s *SQLiteStorage) GetInterests(channelID string, limit int) ([]*core.Interest, error) {
	query := `
	SELECT id, channel_id, title, description, created_at
	FROM interests
	WHERE channel_id = ?
	ORDER BY created_at ASC
	LIMIT ?
	`

	rows, err := s.db.Query(query, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get interests: %w", err)
	}
	defer rows.Close()

	var interests []*core.Interest
	for rows.Next() {
		var in core.Interest
		err := rows.Scan(
			&in.ID,
			&in.ChannelID,
			&in.Title,
			&in.Description,
			&in.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interest: %w", err)
		}
		interests = append(interests, &in)
	}

	return interests, nil
}

// CreateDebate creates a new debate.
func (s *SQLiteStorage) CreateDebate(debate *core.Debate) error {
	query := `
	INSERT INTO debates (id, channel_id_1, channel_id_2, status, topic_title, topic_description, summary_1, summary_2, created_by, max_turns, created_at, updated_at, concluded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var createdBy *string
	if debate.CreatedBy != "" {
		createdBy = &debate.CreatedBy
	}

	_, err := s.db.Exec(query,
		debate.ID,
		debate.ChannelID1,
		debate.ChannelID2,
		debate.Status,
		debate.TopicTitle,
		debate.TopicDescription,
		debate.Summary1,
		debate.Summary2,
		createdBy,
		debate.MaxTurns,
		debate.CreatedAt,
		debate.UpdatedAt,
		debate.ConcludedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert debate: %w", err)
	}

	return nil
}

// GetDebate retrieves a debate by ID.
func (s *SQLiteStorage) GetDebate(id string) (*core.Debate, error) {
	query := `
	SELECT id, channel_id_1, channel_id_2, status, topic_title, topic_description, summary_1, summary_2, created_by, max_turns, created_at, updated_at, concluded_at
	FROM debates
	WHERE id = ?
	`

	var debate core.Debate
	var createdBy sql.NullString
	var concludedAt sql.NullTime

	err := s.db.QueryRow(query, id).Scan(
		&debate.ID,
		&debate.ChannelID1,
		&debate.ChannelID2,
		&debate.Status,
		&debate.TopicTitle,
		&debate.TopicDescription,
		&debate.Summary1,
		&debate.Summary2,
		&createdBy,
		&debate.MaxTurns,
		&debate.CreatedAt,
		&debate.UpdatedAt,
		&concludedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debate: %w", err)
	}

	if createdBy.Valid {
		debate.CreatedBy = createdBy.String
	}
	if concludedAt.Valid {
		debate.ConcludedAt = &concludedAt.Time
	}

	return &debate, nil
}

// UpdateDebate updates an existing debate.
func (s *SQLiteStorage) UpdateDebate(debate *core.Debate) error {
	debate.UpdatedAt = time.Now()

	query := `
	UPDATE debates
	SET status = ?, summary_1 = ?, summary_2 = ?, max_turns = ?, updated_at = ?, concluded_at = ?
	WHERE id = ?
	`

	_, err := s.db.Exec(query,
		debate.Status,
		debate.Summary1,
		debate.Summary2,
		debate.MaxTurns,
		debate.UpdatedAt,
		debate.ConcludedAt,
		debate.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update debate: %w", err)
	}

	return nil
}

// ListDebates returns a list of debate summaries.
func (s *SQLiteStorage) ListDebates(limit, offset int) ([]*core.DebateSummary, error) {
	query := `
	SELECT d.id, d.topic_title, d.status, d.channel_id_1, d.channel_id_2, d.created_at,
		   (SELECT COUNT(*) FROM turns WHERE debate_id = d.id) as turn_count
	FROM debates d
	ORDER BY d.created_at DESC
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list debates: %w", err)
	}
	defer rows.Close()

	var summaries []*core.DebateSummary
	for rows.Next() {
		var summary core.DebateSummary
		err := rows.Scan(
			&summary.ID,
			&summary.TopicTitle,
			&summary.Status,
			&summary.ChannelID1,
			&summary.ChannelID2,
			&summary.CreatedAt,
			&summary.TurnCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debate summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}

	return summaries, nil
}

// AddTurn appends a turn to a debate. The unique (debate_id, position)
// index is the authoritative guard against concurrent appends reading the
// same turn count; a lost race surfaces as core.ErrInvalidState.
func (s *SQLiteStorage) AddTurn(turn *core.DebateTurn) error {
	query := `
	INSERT INTO turns (id, debate_id, channel_id, position, content, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		turn.ID,
		turn.DebateID,
		turn.ChannelID,
		turn.Position,
		turn.Content,
		turn.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("turn position %d already taken: %w", turn.Position, core.ErrInvalidState)
		}
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	return nil
}

// GetTurns returns all turns for a debate in position order.
func (s *SQLiteStorage) GetTurns(debateID string) ([]*core.DebateTurn, error) {
	query := `
	SELECT id, debate_id, channel_id, position, content, created_at
	FROM turns
	WHERE debate_id = ?
	ORDER BY position ASC
	`

	rows, err := s.db.Query(query, debateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get turns: %w", err)
	}
	defer rows.Close()

	var turns []*core.DebateTurn
	for rows.Next() {
		var turn core.DebateTurn
		err := rows.Scan(
			&turn.ID,
			&turn.DebateID,
			&turn.ChannelID,
			&turn.Position,
			&turn.Content,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, &turn)
	}

	return turns, nil
}

// CountTurns returns the number of turns recorded for a debate.
func (s *SQLiteStorage) CountTurns(debateID string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM turns WHERE debate_id = ?", debateID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return count, nil
}

// AddCreditEntry records one ledger row.
func (s *SQLiteStorage) AddCreditEntry(entry *core.CreditEntry) error {
	query := `
	INSERT INTO credit_entries (id, channel_id, delta, kind, debate_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	var debateID *string
	if entry.DebateID != "" {
		debateID = &entry.DebateID
	}

	_, err := s.db.Exec(query,
		entry.ID,
		entry.ChannelID,
		entry.Delta,
		entry.Kind,
		debateID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert credit entry: %w", err)
	}

	return nil
}

// GetCreditEntries returns the most recent ledger rows for a channel.
func (s *SQLiteStorage) GetCreditEntries(channelID string, limit int) ([]*core.CreditEntry, error) {
	query := `
	SELECT id, channel_id, delta, kind, debate_id, created_at
	FROM credit_entries
	WHERE channel_id = ?
	ORDER BY created_at DESC
	LIMIT ?
	`

	rows, err := s.db.Query(query, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get credit entries: %w", err)
	}
	defer rows.Close()

	var entries []*core.CreditEntry
	for rows.Next() {
		var entry core.CreditEntry
		var debateID sql.NullString
		err := rows.Scan(
			&entry.ID,
			&entry.ChannelID,
			&entry.Delta,
			&entry.Kind,
			&debateID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit entry: %w", err)
		}
		if debateID.Valid {
			entry.DebateID = debateID.String
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "channelchat.db"
	}
	return filepath.Join(home, ".channelchat", "channelchat.db")
}
