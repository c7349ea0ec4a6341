package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists sessions and long-term user profiles.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates/opens the memory database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create memory db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process bot. One shared connection avoids writer lock contention
	// with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA temp_store=MEMORY;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			started_at_ms INTEGER NOT NULL,
			last_interaction_ms INTEGER NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			summary TEXT NOT NULL DEFAULT '',
			PRIMARY KEY(user_id, conversation_id)
		);`,
		`CREATE INDEX IF NOT EXISTS sessions_idle_idx ON sessions(last_interaction_ms);`,
		`CREATE TABLE IF NOT EXISTS session_messages (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS session_messages_scope_idx ON session_messages(user_id, conversation_id, created_at_ms, id);`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			preferred_nickname TEXT NOT NULL DEFAULT '',
			first_seen_ms INTEGER NOT NULL,
			last_seen_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_facts (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			relevance REAL NOT NULL DEFAULT 0.5,
			usage_count INTEGER NOT NULL DEFAULT 0,
			last_used_ms INTEGER NOT NULL DEFAULT 0,
			created_at_ms INTEGER NOT NULL,
			PRIMARY KEY(user_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			pref_type TEXT NOT NULL,
			item TEXT NOT NULL,
			relevance REAL NOT NULL DEFAULT 0.5,
			confirm_count INTEGER NOT NULL DEFAULT 0,
			last_used_ms INTEGER NOT NULL DEFAULT 0,
			created_at_ms INTEGER NOT NULL,
			PRIMARY KEY(user_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS user_relationships (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			target_user_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			relation TEXT NOT NULL,
			relevance REAL NOT NULL DEFAULT 0.5,
			usage_count INTEGER NOT NULL DEFAULT 0,
			last_used_ms INTEGER NOT NULL DEFAULT 0,
			created_at_ms INTEGER NOT NULL,
			PRIMARY KEY(user_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id TEXT PRIMARY KEY,
			message_count INTEGER NOT NULL DEFAULT 0,
			token_usage INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS conversation_stats (
			user_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			token_usage INTEGER NOT NULL DEFAULT 0,
			last_active_ms INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(user_id, conversation_id)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

func nowMS() int64 { return time.Now().UnixMilli() }

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func timeToMS(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func (s *SQLiteStore) AppendSessionMessage(ctx context.Context, userID, conversationID string, msg ConversationMessage) error {
	if userID == "" {
		return fmt.Errorf("append session message: empty user id")
	}
	created := msg.Timestamp
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append session message begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMS()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions(user_id, conversation_id, started_at_ms, last_interaction_ms, message_count, summary)
VALUES(?, ?, ?, ?, 1, '')
ON CONFLICT(user_id, conversation_id) DO UPDATE SET
	last_interaction_ms = excluded.last_interaction_ms,
	message_count = sessions.message_count + 1`,
		userID, conversationID, now, now); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO session_messages(id, user_id, conversation_id, role, content, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, conversationID, msg.Role, msg.Text(), created.UnixMilli()); err != nil {
		return fmt.Errorf("insert session message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append session message commit: %w", err)
	}
	return nil
}

// GetSession returns the session with its most recent messages in
// chronological order, or nil when no session exists. limit <= 0 loads all.
func (s *SQLiteStore) GetSession(ctx context.Context, userID, conversationID string, limit int) (*SessionData, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT started_at_ms, last_interaction_ms, message_count, summary
FROM sessions WHERE user_id = ? AND conversation_id = ?`, userID, conversationID)

	out := &SessionData{UserID: userID, ConversationID: conversationID}
	var startedMS, lastMS int64
	if err := row.Scan(&startedMS, &lastMS, &out.MessageCount, &out.Summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	out.StartTime = msToTime(startedMS)
	out.LastInteraction = msToTime(lastMS)

	query := `
SELECT role, content, created_at_ms FROM session_messages
WHERE user_id = ? AND conversation_id = ?
ORDER BY created_at_ms DESC, id DESC`
	args := []any{userID, conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get session messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, content string
		var createdMS int64
		if err := rows.Scan(&role, &content, &createdMS); err != nil {
			return nil, fmt.Errorf("scan session message: %w", err)
		}
		out.Messages = append(out.Messages, NewMessage(role, content, msToTime(createdMS)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session messages: %w", err)
	}

	// Newest-first query; flip to chronological.
	for i, j := 0, len(out.Messages)-1; i < j; i, j = i+1, j-1 {
		out.Messages[i], out.Messages[j] = out.Messages[j], out.Messages[i]
	}
	return out, nil
}

// TrimSession keeps only the keepLatest most recent messages; zero removes
// them all (the session row and its summary survive).
func (s *SQLiteStore) TrimSession(ctx context.Context, userID, conversationID string, keepLatest int) error {
	if keepLatest < 0 {
		return nil
	}
	if keepLatest == 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM session_messages WHERE user_id = ? AND conversation_id = ?`, userID, conversationID)
		if err != nil {
			return fmt.Errorf("trim session: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
DELETE FROM session_messages
WHERE user_id = ? AND conversation_id = ? AND id NOT IN (
	SELECT id FROM session_messages
	WHERE user_id = ? AND conversation_id = ?
	ORDER BY created_at_ms DESC, id DESC
	LIMIT ?
)`, userID, conversationID, userID, conversationID, keepLatest)
	if err != nil {
		return fmt.Errorf("trim session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetSessionSummary(ctx context.Context, userID, conversationID, summary string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE sessions SET summary = ? WHERE user_id = ? AND conversation_id = ?`, summary, userID, conversationID)
	if err != nil {
		return fmt.Errorf("set session summary: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, userID, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete session begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_messages WHERE user_id = ? AND conversation_id = ?`, userID, conversationID); err != nil {
		return fmt.Errorf("delete session messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ? AND conversation_id = ?`, userID, conversationID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteAllSessions(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete all sessions begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_messages`); err != nil {
		return fmt.Errorf("delete all session messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListIdleSessions(ctx context.Context, idleSince time.Time, limit int) ([]SessionRef, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, conversation_id FROM sessions
WHERE last_interaction_ms < ?
ORDER BY last_interaction_ms ASC
LIMIT ?`, idleSince.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRef
	for rows.Next() {
		var ref SessionRef
		if err := rows.Scan(&ref.UserID, &ref.ConversationID); err != nil {
			return nil, fmt.Errorf("scan idle session: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetUserMemory(ctx context.Context, userID string) (*UserMemoryData, error) {
	out := &UserMemoryData{
		Facts:         map[string]UserFact{},
		Preferences:   map[string]UserPreference{},
		Relationships: map[string]UserRelationship{},
		Stats:         UserStats{Conversations: map[string]ConversationStats{}},
	}
	found := false

	row := s.db.QueryRowContext(ctx, `
SELECT display_name, preferred_nickname, first_seen_ms, last_seen_ms
FROM user_profiles WHERE user_id = ?`, userID)
	var firstMS, lastMS int64
	switch err := row.Scan(&out.Profile.DisplayName, &out.Profile.PreferredNickname, &firstMS, &lastMS); {
	case err == nil:
		out.Profile.FirstSeen = msToTime(firstMS)
		out.Profile.LastSeen = msToTime(lastMS)
		found = true
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	factRows, err := s.db.QueryContext(ctx, `
SELECT id, content, relevance, usage_count, last_used_ms, created_at_ms
FROM user_facts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user facts: %w", err)
	}
	for factRows.Next() {
		var f UserFact
		var usedMS, createdMS int64
		if err := factRows.Scan(&f.ID, &f.Content, &f.Relevance, &f.UsageCount, &usedMS, &createdMS); err != nil {
			factRows.Close()
			return nil, fmt.Errorf("scan user fact: %w", err)
		}
		f.LastUsed = msToTime(usedMS)
		f.CreatedAt = msToTime(createdMS)
		out.Facts[f.ID] = f
		found = true
	}
	if err := factRows.Err(); err != nil {
		factRows.Close()
		return nil, fmt.Errorf("iterate user facts: %w", err)
	}
	factRows.Close()

	prefRows, err := s.db.QueryContext(ctx, `
SELECT id, pref_type, item, relevance, confirm_count, last_used_ms, created_at_ms
FROM user_preferences WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user preferences: %w", err)
	}
	for prefRows.Next() {
		var p UserPreference
		var usedMS, createdMS int64
		if err := prefRows.Scan(&p.ID, &p.Type, &p.Item, &p.Relevance, &p.ConfirmCount, &usedMS, &createdMS); err != nil {
			prefRows.Close()
			return nil, fmt.Errorf("scan user preference: %w", err)
		}
		p.LastUsed = msToTime(usedMS)
		p.CreatedAt = msToTime(createdMS)
		out.Preferences[p.ID] = p
		found = true
	}
	if err := prefRows.Err(); err != nil {
		prefRows.Close()
		return nil, fmt.Errorf("iterate user preferences: %w", err)
	}
	prefRows.Close()

	relRows, err := s.db.QueryContext(ctx, `
SELECT id, target_user_id, name, relation, relevance, usage_count, last_used_ms, created_at_ms
FROM user_relationships WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user relationships: %w", err)
	}
	for relRows.Next() {
		var r UserRelationship
		var usedMS, createdMS int64
		if err := relRows.Scan(&r.ID, &r.TargetUserID, &r.Name, &r.Relationship, &r.Relevance, &r.UsageCount, &usedMS, &createdMS); err != nil {
			relRows.Close()
			return nil, fmt.Errorf("scan user relationship: %w", err)
		}
		r.LastUsed = msToTime(usedMS)
		r.CreatedAt = msToTime(createdMS)
		out.Relationships[r.ID] = r
		found = true
	}
	if err := relRows.Err(); err != nil {
		relRows.Close()
		return nil, fmt.Errorf("iterate user relationships: %w", err)
	}
	relRows.Close()

	statRow := s.db.QueryRowContext(ctx, `
SELECT message_count, token_usage FROM user_stats WHERE user_id = ?`, userID)
	switch err := statRow.Scan(&out.Stats.MessageCount, &out.Stats.TokenUsage); {
	case err == nil:
		found = true
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("get user stats: %w", err)
	}

	convRows, err := s.db.QueryContext(ctx, `
SELECT conversation_id, message_count, token_usage, last_active_ms
FROM conversation_stats WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("get conversation stats: %w", err)
	}
	for convRows.Next() {
		var convID string
		var cs ConversationStats
		var activeMS int64
		if err := convRows.Scan(&convID, &cs.MessageCount, &cs.TokenUsage, &activeMS); err != nil {
			convRows.Close()
			return nil, fmt.Errorf("scan conversation stats: %w", err)
		}
		cs.LastActive = msToTime(activeMS)
		out.Stats.Conversations[convID] = cs
	}
	if err := convRows.Err(); err != nil {
		convRows.Close()
		return nil, fmt.Errorf("iterate conversation stats: %w", err)
	}
	convRows.Close()

	if !found {
		return nil, nil
	}
	return out, nil
}

func (s *SQLiteStore) UpsertFact(ctx context.Context, userID string, fact UserFact) error {
	if fact.ID == "" {
		fact.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_facts(id, user_id, content, relevance, usage_count, last_used_ms, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, id) DO UPDATE SET
	content = excluded.content,
	relevance = excluded.relevance,
	usage_count = excluded.usage_count,
	last_used_ms = excluded.last_used_ms`,
		fact.ID, userID, fact.Content, ClampRelevance(fact.Relevance), fact.UsageCount,
		timeToMS(fact.LastUsed), timeToMS(fact.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert fact: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertPreference(ctx context.Context, userID string, pref UserPreference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_preferences(id, user_id, pref_type, item, relevance, confirm_count, last_used_ms, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, id) DO UPDATE SET
	pref_type = excluded.pref_type,
	item = excluded.item,
	relevance = excluded.relevance,
	confirm_count = excluded.confirm_count,
	last_used_ms = excluded.last_used_ms`,
		pref.ID, userID, pref.Type, pref.Item, ClampRelevance(pref.Relevance), pref.ConfirmCount,
		timeToMS(pref.LastUsed), timeToMS(pref.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertRelationship(ctx context.Context, userID string, rel UserRelationship) error {
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_relationships(id, user_id, target_user_id, name, relation, relevance, usage_count, last_used_ms, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, id) DO UPDATE SET
	target_user_id = excluded.target_user_id,
	name = excluded.name,
	relation = excluded.relation,
	relevance = excluded.relevance,
	usage_count = excluded.usage_count,
	last_used_ms = excluded.last_used_ms`,
		rel.ID, userID, rel.TargetUserID, rel.Name, rel.Relationship, ClampRelevance(rel.Relevance),
		rel.UsageCount, timeToMS(rel.LastUsed), timeToMS(rel.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert relationship: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteFact(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_facts WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeletePreference(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_preferences WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteRelationship(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_relationships WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete relationship: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TouchProfile(ctx context.Context, userID, displayName string) error {
	now := nowMS()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_profiles(user_id, display_name, preferred_nickname, first_seen_ms, last_seen_ms)
VALUES(?, ?, '', ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	display_name = CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE user_profiles.display_name END,
	last_seen_ms = excluded.last_seen_ms`,
		userID, displayName, now, now)
	if err != nil {
		return fmt.Errorf("touch profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) BumpStats(ctx context.Context, userID, conversationID string, messages, tokens int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bump stats begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO user_stats(user_id, message_count, token_usage)
VALUES(?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	message_count = user_stats.message_count + excluded.message_count,
	token_usage = user_stats.token_usage + excluded.token_usage`,
		userID, messages, tokens); err != nil {
		return fmt.Errorf("bump user stats: %w", err)
	}

	if conversationID != "" {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO conversation_stats(user_id, conversation_id, message_count, token_usage, last_active_ms)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(user_id, conversation_id) DO UPDATE SET
	message_count = conversation_stats.message_count + excluded.message_count,
	token_usage = conversation_stats.token_usage + excluded.token_usage,
	last_active_ms = excluded.last_active_ms`,
			userID, conversationID, messages, tokens, nowMS()); err != nil {
			return fmt.Errorf("bump conversation stats: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteUserMemory(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete user memory begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"user_facts", "user_preferences", "user_relationships", "user_stats", "conversation_stats", "user_profiles"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("delete user memory from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteAllMemory(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete all memory begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"user_facts", "user_preferences", "user_relationships", "user_stats", "conversation_stats", "user_profiles"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("delete all memory from %s: %w", table, err)
		}
	}
	return tx.Commit()
}
