package memory

import (
	"context"
	"time"
)

// SessionRef identifies one durable session.
type SessionRef struct {
	UserID         string
	ConversationID string
}

// Store is the persistence collaborator behind the durable memory tiers.
// Implementations must provide read-your-writes consistency per key; no
// cross-key transactions are required.
type Store interface {
	Close() error

	// Session log.
	AppendSessionMessage(ctx context.Context, userID, conversationID string, msg ConversationMessage) error
	GetSession(ctx context.Context, userID, conversationID string, limit int) (*SessionData, error)
	TrimSession(ctx context.Context, userID, conversationID string, keepLatest int) error
	SetSessionSummary(ctx context.Context, userID, conversationID, summary string) error
	DeleteSession(ctx context.Context, userID, conversationID string) error
	DeleteAllSessions(ctx context.Context) error
	ListIdleSessions(ctx context.Context, idleSince time.Time, limit int) ([]SessionRef, error)

	// Long-term profile.
	GetUserMemory(ctx context.Context, userID string) (*UserMemoryData, error)
	UpsertFact(ctx context.Context, userID string, fact UserFact) error
	UpsertPreference(ctx context.Context, userID string, pref UserPreference) error
	UpsertRelationship(ctx context.Context, userID string, rel UserRelationship) error
	DeleteFact(ctx context.Context, userID, id string) error
	DeletePreference(ctx context.Context, userID, id string) error
	DeleteRelationship(ctx context.Context, userID, id string) error
	TouchProfile(ctx context.Context, userID, displayName string) error
	BumpStats(ctx context.Context, userID, conversationID string, messages, tokens int) error
	DeleteUserMemory(ctx context.Context, userID string) error
	DeleteAllMemory(ctx context.Context) error
}
