package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/davigomz/kora/pkg/logger"
)

// DefaultConversationID scopes sessions that have no server context.
const DefaultConversationID = "dm"

// SummaryFunc condenses a finished session into a short summary. A nil func
// falls back to a terse built-in line.
type SummaryFunc func(messages []ConversationMessage) string

// SessionMemory is the durable per (user, conversation) ordered log. It
// carries the medium-term policy: an entry cap applied on every write and an
// inactivity window after which a session is considered over.
type SessionMemory struct {
	store      Store
	cap        int
	idleWindow time.Duration
	summarize  SummaryFunc
	log        zerolog.Logger
}

func NewSessionMemory(store Store, cap int, idleWindow time.Duration, summarize SummaryFunc) *SessionMemory {
	if cap <= 0 {
		cap = 100
	}
	if idleWindow <= 0 {
		idleWindow = 24 * time.Hour
	}
	return &SessionMemory{
		store:      store,
		cap:        cap,
		idleWindow: idleWindow,
		summarize:  summarize,
		log:        logger.For("session"),
	}
}

// AddMessage appends a turn to the session, creating it lazily, and evicts
// the oldest messages beyond the cap.
func (s *SessionMemory) AddMessage(ctx context.Context, userID string, msg ConversationMessage, conversationID string) error {
	if conversationID == "" {
		conversationID = DefaultConversationID
	}
	if err := s.store.AppendSessionMessage(ctx, userID, conversationID, msg); err != nil {
		return fmt.Errorf("session add: %w", err)
	}
	if err := s.store.TrimSession(ctx, userID, conversationID, s.cap); err != nil {
		return fmt.Errorf("session trim: %w", err)
	}
	return nil
}

// GetSession returns the current session, or nil when none exists or the
// session has been idle past the window. Idle sessions found this way are
// finalized in place.
func (s *SessionMemory) GetSession(ctx context.Context, userID, conversationID string) (*SessionData, error) {
	if conversationID == "" {
		conversationID = DefaultConversationID
	}
	data, err := s.store.GetSession(ctx, userID, conversationID, s.cap)
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	if !data.LastInteraction.IsZero() && time.Since(data.LastInteraction) > s.idleWindow {
		if err := s.EndSession(ctx, userID, conversationID); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to finalize idle session")
		}
		return nil, nil
	}
	return data, nil
}

// EndSession finalizes the session: its messages are dropped and, when they
// exist, condensed into a stored summary. The session row itself survives so
// the summary can seed a future conversation.
func (s *SessionMemory) EndSession(ctx context.Context, userID, conversationID string) error {
	if conversationID == "" {
		conversationID = DefaultConversationID
	}
	data, err := s.store.GetSession(ctx, userID, conversationID, 0)
	if err != nil {
		return fmt.Errorf("session end: %w", err)
	}
	if data == nil {
		return nil
	}
	if len(data.Messages) > 0 {
		summary := ""
		if s.summarize != nil {
			summary = s.summarize(data.Messages)
		}
		if summary == "" {
			summary = defaultSummary(data)
		}
		if err := s.store.SetSessionSummary(ctx, userID, conversationID, summary); err != nil {
			return fmt.Errorf("session end summary: %w", err)
		}
	}
	if err := s.store.TrimSession(ctx, userID, conversationID, 0); err != nil {
		return fmt.Errorf("session end trim: %w", err)
	}
	return nil
}

// SweepIdle finalizes every session idle past the window. Returns how many
// sessions were closed.
func (s *SessionMemory) SweepIdle(ctx context.Context, limit int) (int, error) {
	refs, err := s.store.ListIdleSessions(ctx, time.Now().Add(-s.idleWindow), limit)
	if err != nil {
		return 0, fmt.Errorf("session sweep: %w", err)
	}
	closed := 0
	for _, ref := range refs {
		if err := s.EndSession(ctx, ref.UserID, ref.ConversationID); err != nil {
			s.log.Warn().Err(err).Str("user_id", ref.UserID).Msg("failed to close idle session")
			continue
		}
		closed++
	}
	return closed, nil
}

// ClearUserSession removes one session entirely, summary included.
func (s *SessionMemory) ClearUserSession(ctx context.Context, userID, conversationID string) error {
	if conversationID == "" {
		conversationID = DefaultConversationID
	}
	return s.store.DeleteSession(ctx, userID, conversationID)
}

// ClearAllSessions removes every session.
func (s *SessionMemory) ClearAllSessions(ctx context.Context) error {
	return s.store.DeleteAllSessions(ctx)
}

func defaultSummary(data *SessionData) string {
	first := ""
	for _, m := range data.Messages {
		if m.Role == RoleUser {
			first = m.Text()
			break
		}
	}
	if len(first) > 120 {
		first = first[:120]
	}
	return fmt.Sprintf("Conversación de %d mensajes. Comenzó con: %s", len(data.Messages), first)
}
