package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/davigomz/kora/pkg/logger"
)

// Config tunes the memory subsystem.
type Config struct {
	DBPath        string
	ShortTermCap  int
	ShortTermTTL  time.Duration
	SweepInterval time.Duration
	SessionCap    int
	SessionWindow time.Duration
	CategoryCap   int
	PromptFactTop int
	PromptPrefTop int
	PersonaName   string
	Summarize     SummaryFunc
}

// ManagerContext is the merged view BuildContext assembles for one user.
type ManagerContext struct {
	History      []ConversationMessage
	SystemPrompt string
	LongTerm     *UserMemoryData
	Session      *SessionData
}

// Manager is the single entry point for recording turns and assembling
// merged history across the three memory tiers. It owns the lifecycle of
// the volatile cache and the idle-session sweeper.
type Manager struct {
	cfg       Config
	store     Store
	shortTerm *ShortTermMemory
	session   *SessionMemory
	longTerm  *LongTermMemory
	log       zerolog.Logger

	stopCh      chan struct{}
	wg          sync.WaitGroup
	destroyOnce sync.Once
	destroyErr  error
}

func NewManager(cfg Config) (*Manager, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, fmt.Errorf("memory db path is required")
	}
	if cfg.ShortTermCap <= 0 {
		cfg.ShortTermCap = 5
	}
	if cfg.ShortTermTTL <= 0 {
		cfg.ShortTermTTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.SessionCap <= 0 {
		cfg.SessionCap = 100
	}
	if cfg.SessionWindow <= 0 {
		cfg.SessionWindow = 24 * time.Hour
	}
	if cfg.CategoryCap <= 0 {
		cfg.CategoryCap = 50
	}
	if cfg.PromptFactTop <= 0 {
		cfg.PromptFactTop = 3
	}
	if cfg.PromptPrefTop <= 0 {
		cfg.PromptPrefTop = 3
	}
	if cfg.PersonaName == "" {
		cfg.PersonaName = "Kora"
	}

	store, err := NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:       cfg,
		store:     store,
		shortTerm: NewShortTermMemory(cfg.ShortTermCap, cfg.ShortTermTTL, cfg.SweepInterval),
		session:   NewSessionMemory(store, cfg.SessionCap, cfg.SessionWindow, cfg.Summarize),
		longTerm:  NewLongTermMemory(store, cfg.CategoryCap),
		log:       logger.For("memory"),
		stopCh:    make(chan struct{}),
	}

	m.wg.Add(1)
	go m.runMaintenance()
	return m, nil
}

// ShortTerm exposes the volatile tier.
func (m *Manager) ShortTerm() *ShortTermMemory { return m.shortTerm }

// Sessions exposes the durable session tier.
func (m *Manager) Sessions() *SessionMemory { return m.session }

// LongTerm exposes the durable profile tier.
func (m *Manager) LongTerm() *LongTermMemory { return m.longTerm }

// AddUserMessage records a user turn in both the short-term cache and the
// session log before returning, so callers never observe a half-written turn.
func (m *Manager) AddUserMessage(ctx context.Context, userID, text, conversationID string) error {
	return m.addMessage(ctx, userID, RoleUser, text, conversationID)
}

// AddModelMessage records a model turn the same way.
func (m *Manager) AddModelMessage(ctx context.Context, userID, text, conversationID string) error {
	return m.addMessage(ctx, userID, RoleModel, text, conversationID)
}

func (m *Manager) addMessage(ctx context.Context, userID, role, text, conversationID string) error {
	msg := NewMessage(role, text, time.Now())
	m.shortTerm.Add(userID, msg)
	if err := m.session.AddMessage(ctx, userID, msg, conversationID); err != nil {
		return fmt.Errorf("record %s turn: %w", role, err)
	}
	return nil
}

// BuildContext gathers all three tiers and produces deduplicated,
// chronologically ordered history plus a compact memory-aware system prompt.
// Tier read failures degrade to empty data; they never abort the build.
func (m *Manager) BuildContext(ctx context.Context, userID, conversationID string) ManagerContext {
	shortTerm := m.shortTerm.Get(userID)

	session, err := m.session.GetSession(ctx, userID, conversationID)
	if err != nil {
		m.log.Warn().Err(err).Str("user_id", userID).Msg("session read failed, continuing without it")
		session = nil
	}

	longTerm, err := m.longTerm.GetUserMemory(ctx, userID)
	if err != nil {
		m.log.Warn().Err(err).Str("user_id", userID).Msg("long-term read failed, continuing without it")
		longTerm = nil
	}

	var sessionMessages []ConversationMessage
	if session != nil {
		sessionMessages = session.Messages
	}

	return ManagerContext{
		History:      MergeHistory(shortTerm, sessionMessages),
		SystemPrompt: m.buildSystemPrompt(longTerm),
		LongTerm:     longTerm,
		Session:      session,
	}
}

func (m *Manager) buildSystemPrompt(data *UserMemoryData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eres %s, una compañera de conversación amable y cercana.", m.cfg.PersonaName)

	if data == nil {
		return b.String()
	}

	if facts := TopByRelevance(data.Facts, m.cfg.PromptFactTop); len(facts) > 0 {
		b.WriteString("\nLo que sabes de esta persona:")
		for _, f := range facts {
			b.WriteString("\n- ")
			b.WriteString(f.Content)
		}
	}

	if prefs := TopByRelevance(data.Preferences, m.cfg.PromptPrefTop); len(prefs) > 0 {
		var likes, dislikes []string
		for _, p := range prefs {
			if p.Type == PreferenceDislike {
				dislikes = append(dislikes, p.Item)
			} else {
				likes = append(likes, p.Item)
			}
		}
		if len(likes) > 0 {
			b.WriteString("\nLe gusta: ")
			b.WriteString(strings.Join(likes, ", "))
		}
		if len(dislikes) > 0 {
			b.WriteString("\nNo le gusta: ")
			b.WriteString(strings.Join(dislikes, ", "))
		}
	}

	return b.String()
}

// ClearUserMemory always clears the short-term cache and the session;
// long-term profile data is only removed when includeLongTerm is set. The
// asymmetry protects durable data from casual resets.
func (m *Manager) ClearUserMemory(ctx context.Context, userID, conversationID string, includeLongTerm bool) error {
	m.shortTerm.Clear(userID)
	if err := m.session.ClearUserSession(ctx, userID, conversationID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if includeLongTerm {
		if err := m.longTerm.ClearUserMemory(ctx, userID); err != nil {
			return fmt.Errorf("clear long-term: %w", err)
		}
	}
	return nil
}

// Destroy stops background timers, then releases each tier. Idempotent.
func (m *Manager) Destroy() error {
	m.destroyOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		m.shortTerm.Close()
		m.destroyErr = m.store.Close()
	})
	return m.destroyErr
}

func (m *Manager) runMaintenance() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			closed, err := m.session.SweepIdle(ctx, 50)
			cancel()
			if err != nil {
				m.log.Warn().Err(err).Msg("idle session sweep failed")
				continue
			}
			if closed > 0 {
				m.log.Debug().Int("closed", closed).Msg("idle sessions finalized")
			}
		}
	}
}
