package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/davigomz/kora/pkg/logger"
)

const relevanceBoost = 0.1

// LongTermMemory is the durable per-user profile: scored facts, preferences
// and relationships plus aggregate stats. Records never expire on their own;
// each category holds at most categoryCap entries and sheds the
// lowest-relevance record when a new one would exceed the cap.
type LongTermMemory struct {
	store       Store
	categoryCap int
	log         zerolog.Logger
}

func NewLongTermMemory(store Store, categoryCap int) *LongTermMemory {
	if categoryCap <= 0 {
		categoryCap = 50
	}
	return &LongTermMemory{
		store:       store,
		categoryCap: categoryCap,
		log:         logger.For("longterm"),
	}
}

// AddFact records a fact about the user. Re-observing an existing fact
// raises its relevance instead of duplicating it.
func (l *LongTermMemory) AddFact(ctx context.Context, userID, content string, relevance float64) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	now := time.Now()

	data, err := l.store.GetUserMemory(ctx, userID)
	if err != nil {
		return fmt.Errorf("longterm add fact: %w", err)
	}

	if data != nil {
		for _, f := range data.Facts {
			if strings.EqualFold(f.Content, content) {
				f.Relevance = ClampRelevance(f.Relevance + relevanceBoost)
				f.UsageCount++
				f.LastUsed = now
				return l.store.UpsertFact(ctx, userID, f)
			}
		}
		if len(data.Facts) >= l.categoryCap {
			if id, ok := LowestRelevance(data.Facts); ok {
				if err := l.store.DeleteFact(ctx, userID, id); err != nil {
					return fmt.Errorf("longterm evict fact: %w", err)
				}
			}
		}
	}

	return l.store.UpsertFact(ctx, userID, UserFact{
		Content:   content,
		Relevance: ClampRelevance(relevance),
		LastUsed:  now,
		CreatedAt: now,
	})
}

// AddPreference records a like or dislike.
func (l *LongTermMemory) AddPreference(ctx context.Context, userID, prefType, item string, relevance float64) error {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil
	}
	if prefType != PreferenceLike && prefType != PreferenceDislike {
		return fmt.Errorf("longterm add preference: unknown type %q", prefType)
	}
	now := time.Now()

	data, err := l.store.GetUserMemory(ctx, userID)
	if err != nil {
		return fmt.Errorf("longterm add preference: %w", err)
	}

	if data != nil {
		for _, p := range data.Preferences {
			if p.Type == prefType && strings.EqualFold(p.Item, item) {
				p.Relevance = ClampRelevance(p.Relevance + relevanceBoost)
				p.ConfirmCount++
				p.LastUsed = now
				return l.store.UpsertPreference(ctx, userID, p)
			}
		}
		if len(data.Preferences) >= l.categoryCap {
			if id, ok := LowestRelevance(data.Preferences); ok {
				if err := l.store.DeletePreference(ctx, userID, id); err != nil {
					return fmt.Errorf("longterm evict preference: %w", err)
				}
			}
		}
	}

	return l.store.UpsertPreference(ctx, userID, UserPreference{
		Type:      prefType,
		Item:      item,
		Relevance: ClampRelevance(relevance),
		LastUsed:  now,
		CreatedAt: now,
	})
}

// AddRelationship records a person the user talks about.
func (l *LongTermMemory) AddRelationship(ctx context.Context, userID, targetUserID, name, relationship string, relevance float64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	now := time.Now()

	data, err := l.store.GetUserMemory(ctx, userID)
	if err != nil {
		return fmt.Errorf("longterm add relationship: %w", err)
	}

	if data != nil {
		for _, r := range data.Relationships {
			sameTarget := targetUserID != "" && r.TargetUserID == targetUserID
			sameName := strings.EqualFold(r.Name, name)
			if sameTarget || sameName {
				r.Relationship = relationship
				r.Relevance = ClampRelevance(r.Relevance + relevanceBoost)
				r.UsageCount++
				r.LastUsed = now
				return l.store.UpsertRelationship(ctx, userID, r)
			}
		}
		if len(data.Relationships) >= l.categoryCap {
			if id, ok := LowestRelevance(data.Relationships); ok {
				if err := l.store.DeleteRelationship(ctx, userID, id); err != nil {
					return fmt.Errorf("longterm evict relationship: %w", err)
				}
			}
		}
	}

	return l.store.UpsertRelationship(ctx, userID, UserRelationship{
		TargetUserID: targetUserID,
		Name:         name,
		Relationship: relationship,
		Relevance:    ClampRelevance(relevance),
		LastUsed:     now,
		CreatedAt:    now,
	})
}

// UpdateStats bumps aggregate counters for the user and conversation.
func (l *LongTermMemory) UpdateStats(ctx context.Context, userID string, messageCount, tokenUsage int, conversationID string) error {
	return l.store.BumpStats(ctx, userID, conversationID, messageCount, tokenUsage)
}

// RecordSeen refreshes the user's profile row.
func (l *LongTermMemory) RecordSeen(ctx context.Context, userID, displayName string) error {
	return l.store.TouchProfile(ctx, userID, displayName)
}

// GetUserMemory returns the full long-term view, or nil for unknown users.
func (l *LongTermMemory) GetUserMemory(ctx context.Context, userID string) (*UserMemoryData, error) {
	return l.store.GetUserMemory(ctx, userID)
}

// ClearUserMemory removes every long-term record for one user.
func (l *LongTermMemory) ClearUserMemory(ctx context.Context, userID string) error {
	return l.store.DeleteUserMemory(ctx, userID)
}

// ClearAllMemory removes every long-term record.
func (l *LongTermMemory) ClearAllMemory(ctx context.Context) error {
	return l.store.DeleteAllMemory(ctx)
}
