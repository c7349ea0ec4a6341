package memory

import (
	"strings"
	"time"
)

// Conversation roles. The provider side maps these onto its own wire names.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one text fragment of a conversation message.
type Part struct {
	Text string
}

// ConversationMessage is the atomic unit of conversation history.
// A zero Timestamp means the origin did not record one; such messages sort
// before any timestamped message when histories are merged.
type ConversationMessage struct {
	Role      string
	Parts     []Part
	Timestamp time.Time
}

// NewMessage builds a single-part message.
func NewMessage(role, text string, ts time.Time) ConversationMessage {
	return ConversationMessage{
		Role:      role,
		Parts:     []Part{{Text: text}},
		Timestamp: ts,
	}
}

// Text joins all parts of the message.
func (m ConversationMessage) Text() string {
	if len(m.Parts) == 1 {
		return m.Parts[0].Text
	}
	var b strings.Builder
	for _, p := range m.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// SessionData is the durable per (user, conversation) ordered log.
type SessionData struct {
	UserID          string
	ConversationID  string
	Messages        []ConversationMessage
	StartTime       time.Time
	LastInteraction time.Time
	MessageCount    int
	Summary         string
}

// UserFact is a scored long-term statement about a user.
type UserFact struct {
	ID         string
	Content    string
	Relevance  float64
	UsageCount int
	LastUsed   time.Time
	CreatedAt  time.Time
}

// Preference types.
const (
	PreferenceLike    = "like"
	PreferenceDislike = "dislike"
)

// UserPreference is a scored like/dislike.
type UserPreference struct {
	ID           string
	Type         string
	Item         string
	Relevance    float64
	ConfirmCount int
	LastUsed     time.Time
	CreatedAt    time.Time
}

// UserRelationship links a user to another person they talk about.
type UserRelationship struct {
	ID           string
	TargetUserID string
	Name         string
	Relationship string
	Relevance    float64
	UsageCount   int
	LastUsed     time.Time
	CreatedAt    time.Time
}

// UserProfile holds display identity for prompt personalization.
type UserProfile struct {
	DisplayName       string
	PreferredNickname string
	FirstSeen         time.Time
	LastSeen          time.Time
}

// ConversationStats aggregates usage per (user, conversation).
type ConversationStats struct {
	MessageCount int
	TokenUsage   int
	LastActive   time.Time
}

// UserStats aggregates usage per user.
type UserStats struct {
	MessageCount  int
	TokenUsage    int
	Conversations map[string]ConversationStats
}

// UserMemoryData is the full durable long-term view of one user.
// Record maps are keyed by record ID; relevance is the only ranking signal.
type UserMemoryData struct {
	Profile       UserProfile
	Facts         map[string]UserFact
	Preferences   map[string]UserPreference
	Relationships map[string]UserRelationship
	Stats         UserStats
}

// Relevance/LastUsed accessors satisfy the generic ranking contract.

func (f UserFact) RelevanceScore() float64 { return f.Relevance }
func (f UserFact) LastUsedAt() time.Time   { return f.LastUsed }

func (p UserPreference) RelevanceScore() float64 { return p.Relevance }
func (p UserPreference) LastUsedAt() time.Time   { return p.LastUsed }

func (r UserRelationship) RelevanceScore() float64 { return r.Relevance }
func (r UserRelationship) LastUsedAt() time.Time   { return r.LastUsed }

// ClampRelevance keeps scores inside [0,1].
func ClampRelevance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
