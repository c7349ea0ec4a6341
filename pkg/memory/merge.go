package memory

import "sort"

// MergeHistory combines the durable session log with the volatile short-term
// cache. Session messages are the base; short-term messages already persisted
// in the session (same role, text, and timestamp) are dropped. The result is
// stable-sorted ascending by timestamp, messages without a timestamp first.
// Merging a merged result again produces no growth.
func MergeHistory(shortTerm, session []ConversationMessage) []ConversationMessage {
	merged := make([]ConversationMessage, 0, len(session)+len(shortTerm))
	merged = append(merged, session...)

	seen := make(map[mergeKey]struct{}, len(session))
	for _, m := range session {
		seen[keyOf(m)] = struct{}{}
	}
	for _, m := range shortTerm {
		k := keyOf(m)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, m)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		ti, tj := merged[i].Timestamp, merged[j].Timestamp
		if ti.IsZero() {
			return !tj.IsZero()
		}
		if tj.IsZero() {
			return false
		}
		return ti.Before(tj)
	})
	return merged
}

type mergeKey struct {
	role   string
	text   string
	stamp  int64
	zeroTS bool
}

func keyOf(m ConversationMessage) mergeKey {
	return mergeKey{
		role:   m.Role,
		text:   m.Text(),
		stamp:  m.Timestamp.UnixMilli(),
		zeroTS: m.Timestamp.IsZero(),
	}
}
