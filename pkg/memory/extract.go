package memory

import (
	"context"
	"regexp"
	"strings"
)

var (
	likeRegexES    = regexp.MustCompile(`(?i)\bme (?:encanta|encantan|gusta|gustan|fascina|fascinan)\s+(?:el |la |los |las |jugar |ver |leer )?([^.!?\n,]{2,80})`)
	dislikeRegexES = regexp.MustCompile(`(?i)\b(?:odio|no me gusta(?:n)?|detesto|no soporto)\s+(?:el |la |los |las |jugar |ver |leer )?([^.!?\n,]{2,80})`)
	likeRegexEN    = regexp.MustCompile(`(?i)\bi (?:really )?(?:like|love|enjoy)\s+([^.!?\n,]{2,80})`)
	dislikeRegexEN = regexp.MustCompile(`(?i)\bi (?:really )?(?:hate|dislike|can't stand)\s+([^.!?\n,]{2,80})`)

	identityRegex = regexp.MustCompile(`(?i)\b(?:me llamo|mi nombre es|ll[áa]mame|dime|my name is|call me)\s+([\p{L}0-9 _\-]{2,50})`)
	factRegexES   = regexp.MustCompile(`(?i)\b(?:soy|trabajo (?:en|como|de)|vivo en|estudio|tengo)\s+([^.!?\n]{3,120})`)
	factRegexEN   = regexp.MustCompile(`(?i)\bi (?:am|work (?:at|as|in)|live in|study|have)\s+([^.!?\n]{3,120})`)

	relationRegexES = regexp.MustCompile(`(?i)\bmi\s+(mam[áa]|pap[áa]|madre|padre|herman[oa]|abuel[oa]|t[íi][oa]|prim[oa]|novi[oa]|espos[oa]|amig[oa]|jef[ea]|perr[oa]|gat[oa])\s+(?:se llama|es)\s+([\p{L}0-9 _\-]{2,50})`)
	relationRegexEN = regexp.MustCompile(`(?i)\bmy\s+(mom|dad|mother|father|brother|sister|grandma|grandpa|uncle|aunt|cousin|boyfriend|girlfriend|wife|husband|friend|boss|dog|cat)\s+(?:is called|is named|is)\s+([\p{L}0-9 _\-]{2,50})`)

	questionLeadRegex = regexp.MustCompile(`(?i)^\s*(?:qu[ée]|por qu[ée]|c[óo]mo|cu[áa]ndo|d[óo]nde|qui[ée]n|what|why|how|when|where|who)\b`)
)

// Extractor scans user messages for durable signals: preferences, personal
// facts and people the user mentions. Pattern-based on purpose; anything the
// patterns miss is simply not remembered.
type Extractor struct {
	longTerm *LongTermMemory
}

func NewExtractor(longTerm *LongTermMemory) *Extractor {
	return &Extractor{longTerm: longTerm}
}

// Scan extracts whatever the message yields and stores it. Questions are
// skipped wholesale; people rarely state facts about themselves while asking.
func (e *Extractor) Scan(ctx context.Context, userID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" || isLikelyQuestion(content) {
		return nil
	}

	for _, re := range []*regexp.Regexp{likeRegexES, likeRegexEN} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			item := normalizePhrase(m[1])
			if item == "" {
				continue
			}
			if err := e.longTerm.AddPreference(ctx, userID, PreferenceLike, item, 0.6); err != nil {
				return err
			}
		}
	}
	for _, re := range []*regexp.Regexp{dislikeRegexES, dislikeRegexEN} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			item := normalizePhrase(m[1])
			if item == "" {
				continue
			}
			if err := e.longTerm.AddPreference(ctx, userID, PreferenceDislike, item, 0.6); err != nil {
				return err
			}
		}
	}

	if m := identityRegex.FindStringSubmatch(content); m != nil {
		if name := normalizePhrase(m[1]); len(name) >= 2 {
			if err := e.longTerm.AddFact(ctx, userID, "Prefiere que le llamen "+name, 0.8); err != nil {
				return err
			}
		}
	}

	for _, re := range []*regexp.Regexp{factRegexES, factRegexEN} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			fact := normalizePhrase(m[0])
			if fact == "" {
				continue
			}
			if err := e.longTerm.AddFact(ctx, userID, fact, 0.5); err != nil {
				return err
			}
		}
	}

	for _, re := range []*regexp.Regexp{relationRegexES, relationRegexEN} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			relation := strings.ToLower(normalizePhrase(m[1]))
			name := normalizePhrase(m[2])
			if name == "" {
				continue
			}
			if err := e.longTerm.AddRelationship(ctx, userID, "", name, relation, 0.6); err != nil {
				return err
			}
		}
	}

	return nil
}

func normalizePhrase(in string) string {
	in = strings.Trim(strings.TrimSpace(in), " .,!?:;\"'")
	if len(in) < 2 {
		return ""
	}
	if len(in) > 120 {
		in = strings.TrimSpace(in[:120])
	}
	return in
}

func isLikelyQuestion(content string) bool {
	return strings.Contains(content, "?") || strings.Contains(content, "¿") ||
		questionLeadRegex.MatchString(content)
}
