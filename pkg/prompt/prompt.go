// Package prompt composes the system prompt: a fixed persona block, an
// injected memory section and situational tone guidance. Everything here is
// stateless and side-effect free.
package prompt

import (
	"fmt"
	"strings"

	"github.com/davigomz/kora/pkg/memory"
)

// Context carries the situational signals the prompt varies on.
type Context struct {
	IsDM             bool
	IsMentioned      bool
	UserName         string
	ConversationName string
}

// Builder renders system prompts from a persona and per-user memory.
type Builder struct {
	personaName string
	factTop     int
	prefTop     int
	relTop      int
}

func NewBuilder(personaName string, factTop, prefTop, relTop int) *Builder {
	if personaName == "" {
		personaName = "Kora"
	}
	if factTop <= 0 {
		factTop = 5
	}
	if prefTop <= 0 {
		prefTop = 5
	}
	if relTop <= 0 {
		relTop = 3
	}
	return &Builder{personaName: personaName, factTop: factTop, prefTop: prefTop, relTop: relTop}
}

// BuildSystemPrompt concatenates the persona block, the memory section when
// data exists, and exactly one situational block chosen by mode.
func (b *Builder) BuildSystemPrompt(pc Context, data *memory.UserMemoryData) string {
	var sb strings.Builder

	b.writePersona(&sb)
	b.writeMemory(&sb, pc, data)
	b.writeSituation(&sb, pc)

	return sb.String()
}

func (b *Builder) writePersona(sb *strings.Builder) {
	fmt.Fprintf(sb, "Eres %s, una compañera de conversación en Discord.\n", b.personaName)
	sb.WriteString("Hablas español de forma natural y cercana, sin sonar robótica.\n")
	sb.WriteString("Respondes breve cuando la conversación es casual y con más detalle cuando te lo piden.\n")
	sb.WriteString("Nunca inventas recuerdos: si no sabes algo de alguien, lo dices.")
}

func (b *Builder) writeMemory(sb *strings.Builder, pc Context, data *memory.UserMemoryData) {
	if data == nil {
		return
	}

	var section strings.Builder

	if nick := data.Profile.PreferredNickname; nick != "" {
		fmt.Fprintf(&section, "\nPrefiere que le llames %s.", nick)
	}

	if facts := memory.TopByRelevance(data.Facts, b.factTop); len(facts) > 0 {
		section.WriteString("\nLo que sabes de esta persona:")
		for _, f := range facts {
			section.WriteString("\n- ")
			section.WriteString(f.Content)
		}
	}

	if prefs := memory.TopByRelevance(data.Preferences, b.prefTop); len(prefs) > 0 {
		var likes, dislikes []string
		for _, p := range prefs {
			if p.Type == memory.PreferenceDislike {
				dislikes = append(dislikes, p.Item)
			} else {
				likes = append(likes, p.Item)
			}
		}
		if len(likes) > 0 {
			section.WriteString("\nLe gusta: " + strings.Join(likes, ", ") + ".")
		}
		if len(dislikes) > 0 {
			section.WriteString("\nNo le gusta: " + strings.Join(dislikes, ", ") + ".")
		}
	}

	if rels := memory.TopByRelevance(data.Relationships, b.relTop); len(rels) > 0 {
		section.WriteString("\nPersonas de las que habla:")
		for _, r := range rels {
			if r.Relationship != "" {
				fmt.Fprintf(&section, "\n- %s (%s)", r.Name, r.Relationship)
			} else {
				section.WriteString("\n- " + r.Name)
			}
		}
	}

	if section.Len() == 0 {
		return
	}
	name := pc.UserName
	if name == "" {
		name = "esta persona"
	}
	fmt.Fprintf(sb, "\n\nMemoria sobre %s:%s", name, section.String())
}

func (b *Builder) writeSituation(sb *strings.Builder, pc Context) {
	sb.WriteString("\n\n")
	switch {
	case pc.IsDM:
		sb.WriteString("Estás en un mensaje directo. Es una conversación privada: ")
		sb.WriteString("puedes ser más personal, hacer preguntas de seguimiento y extenderte si hace falta.")
	case pc.IsMentioned:
		fmt.Fprintf(sb, "Te han mencionado en el canal %s. ", conversationLabel(pc))
		sb.WriteString("Responde directamente a lo que te preguntan, con naturalidad y sin acaparar el canal.")
	default:
		fmt.Fprintf(sb, "Estás participando de forma espontánea en el canal %s. ", conversationLabel(pc))
		sb.WriteString("Sé breve, aporta algo a la conversación en curso y no desvíes el tema.")
	}
}

func conversationLabel(pc Context) string {
	if pc.ConversationName != "" {
		return pc.ConversationName
	}
	return "actual"
}

// CompressMessage truncates text to maxLength runes, replacing the tail with
// an ellipsis. The result never exceeds maxLength.
func CompressMessage(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = 150
	}
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
