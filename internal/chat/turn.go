package chat

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of turn speakers. Keeping it a dedicated type (rather
// than an open string) lets the turn-alternation invariant be checked at the
// boundaries.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem marks evaluation annotations in the persisted log. The chat
	// loop itself never produces system turns.
	RoleSystem Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Turn is one message in a conversation.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
}

// History is the ordered transcript of one session. It has value semantics:
// Append returns a new History and never mutates the receiver, so a failed
// turn leaves the caller's state untouched.
type History struct {
	turns []Turn
}

// NewHistory starts a transcript with an assistant greeting turn.
func NewHistory(greeting string) History {
	return History{turns: []Turn{{
		Timestamp: time.Now(),
		Role:      RoleAssistant,
		Content:   greeting,
	}}}
}

func (h History) Append(role Role, content string) History {
	turns := make([]Turn, len(h.turns), len(h.turns)+1)
	copy(turns, h.turns)
	turns = append(turns, Turn{
		Timestamp: time.Now(),
		Role:      role,
		Content:   content,
	})
	return History{turns: turns}
}

func (h History) Len() int { return len(h.turns) }

// Turns returns a copy of the transcript.
func (h History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h History) Last() (Turn, bool) {
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// HasUserTurn reports whether any user turn exists yet. The first question of
// a session has no prior context to fold in, so condensation is a no-op.
func (h History) HasUserTurn() bool {
	for _, t := range h.turns {
		if t.Role == RoleUser {
			return true
		}
	}
	return false
}

// Transcript renders the history for the condensation prompt.
func (h History) Transcript() string {
	var b strings.Builder
	for _, t := range h.turns {
		if t.Role == RoleSystem {
			continue
		}
		speaker := "User"
		if t.Role == RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, t.Content)
	}
	return b.String()
}
