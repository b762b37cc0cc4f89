package models

import (
	"encoding/json"
	"errors"
	"time"

	"automatonbot/internal/domain/models/formal"
)

// Turn is one question/answer exchange. Turns are never modified after creation.
type Turn struct {
	ID          string    `json:"id" db:"id"`
	Question    string    `json:"question" db:"question"`
	Answer      string    `json:"answer" db:"answer"`
	DiagramCode string    `json:"diagramCode,omitempty" db:"diagram_code"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Conversation is a user's dialogue about an optional automaton or grammar.
// Turns are append-only and ordered oldest first.
type Conversation struct {
	ID        string           `json:"id" db:"id"`
	OwnerID   string           `json:"ownerId" db:"owner_id"`
	Name      string           `json:"name" db:"name"`
	Structure formal.Structure `json:"-"`
	Turns     []Turn           `json:"turns"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time        `json:"updatedAt" db:"updated_at"`
	IsDeleted bool             `json:"isDeleted" db:"is_deleted"`
	DeletedAt *time.Time       `json:"deletedAt,omitempty" db:"deleted_at"`
}

type conversationAlias Conversation

type conversationJSON struct {
	*conversationAlias
	Automaton *formal.Automaton `json:"automaton,omitempty"`
	CFG       *formal.Grammar   `json:"cfg,omitempty"`
}

// MarshalJSON exposes the attached structure as either "automaton" or "cfg"
func (c Conversation) MarshalJSON() ([]byte, error) {
	out := conversationJSON{conversationAlias: (*conversationAlias)(&c)}
	switch s := c.Structure.(type) {
	case *formal.Automaton:
		out.Automaton = s
	case *formal.Grammar:
		out.CFG = s
	}
	if out.Turns == nil {
		out.Turns = []Turn{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Conversation) UnmarshalJSON(data []byte) error {
	in := conversationJSON{conversationAlias: (*conversationAlias)(c)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch {
	case in.Automaton != nil && in.CFG != nil:
		return errors.New("conversation carries both an automaton and a cfg")
	case in.Automaton != nil:
		c.Structure = in.Automaton
	case in.CFG != nil:
		c.Structure = in.CFG
	default:
		c.Structure = nil
	}
	return nil
}
