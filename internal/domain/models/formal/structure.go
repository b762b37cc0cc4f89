package formal

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StructureKind tags which variant a Structure holds
type StructureKind string

const (
	KindAutomaton StructureKind = "automaton"
	KindGrammar   StructureKind = "grammar"
)

// Structure is either an *Automaton or a *Grammar, never both.
type Structure interface {
	Kind() StructureKind
	isStructure()
}

// AutomatonType is the family of a finite or pushdown automaton
type AutomatonType string

const (
	DFA AutomatonType = "DFA"
	NFA AutomatonType = "NFA"
	PDA AutomatonType = "PDA"
)

// Transition is one edge of the transition relation.
// On the wire it is a three element array: [from, symbol, to].
type Transition struct {
	From   string
	Symbol string
	To     string
}

// MarshalJSON implements json.Marshaler
func (t Transition) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{t.From, t.Symbol, t.To})
}

// UnmarshalJSON implements json.Unmarshaler. Any arity other than three is rejected.
func (t *Transition) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("transition: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("transition must have exactly 3 elements, got %d", len(parts))
	}
	t.From, t.Symbol, t.To = parts[0], parts[1], parts[2]
	return nil
}

// Automaton is a DFA, NFA or PDA definition as submitted by a user
type Automaton struct {
	Type         AutomatonType `json:"type"`
	States       []string      `json:"states"`
	Alphabet     []string      `json:"alphabet"`
	Transitions  []Transition  `json:"transitions"`
	InitialState string        `json:"initialState"`
	AcceptStates []string      `json:"acceptStates"`
}

func (*Automaton) Kind() StructureKind { return KindAutomaton }
func (*Automaton) isStructure()        {}

// Production lists the alternatives of one variable. Each body is a sequence of symbols;
// an empty body derives the empty string.
type Production struct {
	Variable string
	Bodies   [][]string
}

// Productions keeps the key order of the JSON object it was decoded from.
type Productions []Production

// MarshalJSON writes the productions as a JSON object in slice order
func (p Productions) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prod := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prod.Variable)
		if err != nil {
			return nil, err
		}
		bodies := prod.Bodies
		if bodies == nil {
			bodies = [][]string{}
		}
		value, err := json.Marshal(bodies)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of variable -> bodies, preserving key order
func (p *Productions) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("productions: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("productions must be an object")
	}

	out := Productions{}
	seen := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("productions: %w", err)
		}
		variable, ok := tok.(string)
		if !ok {
			return fmt.Errorf("productions: unexpected key %v", tok)
		}

		var bodies [][]string
		if err := dec.Decode(&bodies); err != nil {
			return fmt.Errorf("productions for %s: %w", variable, err)
		}
		// A repeated key keeps its first position and takes the last value
		if i, ok := seen[variable]; ok {
			out[i].Bodies = bodies
			continue
		}
		seen[variable] = len(out)
		out = append(out, Production{Variable: variable, Bodies: bodies})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("productions: %w", err)
	}

	*p = out
	return nil
}

// Grammar is a context-free grammar definition as submitted by a user
type Grammar struct {
	Variables   []string    `json:"variables"`
	Terminals   []string    `json:"terminals"`
	Productions Productions `json:"productions"`
	StartSymbol string      `json:"startSymbol"`
}

func (*Grammar) Kind() StructureKind { return KindGrammar }
func (*Grammar) isStructure()        {}

// Encode serializes a structure for storage, returning its kind tag and JSON payload.
func Encode(s Structure) (StructureKind, []byte, error) {
	if s == nil {
		return "", nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", s.Kind(), err)
	}
	return s.Kind(), data, nil
}

// Decode restores a structure from its kind tag and JSON payload.
// An empty kind yields a nil structure.
func Decode(kind StructureKind, data []byte) (Structure, error) {
	switch kind {
	case "":
		return nil, nil
	case KindAutomaton:
		var a Automaton
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode automaton: %w", err)
		}
		return &a, nil
	case KindGrammar:
		var g Grammar
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("decode grammar: %w", err)
		}
		return &g, nil
	default:
		return nil, fmt.Errorf("unknown structure kind %q", kind)
	}
}
