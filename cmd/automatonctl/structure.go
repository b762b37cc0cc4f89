package main

import (
	"encoding/json"
	"fmt"
	"os"

	"automatonbot/internal/domain/models/formal"
)

// readStructure loads a definition file. It accepts the export body
// ({"automaton": ...} or {"cfg": ...}) or a bare automaton or grammar.
func readStructure(path string) (formal.Structure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	switch {
	case fields["automaton"] != nil:
		return decodeAutomaton(path, fields["automaton"])
	case fields["cfg"] != nil:
		return decodeGrammar(path, fields["cfg"])
	case fields["type"] != nil:
		return decodeAutomaton(path, data)
	case fields["variables"] != nil:
		return decodeGrammar(path, data)
	default:
		return nil, fmt.Errorf("%s: no automaton or CFG data provided", path)
	}
}

func decodeAutomaton(path string, raw []byte) (formal.Structure, error) {
	var a formal.Automaton
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &a, nil
}

func decodeGrammar(path string, raw []byte) (formal.Structure, error) {
	var g formal.Grammar
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &g, nil
}
