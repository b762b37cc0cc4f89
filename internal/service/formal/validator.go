package formal

import (
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"automatonbot/internal/domain"
	formalModels "automatonbot/internal/domain/models/formal"
)

// Epsilon is printed for a production body with no symbols
const Epsilon = "ε"

// Validate checks a structure and returns its canonical description.
func Validate(s formalModels.Structure) (string, error) {
	switch v := s.(type) {
	case *formalModels.Automaton:
		return ValidateAutomaton(v)
	case *formalModels.Grammar:
		return ValidateGrammar(v)
	default:
		return "", fmt.Errorf("%w: unsupported structure %T", domain.ErrInvalidStructure, s)
	}
}

// ValidateAutomaton checks, in order: field presence, every transition, the initial
// state, then the accept states. The first violation is returned.
func ValidateAutomaton(a *formalModels.Automaton) (string, error) {
	if a == nil {
		return "", fmt.Errorf("%w: automaton", domain.ErrMissingField)
	}

	err := validation.ValidateStruct(a,
		validation.Field(&a.Type, validation.Required),
		validation.Field(&a.States, validation.NotNil),
		validation.Field(&a.Alphabet, validation.NotNil),
		validation.Field(&a.Transitions, validation.NotNil),
		validation.Field(&a.InitialState, validation.Required),
		validation.Field(&a.AcceptStates, validation.NotNil),
	)
	if err != nil {
		return "", fmt.Errorf("%w: automaton: %v", domain.ErrMissingField, err)
	}

	if err := validation.Validate(a.Type, validation.In(formalModels.DFA, formalModels.NFA, formalModels.PDA)); err != nil {
		return "", fmt.Errorf("%w: unknown automaton type %q", domain.ErrInvalidStructure, a.Type)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Received %s automaton:\n", a.Type)
	fmt.Fprintf(&b, "States: %s\n", strings.Join(a.States, ", "))
	fmt.Fprintf(&b, "Alphabet: %s\n", strings.Join(a.Alphabet, ", "))
	fmt.Fprintf(&b, "Initial State: %s\n", a.InitialState)
	fmt.Fprintf(&b, "Accept States: %s\n", strings.Join(a.AcceptStates, ", "))
	b.WriteString("Transitions:\n")

	for _, t := range a.Transitions {
		if !slices.Contains(a.States, t.From) || !slices.Contains(a.States, t.To) || !slices.Contains(a.Alphabet, t.Symbol) {
			return "", fmt.Errorf("%w: invalid transition: %s, %s, %s", domain.ErrInvalidStructure, t.From, t.Symbol, t.To)
		}
		fmt.Fprintf(&b, "%s --%s--> %s\n", t.From, t.Symbol, t.To)
	}

	if !slices.Contains(a.States, a.InitialState) {
		return "", fmt.Errorf("%w: invalid initial state: %s", domain.ErrInvalidStructure, a.InitialState)
	}
	for _, s := range a.AcceptStates {
		if !slices.Contains(a.States, s) {
			return "", fmt.Errorf("%w: invalid accept state: %s", domain.ErrInvalidStructure, s)
		}
	}

	return b.String(), nil
}

// ValidateGrammar checks field presence, that every production belongs to a declared
// variable, and that the start symbol is declared.
func ValidateGrammar(g *formalModels.Grammar) (string, error) {
	if g == nil {
		return "", fmt.Errorf("%w: cfg", domain.ErrMissingField)
	}

	err := validation.ValidateStruct(g,
		validation.Field(&g.Variables, validation.NotNil),
		validation.Field(&g.Terminals, validation.NotNil),
		validation.Field(&g.Productions, validation.NotNil),
		validation.Field(&g.StartSymbol, validation.Required),
	)
	if err != nil {
		return "", fmt.Errorf("%w: cfg: %v", domain.ErrMissingField, err)
	}

	var b strings.Builder
	b.WriteString("Received CFG:\n")
	fmt.Fprintf(&b, "Variables: %s\n", strings.Join(g.Variables, ", "))
	fmt.Fprintf(&b, "Terminals: %s\n", strings.Join(g.Terminals, ", "))
	fmt.Fprintf(&b, "Start Symbol: %s\n", g.StartSymbol)
	b.WriteString("Productions:\n")

	for _, p := range g.Productions {
		if !slices.Contains(g.Variables, p.Variable) {
			return "", fmt.Errorf("%w: invalid variable in productions: %s", domain.ErrInvalidStructure, p.Variable)
		}
		fmt.Fprintf(&b, "%s -> %s\n", p.Variable, Alternatives(p.Bodies))
	}

	if !slices.Contains(g.Variables, g.StartSymbol) {
		return "", fmt.Errorf("%w: invalid start symbol: %s", domain.ErrInvalidStructure, g.StartSymbol)
	}

	return b.String(), nil
}

// Alternatives renders production bodies as "aA | b | ε".
func Alternatives(bodies [][]string) string {
	parts := make([]string, len(bodies))
	for i, body := range bodies {
		if len(body) == 0 {
			parts[i] = Epsilon
			continue
		}
		parts[i] = strings.Join(body, "")
	}
	return strings.Join(parts, " | ")
}
