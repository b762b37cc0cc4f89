package formal

import (
	"fmt"
	"strings"
	"time"

	"automatonbot/internal/domain"
	formalModels "automatonbot/internal/domain/models/formal"
)

const (
	banner      = "========================================\n"
	copyPasteHR = "-------------------------------------\n"
)

// Document is a rendered export ready to be served as a download
type Document struct {
	Filename string
	Content  string
}

// Export renders a structure as a plain-text document. It does not validate.
func Export(s formalModels.Structure, now time.Time) (*Document, error) {
	switch v := s.(type) {
	case *formalModels.Automaton:
		if v != nil {
			return exportAutomaton(v, now), nil
		}
	case *formalModels.Grammar:
		if v != nil {
			return exportGrammar(v, now), nil
		}
	}
	return nil, fmt.Errorf("%w: no automaton or CFG data provided", domain.ErrValidation)
}

// fileTimestamp mirrors an ISO-8601 UTC timestamp with ':' and '.' replaced by '-'
func fileTimestamp(now time.Time) string {
	return strings.ReplaceAll(now.UTC().Format("2006-01-02T15-04-05.000Z"), ".", "-")
}

func exportAutomaton(a *formalModels.Automaton, now time.Time) *Document {
	states := strings.Join(a.States, ", ")
	alphabet := strings.Join(a.Alphabet, ", ")
	accept := strings.Join(a.AcceptStates, ", ")

	var b strings.Builder
	b.WriteString(banner)
	fmt.Fprintf(&b, "           %s AUTOMATON\n", a.Type)
	b.WriteString(banner)
	fmt.Fprintf(&b, "Generated on: %s\n\n", now.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "TYPE: %s\n\n", a.Type)
	fmt.Fprintf(&b, "STATES:\n  Q = {%s}\n\n", states)
	fmt.Fprintf(&b, "ALPHABET:\n  Σ = {%s}\n\n", alphabet)
	fmt.Fprintf(&b, "INITIAL STATE:\n  q₀ = %s\n\n", a.InitialState)
	fmt.Fprintf(&b, "ACCEPT STATES:\n  F = {%s}\n\n", accept)

	b.WriteString("TRANSITION FUNCTION:\n")
	b.WriteString("  δ(state, symbol) = next_state\n")
	b.WriteString("  --------------------------------\n")
	for _, t := range a.Transitions {
		fmt.Fprintf(&b, "  δ(%s, %s) = %s\n", t.From, t.Symbol, t.To)
	}

	b.WriteString("\n" + banner)
	b.WriteString("FORMAL DEFINITION:\n")
	b.WriteString("M = (Q, Σ, δ, q₀, F) where:\n")
	fmt.Fprintf(&b, "  Q = {%s}\n", states)
	fmt.Fprintf(&b, "  Σ = {%s}\n", alphabet)
	fmt.Fprintf(&b, "  q₀ = %s\n", a.InitialState)
	fmt.Fprintf(&b, "  F = {%s}\n", accept)
	b.WriteString("  δ = transition function as defined above\n")
	b.WriteString(banner + "\n")

	b.WriteString("COPY-PASTE FORMAT FOR OTHER CHATBOTS:\n")
	b.WriteString(copyPasteHR)
	fmt.Fprintf(&b, "Type: %s\n", a.Type)
	fmt.Fprintf(&b, "States: %s\n", states)
	fmt.Fprintf(&b, "Alphabet: %s\n", alphabet)
	fmt.Fprintf(&b, "Initial State: %s\n", a.InitialState)
	fmt.Fprintf(&b, "Accept States: %s\n", accept)
	b.WriteString("Transitions:\n")
	for _, t := range a.Transitions {
		fmt.Fprintf(&b, "  (%s, %s) -> %s\n", t.From, t.Symbol, t.To)
	}

	return &Document{
		Filename: fmt.Sprintf("%s_automaton_%s.txt", a.Type, fileTimestamp(now)),
		Content:  b.String(),
	}
}

func exportGrammar(g *formalModels.Grammar, now time.Time) *Document {
	variables := strings.Join(g.Variables, ", ")
	terminals := strings.Join(g.Terminals, ", ")

	var b strings.Builder
	b.WriteString(banner)
	b.WriteString("      CONTEXT-FREE GRAMMAR (CFG)\n")
	b.WriteString(banner)
	fmt.Fprintf(&b, "Generated on: %s\n\n", now.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "VARIABLES (Non-terminals):\n  V = {%s}\n\n", variables)
	fmt.Fprintf(&b, "TERMINALS:\n  T = {%s}\n\n", terminals)
	fmt.Fprintf(&b, "START SYMBOL:\n  S = %s\n\n", g.StartSymbol)

	b.WriteString("PRODUCTION RULES:\n  P = {\n")
	for _, p := range g.Productions {
		fmt.Fprintf(&b, "    %s → %s\n", p.Variable, Alternatives(p.Bodies))
	}
	b.WriteString("  }\n\n")

	b.WriteString(banner)
	b.WriteString("FORMAL DEFINITION:\n")
	b.WriteString("G = (V, T, P, S) where:\n")
	fmt.Fprintf(&b, "  V = {%s} (Variables)\n", variables)
	fmt.Fprintf(&b, "  T = {%s} (Terminals)\n", terminals)
	fmt.Fprintf(&b, "  S = %s (Start Symbol)\n", g.StartSymbol)
	b.WriteString("  P = Production Rules as defined above\n")
	b.WriteString(banner + "\n")

	b.WriteString("COPY-PASTE FORMAT FOR OTHER CHATBOTS:\n")
	b.WriteString(copyPasteHR)
	fmt.Fprintf(&b, "Variables: %s\n", variables)
	fmt.Fprintf(&b, "Terminals: %s\n", terminals)
	fmt.Fprintf(&b, "Start Symbol: %s\n", g.StartSymbol)
	b.WriteString("Productions:\n")
	for _, p := range g.Productions {
		fmt.Fprintf(&b, "  %s -> %s\n", p.Variable, Alternatives(p.Bodies))
	}

	return &Document{
		Filename: fmt.Sprintf("CFG_grammar_%s.txt", fileTimestamp(now)),
		Content:  b.String(),
	}
}
