package formal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automatonbot/internal/domain"
)

var exportTime = time.Date(2024, 3, 9, 14, 5, 7, 123_000_000, time.UTC)

func TestExport_Automaton(t *testing.T) {
	doc, err := Export(sampleDFA(), exportTime)
	require.NoError(t, err)

	assert.Equal(t, "DFA_automaton_2024-03-09T14-05-07-123Z.txt", doc.Filename)
	assert.Contains(t, doc.Content, "DFA AUTOMATON")
	assert.Contains(t, doc.Content, "Generated on: 2024-03-09 14:05:07")
	assert.Contains(t, doc.Content, "STATES:\n  Q = {q0, q1}")
	assert.Contains(t, doc.Content, "ALPHABET:\n  Σ = {a}")
	assert.Contains(t, doc.Content, "TRANSITION FUNCTION:")
	assert.Contains(t, doc.Content, "  δ(q0, a) = q1\n")
	assert.Contains(t, doc.Content, "M = (Q, Σ, δ, q₀, F) where:")
	assert.Contains(t, doc.Content, "COPY-PASTE FORMAT FOR OTHER CHATBOTS:")
	assert.Contains(t, doc.Content, "  (q0, a) -> q1\n")
}

func TestExport_Grammar(t *testing.T) {
	doc, err := Export(sampleCFG(), exportTime)
	require.NoError(t, err)

	assert.Equal(t, "CFG_grammar_2024-03-09T14-05-07-123Z.txt", doc.Filename)
	assert.Contains(t, doc.Content, "CONTEXT-FREE GRAMMAR (CFG)")
	assert.Contains(t, doc.Content, "VARIABLES (Non-terminals):\n  V = {S, A}")
	assert.Contains(t, doc.Content, "TERMINALS:\n  T = {a, b}")
	assert.Contains(t, doc.Content, "    S → aA | ε\n")
	assert.Contains(t, doc.Content, "COPY-PASTE FORMAT FOR OTHER CHATBOTS:")
	assert.Contains(t, doc.Content, "  A -> b\n")
}

func TestExport_DoesNotValidate(t *testing.T) {
	a := sampleDFA()
	a.InitialState = "nowhere"

	doc, err := Export(a, exportTime)
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "q₀ = nowhere")
}

func TestExport_NoStructure(t *testing.T) {
	_, err := Export(nil, exportTime)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
