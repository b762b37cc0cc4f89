package llm

import (
	"fmt"
	"strings"

	"automatonbot/internal/domain/models"
)

// DiagramFenceTag opens the fenced block the model is asked to put DOT code in.
const DiagramFenceTag = "dot"

const fence = "```"

const preamble = "You are an expert in automata theory and formal languages. Below is the context (if provided):"

const answerInstruction = "Provide a clear and accurate answer based on the context and conversation history. " +
	"If no context is provided, answer the question to the best of your knowledge."

// diagramInstruction is appended only for generation requests.
var diagramInstruction = strings.Join([]string{
	"If the question asks to generate an automaton (DFA, NFA, or PDA), also provide the Graphviz-DOT code to visualize it.",
	"Format the response as follows:",
	"- Main answer: The description of the automaton and any explanation.",
	"- Graphviz-DOT code: Wrapped in " + fence + DiagramFenceTag + "\\n...\\n" + fence + ".",
	"For example:",
	fence + DiagramFenceTag,
	"digraph G {",
	"    rankdir=LR;",
	"    start [shape=point];",
	"    q0 [shape=circle];",
	"    q1 [shape=doublecircle];",
	"    start -> q0;",
	`    q0 -> q1 [label="a"];`,
	`    q1 -> q0 [label="b"];`,
	"}",
	fence,
}, "\n")

// IsDiagramRequest reports whether the question asks for an automaton to be generated.
func IsDiagramRequest(question string) bool {
	q := strings.ToLower(question)
	if !strings.Contains(q, "generate") {
		return false
	}
	for _, kw := range []string{"automaton", "dfa", "nfa", "pda"} {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// ComposePrompt builds the single prompt sent to the model.
// description is the canonical structure text, empty when there is none.
// history is rendered oldest first.
func ComposePrompt(description string, history []models.Turn, question string) string {
	exchanges := make([]string, len(history))
	for i, turn := range history {
		exchanges[i] = fmt.Sprintf("User: %s\nAssistant: %s", turn.Question, turn.Answer)
	}

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(description, "\n"))
	b.WriteString("\n\nConversation history:\n")
	b.WriteString(strings.Join(exchanges, "\n\n"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "The user has asked: \"%s\"\n", question)
	b.WriteString(answerInstruction)
	b.WriteString("\n")

	if IsDiagramRequest(question) {
		b.WriteString("\n")
		b.WriteString(diagramInstruction)
		b.WriteString("\n")
	}

	return b.String()
}
