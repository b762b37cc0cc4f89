package llm

import (
	"regexp"
	"strings"
)

// diagramBlock matches the first ```dot fenced block; the body is non-greedy so
// later blocks are left in the answer text.
var diagramBlock = regexp.MustCompile("(?s)" + fence + DiagramFenceTag + "\n(.*?)\n" + fence)

// Extraction is a model reply split into prose and an optional DOT diagram
type Extraction struct {
	Answer      string
	DiagramCode string // empty when the reply had no diagram block
}

// HasDiagram reports whether a diagram block was found
func (e Extraction) HasDiagram() bool {
	return e.DiagramCode != ""
}

// ExtractResponse pulls the first DOT block out of raw. Without a block the
// answer is raw, untouched.
func ExtractResponse(raw string) Extraction {
	loc := diagramBlock.FindStringSubmatchIndex(raw)
	if loc == nil {
		return Extraction{Answer: raw}
	}

	return Extraction{
		Answer:      strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:]),
		DiagramCode: strings.TrimSpace(raw[loc[2]:loc[3]]),
	}
}
