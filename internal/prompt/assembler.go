package prompt

import (
	"fmt"
	"strings"
)

const systemInstructions = `You are InsightForge, an expert Business Intelligence Analyst.
Use the provided statistical context to answer questions accurately and professionally.
If the answer is not in the context, politely say you don't have that information.`

// Assembler merges the excerpt, the fixed instruction template and the
// question into one text payload. No branching beyond substitution.
type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// System returns the fixed persona instructions for the chat system message.
func (a *Assembler) System() string {
	return systemInstructions
}

// User renders the human-turn payload from the excerpt and the question.
func (a *Assembler) User(excerpt, question string) string {
	var b strings.Builder
	b.WriteString("STATISTICAL CONTEXT:\n")
	b.WriteString(excerpt)
	b.WriteString(fmt.Sprintf("\n\nQUESTION: %s\n\n", question))
	b.WriteString("Provide a clear, professional business analysis:")
	return b.String()
}
